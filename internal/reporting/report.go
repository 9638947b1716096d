// Package reporting turns recorded batches into reconciliation reports. It
// reads the stored batch figures only and never reruns the allocation.
package reporting

import (
	"github.com/aburayhan/cargo-erp/internal/allocation"
	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/settings"
)

// CategoryRates breaks a side's per-kg cost into its components.
type CategoryRates struct {
	Kg      float64 `json:"kg"`
	Driver  float64 `json:"driverPerKg"`
	Store   float64 `json:"storePerKg"`
	Special float64 `json:"specialPerKg"`
	Total   float64 `json:"totalPerKg"`
}

// OwnerRow is one owner's line on the report.
type OwnerRow struct {
	OwnerName       string               `json:"ownerName"`
	OwnerType       allocation.OwnerType `json:"ownerType"`
	WeightKg        float64              `json:"weightKg"`
	ServiceFeePerKg float64              `json:"serviceFeePerKg"`
	DriverShare     float64              `json:"driverShare"`
	StoreShare      float64              `json:"storeShare"`
	SpecialShare    float64              `json:"specialShare"`
	CostShare       float64              `json:"costShare"`
	Revenue         float64              `json:"revenue"`
	NetResult       float64              `json:"netResult"`
	ManagingPartner bool                 `json:"managingPartner"`
	ProfitSplit     float64              `json:"profitSplit,omitempty"`
}

// SplitRow is a managing partner's share of net profit.
type SplitRow struct {
	Partner string  `json:"partner"`
	Amount  float64 `json:"amount"`
}

// Totals summarises the batch.
type Totals struct {
	PartnerKg     float64 `json:"partnerKg"`
	ClientKg      float64 `json:"clientKg"`
	PartnerCosts  float64 `json:"partnerCosts"`
	ClientRevenue float64 `json:"clientRevenue"`
	ClientCosts   float64 `json:"clientCosts"`
	NetProfit     float64 `json:"netProfit"`
}

// BatchReport is the reconciliation matrix of one batch.
type BatchReport struct {
	BusinessName string `json:"businessName"`
	LogoURL      string `json:"logoUrl,omitempty"`
	Currency     string `json:"currency"`

	ShipmentID   string `json:"shipmentId"`
	ShipmentName string `json:"shipmentName"`
	DispatchDate string `json:"dispatchDate"`
	BatchID      string `json:"batchId"`
	BatchDate    string `json:"batchDate"`

	DriverCost  float64 `json:"driverCost"`
	StoreCost   float64 `json:"storeCost"`
	FreightCost float64 `json:"freightCost"`
	PostalCost  float64 `json:"postalCost"`

	PartnerRates CategoryRates `json:"partnerRates"`
	ClientRates  CategoryRates `json:"clientRates"`

	Rows   []OwnerRow `json:"rows"`
	Totals Totals     `json:"totals"`
	Split  []SplitRow `json:"profitSplit"`
}

// BuildBatchReport assembles the report for a batch of a shipment.
func BuildBatchReport(biz settings.BusinessSettings, shipment ledger.Shipment, batch ledger.ArrivalBatch) BatchReport {
	rep := BatchReport{
		BusinessName: biz.Name,
		LogoURL:      biz.LogoURL,
		Currency:     biz.Currency,
		ShipmentID:   shipment.ID,
		ShipmentName: shipment.Name,
		DispatchDate: shipment.DispatchDate,
		BatchID:      batch.ID,
		BatchDate:    batch.BatchDate,
		DriverCost:   batch.DriverCost,
		StoreCost:    batch.StoreCost,
		FreightCost:  batch.FreightCost,
		PostalCost:   batch.PostalCost,
		PartnerRates: rates(batch.TotalPartnerKg, batch.DriverCost, batch.StoreCost, batch.FreightCost, batch.PartnerPerKgCost),
		ClientRates:  rates(batch.TotalClientKg, batch.DriverCost, batch.StoreCost, batch.PostalCost, batch.ClientPerKgCost),
		Rows:         make([]OwnerRow, 0, len(batch.Items)),
	}

	split := allocation.Split(batch.NetProfit)
	for _, item := range batch.Items {
		r := rep.ClientRates
		if item.OwnerType == allocation.OwnerPartner {
			r = rep.PartnerRates
		}
		row := OwnerRow{
			OwnerName:       item.OwnerName,
			OwnerType:       item.OwnerType,
			WeightKg:        item.ArrivedKg,
			ServiceFeePerKg: item.ServiceFeePerKg,
			DriverShare:     allocation.Round2(item.ArrivedKg * r.Driver),
			StoreShare:      allocation.Round2(item.ArrivedKg * r.Store),
			SpecialShare:    allocation.Round2(item.ArrivedKg * r.Special),
			CostShare:       allocation.Round2(item.ArrivedKg * r.Total),
			ManagingPartner: item.OwnerName == biz.Partner1 || item.OwnerName == biz.Partner2,
		}
		if item.OwnerType == allocation.OwnerClient {
			row.Revenue = allocation.Round2(item.ArrivedKg * item.ServiceFeePerKg)
			row.NetResult = allocation.Round2(row.Revenue - row.CostShare)
		} else {
			row.ServiceFeePerKg = 0
			row.NetResult = allocation.Round2(-row.CostShare)
		}
		if row.ManagingPartner {
			row.ProfitSplit = split
		}
		rep.Rows = append(rep.Rows, row)
	}

	rep.Totals = Totals{
		PartnerKg:     batch.TotalPartnerKg,
		ClientKg:      batch.TotalClientKg,
		PartnerCosts:  allocation.PartnerCost(batch.TotalPartnerKg, batch.PartnerPerKgCost),
		ClientRevenue: batch.TotalClientRevenue,
		ClientCosts:   batch.TotalClientCosts,
		NetProfit:     batch.NetProfit,
	}
	rep.Split = []SplitRow{
		{Partner: biz.Partner1, Amount: split},
		{Partner: biz.Partner2, Amount: split},
	}
	return rep
}

func rates(kg, driver, store, special, total float64) CategoryRates {
	r := CategoryRates{Kg: kg, Total: total}
	if kg > 0 {
		r.Driver = driver / kg
		r.Store = store / kg
		r.Special = special / kg
	}
	return r
}
