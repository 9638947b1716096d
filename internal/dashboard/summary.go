// Package dashboard aggregates the ledger into the overview and stockpile
// views, cached in Redis per ledger version.
package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aburayhan/cargo-erp/internal/allocation"
	"github.com/aburayhan/cargo-erp/internal/ledger"
)

// StatusCounts tallies shipments per lifecycle status.
type StatusCounts struct {
	InTransit        int `json:"inTransit"`
	PartiallyArrived int `json:"partiallyArrived"`
	Completed        int `json:"completed"`
}

// Summary is the financial overview across every recorded batch.
type Summary struct {
	TotalRevenue      float64      `json:"totalRevenue"`
	TotalPartnerCosts float64      `json:"totalPartnerCosts"`
	TotalClientCosts  float64      `json:"totalClientCosts"`
	NetProfit         float64      `json:"netProfit"`
	TotalWeightKg     float64      `json:"totalWeight"`
	PartnerWeightKg   float64      `json:"partnerWeight"`
	ClientWeightKg    float64      `json:"clientWeight"`
	Shipments         int          `json:"shipments"`
	Batches           int          `json:"batches"`
	Archived          int          `json:"archived"`
	ByStatus          StatusCounts `json:"byStatus"`
}

// Summarize totals the stored batch figures of all shipments, archived ones
// included.
func Summarize(shipments []ledger.Shipment) Summary {
	var (
		revenue, partnerCosts, clientCosts, net decimal.Decimal
		partnerKg, clientKg                     decimal.Decimal
		out                                     Summary
	)
	for _, s := range shipments {
		out.Shipments++
		if s.IsArchived {
			out.Archived++
		}
		switch s.Status {
		case ledger.StatusCompleted:
			out.ByStatus.Completed++
		case ledger.StatusPartiallyArrived:
			out.ByStatus.PartiallyArrived++
		default:
			out.ByStatus.InTransit++
		}
		for _, b := range s.Batches {
			out.Batches++
			revenue = revenue.Add(decimal.NewFromFloat(b.TotalClientRevenue))
			partnerCosts = partnerCosts.Add(decimal.NewFromFloat(allocation.PartnerCost(b.TotalPartnerKg, b.PartnerPerKgCost)))
			clientCosts = clientCosts.Add(decimal.NewFromFloat(b.TotalClientCosts))
			net = net.Add(decimal.NewFromFloat(b.NetProfit))
			partnerKg = partnerKg.Add(decimal.NewFromFloat(b.TotalPartnerKg))
			clientKg = clientKg.Add(decimal.NewFromFloat(b.TotalClientKg))
		}
	}
	out.TotalRevenue = money(revenue)
	out.TotalPartnerCosts = money(partnerCosts)
	out.TotalClientCosts = money(clientCosts)
	out.NetProfit = money(net)
	out.PartnerWeightKg = money(partnerKg)
	out.ClientWeightKg = money(clientKg)
	out.TotalWeightKg = money(partnerKg.Add(clientKg))
	return out
}

func money(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return allocation.Round2(v)
}

// OwnerStock is the cumulative weight of one owner across active shipments.
type OwnerStock struct {
	OwnerName   string               `json:"name"`
	OwnerType   allocation.OwnerType `json:"type"`
	ArrivedKg   float64              `json:"arrived"`
	PlannedKg   float64              `json:"planned"`
	RemainingKg float64              `json:"remaining"`
	Percent     float64              `json:"percent"`
}

// InventoryView is the stockpile per owner.
type InventoryView struct {
	Owners       []OwnerStock `json:"owners"`
	TotalInStore float64      `json:"totalInStore"`
	Shipments    int          `json:"shipments"`
}

// Inventory aggregates manifest lines of non-archived shipments by owner
// name. Owners are sorted by name.
func Inventory(shipments []ledger.Shipment) InventoryView {
	type acc struct {
		ownerType        allocation.OwnerType
		arrived, planned decimal.Decimal
	}
	byOwner := map[string]*acc{}
	view := InventoryView{Owners: []OwnerStock{}}
	for _, s := range shipments {
		if s.IsArchived {
			continue
		}
		view.Shipments++
		for _, item := range s.Items {
			a, ok := byOwner[item.OwnerName]
			if !ok {
				a = &acc{ownerType: item.OwnerType}
				byOwner[item.OwnerName] = a
			}
			a.arrived = a.arrived.Add(decimal.NewFromFloat(item.ArrivedKg))
			a.planned = a.planned.Add(decimal.NewFromFloat(item.PlannedKg))
		}
	}

	total := decimal.Zero
	for name, a := range byOwner {
		arrived := money(a.arrived)
		planned := money(a.planned)
		stock := OwnerStock{
			OwnerName:   name,
			OwnerType:   a.ownerType,
			ArrivedKg:   arrived,
			PlannedKg:   planned,
			RemainingKg: max(0, allocation.Round2(planned-arrived)),
		}
		if planned > 0 {
			stock.Percent = allocation.Round2(100 * arrived / planned)
		}
		view.Owners = append(view.Owners, stock)
		total = total.Add(a.arrived)
	}
	sort.Slice(view.Owners, func(i, j int) bool {
		return view.Owners[i].OwnerName < view.Owners[j].OwnerName
	})
	view.TotalInStore = money(total)
	return view
}
