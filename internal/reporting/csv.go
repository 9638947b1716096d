package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteBatchCSV exports the reconciliation matrix.
func WriteBatchCSV(w io.Writer, rep BatchReport) error {
	writer := csv.NewWriter(w)
	records := [][]string{
		{"Business", rep.BusinessName},
		{"Shipment", rep.ShipmentName},
		{"Dispatch Date", rep.DispatchDate},
		{"Batch Date", rep.BatchDate},
		{"Currency", rep.Currency},
		{},
		{"Owner", "Type", "Weight (KG)", "Fee/KG", "Driver Share", "Store Share", "Freight/Postal", "Total Cost", "Revenue", "Net Result", "Profit Split"},
	}
	for _, row := range rep.Rows {
		split := "-"
		if row.ManagingPartner {
			split = num(row.ProfitSplit)
		}
		revenue := "-"
		if row.OwnerType != "Partner" {
			revenue = num(row.Revenue)
		}
		records = append(records, []string{
			row.OwnerName,
			string(row.OwnerType),
			num(row.WeightKg),
			num(row.ServiceFeePerKg),
			num(row.DriverShare),
			num(row.StoreShare),
			num(row.SpecialShare),
			num(row.CostShare),
			revenue,
			num(row.NetResult),
			split,
		})
	}
	records = append(records,
		[]string{},
		[]string{"Metric", "Total", "Partner Rate/KG", "Client Rate/KG"},
		[]string{"Driver", num(rep.DriverCost), rate(rep.PartnerRates.Driver), rate(rep.ClientRates.Driver)},
		[]string{"Store", num(rep.StoreCost), rate(rep.PartnerRates.Store), rate(rep.ClientRates.Store)},
		[]string{"Freight", num(rep.FreightCost), rate(rep.PartnerRates.Special), "-"},
		[]string{"Postal", num(rep.PostalCost), "-", rate(rep.ClientRates.Special)},
		[]string{},
		[]string{"Client Revenue", num(rep.Totals.ClientRevenue)},
		[]string{"Client Costs", num(rep.Totals.ClientCosts)},
		[]string{"Partner Costs", num(rep.Totals.PartnerCosts)},
		[]string{"Net Profit", num(rep.Totals.NetProfit)},
	)
	for _, s := range rep.Split {
		records = append(records, []string{fmt.Sprintf("%s Split", s.Partner), num(s.Amount)})
	}
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
