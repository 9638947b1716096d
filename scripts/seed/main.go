// Command seed writes a demo ledger through the persistence gateway. It
// refuses to overwrite a non-empty ledger unless -force is given.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aburayhan/cargo-erp/internal/allocation"
	"github.com/aburayhan/cargo-erp/internal/app"
	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	state, err := app.OpenState(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("open state: %v", err)
	}
	defer func() { _ = state.Close() }()

	existing, status := state.Gateway.Load(ctx)
	if status == persist.StatusError {
		log.Fatal("ledger could not be loaded from any store")
	}
	if len(existing) > 0 && !forced(os.Args[1:]) {
		log.Fatalf("ledger already holds %d shipments, rerun with -force to replace", len(existing))
	}

	svc := ledger.NewService(nil, ledger.ServiceConfig{Logger: logger})
	if err := seedLedger(ctx, svc, cfg.Partner1, cfg.Partner2); err != nil {
		log.Fatalf("seed: %v", err)
	}

	saved := state.Gateway.Save(ctx, svc.Snapshot())
	if saved == persist.StatusError {
		log.Fatal("seed: ledger could not be saved")
	}
	fmt.Printf("✓ Seed complete at %s (%s)\n", time.Now().Format(time.RFC3339), saved)
}

// seedLedger creates the demo shipments and batches through the service so
// every stored figure comes from the allocation engine.
func seedLedger(ctx context.Context, svc *ledger.Service, partner1, partner2 string) error {
	fmt.Println("→ Seeding shipments...")
	air, err := seedShipment(ctx, svc, "Air Cargo ADD-JFK 01", "2024-03-02", 500, []ledger.OwnerInput{
		{OwnerName: partner1, OwnerType: allocation.OwnerPartner, PlannedKg: 200},
		{OwnerName: partner2, OwnerType: allocation.OwnerPartner, PlannedKg: 100},
		{OwnerName: "Selam Trading", OwnerType: allocation.OwnerClient, PlannedKg: 120},
		{OwnerName: "Hagos Coffee", OwnerType: allocation.OwnerClient, PlannedKg: 80},
	})
	if err != nil {
		return fmt.Errorf("shipments: %w", err)
	}
	sea, err := seedShipment(ctx, svc, "Sea Freight DJI-NYC 02", "2024-04-10", 1200, []ledger.OwnerInput{
		{OwnerName: partner1, OwnerType: allocation.OwnerPartner, PlannedKg: 700},
		{OwnerName: "Abebe Spices", OwnerType: allocation.OwnerClient, PlannedKg: 500},
	})
	if err != nil {
		return fmt.Errorf("shipments: %w", err)
	}

	fmt.Println("→ Seeding arrival batches...")
	batches := []struct {
		shipment string
		input    ledger.RecordBatchInput
	}{
		{air.ID, ledger.RecordBatchInput{
			BatchDate: "2024-03-09",
			Costs:     ledger.CostInput{DriverCost: 60, StoreCost: 40, FreightCost: 50, PostalCost: 30},
			Lines: []ledger.BatchLineInput{
				{OwnerName: partner1, ArrivedKg: 150},
				{OwnerName: partner2, ArrivedKg: 100},
				{OwnerName: "Selam Trading", ArrivedKg: 100, ServiceFeePerKg: 4},
			},
		}},
		{air.ID, ledger.RecordBatchInput{
			BatchDate: "2024-03-16",
			Costs:     ledger.CostInput{DriverCost: 25, StoreCost: 15, FreightCost: 20, PostalCost: 18},
			Lines: []ledger.BatchLineInput{
				{OwnerName: partner1, ArrivedKg: 50},
				{OwnerName: "Selam Trading", ArrivedKg: 20, ServiceFeePerKg: 4},
				{OwnerName: "Hagos Coffee", ArrivedKg: 80, ServiceFeePerKg: 3.5},
			},
		}},
		{sea.ID, ledger.RecordBatchInput{
			BatchDate: "2024-05-02",
			Costs:     ledger.CostInput{DriverCost: 120, StoreCost: 80, FreightCost: 300, PostalCost: 45},
			Lines: []ledger.BatchLineInput{
				{OwnerName: partner1, ArrivedKg: 400},
				{OwnerName: "Abebe Spices", ArrivedKg: 250, ServiceFeePerKg: 2.25},
			},
		}},
	}
	for _, b := range batches {
		if _, err := svc.RecordBatch(ctx, b.shipment, b.input); err != nil {
			return fmt.Errorf("batches: %w", err)
		}
	}
	return nil
}

func seedShipment(ctx context.Context, svc *ledger.Service, name, date string, total allocation.Number, owners []ledger.OwnerInput) (ledger.Shipment, error) {
	return svc.CreateShipment(ctx, ledger.CreateShipmentInput{
		Name:           name,
		DispatchDate:   date,
		TotalPlannedKg: total,
		Owners:         owners,
	})
}

func forced(args []string) bool {
	for _, a := range args {
		if a == "-force" || a == "--force" {
			return true
		}
	}
	return false
}
