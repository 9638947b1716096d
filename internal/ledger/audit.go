package ledger

import (
	"fmt"
	"math"

	"github.com/aburayhan/cargo-erp/internal/allocation"
)

// auditTolerance is the largest drift between stored and recomputed money
// or weight figures that is not reported.
const auditTolerance = 0.01

// FindingKind classifies an audit finding.
type FindingKind string

const (
	FindingBatchDrift       FindingKind = "batch_drift"
	FindingArrivalMismatch  FindingKind = "arrival_mismatch"
	FindingManifestOverrun  FindingKind = "manifest_overrun"
	FindingStatusMismatch   FindingKind = "status_mismatch"
	FindingForeignBatch     FindingKind = "foreign_batch"
	FindingUnknownBatchLine FindingKind = "unknown_batch_owner"
)

// Finding is one inconsistency in the stored ledger.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	ShipmentID string      `json:"shipmentId"`
	BatchID    string      `json:"batchId,omitempty"`
	OwnerName  string      `json:"ownerName,omitempty"`
	Field      string      `json:"field,omitempty"`
	Stored     float64     `json:"stored"`
	Expected   float64     `json:"expected"`
	Detail     string      `json:"detail,omitempty"`
}

// Audit checks stored shipments against their own inputs. Stored batch
// figures stay authoritative; the findings only report drift.
func Audit(shipments []Shipment) []Finding {
	var findings []Finding
	for _, s := range shipments {
		findings = append(findings, auditShipment(s)...)
	}
	return findings
}

func auditShipment(s Shipment) []Finding {
	var findings []Finding
	add := func(f Finding) {
		f.ShipmentID = s.ID
		findings = append(findings, f)
	}

	onManifest := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		onManifest[item.OwnerName] = true
	}

	perOwner := map[string]float64{}
	for _, b := range s.Batches {
		if b.MasterShipmentID != "" && b.MasterShipmentID != s.ID {
			add(Finding{Kind: FindingForeignBatch, BatchID: b.ID, Detail: fmt.Sprintf("batch references shipment %s", b.MasterShipmentID)})
		}
		for _, it := range b.Items {
			if !onManifest[it.OwnerName] {
				add(Finding{Kind: FindingUnknownBatchLine, BatchID: b.ID, OwnerName: it.OwnerName})
			}
			perOwner[it.OwnerName] += it.ArrivedKg
		}
		for _, d := range batchDrift(b) {
			d.BatchID = b.ID
			add(d)
		}
	}

	for _, item := range s.Items {
		sum := allocation.Round2(perOwner[item.OwnerName])
		if math.Abs(sum-item.ArrivedKg) > auditTolerance {
			add(Finding{Kind: FindingArrivalMismatch, OwnerName: item.OwnerName, Field: "arrivedKg", Stored: item.ArrivedKg, Expected: sum})
		}
		if item.ArrivedKg > item.PlannedKg+overrunSlack {
			add(Finding{Kind: FindingManifestOverrun, OwnerName: item.OwnerName, Field: "plannedKg", Stored: item.ArrivedKg, Expected: item.PlannedKg})
		}
	}

	if s.Status != StatusDraft {
		if want := DeriveStatus(s); s.Status != want {
			add(Finding{Kind: FindingStatusMismatch, Field: "status", Detail: fmt.Sprintf("stored %q, derived %q", s.Status, want)})
		}
	}
	return findings
}

func batchDrift(b ArrivalBatch) []Finding {
	arrivals := make([]allocation.OwnerArrival, 0, len(b.Items))
	for _, it := range b.Items {
		arrivals = append(arrivals, allocation.OwnerArrival{
			OwnerName:       it.OwnerName,
			OwnerType:       it.OwnerType,
			ArrivedKg:       it.ArrivedKg,
			ServiceFeePerKg: it.ServiceFeePerKg,
		})
	}
	res := allocation.Compute(allocation.CostInputs{
		DriverCost:  b.DriverCost,
		StoreCost:   b.StoreCost,
		FreightCost: b.FreightCost,
		PostalCost:  b.PostalCost,
	}, arrivals)

	checks := []struct {
		field            string
		stored, expected float64
	}{
		{"totalPartnerKg", b.TotalPartnerKg, res.TotalPartnerKg},
		{"totalClientKg", b.TotalClientKg, res.TotalClientKg},
		{"partnerPerKgCost", b.PartnerPerKgCost, res.PartnerPerKgCost},
		{"clientPerKgCost", b.ClientPerKgCost, res.ClientPerKgCost},
		{"totalClientRevenue", b.TotalClientRevenue, res.TotalClientRevenue},
		{"totalClientCosts", b.TotalClientCosts, res.TotalClientCosts},
		{"netProfit", b.NetProfit, res.NetProfit},
	}
	var out []Finding
	for _, c := range checks {
		if math.Abs(c.stored-c.expected) > auditTolerance {
			out = append(out, Finding{Kind: FindingBatchDrift, Field: c.field, Stored: c.stored, Expected: c.expected})
		}
	}
	return out
}
