package ledger

import (
	"math"

	"github.com/aburayhan/cargo-erp/internal/allocation"
)

// StatusTolerance absorbs rounding drift when comparing arrived and planned
// weight.
const StatusTolerance = 0.1

// overrunSlack is the allowance when checking an arrival against the
// remaining planned weight of an owner.
const overrunSlack = 0.001

// ArrivedTotal sums the cumulative arrived weight across the manifest.
func ArrivedTotal(s Shipment) float64 {
	var total float64
	for _, item := range s.Items {
		total += item.ArrivedKg
	}
	return allocation.Round2(total)
}

// RemainingKg is the weight still expected for a manifest line.
func RemainingKg(item ShipmentItem) float64 {
	return allocation.Round2(item.PlannedKg - item.ArrivedKg)
}

// ProgressPercent reports arrived weight as a percentage of planned, capped
// at 100.
func ProgressPercent(s Shipment) float64 {
	if s.TotalPlannedKg <= 0 {
		return 0
	}
	return math.Min(100, allocation.Round2(100*ArrivedTotal(s)/s.TotalPlannedKg))
}

// DeriveStatus computes the shipment status from its batches and weights.
func DeriveStatus(s Shipment) Status {
	if len(s.Batches) == 0 {
		return StatusInTransit
	}
	arrived := ArrivedTotal(s)
	switch {
	case arrived >= s.TotalPlannedKg-StatusTolerance:
		return StatusCompleted
	case arrived > 0:
		return StatusPartiallyArrived
	default:
		return StatusInTransit
	}
}
