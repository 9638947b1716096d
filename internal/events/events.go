// Package events publishes ledger domain events for downstream consumers.
package events

import (
	"context"
	"time"
)

// Type names a ledger event.
type Type string

const (
	ShipmentCreated   Type = "shipment.created"
	ShipmentArchived  Type = "shipment.archived"
	ShipmentDeleted   Type = "shipment.deleted"
	BatchRecorded     Type = "batch.recorded"
	BatchDeleted      Type = "batch.deleted"
	BatchCostsUpdated Type = "batch.costs_updated"
)

// Event is the JSON value written for every ledger mutation.
type Event struct {
	Type       Type      `json:"type"`
	ShipmentID string    `json:"shipmentId"`
	BatchID    string    `json:"batchId,omitempty"`
	NetProfit  float64   `json:"netProfit"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
