package ledger

import (
	"errors"
	"time"

	"github.com/aburayhan/cargo-erp/internal/allocation"
)

// Status enumerates the shipment lifecycle derived from arrived weight.
type Status string

const (
	// StatusDraft marks a shipment that was never saved.
	StatusDraft Status = "Draft"
	// StatusInTransit marks a shipment with nothing arrived yet.
	StatusInTransit Status = "In Transit"
	// StatusPartiallyArrived marks a shipment with some weight arrived.
	StatusPartiallyArrived Status = "Partially Arrived"
	// StatusCompleted marks a shipment whose planned weight has arrived.
	StatusCompleted Status = "Completed"
)

// ShipmentItem is one manifest line: an owner's planned and cumulative
// arrived weight within a shipment.
type ShipmentItem struct {
	ID        string               `json:"id"`
	OwnerName string               `json:"ownerName"`
	OwnerType allocation.OwnerType `json:"ownerType"`
	PlannedKg float64              `json:"plannedKg"`
	ArrivedKg float64              `json:"arrivedKg"`
}

// ArrivalItem is an owner's line within a batch.
type ArrivalItem struct {
	ID              string               `json:"id"`
	OwnerName       string               `json:"ownerName"`
	OwnerType       allocation.OwnerType `json:"ownerType"`
	ArrivedKg       float64              `json:"arrivedKg"`
	ServiceFeePerKg float64              `json:"serviceFeePerKg"`
}

// ArrivalBatch is the immutable financial snapshot of one arrival event. The
// derived fields are computed once when the batch is recorded and stored as
// data afterwards.
type ArrivalBatch struct {
	ID               string        `json:"id"`
	MasterShipmentID string        `json:"masterShipmentId"`
	BatchDate        string        `json:"batchDate"`
	DriverCost       float64       `json:"driverCost"`
	StoreCost        float64       `json:"storeCost"`
	FreightCost      float64       `json:"freightCost"`
	PostalCost       float64       `json:"postalCost"`
	Items            []ArrivalItem `json:"items"`

	TotalPartnerKg     float64 `json:"totalPartnerKg"`
	TotalClientKg      float64 `json:"totalClientKg"`
	PartnerPerKgCost   float64 `json:"partnerPerKgCost"`
	ClientPerKgCost    float64 `json:"clientPerKgCost"`
	TotalClientRevenue float64 `json:"totalClientRevenue"`
	TotalClientCosts   float64 `json:"totalClientCosts"`
	NetProfit          float64 `json:"netProfit"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Shipment is a master shipment with its manifest and arrival history.
type Shipment struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	DispatchDate   string         `json:"dispatchDate"`
	Status         Status         `json:"status"`
	TotalPlannedKg float64        `json:"totalPlannedKg"`
	Items          []ShipmentItem `json:"items"`
	Batches        []ArrivalBatch `json:"batches"`
	IsArchived     bool           `json:"isArchived,omitempty"`
	CreatedAt      *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
}

// View selects shipments by archive state.
type View string

const (
	ViewActive   View = "active"
	ViewArchived View = "archived"
	ViewAll      View = "all"
)

// ListFilter narrows List results.
type ListFilter struct {
	View View
}

// BatchView pairs a batch with the shipment it belongs to.
type BatchView struct {
	Batch        ArrivalBatch `json:"batch"`
	ShipmentID   string       `json:"shipmentId"`
	ShipmentName string       `json:"shipmentName"`
	DispatchDate string       `json:"dispatchDate"`
	IsArchived   bool         `json:"isArchived"`
}

// OwnerInput declares an owner's planned allocation on a new shipment.
type OwnerInput struct {
	OwnerName string               `json:"ownerName" validate:"required,max=120"`
	OwnerType allocation.OwnerType `json:"ownerType" validate:"required,oneof=Partner Client"`
	PlannedKg allocation.Number    `json:"plannedKg" validate:"gte=0,lte=1e12"`
}

// CreateShipmentInput captures a new shipment definition.
type CreateShipmentInput struct {
	Name           string            `json:"name" validate:"required,max=200"`
	DispatchDate   string            `json:"dispatchDate" validate:"required,datetime=2006-01-02"`
	TotalPlannedKg allocation.Number `json:"totalPlannedKg" validate:"gt=0,lte=1e12"`
	Owners         []OwnerInput      `json:"owners" validate:"required,min=1,dive"`
	// AutoBalance assigns the remaining planned weight to the last owner
	// instead of rejecting a mismatched manifest.
	AutoBalance bool `json:"autoBalance,omitempty"`
}

// BatchLineInput is one owner's arrived weight in a batch request. Numeric
// fields accept numbers, numeric strings or empty values, which count as 0.
type BatchLineInput struct {
	OwnerName       string            `json:"ownerName" validate:"required"`
	ArrivedKg       allocation.Number `json:"arrivedKg" validate:"gte=0,lte=1e12"`
	ServiceFeePerKg allocation.Number `json:"serviceFeePerKg" validate:"gte=0,lte=1e12"`
}

// CostInput carries the four shared costs of an arrival event. Blank or
// unparsable amounts count as 0.
type CostInput struct {
	DriverCost  allocation.Number `json:"driverCost" validate:"gte=0,lte=1e12"`
	StoreCost   allocation.Number `json:"storeCost" validate:"gte=0,lte=1e12"`
	FreightCost allocation.Number `json:"freightCost" validate:"gte=0,lte=1e12"`
	PostalCost  allocation.Number `json:"postalCost" validate:"gte=0,lte=1e12"`
}

// RecordBatchInput captures an arrival event.
type RecordBatchInput struct {
	BatchDate string           `json:"batchDate" validate:"required,datetime=2006-01-02"`
	Costs     CostInput        `json:"costs"`
	Lines     []BatchLineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateBatchCostsInput corrects the costs or date of a recorded batch.
type UpdateBatchCostsInput struct {
	BatchDate string    `json:"batchDate" validate:"omitempty,datetime=2006-01-02"`
	Costs     CostInput `json:"costs"`
	// Fees optionally overrides client service fees keyed by owner name.
	Fees map[string]allocation.Number `json:"fees,omitempty" validate:"omitempty,dive,gte=0,lte=1e12"`
}

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrShipmentNotFound occurs when a shipment id is unknown.
	ErrShipmentNotFound = errors.New("ledger: shipment not found")
	// ErrBatchNotFound occurs when a batch id is unknown.
	ErrBatchNotFound = errors.New("ledger: batch not found")
	// ErrWeightMismatch occurs when owner allocations do not sum to the shipment total.
	ErrWeightMismatch = errors.New("ledger: owner allocations do not match total planned weight")
	// ErrUnknownOwner occurs when a batch names an owner missing from the manifest.
	ErrUnknownOwner = errors.New("ledger: owner not on manifest")
	// ErrDuplicateOwner occurs when an owner appears twice in one request.
	ErrDuplicateOwner = errors.New("ledger: duplicate owner")
	// ErrManifestOverrun occurs when an arrival exceeds an owner's remaining weight.
	ErrManifestOverrun = errors.New("ledger: arrival exceeds remaining planned weight")
)
