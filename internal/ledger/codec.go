package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aburayhan/cargo-erp/internal/allocation"
)

// EncodeShipments serialises the full ledger document.
func EncodeShipments(shipments []Shipment) ([]byte, error) {
	if shipments == nil {
		shipments = []Shipment{}
	}
	return json.Marshal(shipments)
}

// DecodeShipments parses a ledger document. Numeric fields are read
// leniently since older rows may hold numbers as strings. Stored batch
// figures are taken as-is.
func DecodeShipments(data []byte) ([]Shipment, error) {
	var raw []wireShipment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ledger: decode shipments: %w", err)
	}
	out := make([]Shipment, 0, len(raw))
	for _, ws := range raw {
		out = append(out, ws.shipment())
	}
	return out, nil
}

type wireShipment struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	DispatchDate   string            `json:"dispatchDate"`
	Status         Status            `json:"status"`
	TotalPlannedKg allocation.Number `json:"totalPlannedKg"`
	Items          []wireItem        `json:"items"`
	Batches        []wireBatch       `json:"batches"`
	IsArchived     bool              `json:"isArchived"`
	CreatedAt      *time.Time        `json:"createdAt"`
	UpdatedAt      *time.Time        `json:"updatedAt"`
}

type wireItem struct {
	ID        string               `json:"id"`
	OwnerName string               `json:"ownerName"`
	OwnerType allocation.OwnerType `json:"ownerType"`
	PlannedKg allocation.Number    `json:"plannedKg"`
	ArrivedKg allocation.Number    `json:"arrivedKg"`
}

type wireArrival struct {
	ID              string               `json:"id"`
	OwnerName       string               `json:"ownerName"`
	OwnerType       allocation.OwnerType `json:"ownerType"`
	ArrivedKg       allocation.Number    `json:"arrivedKg"`
	ServiceFeePerKg allocation.Number    `json:"serviceFeePerKg"`
}

type wireBatch struct {
	ID                 string            `json:"id"`
	MasterShipmentID   string            `json:"masterShipmentId"`
	BatchDate          string            `json:"batchDate"`
	DriverCost         allocation.Number `json:"driverCost"`
	StoreCost          allocation.Number `json:"storeCost"`
	FreightCost        allocation.Number `json:"freightCost"`
	PostalCost         allocation.Number `json:"postalCost"`
	Items              []wireArrival     `json:"items"`
	TotalPartnerKg     allocation.Number `json:"totalPartnerKg"`
	TotalClientKg      allocation.Number `json:"totalClientKg"`
	PartnerPerKgCost   allocation.Number `json:"partnerPerKgCost"`
	ClientPerKgCost    allocation.Number `json:"clientPerKgCost"`
	TotalClientRevenue allocation.Number `json:"totalClientRevenue"`
	TotalClientCosts   allocation.Number `json:"totalClientCosts"`
	NetProfit          allocation.Number `json:"netProfit"`
	CreatedAt          *time.Time        `json:"createdAt"`
}

func (w wireShipment) shipment() Shipment {
	s := Shipment{
		ID:             w.ID,
		Name:           w.Name,
		DispatchDate:   w.DispatchDate,
		Status:         w.Status,
		TotalPlannedKg: w.TotalPlannedKg.Float(),
		Items:          make([]ShipmentItem, len(w.Items)),
		Batches:        make([]ArrivalBatch, len(w.Batches)),
		IsArchived:     w.IsArchived,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	for i, it := range w.Items {
		s.Items[i] = ShipmentItem{
			ID:        it.ID,
			OwnerName: it.OwnerName,
			OwnerType: it.OwnerType,
			PlannedKg: it.PlannedKg.Float(),
			ArrivedKg: it.ArrivedKg.Float(),
		}
	}
	for i, b := range w.Batches {
		s.Batches[i] = b.batch()
	}
	if s.Status == "" {
		s.Status = DeriveStatus(s)
	}
	return s
}

func (w wireBatch) batch() ArrivalBatch {
	b := ArrivalBatch{
		ID:                 w.ID,
		MasterShipmentID:   w.MasterShipmentID,
		BatchDate:          w.BatchDate,
		DriverCost:         w.DriverCost.Float(),
		StoreCost:          w.StoreCost.Float(),
		FreightCost:        w.FreightCost.Float(),
		PostalCost:         w.PostalCost.Float(),
		Items:              make([]ArrivalItem, len(w.Items)),
		TotalPartnerKg:     w.TotalPartnerKg.Float(),
		TotalClientKg:      w.TotalClientKg.Float(),
		PartnerPerKgCost:   w.PartnerPerKgCost.Float(),
		ClientPerKgCost:    w.ClientPerKgCost.Float(),
		TotalClientRevenue: w.TotalClientRevenue.Float(),
		TotalClientCosts:   w.TotalClientCosts.Float(),
		NetProfit:          w.NetProfit.Float(),
		CreatedAt:          w.CreatedAt,
	}
	for i, it := range w.Items {
		b.Items[i] = ArrivalItem{
			ID:              it.ID,
			OwnerName:       it.OwnerName,
			OwnerType:       it.OwnerType,
			ArrivedKg:       it.ArrivedKg.Float(),
			ServiceFeePerKg: it.ServiceFeePerKg.Float(),
		}
	}
	return b
}
