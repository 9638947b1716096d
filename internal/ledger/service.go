// Package ledger holds the in-memory shipment collection and is the only
// place where cumulative arrived weight changes.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aburayhan/cargo-erp/internal/allocation"
	"github.com/aburayhan/cargo-erp/internal/events"
)

// Notifier is told about every mutation with a snapshot of the full ledger.
type Notifier interface {
	Changed(shipments []Shipment)
}

// ServiceConfig wires optional collaborators.
type ServiceConfig struct {
	Notifier  Notifier
	Publisher events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Service coordinates shipment and batch mutations.
type Service struct {
	mu        sync.RWMutex
	shipments []Shipment
	version   int64

	notifier  Notifier
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService builds the service around an initial shipment list.
func NewService(shipments []Shipment, cfg ServiceConfig) *Service {
	s := &Service{
		shipments: cloneShipments(shipments),
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// List returns shipments newest first, filtered by archive state.
func (s *Service) List(filter ListFilter) []Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Shipment, 0, len(s.shipments))
	for _, sh := range s.shipments {
		switch filter.View {
		case ViewAll:
		case ViewArchived:
			if !sh.IsArchived {
				continue
			}
		default:
			if sh.IsArchived {
				continue
			}
		}
		out = append(out, cloneShipment(sh))
	}
	return out
}

// Get returns a shipment by id.
func (s *Service) Get(id string) (Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Shipment{}, ErrShipmentNotFound
	}
	return cloneShipment(s.shipments[idx]), nil
}

// CreateShipment validates a manifest and adds a new shipment in transit.
func (s *Service) CreateShipment(ctx context.Context, input CreateShipmentInput) (Shipment, error) {
	if err := input.Validate(); err != nil {
		return Shipment{}, err
	}
	seen := make(map[string]struct{}, len(input.Owners))
	var planned float64
	items := make([]ShipmentItem, 0, len(input.Owners))
	for _, owner := range input.Owners {
		name := strings.TrimSpace(owner.OwnerName)
		if name == "" {
			return Shipment{}, fmt.Errorf("%w: owner name is required", ErrInvalidInput)
		}
		if _, dup := seen[name]; dup {
			return Shipment{}, fmt.Errorf("%w: %s", ErrDuplicateOwner, name)
		}
		seen[name] = struct{}{}
		kg := allocation.Round2(owner.PlannedKg.Float())
		planned += kg
		items = append(items, ShipmentItem{
			ID:        s.newID(),
			OwnerName: name,
			OwnerType: owner.OwnerType,
			PlannedKg: kg,
		})
	}
	total := allocation.Round2(input.TotalPlannedKg.Float())
	if math.Abs(allocation.Round2(planned)-total) > StatusTolerance {
		if !input.AutoBalance {
			return Shipment{}, fmt.Errorf("%w: allocated %.2f kg of %.2f kg", ErrWeightMismatch, allocation.Round2(planned), total)
		}
		if err := balanceLast(items, total); err != nil {
			return Shipment{}, err
		}
	}

	now := s.now().UTC()
	shipment := Shipment{
		ID:             s.newID(),
		Name:           strings.TrimSpace(input.Name),
		DispatchDate:   input.DispatchDate,
		Status:         StatusInTransit,
		TotalPlannedKg: total,
		Items:          items,
		Batches:        []ArrivalBatch{},
		CreatedAt:      &now,
		UpdatedAt:      &now,
	}

	s.mu.Lock()
	s.shipments = append([]Shipment{shipment}, s.shipments...)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{Type: events.ShipmentCreated, ShipmentID: shipment.ID})
	return cloneShipment(shipment), nil
}

// balanceLast gives the last owner whatever planned weight the others leave
// of total. A negative remainder means the other owners already exceed it.
func balanceLast(items []ShipmentItem, total float64) error {
	last := len(items) - 1
	var others float64
	for _, item := range items[:last] {
		others += item.PlannedKg
	}
	remainder := allocation.Round2(total - allocation.Round2(others))
	if remainder < 0 {
		return fmt.Errorf("%w: other owners already hold %.2f kg of %.2f kg", ErrWeightMismatch, allocation.Round2(others), total)
	}
	items[last].PlannedKg = remainder
	return nil
}

// RecordBatch validates an arrival event against the manifest, runs the
// allocation engine and appends the resulting batch.
func (s *Service) RecordBatch(ctx context.Context, shipmentID string, input RecordBatchInput) (ArrivalBatch, error) {
	if err := input.Validate(); err != nil {
		return ArrivalBatch{}, err
	}

	s.mu.Lock()
	idx := s.indexOf(shipmentID)
	if idx < 0 {
		s.mu.Unlock()
		return ArrivalBatch{}, ErrShipmentNotFound
	}
	shipment := s.shipments[idx]

	lines, err := matchLines(shipment, input.Lines)
	if err != nil {
		s.mu.Unlock()
		return ArrivalBatch{}, err
	}

	arrivals := make([]allocation.OwnerArrival, len(shipment.Items))
	for i, item := range shipment.Items {
		line := lines[item.OwnerName]
		arrivals[i] = allocation.OwnerArrival{
			OwnerName:       item.OwnerName,
			OwnerType:       item.OwnerType,
			ArrivedKg:       line.ArrivedKg.Float(),
			ServiceFeePerKg: line.ServiceFeePerKg.Float(),
		}
	}
	res := allocation.Compute(input.Costs.toAllocation(), arrivals)

	now := s.now().UTC()
	batch := ArrivalBatch{
		ID:               s.newID(),
		MasterShipmentID: shipment.ID,
		BatchDate:        input.BatchDate,
		Items:            make([]ArrivalItem, len(res.Arrivals)),
		CreatedAt:        &now,
	}
	applyResult(&batch, res)
	for i, a := range res.Arrivals {
		batch.Items[i] = ArrivalItem{
			ID:              s.newID(),
			OwnerName:       a.OwnerName,
			OwnerType:       a.OwnerType,
			ArrivedKg:       a.ArrivedKg,
			ServiceFeePerKg: a.ServiceFeePerKg,
		}
	}

	updated := cloneShipment(shipment)
	for i := range updated.Items {
		updated.Items[i].ArrivedKg = allocation.Round2(updated.Items[i].ArrivedKg + batch.Items[i].ArrivedKg)
	}
	updated.Batches = append(updated.Batches, batch)
	updated.Status = DeriveStatus(updated)
	updated.UpdatedAt = &now
	s.shipments[idx] = updated
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{
		Type:       events.BatchRecorded,
		ShipmentID: shipment.ID,
		BatchID:    batch.ID,
		NetProfit:  batch.NetProfit,
	})
	return cloneBatch(batch), nil
}

// matchLines checks batch lines against the manifest and returns them keyed
// by owner name with weights and fees rounded. All-zero weights are allowed
// and record a cost-only arrival.
func matchLines(shipment Shipment, in []BatchLineInput) (map[string]BatchLineInput, error) {
	manifest := make(map[string]ShipmentItem, len(shipment.Items))
	for _, item := range shipment.Items {
		manifest[item.OwnerName] = item
	}
	lines := make(map[string]BatchLineInput, len(in))
	for _, line := range in {
		name := strings.TrimSpace(line.OwnerName)
		item, ok := manifest[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOwner, name)
		}
		if _, dup := lines[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOwner, name)
		}
		kg := allocation.Round2(line.ArrivedKg.Float())
		remaining := RemainingKg(item)
		if kg > remaining+overrunSlack {
			return nil, fmt.Errorf("%w: %s has %.2f kg remaining, got %.2f kg", ErrManifestOverrun, name, remaining, kg)
		}
		lines[name] = BatchLineInput{
			OwnerName:       name,
			ArrivedKg:       allocation.Number(kg),
			ServiceFeePerKg: allocation.Number(allocation.Round2(line.ServiceFeePerKg.Float())),
		}
	}
	return lines, nil
}

// DeleteBatch removes a batch and reverses its weight contribution.
func (s *Service) DeleteBatch(ctx context.Context, shipmentID, batchID string) error {
	s.mu.Lock()
	idx := s.indexOf(shipmentID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrShipmentNotFound
	}
	shipment := s.shipments[idx]
	bIdx := batchIndex(shipment, batchID)
	if bIdx < 0 {
		s.mu.Unlock()
		return ErrBatchNotFound
	}
	batch := shipment.Batches[bIdx]

	updated := cloneShipment(shipment)
	for _, line := range batch.Items {
		for i := range updated.Items {
			if updated.Items[i].OwnerName == line.OwnerName {
				updated.Items[i].ArrivedKg = math.Max(0, allocation.Round2(updated.Items[i].ArrivedKg-line.ArrivedKg))
			}
		}
	}
	updated.Batches = append(updated.Batches[:bIdx], updated.Batches[bIdx+1:]...)
	updated.Status = DeriveStatus(updated)
	now := s.now().UTC()
	updated.UpdatedAt = &now
	s.shipments[idx] = updated
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{
		Type:       events.BatchDeleted,
		ShipmentID: shipmentID,
		BatchID:    batchID,
		NetProfit:  batch.NetProfit,
	})
	return nil
}

// UpdateBatchCosts re-runs the allocation engine for a recorded batch with
// corrected costs. Weights are left as recorded.
func (s *Service) UpdateBatchCosts(ctx context.Context, shipmentID, batchID string, input UpdateBatchCostsInput) (ArrivalBatch, error) {
	if err := input.Validate(); err != nil {
		return ArrivalBatch{}, err
	}

	s.mu.Lock()
	idx := s.indexOf(shipmentID)
	if idx < 0 {
		s.mu.Unlock()
		return ArrivalBatch{}, ErrShipmentNotFound
	}
	bIdx := batchIndex(s.shipments[idx], batchID)
	if bIdx < 0 {
		s.mu.Unlock()
		return ArrivalBatch{}, ErrBatchNotFound
	}

	updated := cloneShipment(s.shipments[idx])
	batch := updated.Batches[bIdx]
	arrivals := make([]allocation.OwnerArrival, len(batch.Items))
	for i, item := range batch.Items {
		fee := item.ServiceFeePerKg
		if override, ok := input.Fees[item.OwnerName]; ok && item.OwnerType == allocation.OwnerClient {
			fee = override.Float()
		}
		arrivals[i] = allocation.OwnerArrival{
			OwnerName:       item.OwnerName,
			OwnerType:       item.OwnerType,
			ArrivedKg:       item.ArrivedKg,
			ServiceFeePerKg: fee,
		}
	}
	res := allocation.Compute(input.Costs.toAllocation(), arrivals)
	applyResult(&batch, res)
	for i, a := range res.Arrivals {
		batch.Items[i].ServiceFeePerKg = a.ServiceFeePerKg
	}
	if input.BatchDate != "" {
		batch.BatchDate = input.BatchDate
	}
	updated.Batches[bIdx] = batch
	now := s.now().UTC()
	updated.UpdatedAt = &now
	s.shipments[idx] = updated
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{
		Type:       events.BatchCostsUpdated,
		ShipmentID: shipmentID,
		BatchID:    batchID,
		NetProfit:  batch.NetProfit,
	})
	return cloneBatch(batch), nil
}

// SetArchived hides or restores a shipment.
func (s *Service) SetArchived(ctx context.Context, shipmentID string, archived bool) (Shipment, error) {
	return s.archive(ctx, shipmentID, func(bool) bool { return archived })
}

// ToggleArchive flips the archived flag.
func (s *Service) ToggleArchive(ctx context.Context, shipmentID string) (Shipment, error) {
	return s.archive(ctx, shipmentID, func(cur bool) bool { return !cur })
}

func (s *Service) archive(ctx context.Context, shipmentID string, next func(bool) bool) (Shipment, error) {
	s.mu.Lock()
	idx := s.indexOf(shipmentID)
	if idx < 0 {
		s.mu.Unlock()
		return Shipment{}, ErrShipmentNotFound
	}
	updated := cloneShipment(s.shipments[idx])
	updated.IsArchived = next(updated.IsArchived)
	now := s.now().UTC()
	updated.UpdatedAt = &now
	s.shipments[idx] = updated
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{Type: events.ShipmentArchived, ShipmentID: shipmentID})
	return cloneShipment(updated), nil
}

// DeleteShipment permanently removes a shipment and its batches.
func (s *Service) DeleteShipment(ctx context.Context, shipmentID string) error {
	s.mu.Lock()
	idx := s.indexOf(shipmentID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrShipmentNotFound
	}
	s.shipments = append(s.shipments[:idx:idx], s.shipments[idx+1:]...)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.afterCommit(ctx, snap, events.Event{Type: events.ShipmentDeleted, ShipmentID: shipmentID})
	return nil
}

// Batches lists every batch with its shipment, latest batch date first.
func (s *Service) Batches() []BatchView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []BatchView
	for _, sh := range s.shipments {
		for _, b := range sh.Batches {
			out = append(out, BatchView{
				Batch:        cloneBatch(b),
				ShipmentID:   sh.ID,
				ShipmentName: sh.Name,
				DispatchDate: sh.DispatchDate,
				IsArchived:   sh.IsArchived,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Batch.BatchDate > out[j].Batch.BatchDate
	})
	return out
}

// FindBatch locates a batch by id across all shipments.
func (s *Service) FindBatch(batchID string) (Shipment, ArrivalBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shipments {
		if i := batchIndex(sh, batchID); i >= 0 {
			return cloneShipment(sh), cloneBatch(sh.Batches[i]), nil
		}
	}
	return Shipment{}, ArrivalBatch{}, ErrBatchNotFound
}

// Snapshot returns a deep copy of every shipment.
func (s *Service) Snapshot() []Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneShipments(s.shipments)
}

// Version increases on every mutation and on Replace.
func (s *Service) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Replace swaps the whole collection, typically with state loaded at
// startup. The notifier is not called.
func (s *Service) Replace(shipments []Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments = cloneShipments(shipments)
	s.version++
}

func (s *Service) commitLocked() []Shipment {
	s.version++
	return cloneShipments(s.shipments)
}

func (s *Service) afterCommit(ctx context.Context, snap []Shipment, ev events.Event) {
	if s.notifier != nil {
		s.notifier.Changed(snap)
	}
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish ledger event",
			slog.String("type", string(ev.Type)),
			slog.String("shipment_id", ev.ShipmentID),
			slog.Any("error", err))
	}
}

func (s *Service) indexOf(id string) int {
	for i := range s.shipments {
		if s.shipments[i].ID == id {
			return i
		}
	}
	return -1
}

func batchIndex(sh Shipment, batchID string) int {
	for i := range sh.Batches {
		if sh.Batches[i].ID == batchID {
			return i
		}
	}
	return -1
}

func (c CostInput) toAllocation() allocation.CostInputs {
	return allocation.CostInputs{
		DriverCost:  c.DriverCost.Float(),
		StoreCost:   c.StoreCost.Float(),
		FreightCost: c.FreightCost.Float(),
		PostalCost:  c.PostalCost.Float(),
	}
}

func applyResult(b *ArrivalBatch, res allocation.Result) {
	b.DriverCost = res.Costs.DriverCost
	b.StoreCost = res.Costs.StoreCost
	b.FreightCost = res.Costs.FreightCost
	b.PostalCost = res.Costs.PostalCost
	b.TotalPartnerKg = res.TotalPartnerKg
	b.TotalClientKg = res.TotalClientKg
	b.PartnerPerKgCost = res.PartnerPerKgCost
	b.ClientPerKgCost = res.ClientPerKgCost
	b.TotalClientRevenue = res.TotalClientRevenue
	b.TotalClientCosts = res.TotalClientCosts
	b.NetProfit = res.NetProfit
}

func cloneShipments(in []Shipment) []Shipment {
	out := make([]Shipment, len(in))
	for i := range in {
		out[i] = cloneShipment(in[i])
	}
	return out
}

func cloneShipment(in Shipment) Shipment {
	out := in
	out.Items = append([]ShipmentItem(nil), in.Items...)
	out.Batches = make([]ArrivalBatch, len(in.Batches))
	for i := range in.Batches {
		out.Batches[i] = cloneBatch(in.Batches[i])
	}
	return out
}

func cloneBatch(in ArrivalBatch) ArrivalBatch {
	out := in
	out.Items = append([]ArrivalItem(nil), in.Items...)
	return out
}
