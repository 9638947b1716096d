package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aburayhan/cargo-erp/internal/allocation"
	"github.com/aburayhan/cargo-erp/internal/events"
)

type recordingNotifier struct {
	mu    sync.Mutex
	snaps [][]Shipment
}

func (n *recordingNotifier) Changed(shipments []Shipment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snaps = append(n.snaps, shipments)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snaps)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func ctx() context.Context { return context.Background() }

func newTestService(t *testing.T, pub events.Publisher) *Service {
	t.Helper()
	seq := 0
	return NewService(nil, ServiceConfig{
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
}

func sampleShipmentInput() CreateShipmentInput {
	return CreateShipmentInput{
		Name:           "March air cargo",
		DispatchDate:   "2024-03-01",
		TotalPlannedKg: 250,
		Owners: []OwnerInput{
			{OwnerName: "Partner A", OwnerType: allocation.OwnerPartner, PlannedKg: 100},
			{OwnerName: "Partner B", OwnerType: allocation.OwnerPartner, PlannedKg: 100},
			{OwnerName: "Client C", OwnerType: allocation.OwnerClient, PlannedKg: 50},
		},
	}
}

func sampleBatch() RecordBatchInput {
	return RecordBatchInput{
		BatchDate: "2024-03-10",
		Costs:     CostInput{DriverCost: 100, StoreCost: 50, FreightCost: 30, PostalCost: 20},
		Lines: []BatchLineInput{
			{OwnerName: "Partner A", ArrivedKg: 100},
			{OwnerName: "Partner B", ArrivedKg: 100},
			{OwnerName: "Client C", ArrivedKg: 50, ServiceFeePerKg: 2.5},
		},
	}
}

func createSample(t *testing.T, svc *Service) Shipment {
	t.Helper()
	s, err := svc.CreateShipment(ctx(), sampleShipmentInput())
	require.NoError(t, err)
	return s
}

func TestCreateShipment(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	notifier := &recordingNotifier{}
	svc.notifier = notifier

	s := createSample(t, svc)
	assert.Equal(t, StatusInTransit, s.Status)
	assert.Equal(t, 250.0, s.TotalPlannedKg)
	require.Len(t, s.Items, 3)
	for _, item := range s.Items {
		assert.Zero(t, item.ArrivedKg)
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, int64(1), svc.Version())
	assert.Equal(t, 1, notifier.count())
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ShipmentCreated, pub.events[0].Type)
	assert.Equal(t, s.ID, pub.events[0].ShipmentID)
}

func TestCreateShipmentWeightTolerance(t *testing.T) {
	svc := newTestService(t, nil)

	in := sampleShipmentInput()
	in.TotalPlannedKg = 250.1
	_, err := svc.CreateShipment(ctx(), in)
	require.NoError(t, err)

	in.TotalPlannedKg = 250.5
	_, err = svc.CreateShipment(ctx(), in)
	require.ErrorIs(t, err, ErrWeightMismatch)
}

func TestCreateShipmentAutoBalance(t *testing.T) {
	svc := newTestService(t, nil)

	in := sampleShipmentInput()
	in.TotalPlannedKg = 260
	_, err := svc.CreateShipment(ctx(), in)
	require.ErrorIs(t, err, ErrWeightMismatch)

	in.AutoBalance = true
	s, err := svc.CreateShipment(ctx(), in)
	require.NoError(t, err)
	require.Len(t, s.Items, 3)
	assert.Equal(t, 100.0, s.Items[0].PlannedKg)
	assert.Equal(t, 100.0, s.Items[1].PlannedKg)
	assert.Equal(t, 60.0, s.Items[2].PlannedKg)
	assert.Equal(t, 260.0, s.TotalPlannedKg)

	shrink := sampleShipmentInput()
	shrink.AutoBalance = true
	shrink.TotalPlannedKg = 230.55
	s, err = svc.CreateShipment(ctx(), shrink)
	require.NoError(t, err)
	assert.Equal(t, 30.55, s.Items[2].PlannedKg)
}

func TestCreateShipmentAutoBalanceNegativeRemainder(t *testing.T) {
	svc := newTestService(t, nil)

	in := sampleShipmentInput()
	in.AutoBalance = true
	in.TotalPlannedKg = 150
	_, err := svc.CreateShipment(ctx(), in)
	require.ErrorIs(t, err, ErrWeightMismatch)
	assert.Empty(t, svc.List(ListFilter{View: ViewAll}))
}

func TestCreateShipmentRejectsOversizedWeights(t *testing.T) {
	svc := newTestService(t, nil)

	in := sampleShipmentInput()
	in.TotalPlannedKg = 1e307
	in.Owners[2].PlannedKg = 1e307
	_, err := svc.CreateShipment(ctx(), in)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "must not exceed")
}

func TestCreateShipmentValidation(t *testing.T) {
	svc := newTestService(t, nil)

	cases := map[string]func(*CreateShipmentInput){
		"missing name":   func(in *CreateShipmentInput) { in.Name = "" },
		"bad date":       func(in *CreateShipmentInput) { in.DispatchDate = "01/03/2024" },
		"zero total":     func(in *CreateShipmentInput) { in.TotalPlannedKg = 0 },
		"no owners":      func(in *CreateShipmentInput) { in.Owners = nil },
		"bad owner type": func(in *CreateShipmentInput) { in.Owners[0].OwnerType = "Investor" },
		"negative kg":    func(in *CreateShipmentInput) { in.Owners[0].PlannedKg = -1 },
		"blank owner":    func(in *CreateShipmentInput) { in.Owners[0].OwnerName = "   " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := sampleShipmentInput()
			mutate(&in)
			_, err := svc.CreateShipment(ctx(), in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	in := sampleShipmentInput()
	in.Owners[1].OwnerName = "Partner A"
	_, err := svc.CreateShipment(ctx(), in)
	require.ErrorIs(t, err, ErrDuplicateOwner)
	assert.Empty(t, svc.List(ListFilter{View: ViewAll}))
}

func TestRecordBatch(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	s := createSample(t, svc)

	batch, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	assert.Equal(t, s.ID, batch.MasterShipmentID)
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, 200.0, batch.TotalPartnerKg)
	assert.Equal(t, 50.0, batch.TotalClientKg)
	assert.Equal(t, 0.9, batch.PartnerPerKgCost)
	assert.Equal(t, 3.4, batch.ClientPerKgCost)
	assert.Equal(t, 125.0, batch.TotalClientRevenue)
	assert.Equal(t, 170.0, batch.TotalClientCosts)
	assert.Equal(t, -45.0, batch.NetProfit)
	require.Len(t, batch.Items, 3)
	assert.Equal(t, allocation.OwnerClient, batch.Items[2].OwnerType)

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100.0, ProgressPercent(got))
	require.Len(t, got.Batches, 1)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.BatchRecorded, pub.events[1].Type)
	assert.Equal(t, -45.0, pub.events[1].NetProfit)
}

func TestRecordBatchPartialAndAbsentOwners(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	batch, err := svc.RecordBatch(ctx(), s.ID, RecordBatchInput{
		BatchDate: "2024-03-05",
		Lines:     []BatchLineInput{{OwnerName: "Client C", ArrivedKg: 20, ServiceFeePerKg: 3}},
	})
	require.NoError(t, err)
	require.Len(t, batch.Items, 3)
	assert.Equal(t, 0.0, batch.Items[0].ArrivedKg)
	assert.Equal(t, 60.0, batch.TotalClientRevenue)

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyArrived, got.Status)
	assert.Equal(t, 20.0, got.Items[2].ArrivedKg)
	assert.Equal(t, 8.0, ProgressPercent(got))
}

func TestRecordBatchCostOnly(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	batch, err := svc.RecordBatch(ctx(), s.ID, RecordBatchInput{
		BatchDate: "2024-03-05",
		Costs:     CostInput{DriverCost: 40, StoreCost: 10},
		Lines:     []BatchLineInput{{OwnerName: "Partner A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 40.0, batch.DriverCost)
	assert.Zero(t, batch.PartnerPerKgCost)
	assert.Zero(t, batch.ClientPerKgCost)
	assert.Zero(t, batch.NetProfit)

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, got.Status)
	require.Len(t, got.Batches, 1)
}

func TestRecordBatchRejections(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	over := sampleBatch()
	over.Lines[2].ArrivedKg = 50.5
	_, err := svc.RecordBatch(ctx(), s.ID, over)
	require.ErrorIs(t, err, ErrManifestOverrun)

	unknown := sampleBatch()
	unknown.Lines[0].OwnerName = "Stranger"
	_, err = svc.RecordBatch(ctx(), s.ID, unknown)
	require.ErrorIs(t, err, ErrUnknownOwner)

	dup := sampleBatch()
	dup.Lines[1].OwnerName = "Partner A"
	_, err = svc.RecordBatch(ctx(), s.ID, dup)
	require.ErrorIs(t, err, ErrDuplicateOwner)

	huge := sampleBatch()
	huge.Costs.DriverCost = 1e307
	_, err = svc.RecordBatch(ctx(), s.ID, huge)
	require.ErrorIs(t, err, ErrInvalidInput)

	negative := sampleBatch()
	negative.Costs.DriverCost = -10
	_, err = svc.RecordBatch(ctx(), s.ID, negative)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordBatch(ctx(), "missing", sampleBatch())
	require.ErrorIs(t, err, ErrShipmentNotFound)

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Batches)
	for _, item := range got.Items {
		assert.Zero(t, item.ArrivedKg)
	}
}

func TestRecordBatchOverrunAcrossBatches(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	first := RecordBatchInput{BatchDate: "2024-03-05", Lines: []BatchLineInput{{OwnerName: "Client C", ArrivedKg: 30.3}}}
	_, err := svc.RecordBatch(ctx(), s.ID, first)
	require.NoError(t, err)

	second := RecordBatchInput{BatchDate: "2024-03-06", Lines: []BatchLineInput{{OwnerName: "Client C", ArrivedKg: 19.7}}}
	_, err = svc.RecordBatch(ctx(), s.ID, second)
	require.NoError(t, err)

	third := RecordBatchInput{BatchDate: "2024-03-07", Lines: []BatchLineInput{{OwnerName: "Client C", ArrivedKg: 0.01}}}
	_, err = svc.RecordBatch(ctx(), s.ID, third)
	require.ErrorIs(t, err, ErrManifestOverrun)
}

func TestDeleteBatchRestoresWeights(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	first := RecordBatchInput{
		BatchDate: "2024-03-05",
		Lines: []BatchLineInput{
			{OwnerName: "Partner A", ArrivedKg: 33.33},
			{OwnerName: "Client C", ArrivedKg: 12.71, ServiceFeePerKg: 2},
		},
	}
	_, err := svc.RecordBatch(ctx(), s.ID, first)
	require.NoError(t, err)
	before, err := svc.Get(s.ID)
	require.NoError(t, err)

	second := RecordBatchInput{
		BatchDate: "2024-03-06",
		Lines: []BatchLineInput{
			{OwnerName: "Partner A", ArrivedKg: 41.17},
			{OwnerName: "Partner B", ArrivedKg: 0.1},
			{OwnerName: "Client C", ArrivedKg: 7.29, ServiceFeePerKg: 2},
		},
	}
	batch, err := svc.RecordBatch(ctx(), s.ID, second)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBatch(ctx(), s.ID, batch.ID))
	after, err := svc.Get(s.ID)
	require.NoError(t, err)

	for i := range before.Items {
		if after.Items[i].ArrivedKg != before.Items[i].ArrivedKg {
			t.Fatalf("owner %s: expected %v kg after delete, got %v",
				before.Items[i].OwnerName, before.Items[i].ArrivedKg, after.Items[i].ArrivedKg)
		}
	}
	assert.Equal(t, before.Status, after.Status)
	assert.Len(t, after.Batches, 1)

	require.ErrorIs(t, svc.DeleteBatch(ctx(), s.ID, batch.ID), ErrBatchNotFound)
	require.ErrorIs(t, svc.DeleteBatch(ctx(), "missing", batch.ID), ErrShipmentNotFound)
}

func TestDeleteOnlyBatchReturnsInTransit(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)
	batch, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBatch(ctx(), s.ID, batch.ID))
	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, got.Status)
	assert.Equal(t, 0.0, ArrivedTotal(got))
}

func TestUpdateBatchCosts(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)
	batch, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	updated, err := svc.UpdateBatchCosts(ctx(), s.ID, batch.ID, UpdateBatchCostsInput{
		BatchDate: "2024-03-11",
		Costs:     CostInput{DriverCost: 50, StoreCost: 25, FreightCost: 30, PostalCost: 25},
		Fees:      map[string]allocation.Number{"Client C": 4, "Partner A": 9},
	})
	require.NoError(t, err)

	assert.Equal(t, batch.ID, updated.ID)
	assert.Equal(t, "2024-03-11", updated.BatchDate)
	assert.Equal(t, 2.0, updated.ClientPerKgCost)
	assert.Equal(t, 200.0, updated.TotalClientRevenue)
	assert.Equal(t, 100.0, updated.NetProfit)
	assert.Equal(t, 0.0, updated.Items[0].ServiceFeePerKg)
	assert.Equal(t, 50.0, updated.TotalClientKg)

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Batches[0].NetProfit)
	assert.Equal(t, 50.0, got.Items[2].ArrivedKg)

	_, err = svc.UpdateBatchCosts(ctx(), s.ID, "nope", UpdateBatchCostsInput{})
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestArchiveAndList(t *testing.T) {
	svc := newTestService(t, nil)
	first := createSample(t, svc)
	second := createSample(t, svc)

	active := svc.List(ListFilter{})
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID, "newest first")

	archived, err := svc.ToggleArchive(ctx(), first.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	assert.Len(t, svc.List(ListFilter{View: ViewActive}), 1)
	require.Len(t, svc.List(ListFilter{View: ViewArchived}), 1)
	assert.Len(t, svc.List(ListFilter{View: ViewAll}), 2)

	restored, err := svc.SetArchived(ctx(), first.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	_, err = svc.ToggleArchive(ctx(), "missing")
	require.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestDeleteShipment(t *testing.T) {
	svc := newTestService(t, nil)
	first := createSample(t, svc)
	second := createSample(t, svc)

	require.NoError(t, svc.DeleteShipment(ctx(), first.ID))
	all := svc.List(ListFilter{View: ViewAll})
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
	require.ErrorIs(t, svc.DeleteShipment(ctx(), first.ID), ErrShipmentNotFound)
}

func TestBatchesAndFindBatch(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	early := RecordBatchInput{BatchDate: "2024-03-02", Lines: []BatchLineInput{{OwnerName: "Partner A", ArrivedKg: 10}}}
	late := RecordBatchInput{BatchDate: "2024-03-20", Lines: []BatchLineInput{{OwnerName: "Partner B", ArrivedKg: 10}}}
	b1, err := svc.RecordBatch(ctx(), s.ID, early)
	require.NoError(t, err)
	b2, err := svc.RecordBatch(ctx(), s.ID, late)
	require.NoError(t, err)

	views := svc.Batches()
	require.Len(t, views, 2)
	assert.Equal(t, b2.ID, views[0].Batch.ID)
	assert.Equal(t, b1.ID, views[1].Batch.ID)
	assert.Equal(t, "March air cargo", views[0].ShipmentName)

	sh, found, err := svc.FindBatch(b1.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, sh.ID)
	assert.Equal(t, b1.ID, found.ID)

	_, _, err = svc.FindBatch("nope")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)
	_, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	snap := svc.Snapshot()
	snap[0].Items[0].ArrivedKg = 9999
	snap[0].Batches[0].Items[0].ArrivedKg = 9999

	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Items[0].ArrivedKg)
	assert.Equal(t, 100.0, got.Batches[0].Items[0].ArrivedKg)
}

func TestReplaceDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(nil, ServiceConfig{Notifier: notifier})
	svc.Replace([]Shipment{{ID: "s1", Name: "Loaded", Status: StatusInTransit}})

	assert.Equal(t, 0, notifier.count())
	assert.Equal(t, int64(1), svc.Version())
	got, err := svc.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "Loaded", got.Name)
}

func TestPublishFailureDoesNotBlockMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, pub)
	s := createSample(t, svc)

	_, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestConcurrentBatchesRespectManifest(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordBatch(ctx(), s.ID, RecordBatchInput{
				BatchDate: "2024-03-05",
				Lines:     []BatchLineInput{{OwnerName: "Client C", ArrivedKg: 5, ServiceFeePerKg: 1}},
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	got, err := svc.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Items[2].ArrivedKg)
}
