package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCleanLedger(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)
	_, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	assert.Empty(t, Audit(svc.Snapshot()))
}

func TestAuditReportsTampering(t *testing.T) {
	svc := newTestService(t, nil)
	s := createSample(t, svc)
	_, err := svc.RecordBatch(ctx(), s.ID, sampleBatch())
	require.NoError(t, err)

	shipments := svc.Snapshot()
	shipments[0].Batches[0].NetProfit = 10
	for i := range shipments[0].Items {
		if shipments[0].Items[i].OwnerName == "Client C" {
			shipments[0].Items[i].ArrivedKg = 40
		}
	}

	findings := Audit(shipments)
	require.Len(t, findings, 3)

	byKind := map[FindingKind]Finding{}
	for _, f := range findings {
		assert.Equal(t, s.ID, f.ShipmentID)
		byKind[f.Kind] = f
	}
	assert.Equal(t, "netProfit", byKind[FindingBatchDrift].Field)
	assert.Equal(t, -45.0, byKind[FindingBatchDrift].Expected)
	assert.Equal(t, 50.0, byKind[FindingArrivalMismatch].Expected)
	assert.Equal(t, "Client C", byKind[FindingArrivalMismatch].OwnerName)
	assert.Contains(t, byKind[FindingStatusMismatch].Detail, string(StatusPartiallyArrived))
}

func TestAuditOverrunAndForeignOwner(t *testing.T) {
	shipment := Shipment{
		ID:             "s1",
		Status:         StatusCompleted,
		TotalPlannedKg: 10,
		Items: []ShipmentItem{
			{OwnerName: "Client C", OwnerType: "Client", PlannedKg: 10, ArrivedKg: 12},
		},
		Batches: []ArrivalBatch{{
			ID:               "b1",
			MasterShipmentID: "s1",
			Items: []ArrivalItem{
				{OwnerName: "Client C", OwnerType: "Client", ArrivedKg: 12},
				{OwnerName: "Stranger", OwnerType: "Client"},
			},
			TotalClientKg: 12,
		}},
	}

	kinds := map[FindingKind]int{}
	for _, f := range Audit([]Shipment{shipment}) {
		kinds[f.Kind]++
	}
	assert.Equal(t, 1, kinds[FindingManifestOverrun])
	assert.Equal(t, 1, kinds[FindingUnknownBatchLine])
	assert.Zero(t, kinds[FindingBatchDrift])
}
