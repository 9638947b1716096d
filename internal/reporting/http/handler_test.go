package reportinghttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/reporting"
	"github.com/aburayhan/cargo-erp/internal/settings"
	"github.com/aburayhan/cargo-erp/report"
)

type staticSettings struct{}

func (staticSettings) Get() settings.BusinessSettings {
	return settings.BusinessSettings{Name: "Cargo Co", Partner1: "Partner A", Partner2: "Partner B", Currency: "USD ($)"}
}

type fakeQueue struct {
	shipmentID, batchID string
	err                 error
	onEnqueue           func()
}

func (f *fakeQueue) EnqueueBatchPDF(_ context.Context, shipmentID, batchID string) (string, error) {
	f.shipmentID, f.batchID = shipmentID, batchID
	if f.onEnqueue != nil {
		f.onEnqueue()
	}
	return "task-9", f.err
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []ledger.Shipment
	saves int
}

func (s *recordingSaver) Save(_ context.Context, shipments []ledger.Shipment) persist.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = shipments
	s.saves++
	return persist.StatusLive
}

func (s *recordingSaver) hasBatch(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := ledger.NewService(s.saved, ledger.ServiceConfig{}).FindBatch(batchID)
	return err == nil
}

func seededLedger(t *testing.T) (*ledger.Service, string) {
	t.Helper()
	svc := ledger.NewService(nil, ledger.ServiceConfig{})
	return svc, seedBatch(t, svc)
}

func seedBatch(t *testing.T, svc *ledger.Service) string {
	t.Helper()
	ctx := context.Background()
	shipment, err := svc.CreateShipment(ctx, ledger.CreateShipmentInput{
		Name:           "March air cargo",
		DispatchDate:   "2024-03-01",
		TotalPlannedKg: 250,
		Owners: []ledger.OwnerInput{
			{OwnerName: "Partner A", OwnerType: "Partner", PlannedKg: 100},
			{OwnerName: "Partner B", OwnerType: "Partner", PlannedKg: 100},
			{OwnerName: "Client C", OwnerType: "Client", PlannedKg: 50},
		},
	})
	require.NoError(t, err)
	batch, err := svc.RecordBatch(ctx, shipment.ID, ledger.RecordBatchInput{
		BatchDate: "2024-03-10",
		Costs:     ledger.CostInput{DriverCost: 100, StoreCost: 50, FreightCost: 30, PostalCost: 20},
		Lines: []ledger.BatchLineInput{
			{OwnerName: "Partner A", ArrivedKg: 100},
			{OwnerName: "Partner B", ArrivedKg: 100},
			{OwnerName: "Client C", ArrivedKg: 50, ServiceFeePerKg: 2.5},
		},
	})
	require.NoError(t, err)
	return batch.ID
}

func newRouter(t *testing.T, renderer reporting.HTMLRenderer, queue PDFQueue) (http.Handler, string) {
	t.Helper()
	svc, batchID := seededLedger(t)
	r := chi.NewRouter()
	NewHandler(nil, reporting.NewService(svc, staticSettings{}, renderer), queue, nil).MountRoutes(r)
	return r, batchID
}

func get(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestListAndReport(t *testing.T) {
	h, batchID := newRouter(t, nil, nil)

	rec := get(h, http.MethodGet, "/api/batches")
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []ledger.BatchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, "March air cargo", batches[0].ShipmentName)

	rec = get(h, http.MethodGet, "/api/batches/"+batchID+"/report")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep reporting.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, -45.0, rep.Totals.NetProfit)
	assert.Equal(t, -22.5, rep.Split[0].Amount)

	rec = get(h, http.MethodGet, "/api/batches/nope/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCSVDownload(t *testing.T) {
	h, batchID := newRouter(t, nil, nil)
	rec := get(h, http.MethodGet, "/api/batches/"+batchID+"/report.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Financial_Matrix_March_air_cargo_2024-03-10.csv")
	assert.Contains(t, rec.Body.String(), "Net Profit,-45.00")
}

func TestPDFThroughGotenberg(t *testing.T) {
	var gotHTML string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("files")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		gotHTML = string(data)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	h, batchID := newRouter(t, report.NewClient(srv.URL), nil)
	rec := get(h, http.MethodGet, "/api/batches/"+batchID+"/report.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.True(t, strings.Contains(gotHTML, "Cargo Co"))
}

func TestPDFUnavailable(t *testing.T) {
	h, batchID := newRouter(t, nil, nil)
	rec := get(h, http.MethodGet, "/api/batches/"+batchID+"/report.pdf")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h, batchID = newRouter(t, report.NewClient(""), nil)
	rec = get(h, http.MethodGet, "/api/batches/"+batchID+"/report.pdf")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnqueuePDF(t *testing.T) {
	queue := &fakeQueue{}
	h, batchID := newRouter(t, nil, queue)

	rec := get(h, http.MethodPost, "/api/batches/"+batchID+"/report/pdf")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body enqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "task-9", body.TaskID)
	assert.Equal(t, batchID, queue.batchID)
	assert.NotEmpty(t, queue.shipmentID)

	rec = get(h, http.MethodPost, "/api/batches/missing/report/pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	queue.err = errors.New("redis down")
	rec = get(h, http.MethodPost, "/api/batches/"+batchID+"/report/pdf")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h, batchID = newRouter(t, nil, nil)
	rec = get(h, http.MethodPost, "/api/batches/"+batchID+"/report/pdf")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnqueuePDFFlushesPendingSave(t *testing.T) {
	saver := &recordingSaver{}
	syncer := persist.NewSyncer(saver, persist.SyncerConfig{Delay: time.Hour})
	svc := ledger.NewService(nil, ledger.ServiceConfig{Notifier: syncer})
	batchID := seedBatch(t, svc)
	require.False(t, saver.hasBatch(batchID))

	var persistedFirst bool
	queue := &fakeQueue{onEnqueue: func() { persistedFirst = saver.hasBatch(batchID) }}
	r := chi.NewRouter()
	NewHandler(nil, reporting.NewService(svc, staticSettings{}, nil), queue, syncer).MountRoutes(r)

	rec := get(r, http.MethodPost, "/api/batches/"+batchID+"/report/pdf")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, persistedFirst)
	assert.Equal(t, 1, saver.saves)
	assert.False(t, syncer.Status().Pending)
}
