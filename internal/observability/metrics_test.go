package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/aburayhan/cargo-erp/internal/jobs"
	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

func TestMetricsHandlerExposesComponentMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("ledger:backup").End(nil)
	if persist.NewMetrics(metrics.Registerer()) == nil {
		t.Fatal("expected persistence metrics")
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	for _, name := range []string{"cargo_jobs_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected body to contain %s, got: %s", name, body)
		}
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/shipments/{id}")

	req := httptest.NewRequest(http.MethodGet, "/api/shipments/s1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, `cargo_http_requests_total{code="418",method="GET",route="/api/shipments/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, `cargo_http_request_duration_seconds_bucket{method="GET",route="/api/shipments/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if metrics.Middleware(next) == nil {
		t.Fatal("expected passthrough handler")
	}
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

type fixedLedger []ledger.Shipment

func (f fixedLedger) Snapshot() []ledger.Shipment { return f }

type fixedSync struct{ state persist.SyncState }

func (f fixedSync) Status() persist.SyncState { return f.state }

func TestWatchLedgerExposesGauges(t *testing.T) {
	metrics := NewMetrics()
	shipments := fixedLedger{
		{
			ID: "s1", Status: ledger.StatusPartiallyArrived, TotalPlannedKg: 250,
			Items: []ledger.ShipmentItem{{OwnerName: "Partner A", PlannedKg: 250, ArrivedKg: 100}},
			Batches: []ledger.ArrivalBatch{
				{ID: "b1", NetProfit: 40.5},
				{ID: "b2", NetProfit: -10},
			},
		},
		{ID: "s2", Status: ledger.StatusCompleted, TotalPlannedKg: 10, IsArchived: true,
			Batches: []ledger.ArrivalBatch{{ID: "b3", NetProfit: 999}}},
	}
	metrics.WatchLedger(shipments, fixedSync{state: persist.SyncState{Status: persist.StatusOffline, Pending: true}})
	metrics.WatchLedger(shipments, nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`cargo_ledger_shipments{archived="false",status="Partially Arrived"} 1`,
		`cargo_ledger_shipments{archived="true",status="Completed"} 1`,
		`cargo_ledger_batches 2`,
		`cargo_ledger_planned_kg 250`,
		`cargo_ledger_arrived_kg 100`,
		`cargo_ledger_net_profit 30.5`,
		`cargo_ledger_sync_pending 1`,
		`cargo_ledger_sync_status{status="Offline"} 1`,
		`cargo_ledger_sync_status{status="Live"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape, got: %s", want, body)
		}
	}
}

func TestMiddlewareSkipsMetricsScrape(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(metrics.Handler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rr.Body.String(), `route="unknown"`) {
		t.Fatalf("scrape should not be counted, got: %s", rr.Body.String())
	}
}
