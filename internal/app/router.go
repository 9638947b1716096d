package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dashboardhttp "github.com/aburayhan/cargo-erp/internal/dashboard/http"
	ledgerhttp "github.com/aburayhan/cargo-erp/internal/ledger/http"
	"github.com/aburayhan/cargo-erp/internal/observability"
	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/platform/httpx"
	reportinghttp "github.com/aburayhan/cargo-erp/internal/reporting/http"
	settingshttp "github.com/aburayhan/cargo-erp/internal/settings/http"
	"github.com/aburayhan/cargo-erp/jobs"
)

// HealthChecker probes the remote store.
type HealthChecker interface {
	Check(ctx context.Context) persist.Status
}

// SyncReporter exposes the background save state.
type SyncReporter interface {
	Status() persist.SyncState
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Health HealthChecker
	Sync   SyncReporter

	LedgerHandler    *ledgerhttp.Handler
	SettingsHandler  *settingshttp.Handler
	ReportingHandler *reportinghttp.Handler
	DashboardHandler *dashboardhttp.Handler
	JobHandler       *jobs.Handler
}

type healthResponse struct {
	Status persist.Status `json:"status"`
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Always 200; an unreachable remote store reports Offline.
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		status := persist.StatusOffline
		if params.Health != nil {
			status = params.Health.Check(r.Context())
		}
		httpx.JSON(w, http.StatusOK, healthResponse{Status: status})
	})

	r.Get("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		if params.Sync == nil {
			httpx.JSON(w, http.StatusOK, persist.SyncState{Status: persist.StatusOffline})
			return
		}
		httpx.JSON(w, http.StatusOK, params.Sync.Status())
	})

	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.SettingsHandler != nil {
		params.SettingsHandler.MountRoutes(r)
	}
	if params.ReportingHandler != nil {
		params.ReportingHandler.MountRoutes(r)
	}
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}
