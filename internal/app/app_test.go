package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	ledgerhttp "github.com/aburayhan/cargo-erp/internal/ledger/http"
	"github.com/aburayhan/cargo-erp/internal/observability"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

type fixedHealth persist.Status

func (f fixedHealth) Check(context.Context) persist.Status { return persist.Status(f) }

type fixedSync struct{ state persist.SyncState }

func (f fixedSync) Status() persist.SyncState { return f.state }

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 800*time.Millisecond, cfg.SyncDelay)
	assert.Equal(t, "data/cargo.db", cfg.LocalStatePath)
	assert.Equal(t, "@every 15m", cfg.BackupCron)
	assert.True(t, cfg.Offline())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "Partner 1", cfg.BusinessDefaults().Partner1)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://cargo@db/cargo")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SYNC_DELAY", "2s")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Offline())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.SyncDelay)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("PARTNER_1", "Rahim")
	t.Setenv("PARTNER_2", "rahim")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARTNER_1 and PARTNER_2 must differ")
}

func TestNewLoggerFormats(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger(buf, &Config{LogFormat: "json", LogLevel: "warn"}).Info("hidden")
	assert.Empty(t, buf.String())
	newLogger(buf, &Config{LogFormat: "json", LogLevel: "warn"}).Warn("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	newLogger(buf, &Config{LogLevel: "bogus"}).Info("text")
	assert.Contains(t, buf.String(), "msg=text")
}

func TestRouter(t *testing.T) {
	cfg := &Config{AppRequestTimeout: 5 * time.Second, RateLimit: 1000}
	saved := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	router := NewRouter(RouterParams{
		Config:        cfg,
		Metrics:       observability.NewMetrics(),
		Health:        fixedHealth(persist.StatusLive),
		Sync:          fixedSync{state: persist.SyncState{Status: persist.StatusOffline, Pending: true, LastSavedAt: &saved}},
		LedgerHandler: ledgerhttp.NewHandler(nil, ledger.NewService(nil, ledger.ServiceConfig{})),
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = get("/api/health")
	assert.JSONEq(t, `{"status":"Live"}`, rec.Body.String())

	rec = get("/api/sync")
	var state persist.SyncState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, persist.StatusOffline, state.Status)
	assert.True(t, state.Pending)

	rec = get("/api/shipments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get("/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `cargo_http_requests_total{code="200",method="GET",route="/api/health"} 1`))
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestOpenStateOffline(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("LOCAL_STATE_PATH", filepath.Join(t.TempDir(), "state", "cargo.db"))
	t.Setenv("BUSINESS_NAME", "Test Export")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := OpenState(context.Background(), cfg, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	assert.Equal(t, "Test Export", st.Settings.Get().Name)

	shipments, status := st.Gateway.Load(context.Background())
	assert.Equal(t, persist.StatusOffline, status)
	assert.Empty(t, shipments)

	_, err = st.Gateway.Backup(context.Background())
	assert.ErrorIs(t, err, persist.ErrNoRemote)

	assert.Equal(t, persist.StatusOffline, st.Gateway.Save(context.Background(), []ledger.Shipment{{ID: "s1", Name: "Air 1"}}))
	shipments, status = st.Gateway.Load(context.Background())
	assert.Equal(t, persist.StatusOffline, status)
	require.Len(t, shipments, 1)
	assert.Equal(t, "Air 1", shipments[0].Name)
}
