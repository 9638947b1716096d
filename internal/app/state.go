package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/persist/localstate"
	"github.com/aburayhan/cargo-erp/internal/persist/pgstate"
	"github.com/aburayhan/cargo-erp/internal/platform/db"
	"github.com/aburayhan/cargo-erp/internal/settings"
)

// State bundles the stores shared by the API and the worker.
type State struct {
	Gateway  *persist.Gateway
	Settings *settings.Service
	Metrics  *persist.Metrics

	pool  *pgxpool.Pool
	local *localstate.DB
}

// OpenState opens the local SQLite copy and, when PG_DSN is set, the remote
// store. An unreachable remote store is logged and the gateway runs offline.
func OpenState(ctx context.Context, cfg *Config, logger *slog.Logger, registerer prometheus.Registerer) (*State, error) {
	local, err := localstate.Open(cfg.LocalStatePath)
	if err != nil {
		return nil, err
	}
	st := &State{local: local, Metrics: persist.NewMetrics(registerer)}

	var remote persist.StateStore
	if !cfg.Offline() {
		remote, err = st.openRemote(ctx, cfg)
		if err != nil {
			logger.Warn("remote store unavailable, running offline", slog.Any("error", err))
			remote = nil
		}
	}

	st.Gateway = persist.NewGateway(persist.GatewayConfig{
		Remote:  remote,
		Local:   local.Key(cfg.StateKey),
		Logger:  logger,
		Metrics: st.Metrics,
	})
	st.Settings = settings.NewService(local.Key(settings.StoreKey), cfg.BusinessDefaults(), logger)
	if err := st.Settings.Load(ctx); err != nil {
		logger.Warn("settings load", slog.Any("error", err))
	}
	return st, nil
}

func (s *State) openRemote(ctx context.Context, cfg *Config) (persist.StateStore, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        4,
		ConnectTimeout:  5 * time.Second,
		ApplicationName: "cargo-erp",
	})
	if err != nil {
		return nil, err
	}
	store := pgstate.New(pool, cfg.StateKey)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure remote schema: %w", err)
	}
	s.pool = pool
	return store, nil
}

// Close releases the database handles.
func (s *State) Close() error {
	if s == nil {
		return nil
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.local != nil {
		return s.local.Close()
	}
	return nil
}
