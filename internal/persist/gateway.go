package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aburayhan/cargo-erp/internal/ledger"
)

// GatewayConfig wires the stores behind a Gateway.
type GatewayConfig struct {
	// Remote is optional; without it the gateway runs offline only.
	Remote  StateStore
	Local   StateStore
	Logger  *slog.Logger
	Metrics *Metrics
}

// Gateway loads and saves the ledger against a remote store and keeps a
// local copy as fallback.
type Gateway struct {
	remote  StateStore
	local   StateStore
	logger  *slog.Logger
	metrics *Metrics

	mu   sync.RWMutex
	last Status
}

// NewGateway builds the gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		remote:  cfg.Remote,
		local:   cfg.Local,
		logger:  logger,
		metrics: cfg.Metrics,
		last:    StatusOffline,
	}
}

// Load reads the ledger. The remote copy wins when reachable and refreshes
// the local backup; otherwise the local copy is used.
func (g *Gateway) Load(ctx context.Context) ([]ledger.Shipment, Status) {
	shipments, status := g.load(ctx)
	g.metrics.observeLoad(status)
	g.setLast(status)
	return shipments, status
}

func (g *Gateway) load(ctx context.Context) ([]ledger.Shipment, Status) {
	if g.remote != nil {
		data, err := g.remote.Load(ctx)
		switch {
		case err == nil:
			shipments, derr := ledger.DecodeShipments(data)
			if derr == nil {
				if serr := g.local.Save(ctx, data); serr != nil {
					g.logger.Warn("refresh local state", slog.Any("error", serr))
				}
				return shipments, StatusLive
			}
			g.logger.Error("decode remote state", slog.Any("error", derr))
		case errors.Is(err, ErrNoState):
			// remote reachable but never written: keep any offline edits
			shipments, lerr := g.loadLocal(ctx)
			if lerr != nil {
				g.logger.Warn("load local state", slog.Any("error", lerr))
				return []ledger.Shipment{}, StatusLive
			}
			return shipments, StatusLive
		default:
			g.logger.Warn("load remote state", slog.Any("error", err))
		}
	}

	shipments, err := g.loadLocal(ctx)
	if err != nil {
		g.logger.Error("load local state", slog.Any("error", err))
		return []ledger.Shipment{}, StatusError
	}
	return shipments, StatusOffline
}

func (g *Gateway) loadLocal(ctx context.Context) ([]ledger.Shipment, error) {
	data, err := g.local.Load(ctx)
	if errors.Is(err, ErrNoState) {
		return []ledger.Shipment{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ledger.DecodeShipments(data)
}

// Save writes the local copy first and then the remote one.
func (g *Gateway) Save(ctx context.Context, shipments []ledger.Shipment) Status {
	status, err := g.save(ctx, shipments)
	if err != nil && ctx.Err() != nil {
		// superseded by a newer save; the status of this attempt is moot
		return g.LastStatus()
	}
	g.metrics.observeSave(status)
	g.setLast(status)
	return status
}

func (g *Gateway) save(ctx context.Context, shipments []ledger.Shipment) (Status, error) {
	data, err := ledger.EncodeShipments(shipments)
	if err != nil {
		g.logger.Error("encode state", slog.Any("error", err))
		return StatusError, err
	}
	localErr := g.local.Save(ctx, data)
	if localErr != nil {
		g.logger.Warn("save local state", slog.Any("error", localErr))
	}
	if g.remote == nil {
		if localErr != nil {
			return StatusError, localErr
		}
		return StatusOffline, nil
	}
	if err := g.remote.Save(ctx, data); err != nil {
		if ctx.Err() == nil {
			g.logger.Warn("save remote state", slog.Any("error", err))
		}
		if localErr != nil {
			return StatusError, errors.Join(localErr, err)
		}
		return StatusOffline, err
	}
	return StatusLive, nil
}

// Check pings the remote store.
func (g *Gateway) Check(ctx context.Context) Status {
	status := StatusLive
	if g.remote == nil {
		status = StatusOffline
	} else if err := g.remote.Ping(ctx); err != nil {
		g.logger.Warn("remote state ping", slog.Any("error", err))
		status = StatusOffline
	}
	g.setLast(status)
	return status
}

// Backup copies the remote document into the local store.
func (g *Gateway) Backup(ctx context.Context) (int, error) {
	if g.remote == nil {
		return 0, ErrNoRemote
	}
	data, err := g.remote.Load(ctx)
	if errors.Is(err, ErrNoState) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("persist: backup load: %w", err)
	}
	shipments, err := ledger.DecodeShipments(data)
	if err != nil {
		return 0, fmt.Errorf("persist: backup decode: %w", err)
	}
	if err := g.local.Save(ctx, data); err != nil {
		return 0, fmt.Errorf("persist: backup save: %w", err)
	}
	return len(shipments), nil
}

// LastStatus reports the outcome of the latest load, save or check.
func (g *Gateway) LastStatus() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

func (g *Gateway) setLast(status Status) {
	g.mu.Lock()
	g.last = status
	g.mu.Unlock()
}
