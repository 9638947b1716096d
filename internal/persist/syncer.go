package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aburayhan/cargo-erp/internal/ledger"
)

// DefaultSyncDelay is the debounce window between a mutation and its save.
const DefaultSyncDelay = 800 * time.Millisecond

// Saver persists a full ledger snapshot.
type Saver interface {
	Save(ctx context.Context, shipments []ledger.Shipment) Status
}

// SyncState is reported to clients polling the sync indicator.
type SyncState struct {
	Status      Status     `json:"status"`
	Pending     bool       `json:"pending"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
}

// SyncerConfig tunes a Syncer.
type SyncerConfig struct {
	Delay   time.Duration
	Initial Status
	Logger  *slog.Logger
	Metrics *Metrics
}

// Syncer debounces ledger saves. Every change replaces the pending snapshot,
// stops the pending timer and cancels a save already in flight, so only the
// latest state is ever written.
type Syncer struct {
	saver   Saver
	delay   time.Duration
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	latest  []ledger.Shipment
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	pending bool
	last    Status
	savedAt *time.Time
	wg      sync.WaitGroup
}

// NewSyncer builds a syncer around saver.
func NewSyncer(saver Saver, cfg SyncerConfig) *Syncer {
	s := &Syncer{
		saver:   saver,
		delay:   cfg.Delay,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		last:    cfg.Initial,
	}
	if s.delay <= 0 {
		s.delay = DefaultSyncDelay
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.last == "" {
		s.last = StatusOffline
	}
	return s
}

// Changed implements ledger.Notifier.
func (s *Syncer) Changed(shipments []ledger.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = shipments
	s.supersedeLocked()
	s.pending = true
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.run(gen) })
}

// supersedeLocked invalidates the scheduled and in-flight saves.
func (s *Syncer) supersedeLocked() {
	s.gen++
	if s.timer != nil {
		if s.timer.Stop() {
			s.metrics.superseded()
		}
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.metrics.superseded()
	}
}

func (s *Syncer) run(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	snapshot := s.latest
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer cancel()
	status := s.saver.Save(ctx, snapshot)
	s.finish(gen, status)
}

func (s *Syncer) finish(gen uint64, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.cancel = nil
	s.pending = false
	s.last = status
	if status != StatusError {
		now := time.Now().UTC()
		s.savedAt = &now
	}
	if status != StatusLive {
		s.logger.Warn("ledger sync degraded", slog.String("status", string(status)))
	}
}

// Flush writes the latest snapshot immediately when a save is pending.
func (s *Syncer) Flush(ctx context.Context) Status {
	s.mu.Lock()
	if !s.pending {
		last := s.last
		s.mu.Unlock()
		return last
	}
	s.supersedeLocked()
	gen := s.gen
	snapshot := s.latest
	s.mu.Unlock()

	s.wg.Wait()
	status := s.saver.Save(ctx, snapshot)
	s.finish(gen, status)
	return status
}

// Status reports the last save outcome and whether a save is pending.
func (s *Syncer) Status() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncState{Status: s.last, Pending: s.pending, LastSavedAt: s.savedAt}
}
