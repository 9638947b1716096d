package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aburayhan/cargo-erp/internal/ledger"
)

// Source exposes the ledger state and its mutation counter.
type Source interface {
	Snapshot() []ledger.Shipment
	Version() int64
}

// Service serves cached dashboard views.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	// epoch separates keys of this process from earlier runs whose version
	// counter restarted.
	epoch string
}

// NewService builds the service. cache may be nil.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger, epoch: uuid.NewString()}
}

// Summary returns the financial overview.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := s.fetch(ctx, "summary", &out, func() any { return Summarize(s.source.Snapshot()) })
	return out, err
}

// Inventory returns the stockpile per owner.
func (s *Service) Inventory(ctx context.Context) (InventoryView, error) {
	var out InventoryView
	err := s.fetch(ctx, "inventory", &out, func() any { return Inventory(s.source.Snapshot()) })
	return out, err
}

func (s *Service) fetch(ctx context.Context, view string, dest any, build func() any) error {
	key := cacheKey(view, s.epoch, strconv.FormatInt(s.source.Version(), 10))
	ch := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &raw, func(context.Context) (any, error) {
			return build(), nil
		})
		if errors.Is(err, errCacheDown) {
			s.logger.Warn("dashboard cache", slog.String("key", key), slog.Any("error", err))
			err = nil
		}
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
