// Package cached stores provider responses in an archive so repeated runs
// over the same range do not hit the network.
package cached

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/newthinker/tradelab/internal/collector"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/storage/archive"
	"go.uber.org/zap"
)

// Provider wraps another provider with an archive-backed cache
type Provider struct {
	next    collector.HistoryProvider
	store   archive.Storage
	logger  *zap.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	nowFunc func() time.Time
}

var _ collector.HistoryProvider = (*Provider)(nil)

// New wraps next with a cache in store
func New(next collector.HistoryProvider, store archive.Storage, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		next:    next,
		store:   store,
		logger:  logger.With(zap.String("provider", next.Name())),
		nowFunc: time.Now,
	}
}

// Name returns the wrapped provider's name
func (p *Provider) Name() string {
	return p.next.Name()
}

// FetchHistory serves from the cache when the exact range was fetched
// before. Ranges with an open or future end are never cached because their
// content can still change.
func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if !p.cacheable(end) {
		return p.next.FetchHistory(ctx, symbol, start, end, interval)
	}

	path := archive.BarsPath(p.next.Name(), symbol, start, end)

	var bars []core.OHLCV
	err := archive.ReadJSON(ctx, p.store, path, &bars)
	switch {
	case err == nil:
		p.hits.Add(1)
		p.logger.Debug("history cache hit", zap.String("path", path), zap.Int("rows", len(bars)))
		return bars, nil
	case !errors.Is(err, archive.ErrNotFound):
		p.logger.Warn("history cache read failed", zap.String("path", path), zap.Error(err))
	}

	p.misses.Add(1)
	bars, err = p.next.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	if len(bars) > 0 {
		if err := archive.WriteJSON(ctx, p.store, path, bars); err != nil {
			p.logger.Warn("history cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return bars, nil
}

// Stats returns cache hit and miss counts
func (p *Provider) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

func (p *Provider) cacheable(end time.Time) bool {
	if end.IsZero() {
		return false
	}
	today := p.nowFunc().UTC().Truncate(24 * time.Hour)
	return end.Before(today)
}
