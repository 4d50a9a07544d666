package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fitstudio/internal/domain"
	"fitstudio/internal/models"

	"github.com/rs/zerolog"
)

// FailoverClassCache serves from the primary cache until it errors, then
// falls back and probes the primary again after a minute.
type FailoverClassCache struct {
	primary  domain.ClassCache
	fallback domain.ClassCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// Unix nanos of the last failed primary attempt. Request goroutines
	// race on it, so it rides an atomic alongside the flag.
	lastCheck atomic.Int64
}

func NewFailoverClassCache(primary, fallback domain.ClassCache, logger *zerolog.Logger) *FailoverClassCache {
	return &FailoverClassCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverClassCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary class cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverClassCache) probeDue() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverClassCache) Get(ctx context.Context, tz string) ([]models.ClassView, bool, error) {
	if !r.isDown.Load() {
		views, ok, err := r.primary.Get(ctx, tz)
		if err == nil {
			return views, ok, nil
		}
		r.markDown(err)
	}

	if r.isDown.Load() && r.probeDue() {
		views, ok, err := r.primary.Get(ctx, tz)
		if err == nil {
			r.isDown.Store(false)
			return views, ok, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx, tz)
}

func (r *FailoverClassCache) Set(ctx context.Context, tz string, views []models.ClassView) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, tz, views)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, tz, views)
}

func (r *FailoverClassCache) Invalidate(ctx context.Context) error {
	// Both sides are cleared: a stale fallback would survive a later failover.
	if !r.isDown.Load() {
		if err := r.primary.Invalidate(ctx); err != nil {
			r.markDown(err)
		}
	}

	return r.fallback.Invalidate(ctx)
}
