package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lazypower/warmth/internal/logging"
	"golang.org/x/sync/errgroup"
)

const refreshConcurrency = 8

// RefreshStale recomputes the cache of up to one batch of contacts whose
// cache is older than the freshness window. Per-contact failures are logged
// and skipped. Returns the number of caches written.
func (e *Engine) RefreshStale(ctx context.Context) (int, error) {
	now := e.now()
	cutoff := now.Add(-e.cfg.FreshnessWindow)

	sctx, cancel := e.storeCtx(ctx)
	ids, err := e.store.ListStale(sctx, cutoff, e.cfg.RefreshBatch)
	cancel()
	if err != nil {
		return 0, e.storeErr(ctx, "list stale", "", err)
	}

	var refreshed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := e.refreshOne(gctx, id, now)
			if err != nil {
				e.logger.Warn("refresh: skip contact",
					slog.String("contact_id", id),
					logging.ErrAttr(err))
				return nil
			}
			if ok {
				refreshed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(refreshed.Load()), err
}

func (e *Engine) refreshOne(ctx context.Context, contactID string, now time.Time) (bool, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	a, err := e.store.ReadAnchor(sctx, contactID)
	if err != nil {
		return false, err
	}
	score, err := e.model.Evaluate(a, now)
	if err != nil {
		return false, err
	}
	next := a.WithCache(now)
	next.CachedScore = score
	return e.store.RefreshCache(sctx, contactID, a.At, next)
}

// StartRefreshTimer refreshes stale caches on startup and then every
// RefreshInterval until Stop. A zero interval disables it.
func (e *Engine) StartRefreshTimer() {
	if e.cfg.RefreshInterval <= 0 {
		return
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RefreshInterval)
		defer cancel()
		if n, err := e.RefreshStale(logging.With(ctx, e.logger)); err != nil {
			e.logger.Warn("refresh error", logging.ErrAttr(err))
		} else if n > 0 {
			e.logger.Info("refresh: updated caches", slog.Int("count", n))
		}
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		run()

		ticker := time.NewTicker(e.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				run()
			case <-e.stopCh:
				return
			}
		}
	}()
}
