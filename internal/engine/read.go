package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/warmth"
)

// Reading is the current warmth of one contact.
type Reading struct {
	ContactID string
	Score     float64
	Band      warmth.Band
	Mode      warmth.Mode
	// ComputedAt is when Score was evaluated: the cache time when Cached,
	// otherwise the time of this read.
	ComputedAt time.Time
	Cached     bool
}

// Current serves the cached score while it is fresh, and otherwise recomputes
// from the anchor and refreshes the cache in the background. Store failures
// are warmth.ErrUnavailable; a stale value is never returned as current.
func (e *Engine) Current(ctx context.Context, contactID string) (Reading, error) {
	now := e.now()

	sctx, cancel := e.storeCtx(ctx)
	cached, err := e.store.ReadCached(sctx, contactID)
	cancel()
	if err != nil {
		return Reading{}, e.storeErr(ctx, "read cached warmth", contactID, err)
	}

	if now.Sub(cached.CachedAt) <= e.cfg.FreshnessWindow {
		return Reading{
			ContactID:  contactID,
			Score:      cached.Score,
			Band:       cached.Band,
			Mode:       cached.Mode,
			ComputedAt: cached.CachedAt,
			Cached:     true,
		}, nil
	}

	// Concurrent stale reads of one contact share a single recompute. The
	// shared call must not die with whichever caller started it.
	v, err, _ := e.flight.Do(contactID, func() (any, error) {
		return e.recompute(context.WithoutCancel(ctx), contactID, now)
	})
	if err != nil {
		return Reading{}, err
	}
	return v.(Reading), nil
}

func (e *Engine) recompute(ctx context.Context, contactID string, now time.Time) (Reading, error) {
	sctx, cancel := e.storeCtx(ctx)
	a, err := e.store.ReadAnchor(sctx, contactID)
	cancel()
	if err != nil {
		return Reading{}, e.storeErr(ctx, "read anchor", contactID, err)
	}

	score, err := e.evaluate(ctx, contactID, a, now)
	if err != nil {
		return Reading{}, err
	}

	refreshed := a.WithCache(now)
	refreshed.CachedScore = score
	e.refreshAsync(ctx, contactID, a.At, refreshed)

	return Reading{
		ContactID:  contactID,
		Score:      score,
		Band:       warmth.Classify(score),
		Mode:       a.Mode,
		ComputedAt: now,
	}, nil
}

// refreshAsync writes the cache without holding up the read. The write is
// guarded on the anchor it was computed from.
func (e *Engine) refreshAsync(ctx context.Context, contactID string, anchorAt time.Time, a warmth.Anchor) {
	logger := logging.From(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		rctx, cancel := e.storeCtx(context.WithoutCancel(ctx))
		defer cancel()

		ok, err := e.store.RefreshCache(rctx, contactID, anchorAt, a)
		switch {
		case err != nil:
			logger.Warn("cache refresh failed",
				slog.String("contact_id", contactID),
				logging.ErrAttr(err))
		case !ok:
			logger.Debug("cache refresh skipped, anchor moved",
				slog.String("contact_id", contactID))
		}
	}()
}
