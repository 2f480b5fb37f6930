package engine

import (
	"context"
	"log/slog"

	"github.com/lazypower/warmth/internal/logging"
	"github.com/lazypower/warmth/internal/warmth"
)

// SwitchMode moves a contact onto another decay rate without changing its
// current score. An unknown mode fails before the store is touched. Switching
// to the current mode writes nothing. Concurrent switches are last write wins.
func (e *Engine) SwitchMode(ctx context.Context, contactID, mode string) (warmth.SwitchResult, error) {
	to, err := e.parseMode(mode)
	if err != nil {
		return warmth.SwitchResult{}, err
	}

	now := e.now()
	a, err := e.readAnchor(ctx, contactID)
	if err != nil {
		return warmth.SwitchResult{}, err
	}
	if _, err := e.evaluate(ctx, contactID, a, now); err != nil {
		return warmth.SwitchResult{}, err
	}

	next, res := warmth.SwitchMode(a, to, now)
	if !res.Changed {
		return res, nil
	}

	if err := e.writeAnchor(ctx, contactID, next, warmth.SourceModeSwitch); err != nil {
		return warmth.SwitchResult{}, err
	}

	logging.From(ctx).Info("warmth mode switched",
		slog.String("contact_id", contactID),
		slog.String("from", string(res.ModeBefore)),
		slog.String("to", string(res.ModeAfter)),
		slog.Float64("score", res.ScoreAfter))
	return res, nil
}

// Absorb applies an interaction: the current score is boosted and becomes the
// new anchor. The anchor time never moves backwards.
func (e *Engine) Absorb(ctx context.Context, contactID string, b warmth.Booster) (warmth.AbsorbResult, error) {
	now := e.now()
	a, err := e.readAnchor(ctx, contactID)
	if err != nil {
		return warmth.AbsorbResult{}, err
	}
	if _, err := e.evaluate(ctx, contactID, a, now); err != nil {
		return warmth.AbsorbResult{}, err
	}

	next, res := warmth.Absorb(a, b, now)
	if err := e.writeAnchor(ctx, contactID, next, warmth.SourceInteraction); err != nil {
		return warmth.AbsorbResult{}, err
	}

	logging.From(ctx).Info("interaction absorbed",
		slog.String("contact_id", contactID),
		slog.Float64("before", res.ScoreBefore),
		slog.Float64("after", res.ScoreAfter))
	return res, nil
}

func (e *Engine) readAnchor(ctx context.Context, contactID string) (warmth.Anchor, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	a, err := e.store.ReadAnchor(sctx, contactID)
	if err != nil {
		return warmth.Anchor{}, e.storeErr(ctx, "read anchor", contactID, err)
	}
	return a, nil
}

// writeAnchor commits the new anchor and its history snapshot together.
func (e *Engine) writeAnchor(ctx context.Context, contactID string, a warmth.Anchor, src warmth.Source) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.store.WriteAnchor(sctx, contactID, a, warmth.AnchorSnapshot(contactID, a, src)); err != nil {
		return e.storeErr(ctx, "write anchor", contactID, err)
	}
	return nil
}
