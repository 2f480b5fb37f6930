package engine

import (
	"context"
	"errors"
	"time"

	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// Window selects a history range. Either Duration (back from now) or Start
// is set; End defaults to now and Step to the configured history step.
type Window struct {
	Duration time.Duration
	Start    time.Time
	End      time.Time
	Step     time.Duration
}

func (e *Engine) resolveWindow(w Window, now time.Time) (warmth.Span, error) {
	if w.Duration < 0 {
		return warmth.Span{}, goerr.Wrap(warmth.ErrInvalidWindow, "negative duration", goerr.V("duration", w.Duration))
	}
	if w.Step < 0 {
		return warmth.Span{}, goerr.Wrap(warmth.ErrInvalidWindow, "negative step", goerr.V("step", w.Step))
	}

	span := warmth.Span{Start: w.Start, End: w.End, Step: w.Step}
	if span.End.IsZero() {
		span.End = now
	}
	if span.Start.IsZero() {
		if w.Duration == 0 {
			return warmth.Span{}, goerr.Wrap(warmth.ErrInvalidWindow, "window needs a duration or a start")
		}
		span.Start = span.End.Add(-w.Duration)
	}
	if span.Step == 0 {
		span.Step = e.cfg.HistoryStep
	}
	return span, span.Validate()
}

// History reconstructs a contact's warmth over a window from its logged
// anchors and the decay model. Nothing before the contact existed or after
// now is returned; a contact without anchors has an empty history.
func (e *Engine) History(ctx context.Context, contactID string, w Window) ([]warmth.Snapshot, error) {
	now := e.now()
	span, err := e.resolveWindow(w, now)
	if err != nil {
		return nil, err
	}

	tl, err := e.timeline(ctx, contactID, span.Start, span.End)
	if err != nil {
		return nil, err
	}
	return warmth.Reconstruct(tl, span, now, e.cfg.MaxHistoryPoints)
}

// timeline gathers the anchors that govern [from, to]: the last one before
// the window, those inside it, and the live anchor row.
func (e *Engine) timeline(ctx context.Context, contactID string, from, to time.Time) (warmth.Timeline, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	c, err := e.store.GetContact(sctx, contactID)
	if err != nil {
		return warmth.Timeline{}, e.storeErr(ctx, "get contact", contactID, err)
	}
	if c == nil {
		return warmth.Timeline{}, goerr.Wrap(warmth.ErrContactNotFound, "history", goerr.V("contact_id", contactID))
	}
	tl := warmth.Timeline{ContactID: contactID, Since: c.CreatedAt}

	// The live row goes first so a logged snapshot at the same instant wins.
	a, err := e.store.ReadAnchor(sctx, contactID)
	switch {
	case err == nil:
		live := warmth.AnchorSnapshot(contactID, a, warmth.SourceAnchor)
		tl.Anchors = append(tl.Anchors, live)
	case errors.Is(err, warmth.ErrNotFound):
		// Logged loudly by storeErr; history falls back to the snapshots alone.
		_ = e.storeErr(ctx, "read anchor", contactID, err)
	default:
		return warmth.Timeline{}, e.storeErr(ctx, "read anchor", contactID, err)
	}

	before, err := e.store.LatestSnapshotBefore(sctx, contactID, from)
	if err != nil {
		return warmth.Timeline{}, e.storeErr(ctx, "latest snapshot", contactID, err)
	}
	if before != nil {
		tl.Anchors = append(tl.Anchors, *before)
	}

	logged, err := e.store.ListSnapshots(sctx, contactID, from, to)
	if err != nil {
		return warmth.Timeline{}, e.storeErr(ctx, "list snapshots", contactID, err)
	}
	tl.Anchors = append(tl.Anchors, logged...)
	return tl, nil
}
