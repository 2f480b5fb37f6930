package warmth

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Anchor is the persisted decay state of one contact.
type Anchor struct {
	Mode        Mode
	Score       float64   // score at At
	At          time.Time // when the anchor was last (re)established
	CachedScore float64
	CachedAt    time.Time
}

// Cached is the cheap read path: the last computed score and when it was computed.
type Cached struct {
	Score    float64
	Band     Band
	Mode     Mode
	CachedAt time.Time
}

// NewAnchor starts a fresh curve at score under mode.
func NewAnchor(score float64, mode Mode, at time.Time) Anchor {
	score = Clamp(score)
	return Anchor{
		Mode:        mode,
		Score:       score,
		At:          at,
		CachedScore: score,
		CachedAt:    at,
	}
}

// Validate checks the row invariants a store must never persist a violation of.
func (a Anchor) Validate() error {
	switch {
	case !a.Mode.Valid():
		return goerr.Wrap(ErrInvalidAnchor, "unknown mode", goerr.V("mode", a.Mode))
	case !inRange(a.Score):
		return goerr.Wrap(ErrInvalidAnchor, "anchor score out of range", goerr.V("anchor_score", a.Score))
	case !inRange(a.CachedScore):
		return goerr.Wrap(ErrInvalidAnchor, "cached score out of range", goerr.V("cached_score", a.CachedScore))
	case a.At.IsZero():
		return goerr.Wrap(ErrInvalidAnchor, "anchor time not set")
	case a.CachedAt.Before(a.At):
		return goerr.Wrap(ErrInvalidAnchor, "cache predates anchor",
			goerr.V("anchor_at", a.At),
			goerr.V("cached_at", a.CachedAt))
	}
	return nil
}

// ScoreAt evaluates the anchor's curve at now.
func (a Anchor) ScoreAt(now time.Time) float64 {
	return Score(a.Score, a.At, a.Mode, now)
}

// Cached returns the anchor's cache columns as a read.
func (a Anchor) Cached() Cached {
	return Cached{
		Score:    a.CachedScore,
		Band:     Classify(a.CachedScore),
		Mode:     a.Mode,
		CachedAt: a.CachedAt,
	}
}

// WithCache returns a copy with the cache set to the curve's value at now.
// The anchor itself is untouched.
func (a Anchor) WithCache(now time.Time) Anchor {
	if now.Before(a.At) {
		now = a.At
	}
	a.CachedScore = a.ScoreAt(now)
	a.CachedAt = now
	return a
}

// Reanchor starts a new curve at (score, at) under mode. at never moves
// backwards past the previous anchor.
func (a Anchor) Reanchor(score float64, mode Mode, at time.Time) Anchor {
	if at.Before(a.At) {
		at = a.At
	}
	return NewAnchor(score, mode, at)
}

// SwitchResult reports a mode switch. ScoreBefore and ScoreAfter agree within Tolerance.
type SwitchResult struct {
	ModeBefore  Mode
	ModeAfter   Mode
	ScoreBefore float64
	ScoreAfter  float64
	BandAfter   Band
	At          time.Time
	Changed     bool
}

// SwitchMode moves the anchor onto a new decay rate without moving the score:
// the new curve starts from the old curve's value at now.
func SwitchMode(a Anchor, to Mode, now time.Time) (Anchor, SwitchResult) {
	current := a.ScoreAt(now)
	if a.Mode == to {
		return a, SwitchResult{
			ModeBefore:  a.Mode,
			ModeAfter:   to,
			ScoreBefore: current,
			ScoreAfter:  current,
			BandAfter:   Classify(current),
			At:          now,
		}
	}

	next := a.Reanchor(current, to, now)
	after := next.ScoreAt(now)
	return next, SwitchResult{
		ModeBefore:  a.Mode,
		ModeAfter:   to,
		ScoreBefore: current,
		ScoreAfter:  after,
		BandAfter:   Classify(after),
		At:          next.At,
		Changed:     true,
	}
}
