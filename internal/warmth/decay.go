// Package warmth models a contact's relationship temperature as a score that
// decays continuously toward zero.
//
// Decay model:
//   - score(t) = Floor + (anchor - Floor) * exp(-lambda(mode) * days(t - anchor_at))
//   - Floor is 0; elapsed time before the anchor counts as zero
//   - Results are clamped to [0, 100] and never rounded here
//   - Re-anchoring (mode switch, interaction) replaces (anchor, anchor_at) with
//     the value the old curve produced at that instant, so the score is continuous
//
// Everything in this package is pure: no I/O and no clock reads.
package warmth

import (
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	// Floor is the asymptote every mode decays toward.
	Floor = 0.0
	// MaxScore is the upper bound of the scale.
	MaxScore = 100.0
	// Tolerance bounds the visible change across a re-anchor that should not move the score.
	Tolerance = 0.01

	day = 24 * time.Hour
)

// Score evaluates the decay curve anchored at (anchorScore, anchorAt) under mode at now.
// An unknown mode does not decay.
func Score(anchorScore float64, anchorAt time.Time, mode Mode, now time.Time) float64 {
	days := now.Sub(anchorAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	raw := Floor + (anchorScore-Floor)*math.Exp(-mode.Lambda()*days)
	return Clamp(raw)
}

// Clamp bounds s to [0, 100]. NaN clamps to the floor.
func Clamp(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return Floor
	case s < Floor:
		return Floor
	case s > MaxScore:
		return MaxScore
	}
	return s
}

// Model evaluates anchors with the out-of-range assertion enabled or not.
// Strict models return ErrOutOfRangeScore; lenient ones clamp and carry on.
type Model struct {
	Strict bool
}

// Evaluate returns the anchor's score at now.
func (m Model) Evaluate(a Anchor, now time.Time) (float64, error) {
	days := now.Sub(a.At).Hours() / 24
	if days < 0 {
		days = 0
	}
	raw := Floor + (a.Score-Floor)*math.Exp(-a.Mode.Lambda()*days)
	if inRange(raw) {
		return raw, nil
	}
	if m.Strict {
		return 0, goerr.Wrap(ErrOutOfRangeScore, "decay model escaped [0,100]",
			goerr.V("raw", raw),
			goerr.V("anchor_score", a.Score),
			goerr.V("mode", a.Mode))
	}
	return Clamp(raw), nil
}

func inRange(s float64) bool {
	return !math.IsNaN(s) && s >= Floor && s <= MaxScore
}
