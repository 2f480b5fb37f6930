package warmth

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Booster raises a score in response to an interaction. The policy belongs to
// whoever logs interactions; this package only applies it.
type Booster interface {
	Boost(current float64) float64
}

// BoosterFunc adapts a function to Booster.
type BoosterFunc func(current float64) float64

func (f BoosterFunc) Boost(current float64) float64 { return f(current) }

// InteractionKind is the kind of contact an interaction represents.
type InteractionKind string

const (
	KindMessage InteractionKind = "message"
	KindCall    InteractionKind = "call"
	KindMeeting InteractionKind = "meeting"
)

// reinforcement is the share of the remaining headroom an interaction recovers.
var reinforcement = map[InteractionKind]float64{
	KindMessage: 0.15,
	KindCall:    0.30,
	KindMeeting: 0.50,
}

// Interaction is the default booster: reinforce toward MaxScore by kind, or
// add a flat number of points when Points is set.
type Interaction struct {
	Kind   InteractionKind
	Points float64
}

// ParseInteraction validates kind and points.
func ParseInteraction(kind string, points float64) (Interaction, error) {
	k := InteractionKind(strings.ToLower(strings.TrimSpace(kind)))
	if _, ok := reinforcement[k]; !ok {
		return Interaction{}, goerr.Wrap(ErrInvalidInteraction, "unknown interaction kind", goerr.V("kind", kind))
	}
	if math.IsNaN(points) || points < 0 || points > MaxScore {
		return Interaction{}, goerr.Wrap(ErrInvalidInteraction, "boost points out of range", goerr.V("points", points))
	}
	return Interaction{Kind: k, Points: points}, nil
}

// Boost implements Booster.
func (i Interaction) Boost(current float64) float64 {
	if i.Points > 0 {
		return Clamp(current + i.Points)
	}
	f := reinforcement[i.Kind]
	return Clamp(current + f*(MaxScore-current))
}

// AbsorbResult reports the effect of an interaction.
type AbsorbResult struct {
	Mode        Mode
	ScoreBefore float64
	ScoreAfter  float64
	BandAfter   Band
	At          time.Time
}

// Absorb re-anchors upward: the current score is boosted and becomes the new
// anchor at now (or at the previous anchor time, whichever is later). A boost
// never lowers the score.
func Absorb(a Anchor, b Booster, now time.Time) (Anchor, AbsorbResult) {
	current := a.ScoreAt(now)
	boosted := Clamp(b.Boost(current))
	if boosted < current {
		boosted = current
	}
	next := a.Reanchor(boosted, a.Mode, now)
	return next, AbsorbResult{
		Mode:        next.Mode,
		ScoreBefore: current,
		ScoreAfter:  next.Score,
		BandAfter:   Classify(next.Score),
		At:          next.At,
	}
}
