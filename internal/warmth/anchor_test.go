package warmth

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorValidate(t *testing.T) {
	ok := NewAnchor(64, ModeFast, t0)
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Anchor)
	}{
		{"unknown mode", func(a *Anchor) { a.Mode = "tepid" }},
		{"score above range", func(a *Anchor) { a.Score = 100.5 }},
		{"negative cached", func(a *Anchor) { a.CachedScore = -1 }},
		{"nan score", func(a *Anchor) { a.Score = math.NaN() }},
		{"zero time", func(a *Anchor) { a.At = time.Time{} }},
		{"cache predates anchor", func(a *Anchor) { a.CachedAt = a.At.Add(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ok
			tt.mutate(&a)
			assert.ErrorIs(t, a.Validate(), ErrInvalidAnchor)
		})
	}
}

func TestWithCacheKeepsAnchor(t *testing.T) {
	a := NewAnchor(90, ModeMedium, t0)
	now := t0.Add(3 * day)
	c := a.WithCache(now)

	assert.Equal(t, a.Score, c.Score)
	assert.Equal(t, a.At, c.At)
	assert.Equal(t, now, c.CachedAt)
	assert.InDelta(t, a.ScoreAt(now), c.CachedScore, 1e-12)
	require.NoError(t, c.Validate())
}

func TestSwitchModeScenario(t *testing.T) {
	a := NewAnchor(100, ModeMedium, t0)
	now := t0.Add(7 * day)

	next, res := SwitchMode(a, ModeFast, now)
	assert.True(t, res.Changed)
	assert.Equal(t, ModeMedium, res.ModeBefore)
	assert.Equal(t, ModeFast, res.ModeAfter)
	assert.InDelta(t, 58, res.ScoreBefore, 4)
	assert.InDelta(t, res.ScoreBefore, res.ScoreAfter, Tolerance)

	// Reading again right after the switch returns the preserved value.
	assert.InDelta(t, res.ScoreBefore, next.ScoreAt(now), Tolerance)
	assert.Equal(t, ModeFast, next.Mode)
	assert.Equal(t, now, next.At)
	assert.Equal(t, now, next.CachedAt)
	assert.Equal(t, next.Score, next.CachedScore)
	require.NoError(t, next.Validate())

	// From here on the faster curve applies.
	later := now.Add(7 * day)
	assert.Less(t, next.ScoreAt(later), a.ScoreAt(later))
}

func TestSwitchModeSameModeIsNoop(t *testing.T) {
	a := NewAnchor(70, ModeSlow, t0)
	next, res := SwitchMode(a, ModeSlow, t0.Add(day))
	assert.False(t, res.Changed)
	assert.Equal(t, a, next)
	assert.Equal(t, res.ScoreBefore, res.ScoreAfter)
}

func TestSwitchModeFutureAnchor(t *testing.T) {
	a := NewAnchor(55, ModeSlow, t0.Add(time.Hour))
	next, res := SwitchMode(a, ModeFast, t0)
	assert.Equal(t, 55.0, res.ScoreBefore)
	assert.Equal(t, 55.0, res.ScoreAfter)
	assert.Equal(t, a.At, next.At)
}

// Switch continuity over random anchors, mode pairs and evaluation times.
func TestSwitchContinuityProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1337))
	for i := 0; i < 5000; i++ {
		from := modeOrder[rng.IntN(len(modeOrder))]
		to := modeOrder[rng.IntN(len(modeOrder))]
		anchorAt := t0.Add(time.Duration(rng.Int64N(int64(10 * day))))
		a := NewAnchor(rng.Float64()*MaxScore, from, anchorAt)
		now := t0.Add(time.Duration(rng.Int64N(int64(120 * day))))

		before := a.ScoreAt(now)
		next, res := SwitchMode(a, to, now)
		after := next.ScoreAt(now)

		if math.Abs(before-after) >= Tolerance {
			t.Fatalf("discontinuity %s->%s anchor=%v at=%v now=%v: %v vs %v",
				from, to, a.Score, anchorAt, now, before, after)
		}
		assert.Less(t, math.Abs(res.ScoreBefore-res.ScoreAfter), Tolerance)
		require.NoError(t, next.Validate())
	}
}

// Chained switches never drift: every hop preserves the value at its instant.
func TestChainedSwitchesPreserveScore(t *testing.T) {
	a := NewAnchor(100, ModeSlow, t0)
	now := t0
	for i, m := range []Mode{ModeFast, ModeMedium, ModeTest, ModeSlow, ModeFast} {
		now = now.Add(time.Duration(i+1) * 13 * time.Hour)
		before := a.ScoreAt(now)
		a, _ = SwitchMode(a, m, now)
		assert.InDelta(t, before, a.ScoreAt(now), Tolerance)
	}
}
