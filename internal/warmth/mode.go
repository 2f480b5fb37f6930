package warmth

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Mode names a decay-rate configuration.
type Mode string

const (
	ModeSlow   Mode = "slow"
	ModeMedium Mode = "medium"
	ModeFast   Mode = "fast"
	ModeTest   Mode = "test"
)

// CharacteristicTarget is the score a full-strength anchor (100) reaches after
// one characteristic period.
const CharacteristicTarget = 30.0

// ModeSpec is one row of the decay table.
type ModeSpec struct {
	Mode Mode
	// Lambda is the decay constant per day.
	Lambda float64
	// Period is the characteristic period: 100 decays to CharacteristicTarget.
	Period time.Duration
	// Diagnostic modes are for QA only and may be disabled in production.
	Diagnostic bool
}

// HalfLife returns the time for any anchor to lose half its height above the floor.
func (s ModeSpec) HalfLife() time.Duration {
	days := math.Ln2 / s.Lambda
	return time.Duration(days * float64(day))
}

// modeTable holds the hand-tuned decay constants, lambda = ln(100/30) / period_days.
// The lambdas are literals; TestModeLambdasMatchCharacteristicPeriod re-derives them from Period.
var modeTable = map[Mode]ModeSpec{
	ModeSlow: {
		Mode:   ModeSlow,
		Lambda: 0.040132426810864534,
		Period: 30 * day,
	},
	ModeMedium: {
		Mode:   ModeMedium,
		Lambda: 0.08599805745185259,
		Period: 14 * day,
	},
	ModeFast: {
		Mode:   ModeFast,
		Lambda: 0.17199611490370517,
		Period: 7 * day,
	},
	ModeTest: {
		Mode:       ModeTest,
		Lambda:     115.58138921528987,
		Period:     15 * time.Minute,
		Diagnostic: true,
	},
}

// modeOrder is slowest first.
var modeOrder = []Mode{ModeSlow, ModeMedium, ModeFast, ModeTest}

// Modes returns the decay table, slowest mode first.
func Modes() []ModeSpec {
	specs := make([]ModeSpec, 0, len(modeOrder))
	for _, m := range modeOrder {
		specs = append(specs, modeTable[m])
	}
	return specs
}

// ParseMode resolves a user-supplied mode name. Unknown names fail with ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", goerr.Wrap(ErrInvalidMode, "unrecognized mode", goerr.V("mode", s))
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// Spec returns the table row for m. ok is false for unknown modes.
func (m Mode) Spec() (ModeSpec, bool) {
	s, ok := modeTable[m]
	return s, ok
}

// Lambda returns the per-day decay constant for m, or 0 for an unknown mode.
func (m Mode) Lambda() float64 {
	return modeTable[m].Lambda
}

func (m Mode) String() string {
	return string(m)
}
