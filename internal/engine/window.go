package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// ParseDuration accepts Go durations plus whole or fractional days and weeks
// ("30d", "1.5d", "2w").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	}
	if unit == 0 {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, goerr.Wrap(warmth.ErrInvalidWindow, "bad duration", goerr.V("value", s))
		}
		return d, nil
	}

	n, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || n < 0 {
		return 0, goerr.Wrap(warmth.ErrInvalidWindow, "bad duration", goerr.V("value", s))
	}
	return time.Duration(n * float64(unit)), nil
}

// ParseWindow builds a Window from its textual parts. Empty parts are unset;
// times are RFC 3339.
func ParseWindow(window, start, end, step string) (Window, error) {
	var w Window
	var err error
	if window != "" {
		if w.Duration, err = ParseDuration(window); err != nil {
			return Window{}, err
		}
	}
	if start != "" {
		if w.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return Window{}, goerr.Wrap(warmth.ErrInvalidWindow, "bad start time", goerr.V("start", start))
		}
	}
	if end != "" {
		if w.End, err = time.Parse(time.RFC3339, end); err != nil {
			return Window{}, goerr.Wrap(warmth.ErrInvalidWindow, "bad end time", goerr.V("end", end))
		}
	}
	if step != "" {
		if w.Step, err = ParseDuration(step); err != nil {
			return Window{}, err
		}
		if w.Step == 0 {
			return Window{}, goerr.Wrap(warmth.ErrInvalidWindow, "step must be positive", goerr.V("step", step))
		}
	}
	return w, nil
}
