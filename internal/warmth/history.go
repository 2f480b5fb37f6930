package warmth

import (
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Source records why a snapshot exists.
type Source string

const (
	SourceProvision    Source = "provision"
	SourceInteraction  Source = "interaction"
	SourceModeSwitch   Source = "mode_switch"
	SourceAnchor       Source = "anchor"       // the live anchor row, never persisted as a snapshot
	SourceInterpolated Source = "interpolated" // computed on read, never persisted
)

// Snapshot is one (time, score, mode) point in a contact's history. Logged
// snapshots are written when an anchor is (re)established and never mutated.
type Snapshot struct {
	ID        int64
	ContactID string
	At        time.Time
	Score     float64
	Mode      Mode
	Source    Source
}

// Band derives the band from the snapshot's score.
func (s Snapshot) Band() Band {
	return Classify(s.Score)
}

// Logged reports whether the snapshot came from storage rather than interpolation.
func (s Snapshot) Logged() bool {
	return s.Source != SourceInterpolated
}

// AnchorSnapshot is the snapshot an anchor writes when it is established.
func AnchorSnapshot(contactID string, a Anchor, src Source) Snapshot {
	return Snapshot{
		ContactID: contactID,
		At:        a.At,
		Score:     a.Score,
		Mode:      a.Mode,
		Source:    src,
	}
}

// Span is a requested history window at a sampling resolution.
type Span struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Validate rejects inverted windows and non-positive steps.
func (s Span) Validate() error {
	switch {
	case s.Step <= 0:
		return goerr.Wrap(ErrInvalidWindow, "step must be positive", goerr.V("step", s.Step))
	case s.Start.IsZero() || s.End.IsZero():
		return goerr.Wrap(ErrInvalidWindow, "window bounds required")
	case s.End.Before(s.Start):
		return goerr.Wrap(ErrInvalidWindow, "window ends before it starts",
			goerr.V("start", s.Start),
			goerr.V("end", s.End))
	}
	return nil
}

// Timeline is everything known about one contact for reconstruction.
type Timeline struct {
	ContactID string
	// Since is when the contact came into existence.
	Since time.Time
	// Anchors are the re-anchor events, in any order. Each one starts a curve.
	Anchors []Snapshot
}

// Reconstruct samples the timeline over span without inventing rows: grid
// points are interpolated from the latest anchor at or before them, and the
// anchors inside the window are returned as logged. The window is clamped to
// [Since, now]. maxPoints bounds the grid; zero means unbounded.
func Reconstruct(tl Timeline, span Span, now time.Time, maxPoints int) ([]Snapshot, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}

	anchors := make([]Snapshot, 0, len(tl.Anchors))
	for _, a := range tl.Anchors {
		if !a.At.After(now) {
			anchors = append(anchors, a)
		}
	}
	if len(anchors) == 0 {
		return []Snapshot{}, nil
	}
	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].At.Before(anchors[j].At) })

	start, end := span.Start, span.End
	if end.After(now) {
		end = now
	}
	if start.Before(tl.Since) {
		start = tl.Since
	}
	if start.Before(anchors[0].At) {
		start = anchors[0].At
	}
	if end.Before(start) {
		return []Snapshot{}, nil
	}

	n := int(end.Sub(start)/span.Step) + 1
	if maxPoints > 0 && n > maxPoints {
		return nil, goerr.Wrap(ErrInvalidWindow, "window too fine for resolution",
			goerr.V("points", n),
			goerr.V("max_points", maxPoints))
	}

	byTime := make(map[int64]Snapshot, n+len(anchors))
	sample := func(t time.Time) {
		i := sort.Search(len(anchors), func(i int) bool { return anchors[i].At.After(t) }) - 1
		if i < 0 {
			return
		}
		a := anchors[i]
		byTime[t.UnixNano()] = Snapshot{
			ContactID: tl.ContactID,
			At:        t,
			Score:     Score(a.Score, a.At, a.Mode, t),
			Mode:      a.Mode,
			Source:    SourceInterpolated,
		}
	}

	for i := 0; i < n; i++ {
		sample(start.Add(time.Duration(i) * span.Step))
	}
	sample(end)

	// Logged anchors win over interpolated points at the same instant.
	for _, a := range anchors {
		if a.At.Before(start) || a.At.After(end) {
			continue
		}
		if a.ContactID == "" {
			a.ContactID = tl.ContactID
		}
		byTime[a.At.UnixNano()] = a
	}

	out := make([]Snapshot, 0, len(byTime))
	for _, s := range byTime {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
