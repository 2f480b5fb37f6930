package warmth

import "errors"

var (
	// ErrNotFound means a known contact has no anchor row. That is a
	// provisioning fault, never a normal outcome.
	ErrNotFound = errors.New("warmth anchor not found")

	// ErrContactNotFound means the contact itself does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidMode rejects an unrecognized (or disabled) decay mode.
	ErrInvalidMode = errors.New("invalid warmth mode")

	// ErrUnavailable means the anchor store could not be reached within budget.
	// Callers retry with backoff; no score is fabricated.
	ErrUnavailable = errors.New("warmth store unavailable")

	// ErrOutOfRangeScore is an internal assertion: the model produced a value outside [0,100].
	ErrOutOfRangeScore = errors.New("warmth score out of range")

	// ErrInvalidWindow rejects a malformed history window.
	ErrInvalidWindow = errors.New("invalid history window")

	// ErrInvalidAnchor rejects an anchor that breaks the row invariants.
	ErrInvalidAnchor = errors.New("invalid warmth anchor")

	// ErrInvalidInteraction rejects an unknown interaction kind or boost.
	ErrInvalidInteraction = errors.New("invalid interaction")
)
