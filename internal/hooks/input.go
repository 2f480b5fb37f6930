package hooks

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Event is the JSON an interaction logger sends on stdin. Which fields are
// required depends on the hook event.
type Event struct {
	ContactID string `json:"contact_id"`

	// interaction
	Kind   string  `json:"kind,omitempty"`
	Points float64 `json:"points,omitempty"`

	// mode
	Mode string `json:"mode,omitempty"`

	// contact
	DisplayName  string   `json:"display_name,omitempty"`
	InitialScore *float64 `json:"initial_score,omitempty"`
}

// Validate checks the fields the given hook event needs.
func (e *Event) Validate(event string) error {
	e.ContactID = strings.TrimSpace(e.ContactID)
	switch event {
	case "interaction":
		if e.ContactID == "" {
			return goerr.New("contact_id required")
		}
		if e.Kind == "" {
			return goerr.New("kind required")
		}
	case "mode":
		if e.ContactID == "" {
			return goerr.New("contact_id required")
		}
		if e.Mode == "" {
			return goerr.New("mode required")
		}
	case "contact":
	default:
		return goerr.New("unknown hook event", goerr.V("event", event))
	}
	return nil
}
