package session

import (
	"errors"
	"fmt"
)

// EventType names a UI interaction.
type EventType string

const (
	EventQuery       EventType = "query"
	EventSelect      EventType = "select"
	EventClear       EventType = "clear"
	EventDismiss     EventType = "dismiss"
	EventFocus       EventType = "focus"
	EventName        EventType = "name"
	EventStart       EventType = "start"
	EventEnd         EventType = "end"
	EventCoordinates EventType = "coordinates"
	EventSubmit      EventType = "submit"
)

// ErrInvalidEvent is wrapped by every error Apply returns for malformed input.
var ErrInvalidEvent = errors.New("invalid event")

// Event is one inbound UI interaction.
//
// Value carries the text for query, name, start and end. CandidateID picks a
// suggestion for select. Latitude and Longitude are both required for
// coordinates.
type Event struct {
	Type        EventType `json:"type"`
	Value       string    `json:"value,omitempty"`
	CandidateID int64     `json:"candidate_id,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

func invalidEvent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}
