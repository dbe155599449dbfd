package domain

import (
	"errors"
	"math"
)

// ErrInvalidDraft is returned when a draft missing required fields is
// converted to a payload. It never reaches the network.
var ErrInvalidDraft = errors.New("event draft is incomplete")

// LocationSelection is a resolved place with its display label.
type LocationSelection struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// SelectionFromCandidate resolves a candidate into a selection.
func SelectionFromCandidate(c PlaceCandidate) LocationSelection {
	return LocationSelection{Latitude: c.Latitude, Longitude: c.Longitude, Label: c.DisplayName}
}

// HasCoordinates reports whether both coordinates are finite numbers.
func (s LocationSelection) HasCoordinates() bool {
	return isFinite(s.Latitude) && isFinite(s.Longitude)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// EventDraft holds the form fields. Each setter replaces exactly one field.
type EventDraft struct {
	Name      string             `json:"name"`
	Location  *LocationSelection `json:"location,omitempty"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
}

func (d *EventDraft) SetName(name string) { d.Name = name }

// SetLocation records an explicit selection.
func (d *EventDraft) SetLocation(sel LocationSelection) {
	d.Location = &sel
}

// SetCoordinates records manually entered coordinates with no label.
func (d *EventDraft) SetCoordinates(lat, lon float64) {
	d.Location = &LocationSelection{Latitude: lat, Longitude: lon}
}

func (d *EventDraft) ClearLocation() { d.Location = nil }

// SetStartTime takes the UI's minute-precision value, e.g. "2024-04-26T14:00".
func (d *EventDraft) SetStartTime(v string) { d.StartTime = v }

func (d *EventDraft) SetEndTime(v string) { d.EndTime = v }

// IsValid reports whether the draft can be submitted.
func (d EventDraft) IsValid() bool {
	return d.Name != "" &&
		d.Location != nil && d.Location.HasCoordinates() &&
		d.StartTime != "" &&
		d.EndTime != ""
}

// ToSubmissionPayload normalizes the draft into the forecast request body.
// Timestamps gain a ":00" seconds suffix; nothing else is derived.
func (d EventDraft) ToSubmissionPayload() (EventRequest, error) {
	if !d.IsValid() {
		return EventRequest{}, ErrInvalidDraft
	}
	return EventRequest{
		Name: d.Name,
		Location: Coordinates{
			Latitude:  d.Location.Latitude,
			Longitude: d.Location.Longitude,
		},
		StartTime: d.StartTime + ":00",
		EndTime:   d.EndTime + ":00",
	}, nil
}
