package domain

import (
	"context"
	"strings"
)

// PlaceCandidate is one ranked result of a place search.
type PlaceCandidate struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Region      string  `json:"region,omitempty"`
	Country     string  `json:"country,omitempty"`
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// NewPlaceCandidate builds a candidate and composes its display name.
func NewPlaceCandidate(id int64, name, region, country string, lat, lon float64) PlaceCandidate {
	return PlaceCandidate{
		ID:          id,
		Name:        name,
		Region:      region,
		Country:     country,
		DisplayName: ComposeDisplayName(name, region, country),
		Latitude:    lat,
		Longitude:   lon,
	}
}

// ComposeDisplayName joins the non-empty parts with ", ",
// e.g. "London", "", "UK" -> "London, UK".
func ComposeDisplayName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// Geocoder searches for places matching free text.
type Geocoder interface {
	// Search returns ranked candidates for query. An empty slice means no match.
	Search(ctx context.Context, query string) ([]PlaceCandidate, error)
}
