// Package hazard holds the pre-seeded hazard marker list. The set is
// read-only after load; reports are never persisted.
package hazard

import (
	"fmt"
	"sort"

	"github.com/hazmap/hazmap/internal/geo"
)

// Severity classifies a hazard marker.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether the severity is one of the known tags.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Weight returns the relative intensity of the severity, used for
// density rendering. Higher severities weigh more.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 1.0
	case SeverityMedium:
		return 0.6
	default:
		return 0.3
	}
}

// Marker is a single hazard on the map.
type Marker struct {
	Coord       geo.Coordinate `json:"coord" yaml:"coord"`
	Severity    Severity       `json:"severity" yaml:"severity" validate:"oneof=high medium low"`
	Description string         `json:"description" yaml:"description" validate:"required"`
}

// WithDistance pairs a marker with its distance from a query point.
type WithDistance struct {
	Marker
	DistanceKm float64 `json:"distance_km"`
}

// Set is an immutable hazard collection.
type Set struct {
	markers []Marker
}

// NewSet builds a set from markers, rejecting invalid coordinates or
// severity tags.
func NewSet(markers []Marker) (*Set, error) {
	for i, m := range markers {
		if !m.Coord.Valid() {
			return nil, fmt.Errorf("hazard %d: coordinate out of range: %+v", i, m.Coord)
		}
		if !m.Severity.Valid() {
			return nil, fmt.Errorf("hazard %d: unknown severity %q", i, m.Severity)
		}
	}

	return &Set{markers: append([]Marker(nil), markers...)}, nil
}

// All returns every marker.
func (s *Set) All() []Marker {
	return append([]Marker(nil), s.markers...)
}

// Len returns the marker count.
func (s *Set) Len() int { return len(s.markers) }

// BySeverity returns the markers carrying the given tag.
func (s *Set) BySeverity(sev Severity) []Marker {
	var out []Marker
	for _, m := range s.markers {
		if m.Severity == sev {
			out = append(out, m)
		}
	}

	return out
}

// Nearby returns markers within radiusKm of center, closest first.
func (s *Set) Nearby(center geo.Coordinate, radiusKm float64) []WithDistance {
	var out []WithDistance
	for _, m := range s.markers {
		d := geo.Haversine(center, m.Coord)
		if d <= radiusKm {
			out = append(out, WithDistance{Marker: m, DistanceKm: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})

	return out
}

// Bounds returns the bounding box of all markers; false when empty.
func (s *Set) Bounds() (geo.Bounds, bool) {
	pts := make([]geo.Coordinate, len(s.markers))
	for i, m := range s.markers {
		pts[i] = m.Coord
	}

	return geo.BoundsOf(pts)
}
