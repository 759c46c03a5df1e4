// Package geo handles geographic data structures and distance math.
package geo

import "time"

// Coordinate represents a WGS 84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// Valid reports whether the coordinate lies within WGS 84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Offset returns the coordinate shifted by the given deltas in degrees.
func (c Coordinate) Offset(dLat, dLon float64) Coordinate {
	return Coordinate{Lat: c.Lat + dLat, Lon: c.Lon + dLon}
}

// PositionSample is a single location fix. AccuracyM is nil when the
// source does not report an accuracy radius. Samples are replaced whole
// on every new fix, never mutated.
type PositionSample struct {
	Coord     Coordinate `json:"coord"`
	AccuracyM *float64   `json:"accuracy_m,omitempty"`
	Time      time.Time  `json:"time"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend grows the bounds to include c.
func (b *Bounds) Extend(c Coordinate) {
	if c.Lat < b.MinLat {
		b.MinLat = c.Lat
	}
	if c.Lat > b.MaxLat {
		b.MaxLat = c.Lat
	}
	if c.Lon < b.MinLon {
		b.MinLon = c.Lon
	}
	if c.Lon > b.MaxLon {
		b.MaxLon = c.Lon
	}
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// BoundsOf computes the bounding box of a point set. The second return
// value is false when the set is empty.
func BoundsOf(pts []Coordinate) (Bounds, bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}

	b := Bounds{
		MinLat: pts[0].Lat, MaxLat: pts[0].Lat,
		MinLon: pts[0].Lon, MaxLon: pts[0].Lon,
	}
	for _, p := range pts[1:] {
		b.Extend(p)
	}

	return b, true
}
