// Package route produces a synthetic point-to-point route with a
// distance and travel-time estimate. The waypoint formula is a
// deterministic stand-in for a road-network routing service and must
// not be altered: downstream consumers rely on bit-exact reproduction.
package route

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/hazmap/hazmap/internal/geo"
)

// Kind identifies which strategy produced a result.
type Kind string

const (
	// KindApproximated is the wavy multi-point path.
	KindApproximated Kind = "approximated-path"
	// KindStraightLine is the direct-line fallback.
	KindStraightLine Kind = "straight-line"
)

const (
	segments = 5

	// Assumed average speeds, km/h.
	approxSpeed   = 30
	straightSpeed = 50

	// Interior waypoint perturbation amplitude in degrees.
	waveAmplitude = 0.001
)

// Result describes an estimated route. Path always holds at least the
// origin and destination, distance and duration are never negative.
type Result struct {
	Path        []geo.Coordinate `json:"path"`
	DistanceKm  float64          `json:"distance_km"`
	DurationMin int              `json:"duration_min"`
	Kind        Kind             `json:"kind"`
}

// Estimate computes a route between origin and destination. It never
// fails: when the approximated path cannot be generated it degrades to
// a straight line, reported through the result kind.
func Estimate(origin, destination geo.Coordinate) Result {
	if path, ok := approximatedPath(origin, destination); ok {
		distance := geo.PathDistance(path)
		return Result{
			Path:        path,
			DistanceKm:  distance,
			DurationMin: durationMin(distance, approxSpeed),
			Kind:        KindApproximated,
		}
	}

	log.Debug().
		Float64("from_lat", origin.Lat).
		Float64("from_lon", origin.Lon).
		Float64("to_lat", destination.Lat).
		Float64("to_lon", destination.Lon).
		Msg("Approximated path unusable, degrading to straight line")

	distance := geo.Haversine(origin, destination)

	return Result{
		Path:        []geo.Coordinate{origin, destination},
		DistanceKm:  distance,
		DurationMin: durationMin(distance, straightSpeed),
		Kind:        KindStraightLine,
	}
}

// approximatedPath interpolates segments+1 waypoints between the
// endpoints and perturbs the interior ones into a deterministic wave.
// Endpoints are never perturbed. It reports false when any generated
// waypoint leaves valid coordinate ranges, which can happen near the
// poles or the antimeridian.
func approximatedPath(origin, destination geo.Coordinate) ([]geo.Coordinate, bool) {
	path := make([]geo.Coordinate, 0, segments+1)

	for i := 0; i <= segments; i++ {
		var point geo.Coordinate
		switch i {
		case 0:
			// Endpoints are exact, never interpolated or perturbed.
			point = origin
		case segments:
			point = destination
		default:
			factor := float64(i) / segments
			wave := math.Sin(factor * 4 * math.Pi)
			point = geo.Coordinate{
				Lat: origin.Lat + (destination.Lat-origin.Lat)*factor + waveAmplitude*wave,
				Lon: origin.Lon + (destination.Lon-origin.Lon)*factor + waveAmplitude/2*wave,
			}
		}

		if !point.Valid() {
			return nil, false
		}

		path = append(path, point)
	}

	return path, true
}

func durationMin(distanceKm, speedKmh float64) int {
	return int(math.Round(distanceKm / speedKmh * 60))
}
