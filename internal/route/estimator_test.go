package route_test

import (
	"math"
	"testing"

	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/route"
)

var (
	yaoundeA = geo.Coordinate{Lat: 3.848, Lon: 11.502}
	yaoundeB = geo.Coordinate{Lat: 3.865, Lon: 11.518}
)

func TestEstimateEndpointsExact(t *testing.T) {
	tests := []struct {
		name     string
		from, to geo.Coordinate
	}{
		{"city pair", yaoundeA, yaoundeB},
		{"same point", yaoundeA, yaoundeA},
		{"hemisphere crossing", geo.Coordinate{Lat: -33.9, Lon: 18.4}, geo.Coordinate{Lat: 40.7, Lon: -74.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := route.Estimate(tt.from, tt.to)

			if len(res.Path) < 2 {
				t.Fatalf("path has %d points, want >= 2", len(res.Path))
			}
			if res.Path[0] != tt.from {
				t.Errorf("first point %+v, want origin %+v", res.Path[0], tt.from)
			}
			if res.Path[len(res.Path)-1] != tt.to {
				t.Errorf("last point %+v, want destination %+v", res.Path[len(res.Path)-1], tt.to)
			}
		})
	}
}

func TestEstimateApproximatedShape(t *testing.T) {
	res := route.Estimate(yaoundeA, yaoundeB)

	if res.Kind != route.KindApproximated {
		t.Fatalf("kind = %s, want %s", res.Kind, route.KindApproximated)
	}
	if len(res.Path) != 6 {
		t.Fatalf("path has %d points, want 6", len(res.Path))
	}

	// Distance must be self-consistent with the returned path.
	if want := geo.PathDistance(res.Path); math.Abs(res.DistanceKm-want) > 1e-12 {
		t.Errorf("distance %f inconsistent with path sum %f", res.DistanceKm, want)
	}

	// The wavy path is never shorter than the direct line.
	direct := geo.Haversine(yaoundeA, yaoundeB)
	if res.DistanceKm < direct {
		t.Errorf("approximated distance %f below direct %f", res.DistanceKm, direct)
	}

	if want := int(math.Round(res.DistanceKm / 30 * 60)); res.DurationMin != want {
		t.Errorf("duration %d min, want %d (30 km/h)", res.DurationMin, want)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	first := route.Estimate(yaoundeA, yaoundeB)
	second := route.Estimate(yaoundeA, yaoundeB)

	if len(first.Path) != len(second.Path) {
		t.Fatal("path lengths differ between runs")
	}
	for i := range first.Path {
		if first.Path[i] != second.Path[i] {
			t.Fatalf("waypoint %d differs between runs: %+v vs %+v", i, first.Path[i], second.Path[i])
		}
	}
	if first.DistanceKm != second.DistanceKm || first.DurationMin != second.DurationMin {
		t.Error("distance or duration differ between runs")
	}
}

func TestEstimateInteriorPerturbation(t *testing.T) {
	res := route.Estimate(yaoundeA, yaoundeB)

	for i := 1; i < len(res.Path)-1; i++ {
		factor := float64(i) / 5
		wave := math.Sin(factor * 4 * math.Pi)
		wantLat := yaoundeA.Lat + (yaoundeB.Lat-yaoundeA.Lat)*factor + 0.001*wave
		wantLon := yaoundeA.Lon + (yaoundeB.Lon-yaoundeA.Lon)*factor + 0.0005*wave

		if math.Abs(res.Path[i].Lat-wantLat) > 1e-15 {
			t.Errorf("waypoint %d lat = %v, want %v", i, res.Path[i].Lat, wantLat)
		}
		if math.Abs(res.Path[i].Lon-wantLon) > 1e-15 {
			t.Errorf("waypoint %d lon = %v, want %v", i, res.Path[i].Lon, wantLon)
		}
	}
}

func TestEstimateStraightLineFallback(t *testing.T) {
	// Interior perturbation pushes waypoints past the pole, so the
	// approximated strategy is unusable for this pair.
	north := geo.Coordinate{Lat: 90, Lon: 0}
	res := route.Estimate(north, north)

	if res.Kind != route.KindStraightLine {
		t.Fatalf("kind = %s, want %s", res.Kind, route.KindStraightLine)
	}
	if len(res.Path) != 2 {
		t.Fatalf("fallback path has %d points, want 2", len(res.Path))
	}
	if res.Path[0] != north || res.Path[1] != north {
		t.Error("fallback path endpoints wrong")
	}
	if res.DistanceKm != 0 {
		t.Errorf("self-route distance = %f, want 0", res.DistanceKm)
	}
	if res.DurationMin != 0 {
		t.Errorf("self-route duration = %d, want 0", res.DurationMin)
	}
}

func TestEstimateKnownDistance(t *testing.T) {
	res := route.Estimate(yaoundeA, yaoundeB)

	// The direct distance for this pair is ~2.5931 km; the wavy path
	// adds a little on top but stays in the same neighborhood.
	if res.DistanceKm < 2.5931 || res.DistanceKm > 3.0 {
		t.Errorf("distance %f km outside expected neighborhood of 2.59 km", res.DistanceKm)
	}
}

func TestEstimateDurationNonNegative(t *testing.T) {
	pairs := [][2]geo.Coordinate{
		{yaoundeA, yaoundeB},
		{yaoundeA, yaoundeA},
		{{Lat: -89.99, Lon: 0}, {Lat: 89.99, Lon: 179.99}},
	}

	for _, p := range pairs {
		res := route.Estimate(p[0], p[1])
		if res.DurationMin < 0 {
			t.Errorf("negative duration %d for %v -> %v", res.DurationMin, p[0], p[1])
		}
		if res.DistanceKm < 0 {
			t.Errorf("negative distance %f for %v -> %v", res.DistanceKm, p[0], p[1])
		}
	}
}
