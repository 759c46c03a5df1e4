// Package overlay builds the plain-data descriptors handed to the map
// rendering surface: point and path overlays plus view instructions.
// The core never calls rendering APIs; the host draws what it gets.
package overlay

import (
	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
	"github.com/hazmap/hazmap/internal/route"
)

// Point is a single marker overlay.
type Point struct {
	Coord    geo.Coordinate  `json:"coord"`
	Label    string          `json:"label"`
	Severity hazard.Severity `json:"severity,omitempty"`
}

// Path is a polyline overlay.
type Path struct {
	Coords []geo.Coordinate `json:"coords"`
	Kind   route.Kind       `json:"kind"`
}

// View is everything the rendering surface needs for one frame: the
// overlays, a fit-to-bounds instruction and a center-on instruction.
type View struct {
	Position  *geo.PositionSample `json:"position,omitempty"`
	Points    []Point             `json:"points"`
	Paths     []Path              `json:"paths,omitempty"`
	FitBounds *geo.Bounds         `json:"fit_bounds,omitempty"`
	Center    *geo.Coordinate     `json:"center,omitempty"`
}

// Build assembles a view from the current position, the hazard list and
// an optional route. Bounds cover every emitted point and path; the
// view centers on the position when one is known, otherwise on the
// bounds midpoint.
func Build(pos *geo.PositionSample, hazards []hazard.Marker, rt *route.Result) View {
	view := View{
		Position: pos,
		Points:   make([]Point, 0, len(hazards)),
	}

	var pts []geo.Coordinate

	for _, m := range hazards {
		view.Points = append(view.Points, Point{
			Coord:    m.Coord,
			Label:    m.Description,
			Severity: m.Severity,
		})
		pts = append(pts, m.Coord)
	}

	if rt != nil {
		view.Paths = append(view.Paths, Path{Coords: rt.Path, Kind: rt.Kind})
		pts = append(pts, rt.Path...)
	}

	if pos != nil {
		pts = append(pts, pos.Coord)
	}

	if bounds, ok := geo.BoundsOf(pts); ok {
		view.FitBounds = &bounds
		if pos != nil {
			center := pos.Coord
			view.Center = &center
		} else {
			center := bounds.Center()
			view.Center = &center
		}
	}

	return view
}
