package overlay

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Properties map[string]interface{} `json:"properties"`
	Type       string                 `json:"type"`
	Geometry   GeoJSONGeometry        `json:"geometry"`
}

// GeoJSONGeometry represents the geometry of a feature (Point or LineString).
type GeoJSONGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"` // [Lon, Lat] or [[Lon, Lat], ...]
}

// GeoJSON exports the view's overlays as a FeatureCollection for
// clients that render through a GeoJSON layer.
func (v View) GeoJSON() GeoJSONFeatureCollection {
	features := make([]GeoJSONFeature, 0, len(v.Points)+len(v.Paths)+1)

	if v.Position != nil {
		props := map[string]interface{}{"kind": "position"}
		if v.Position.AccuracyM != nil {
			props["accuracy_m"] = *v.Position.AccuracyM
		}
		features = append(features, GeoJSONFeature{
			Type:       "Feature",
			Properties: props,
			Geometry: GeoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{v.Position.Coord.Lon, v.Position.Coord.Lat},
			},
		})
	}

	for _, p := range v.Points {
		features = append(features, GeoJSONFeature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"kind":     "hazard",
				"label":    p.Label,
				"severity": string(p.Severity),
			},
			Geometry: GeoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{p.Coord.Lon, p.Coord.Lat},
			},
		})
	}

	for _, path := range v.Paths {
		coords := make([][]float64, len(path.Coords))
		for i, c := range path.Coords {
			coords[i] = []float64{c.Lon, c.Lat}
		}
		features = append(features, GeoJSONFeature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"kind":  "route",
				"route": string(path.Kind),
			},
			Geometry: GeoJSONGeometry{
				Type:        "LineString",
				Coordinates: coords,
			},
		})
	}

	return GeoJSONFeatureCollection{Type: "FeatureCollection", Features: features}
}
