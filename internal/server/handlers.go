// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
	"github.com/hazmap/hazmap/internal/overlay"
	"github.com/hazmap/hazmap/internal/route"
)

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// clientConfig is the bootstrap payload for the browser shell. The
// location policy is mirrored so the browser applies the same tiers
// against its own geolocation sensor.
type clientConfig struct {
	TileURL         string         `json:"tile_url"`
	Attribution     string         `json:"attribution"`
	Zoom            int            `json:"zoom"`
	DefaultLocation geo.Coordinate `json:"default_location"`
	Location        clientPolicy   `json:"location"`
	Demo            bool           `json:"demo"`
}

type clientPolicy struct {
	InitialTimeoutMs  int64 `json:"initial_timeout_ms"`
	FallbackTimeoutMs int64 `json:"fallback_timeout_ms"`
	FallbackMaxAgeMs  int64 `json:"fallback_max_age_ms"`
	WatchTimeoutMs    int64 `json:"watch_timeout_ms"`
}

// HandleClientConfig serves the JSON bootstrap configuration.
func (s *ServerContext) HandleClientConfig(w http.ResponseWriter, r *http.Request) {
	policy := s.Config.Location.Policy()

	writeJSON(w, clientConfig{
		TileURL:         s.Config.TileURL,
		Attribution:     s.Config.Attribution,
		Zoom:            s.Config.Zoom,
		DefaultLocation: s.Config.DefaultLocation,
		Location: clientPolicy{
			InitialTimeoutMs:  policy.InitialTimeout.Milliseconds(),
			FallbackTimeoutMs: policy.FallbackTimeout.Milliseconds(),
			FallbackMaxAgeMs:  policy.FallbackMaxAge.Milliseconds(),
			WatchTimeoutMs:    policy.WatchTimeout.Milliseconds(),
		},
		Demo: s.tracking(),
	})
}

// nearbyRadiusKm bounds the "hazards close to you" list in the view.
const nearbyRadiusKm = 2.0

// viewResponse pairs the view descriptors with their GeoJSON export.
type viewResponse struct {
	overlay.View
	GeoJSON overlay.GeoJSONFeatureCollection `json:"geojson"`
	Nearby  []hazard.WithDistance            `json:"nearby,omitempty"`
	Note    string                           `json:"note,omitempty"`
}

// HandleView serves the full overlay view: hazard points, the current
// position and, when a destination is supplied, a route path.
// Query: pos=lat,lon (browser-side fix), to=lat,lon (destination).
func (s *ServerContext) HandleView(w http.ResponseWriter, r *http.Request) {
	var note string
	var pos *geo.PositionSample

	if raw := r.URL.Query().Get("pos"); raw != "" {
		coord, err := parseCoord(raw)
		if err != nil {
			badRequest(w, "pos", err)
			return
		}
		pos = &geo.PositionSample{Coord: coord}
	} else {
		sample, ok, fallbackNote := s.Position()
		note = fallbackNote
		if ok || note != "" {
			pos = &sample
		}
	}

	var rt *route.Result
	if raw := r.URL.Query().Get("to"); raw != "" {
		if pos == nil {
			badRequest(w, "to", fmt.Errorf("no origin position available"))
			return
		}
		dest, err := parseCoord(raw)
		if err != nil {
			badRequest(w, "to", err)
			return
		}
		res := route.Estimate(pos.Coord, dest)
		rt = &res
	}

	view := overlay.Build(pos, s.Hazards.All(), rt)

	var nearby []hazard.WithDistance
	if pos != nil {
		nearby = s.Hazards.Nearby(pos.Coord, nearbyRadiusKm)
	}

	writeJSON(w, viewResponse{View: view, GeoJSON: view.GeoJSON(), Nearby: nearby, Note: note})
}

// HandleRoute estimates a route between two points.
// Query: from=lat,lon&to=lat,lon.
func (s *ServerContext) HandleRoute(w http.ResponseWriter, r *http.Request) {
	from, err := parseCoord(r.URL.Query().Get("from"))
	if err != nil {
		badRequest(w, "from", err)
		return
	}
	to, err := parseCoord(r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, "to", err)
		return
	}

	writeJSON(w, route.Estimate(from, to))
}

// positionResponse is the live demo-mode position payload.
type positionResponse struct {
	geo.PositionSample
	Fallback bool   `json:"fallback,omitempty"`
	Note     string `json:"note,omitempty"`
}

// HandlePosition serves the latest tracked position. Outside demo mode
// there is no server-side sensor and the endpoint answers 404.
func (s *ServerContext) HandlePosition(w http.ResponseWriter, r *http.Request) {
	if !s.tracking() {
		http.NotFound(w, r)
		return
	}

	sample, ok, note := s.Position()

	writeJSON(w, positionResponse{
		PositionSample: sample,
		Fallback:       !ok,
		Note:           note,
	})
}

// HandleHeatmap renders the hazard density overlay as WebP.
// Query: bbox=minLon,minLat,maxLon,maxLat (defaults to hazard bounds),
// w and h in pixels (default 512).
func (s *ServerContext) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bounds, ok := s.Hazards.Bounds()
	if raw := q.Get("bbox"); raw != "" {
		parsed, err := parseBBox(raw)
		if err != nil {
			badRequest(w, "bbox", err)
			return
		}
		bounds, ok = parsed, true
	} else if ok {
		// Pad so edge markers are not clipped.
		bounds.MinLat -= 0.01
		bounds.MaxLat += 0.01
		bounds.MinLon -= 0.01
		bounds.MaxLon += 0.01
	}
	if !ok {
		http.Error(w, "no hazards to render", http.StatusNotFound)
		return
	}

	width := parseDimension(q.Get("w"), 512)
	height := parseDimension(q.Get("h"), 512)

	img, err := overlay.Heatmap(s.Hazards.All(), bounds, width, height)
	if err != nil {
		log.Error().Err(err).Msg("Heatmap rendering failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=60")
	_, _ = w.Write(img)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, param string, err error) {
	http.Error(w, fmt.Sprintf("invalid %s: %v", param, err), http.StatusBadRequest)
}

// parseCoord parses "lat,lon" in decimal degrees.
func parseCoord(raw string) (geo.Coordinate, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("want lat,lon got %q", raw)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("longitude: %w", err)
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if !coord.Valid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate out of range: %q", raw)
	}

	return coord, nil
}

// parseBBox parses "minLon,minLat,maxLon,maxLat", the usual bbox order.
func parseBBox(raw string) (geo.Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, fmt.Errorf("want minLon,minLat,maxLon,maxLat got %q", raw)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, err
		}
		vals[i] = v
	}

	return geo.Bounds{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

func parseDimension(raw string, def int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return def
}
