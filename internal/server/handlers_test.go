package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hazmap/hazmap/internal/config"
	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
	"github.com/hazmap/hazmap/internal/locate"
	"github.com/hazmap/hazmap/internal/overlay"
	"github.com/hazmap/hazmap/internal/route"
	"github.com/hazmap/hazmap/internal/server"
)

const testYAML = `
default_location:
  lat: 3.848
  lon: 11.502
hazards:
  - coord: {lat: 3.86, lon: 11.51}
    severity: high
    description: Flooded underpass
  - coord: {lat: 3.87, lon: 11.52}
    severity: low
    description: Loose gravel
`

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()

	cfg, err := config.Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("parsing test config: %v", err)
	}
	hazards, err := cfg.HazardSet()
	if err != nil {
		t.Fatalf("building hazard set: %v", err)
	}

	return server.NewServerContext(cfg, hazards)
}

func TestHandleIndex(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	// Conditional request answers 304.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ctx.HandleIndex(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", rec.Code)
	}

	// Asset-looking paths under / are not the index.
	rec = httptest.NewRecorder()
	ctx.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("asset path status = %d, want 404", rec.Code)
	}
}

func TestHandleClientConfig(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleClientConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var payload struct {
		TileURL         string         `json:"tile_url"`
		DefaultLocation geo.Coordinate `json:"default_location"`
		Location        struct {
			InitialTimeoutMs  int64 `json:"initial_timeout_ms"`
			FallbackTimeoutMs int64 `json:"fallback_timeout_ms"`
			FallbackMaxAgeMs  int64 `json:"fallback_max_age_ms"`
		} `json:"location"`
		Demo bool `json:"demo"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if payload.TileURL == "" {
		t.Error("missing tile_url")
	}
	if payload.DefaultLocation.Lat != 3.848 {
		t.Errorf("default location = %+v", payload.DefaultLocation)
	}
	if payload.Location.InitialTimeoutMs != 15000 {
		t.Errorf("initial timeout = %d ms, want 15000", payload.Location.InitialTimeoutMs)
	}
	if payload.Location.FallbackTimeoutMs != 30000 {
		t.Errorf("fallback timeout = %d ms, want 30000", payload.Location.FallbackTimeoutMs)
	}
	if payload.Location.FallbackMaxAgeMs != 300000 {
		t.Errorf("fallback max age = %d ms, want 300000", payload.Location.FallbackMaxAgeMs)
	}
	if payload.Demo {
		t.Error("demo reported without tracking")
	}
}

func TestHandleView(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleView(rec, httptest.NewRequest(http.MethodGet, "/api/view?pos=3.85,11.505&to=3.87,11.52", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var view struct {
		Position *geo.PositionSample              `json:"position"`
		Points   []overlay.Point                  `json:"points"`
		Paths    []overlay.Path                   `json:"paths"`
		Bounds   *geo.Bounds                      `json:"fit_bounds"`
		GeoJSON  overlay.GeoJSONFeatureCollection `json:"geojson"`
		Nearby   []hazard.WithDistance            `json:"nearby"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if view.Position == nil || view.Position.Coord.Lat != 3.85 {
		t.Error("view missing supplied position")
	}
	if len(view.Points) != 2 {
		t.Errorf("points = %d, want 2", len(view.Points))
	}
	if len(view.Paths) != 1 || len(view.Paths[0].Coords) != 6 {
		t.Error("view missing the 6-point route path")
	}
	if view.Bounds == nil {
		t.Error("view missing fit bounds")
	}
	// position + 2 hazards + route
	if len(view.GeoJSON.Features) != 4 {
		t.Errorf("geojson features = %d, want 4", len(view.GeoJSON.Features))
	}
	// Only the underpass sits within 2 km of the supplied position.
	if len(view.Nearby) != 1 {
		t.Fatalf("nearby hazards = %d, want 1", len(view.Nearby))
	}
	if view.Nearby[0].Description != "Flooded underpass" {
		t.Errorf("nearby hazard = %q, want the underpass", view.Nearby[0].Description)
	}
	if view.Nearby[0].DistanceKm <= 0 || view.Nearby[0].DistanceKm > 2 {
		t.Errorf("nearby distance = %f km, want (0, 2]", view.Nearby[0].DistanceKm)
	}
}

func TestHandleViewBadParams(t *testing.T) {
	ctx := newTestContext(t)

	for _, target := range []string{
		"/api/view?pos=abc",
		"/api/view?pos=91,0",
		"/api/view?pos=3.85,11.505&to=1,2,3",
	} {
		rec := httptest.NewRecorder()
		ctx.HandleView(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleRoute(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleRoute(rec, httptest.NewRequest(http.MethodGet, "/api/route?from=3.848,11.502&to=3.865,11.518", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var res route.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if res.Kind != route.KindApproximated {
		t.Errorf("kind = %s", res.Kind)
	}
	if len(res.Path) != 6 {
		t.Errorf("path points = %d, want 6", len(res.Path))
	}
	if res.DistanceKm <= 0 || res.DurationMin < 0 {
		t.Errorf("bad estimate: %f km, %d min", res.DistanceKm, res.DurationMin)
	}
}

func TestHandleRouteBadParams(t *testing.T) {
	ctx := newTestContext(t)

	for _, target := range []string{
		"/api/route",
		"/api/route?from=3.848,11.502",
		"/api/route?from=x,y&to=3.865,11.518",
		"/api/route?from=3.848,11.502&to=0,200",
	} {
		rec := httptest.NewRecorder()
		ctx.HandleRoute(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandlePositionWithoutTracking(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandlePosition(rec, httptest.NewRequest(http.MethodGet, "/api/position", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// manualSource delivers fixes only when the test pushes them.
type manualSource struct {
	fn func(locate.Fix, error)
}

func (m *manualSource) Current(_ context.Context, _ locate.Options) (locate.Fix, error) {
	return locate.Fix{}, &locate.SourceError{Kind: locate.PositionUnavailable}
}

func (m *manualSource) Watch(_ locate.Options, fn func(locate.Fix, error)) (func(), error) {
	m.fn = fn
	return func() {}, nil
}

func TestHandlePositionWithTracking(t *testing.T) {
	ctx := newTestContext(t)

	src := &manualSource{}
	if err := ctx.StartTracking(src); err != nil {
		t.Fatalf("starting tracking: %v", err)
	}
	defer ctx.Shutdown()

	src.fn(locate.Fix{Coord: geo.Coordinate{Lat: 3.851, Lon: 11.507}}, nil)

	rec := httptest.NewRecorder()
	ctx.HandlePosition(rec, httptest.NewRequest(http.MethodGet, "/api/position", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		Coord    geo.Coordinate `json:"coord"`
		Fallback bool           `json:"fallback"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload.Coord.Lat != 3.851 {
		t.Errorf("position = %+v, want watch fix", payload.Coord)
	}
	if payload.Fallback {
		t.Error("watch-fed position reported as fallback")
	}
}

func TestClientConfigDuringTrackingStartup(t *testing.T) {
	ctx := newTestContext(t)

	// Config requests racing with StartTracking must observe a
	// consistent tracking flag.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rec := httptest.NewRecorder()
			ctx.HandleClientConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
		}
	}()

	if err := ctx.StartTracking(&manualSource{}); err != nil {
		t.Fatalf("starting tracking: %v", err)
	}
	defer ctx.Shutdown()
	wg.Wait()

	rec := httptest.NewRecorder()
	ctx.HandleClientConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var payload struct {
		Demo bool `json:"demo"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !payload.Demo {
		t.Error("demo not reported after tracking started")
	}
}

func TestHandleHeatmap(t *testing.T) {
	ctx := newTestContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/heatmap.webp?w=64&h=64", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty image body")
	}

	rec = httptest.NewRecorder()
	ctx.HandleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/heatmap.webp?bbox=bad", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad bbox status = %d, want 400", rec.Code)
	}
}
