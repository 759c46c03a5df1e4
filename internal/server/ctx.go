package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hazmap/hazmap/assets"
	"github.com/hazmap/hazmap/internal/config"
	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
	"github.com/hazmap/hazmap/internal/locate"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Hazards   *hazard.Set
	IndexHTML []byte
	Favicon   []byte

	mu           sync.RWMutex
	position     *geo.PositionSample
	fromWatch    bool
	locationNote string

	sub *locate.Subscription
}

// NewServerContext initializes the context with the validated hazard
// set and the embedded front-end assets.
func NewServerContext(cfg *config.Config, hazards *hazard.Set) *ServerContext {
	log.Info().
		Int("hazards", hazards.Len()).
		Float64("default_lat", cfg.DefaultLocation.Lat).
		Float64("default_lon", cfg.DefaultLocation.Lon).
		Msg("Initializing server context")

	return &ServerContext{
		Config:    cfg,
		Hazards:   hazards,
		IndexHTML: assets.Index,
		Favicon:   assets.Favicon,
	}
}

// StartTracking runs a tracker against the given source: one initial
// tiered acquisition plus a continuous watch, both feeding the shared
// position state. Used by demo mode, where the position originates
// server-side instead of in the browser.
func (s *ServerContext) StartTracking(src locate.Source) error {
	tracker := locate.NewTracker(src, s.Config.Location.Policy())

	sub, err := tracker.StartWatch(
		func(sample geo.PositionSample) { s.setPosition(sample, true) },
		func(err error) {
			log.Warn().Err(err).Msg("Position update failed, watch continues")
		},
	)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	// The one-shot fix and the watch race on purpose; setPosition
	// discards the one-shot once a watch update has landed.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		sample, err := tracker.AcquireInitial(ctx)
		if err != nil {
			s.setFallback(err)
			return
		}
		s.setPosition(sample, false)
	}()

	return nil
}

// Shutdown releases the watch subscription, if any.
func (s *ServerContext) Shutdown() {
	s.mu.RLock()
	sub := s.sub
	s.mu.RUnlock()

	if sub != nil {
		sub.Stop()
	}
}

// tracking reports whether a server-side watch is running.
func (s *ServerContext) tracking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub != nil
}

// Position returns the latest sample, or the default reference point
// with ok=false when no fix has been obtained.
func (s *ServerContext) Position() (geo.PositionSample, bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.position == nil {
		return geo.PositionSample{Coord: s.Config.DefaultLocation}, false, s.locationNote
	}

	return *s.position, true, s.locationNote
}

func (s *ServerContext) setPosition(sample geo.PositionSample, fromWatch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale one-shot result never overwrites watch-driven state.
	if !fromWatch && s.fromWatch {
		return
	}

	s.position = &sample
	s.fromWatch = s.fromWatch || fromWatch
	s.locationNote = ""
}

func (s *ServerContext) setFallback(err error) {
	log.Warn().Err(err).Msg("Location unavailable, using default reference point")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position == nil {
		s.locationNote = err.Error()
	}
}
