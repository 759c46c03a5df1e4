package locate

import (
	"context"
	"math"
	"sync"
	"time"
)

// SimSource is a deterministic geolocation capability that wanders
// around a fixed center. It backs demo mode, where no real sensor
// exists on the server side.
type SimSource struct {
	center   Fix
	interval time.Duration

	mu   sync.Mutex
	tick int
}

// NewSimSource creates a simulated source emitting readings around
// center every interval.
func NewSimSource(lat, lon float64, interval time.Duration) *SimSource {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	s := &SimSource{interval: interval}
	s.center.Coord.Lat = lat
	s.center.Coord.Lon = lon

	return s
}

// Current returns the next reading of the simulated walk.
func (s *SimSource) Current(_ context.Context, opts Options) (Fix, error) {
	return s.next(opts.HighAccuracy), nil
}

// Watch emits readings on a ticker until the returned stop function is
// called. Stop is safe to call more than once.
func (s *SimSource) Watch(opts Options, fn func(Fix, error)) (func(), error) {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn(s.next(opts.HighAccuracy), nil)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// next advances the walk one step. The path is a slow Lissajous loop so
// repeated runs look alike and tests stay reproducible.
func (s *SimSource) next(highAccuracy bool) Fix {
	s.mu.Lock()
	s.tick++
	phase := float64(s.tick) * 0.15
	s.mu.Unlock()

	accuracy := 120.0
	if highAccuracy {
		accuracy = 12.0
	}

	return Fix{
		Coord: s.center.Coord.Offset(
			0.0008*math.Sin(phase),
			0.0012*math.Cos(phase*0.7),
		),
		AccuracyM: &accuracy,
		Time:      time.Now(),
	}
}
