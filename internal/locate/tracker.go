package locate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hazmap/hazmap/internal/geo"
)

// Policy holds the acquisition tier parameters.
type Policy struct {
	InitialTimeout  time.Duration
	FallbackTimeout time.Duration
	FallbackMaxAge  time.Duration
	WatchTimeout    time.Duration
}

// DefaultPolicy returns the standard tier parameters: a fresh
// high-accuracy attempt, then a low-accuracy attempt tolerating a
// cached reading.
func DefaultPolicy() Policy {
	return Policy{
		InitialTimeout:  15 * time.Second,
		FallbackTimeout: 30 * time.Second,
		FallbackMaxAge:  5 * time.Minute,
		WatchTimeout:    15 * time.Second,
	}
}

// Tracker acquires an initial position through tiered fallback and
// keeps it updated through a watch subscription. It holds no state
// besides the source and policy; position state is owned by the caller.
type Tracker struct {
	src    Source
	policy Policy
}

// NewTracker creates a tracker over the given capability. Zero policy
// fields are replaced with defaults.
func NewTracker(src Source, policy Policy) *Tracker {
	def := DefaultPolicy()
	if policy.InitialTimeout <= 0 {
		policy.InitialTimeout = def.InitialTimeout
	}
	if policy.FallbackTimeout <= 0 {
		policy.FallbackTimeout = def.FallbackTimeout
	}
	if policy.FallbackMaxAge <= 0 {
		policy.FallbackMaxAge = def.FallbackMaxAge
	}
	if policy.WatchTimeout <= 0 {
		policy.WatchTimeout = def.WatchTimeout
	}

	return &Tracker{src: src, policy: policy}
}

// Policy returns the effective tier parameters.
func (t *Tracker) Policy() Policy { return t.policy }

// AcquireInitial obtains the first position fix. It tries a fresh
// high-accuracy reading first; on any failure it makes exactly one
// low-accuracy attempt that may reuse a recent cached reading. When
// both tiers fail it returns a *LocationError carrying the underlying
// reason.
func (t *Tracker) AcquireInitial(ctx context.Context) (geo.PositionSample, error) {
	fix, err := t.src.Current(ctx, Options{
		HighAccuracy: true,
		Timeout:      t.policy.InitialTimeout,
	})
	if err == nil {
		return sampleOf(fix), nil
	}

	log.Debug().Err(err).Msg("High-accuracy fix failed, falling back to low accuracy")

	fix, ferr := t.src.Current(ctx, Options{
		HighAccuracy: false,
		Timeout:      t.policy.FallbackTimeout,
		MaxAge:       t.policy.FallbackMaxAge,
	})
	if ferr == nil {
		return sampleOf(fix), nil
	}

	log.Warn().Err(ferr).Msg("Low-accuracy fallback failed, location unavailable")

	return geo.PositionSample{}, &LocationError{Reason: ferr.Error(), cause: ferr}
}

// StartWatch begins continuous high-accuracy updates. Each successful
// reading invokes onUpdate with a fresh sample; per-reading failures
// invoke onWarn and the watch continues. The returned subscription must
// be stopped on teardown or the underlying sensor stays subscribed.
//
// Callbacks run while the subscription's internal lock is held, which
// is what lets Stop guarantee quiescence on return. A callback must
// therefore not call Stop on its own subscription; stop from another
// goroutine instead.
func (t *Tracker) StartWatch(onUpdate func(geo.PositionSample), onWarn func(error)) (*Subscription, error) {
	sub := &Subscription{}

	stop, err := t.src.Watch(Options{
		HighAccuracy: true,
		Timeout:      t.policy.WatchTimeout,
	}, func(fix Fix, err error) {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.stopped {
			return
		}
		if err != nil {
			if onWarn != nil {
				onWarn(err)
			}
			return
		}
		onUpdate(sampleOf(fix))
	})
	if err != nil {
		return nil, err
	}

	sub.mu.Lock()
	sub.cancel = stop
	stopped := sub.stopped
	sub.mu.Unlock()

	// Stop raced the registration; release the sensor now.
	if stopped {
		stop()
	}

	return sub, nil
}

// Subscription is a live watch handle.
type Subscription struct {
	mu      sync.Mutex
	stopped bool
	cancel  func()
}

// Stop ends the watch. After Stop returns no further onUpdate or onWarn
// invocations occur. Stopping an already stopped subscription is a
// no-op. Stop blocks until any in-flight callback finishes, so it must
// not be called from inside a callback of the same subscription.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func sampleOf(fix Fix) geo.PositionSample {
	ts := fix.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return geo.PositionSample{Coord: fix.Coord, AccuracyM: fix.AccuracyM, Time: ts}
}
