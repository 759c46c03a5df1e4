// Package locate acquires and continuously tracks the user position
// from a device geolocation capability, degrading through accuracy
// tiers when a fix is unavailable.
package locate

import (
	"context"
	"fmt"
	"time"

	"github.com/hazmap/hazmap/internal/geo"
)

// Fix is a raw reading delivered by a Source.
type Fix struct {
	Coord     geo.Coordinate
	AccuracyM *float64
	Time      time.Time
}

// Options controls a single fix request or a watch subscription.
// MaxAge of zero forces a fresh reading.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// Source is the device geolocation capability. Watch delivers readings
// to fn until the returned stop function is called; per-reading errors
// are delivered through fn alongside a zero Fix.
type Source interface {
	Current(ctx context.Context, opts Options) (Fix, error)
	Watch(opts Options, fn func(Fix, error)) (stop func(), err error)
}

// ErrorKind classifies failures reported by a Source.
type ErrorKind int

const (
	PermissionDenied ErrorKind = iota
	Timeout
	PositionUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission denied"
	case Timeout:
		return "timeout"
	case PositionUnavailable:
		return "position unavailable"
	default:
		return "unknown"
	}
}

// SourceError is a failure reported by the geolocation capability.
type SourceError struct {
	Kind    ErrorKind
	Message string
}

func (e *SourceError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// LocationError is the terminal failure returned once every acquisition
// tier has been exhausted. Callers should fall back to a configured
// default reference point and surface Reason to the user.
type LocationError struct {
	Reason string
	cause  error
}

func (e *LocationError) Error() string {
	return "location unavailable: " + e.Reason
}

func (e *LocationError) Unwrap() error { return e.cause }
