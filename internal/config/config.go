// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
	"github.com/hazmap/hazmap/internal/locate"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	TileURL     string `yaml:"tile_url,omitempty" json:"tile_url"`
	Zoom        int    `yaml:"zoom,omitempty" json:"zoom"`

	// DefaultLocation is the reference point used when every location
	// acquisition tier has failed.
	DefaultLocation geo.Coordinate `yaml:"default_location" json:"default_location"`

	Location LocationConfig  `yaml:"location,omitempty" json:"location"`
	Hazards  []hazard.Marker `yaml:"hazards" json:"-" validate:"dive"`
}

// LocationConfig overrides the acquisition tier parameters, in seconds.
// Zero values keep the defaults.
type LocationConfig struct {
	InitialTimeoutSec  int `yaml:"initial_timeout_sec,omitempty" json:"initial_timeout_sec" validate:"gte=0"`
	FallbackTimeoutSec int `yaml:"fallback_timeout_sec,omitempty" json:"fallback_timeout_sec" validate:"gte=0"`
	FallbackMaxAgeSec  int `yaml:"fallback_max_age_sec,omitempty" json:"fallback_max_age_sec" validate:"gte=0"`
	WatchTimeoutSec    int `yaml:"watch_timeout_sec,omitempty" json:"watch_timeout_sec" validate:"gte=0"`
}

// Policy converts the overrides into tracker tier parameters.
func (lc LocationConfig) Policy() locate.Policy {
	policy := locate.DefaultPolicy()
	if lc.InitialTimeoutSec > 0 {
		policy.InitialTimeout = time.Duration(lc.InitialTimeoutSec) * time.Second
	}
	if lc.FallbackTimeoutSec > 0 {
		policy.FallbackTimeout = time.Duration(lc.FallbackTimeoutSec) * time.Second
	}
	if lc.FallbackMaxAgeSec > 0 {
		policy.FallbackMaxAge = time.Duration(lc.FallbackMaxAgeSec) * time.Second
	}
	if lc.WatchTimeoutSec > 0 {
		policy.WatchTimeout = time.Duration(lc.WatchTimeoutSec) * time.Second
	}

	return policy
}

// Load reads, defaults and validates the YAML configuration file from
// the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !cfg.DefaultLocation.Valid() {
		return nil, fmt.Errorf("default_location out of range: %+v", cfg.DefaultLocation)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TileURL == "" {
		c.TileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
	if c.Attribution == "" {
		c.Attribution = "&copy; OpenStreetMap contributors"
	}
	if c.Zoom <= 0 {
		c.Zoom = 14
	}
}

// HazardSet builds the immutable marker set from the configured list.
func (c *Config) HazardSet() (*hazard.Set, error) {
	return hazard.NewSet(c.Hazards)
}
