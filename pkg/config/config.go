// Package config loads the optional clip.yaml configuration for
// applications embedding the playback core.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// RequiredEngineAPI is the engine interface version this core was built
// against. Configured engine plugins must match its major version.
const RequiredEngineAPI = "v1.0.0"

// Config represents the optional clip.yaml configuration.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Engine   EngineConfig   `yaml:"engine"`
	Spell    SpellConfig    `yaml:"spell"`
}

// PlaybackConfig contains scheduler settings.
type PlaybackConfig struct {
	// Managers is the number of scheduler instances (decode worker
	// goroutines) to run.
	Managers int `yaml:"managers,omitempty"`
	// TickFloorMs bounds the worker wake-up rate.
	TickFloorMs int `yaml:"tick_floor_ms,omitempty"`
	// LoadThreshold is the aggregate decode cost above which owners
	// should defer starting new sessions.
	LoadThreshold int64 `yaml:"load_threshold,omitempty"`
	// NotifyBuffer is the channel capacity for ChannelCallback owners.
	NotifyBuffer int `yaml:"notify_buffer,omitempty"`
}

// EngineConfig contains decode engine settings.
type EngineConfig struct {
	// APIVersion declares the engine API version an external engine
	// plugin was built for, e.g. "v1.2.0".
	APIVersion string `yaml:"api_version,omitempty"`
}

// SpellConfig selects the spell-check capability backend.
type SpellConfig struct {
	Locale string `yaml:"locale,omitempty"`
}

// Resolved contains resolved configuration values with defaults
// applied.
type Resolved struct {
	Managers      int
	TickFloorMs   int
	LoadThreshold int64
	NotifyBuffer  int
	EngineAPI     string
	SpellLocale   string
}

// LoadOptional reads clip.yaml from dir if present. A missing file is
// not an error; it yields an empty Config.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "clip.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read clip.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse clip.yaml: %w", err)
	}

	return &cfg, nil
}

// Resolve loads clip.yaml (if present) and resolves defaults,
// validating the engine API version against RequiredEngineAPI.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	return ResolveConfig(cfg)
}

// ResolveConfig resolves defaults on an already-loaded Config.
func ResolveConfig(cfg *Config) (*Resolved, error) {
	r := &Resolved{
		Managers:      cfg.Playback.Managers,
		TickFloorMs:   cfg.Playback.TickFloorMs,
		LoadThreshold: cfg.Playback.LoadThreshold,
		NotifyBuffer:  cfg.Playback.NotifyBuffer,
		EngineAPI:     cfg.Engine.APIVersion,
		SpellLocale:   cfg.Spell.Locale,
	}
	if r.Managers <= 0 {
		r.Managers = 1
	}
	if r.TickFloorMs <= 0 {
		r.TickFloorMs = 1
	}
	if r.LoadThreshold <= 0 {
		r.LoadThreshold = 1 << 24 // ~16MB of queued source bytes
	}
	if r.NotifyBuffer <= 0 {
		r.NotifyBuffer = 16
	}
	if r.EngineAPI == "" {
		r.EngineAPI = RequiredEngineAPI
	}
	if err := validateEngineAPI(r.EngineAPI); err != nil {
		return nil, err
	}
	return r, nil
}

// validateEngineAPI checks that a declared engine API version is a
// valid semantic version sharing RequiredEngineAPI's major version.
func validateEngineAPI(version string) error {
	if !semver.IsValid(version) {
		return fmt.Errorf("engine api_version %q is not a valid semantic version", version)
	}
	if semver.Major(version) != semver.Major(RequiredEngineAPI) {
		return fmt.Errorf("engine api_version %s is incompatible with required %s",
			version, RequiredEngineAPI)
	}
	return nil
}
