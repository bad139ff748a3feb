// Package config holds tuning parameters of the tracking engine loaded from JSON.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/mot"
	"github.com/pkg/errors"
)

// TuningConfig is the root configuration. Every field is optional: Get* methods
// return defaults for fields omitted from JSON, so partial configs are safe.
type TuningConfig struct {
	// Tracking
	MaxLostFrames   *int     `json:"max_lost_frames,omitempty"`
	MatchConfidence *float64 `json:"match_confidence,omitempty"`
	DefaultStrategy *string  `json:"default_strategy,omitempty"`
	SearchMargin    *int     `json:"search_margin,omitempty"`
	Workers         *int     `json:"workers,omitempty"` // 0 means GOMAXPROCS

	// Video
	FPS *float64 `json:"fps,omitempty"`

	// Analytics
	DirectionChangeDegrees *float64 `json:"direction_change_degrees,omitempty"`

	LogLevel *string `json:"log_level,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns TuningConfig with all fields set to nil
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads TuningConfig from JSON file.
// The file must have .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid
func (c *TuningConfig) Validate() error {
	if c.MaxLostFrames != nil && *c.MaxLostFrames < 0 {
		return errors.Errorf("max_lost_frames must be non-negative, got %d", *c.MaxLostFrames)
	}
	if c.MatchConfidence != nil {
		if *c.MatchConfidence < -1 || *c.MatchConfidence >= 1 {
			return errors.Errorf("match_confidence must be in [-1, 1), got %f", *c.MatchConfidence)
		}
	}
	if c.SearchMargin != nil && *c.SearchMargin < 0 {
		return errors.Errorf("search_margin must be non-negative, got %d", *c.SearchMargin)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return errors.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.FPS != nil && *c.FPS <= 0 {
		return errors.Errorf("fps must be positive, got %f", *c.FPS)
	}
	if c.DirectionChangeDegrees != nil {
		if *c.DirectionChangeDegrees < 0 || *c.DirectionChangeDegrees > 180 {
			return errors.Errorf("direction_change_degrees must be between 0 and 180, got %f", *c.DirectionChangeDegrees)
		}
	}
	if c.LogLevel != nil && *c.LogLevel != "" {
		if _, err := logger.ParseLevel(*c.LogLevel); err != nil {
			return errors.Wrap(err, "invalid log_level")
		}
	}
	return nil
}

// GetMaxLostFrames returns the max_lost_frames value or the default
func (c *TuningConfig) GetMaxLostFrames() int {
	if c.MaxLostFrames == nil {
		return 30 // default
	}
	return *c.MaxLostFrames
}

// GetMatchConfidence returns the match_confidence value or the default
func (c *TuningConfig) GetMatchConfidence() float64 {
	if c.MatchConfidence == nil {
		return 0.5 // default
	}
	return *c.MatchConfidence
}

// GetDefaultStrategy returns the default_strategy value or the default
func (c *TuningConfig) GetDefaultStrategy() mot.Strategy {
	if c.DefaultStrategy == nil || strings.TrimSpace(*c.DefaultStrategy) == "" {
		return mot.StrategyCSRT // default
	}
	return mot.ParseStrategy(*c.DefaultStrategy)
}

// GetSearchMargin returns the search_margin value or the default
func (c *TuningConfig) GetSearchMargin() int {
	if c.SearchMargin == nil {
		return 0 // default
	}
	return *c.SearchMargin
}

// GetWorkers returns the workers value or the default
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0 // default
	}
	return *c.Workers
}

// GetFPS returns the fps value or the default
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30.0 // default
	}
	return *c.FPS
}

// GetDirectionChangeDegrees returns the direction_change_degrees value or the default
func (c *TuningConfig) GetDirectionChangeDegrees() float64 {
	if c.DirectionChangeDegrees == nil {
		return 45.0 // default
	}
	return *c.DirectionChangeDegrees
}

// GetLogLevel returns parsed log_level or the default (INFO)
func (c *TuningConfig) GetLogLevel() logger.LogLevel {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return logger.INFO
	}
	level, err := logger.ParseLevel(*c.LogLevel)
	if err != nil {
		return logger.INFO // default on parse error
	}
	return level
}

// TrackerOptions returns options for single-target trackers
func (c *TuningConfig) TrackerOptions() mot.TrackerOptions {
	return mot.TrackerOptions{
		MatchConfidence: c.GetMatchConfidence(),
		SearchMargin:    c.GetSearchMargin(),
	}
}

// NewTrackManager creates track manager tuned by this config
func (c *TuningConfig) NewTrackManager() *mot.TrackManager {
	return mot.NewTrackManager(c.GetMaxLostFrames(), c.GetWorkers(), c.GetFPS(), c.TrackerOptions())
}
