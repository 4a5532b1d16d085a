package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProcessingConfig holds the tunable parameters for an analysis run. All
// fields are optional in the JSON file; the Get* accessors supply defaults
// for anything unset, so partial configs are safe.
type ProcessingConfig struct {
	// FK grid-search params
	SlownessMaxSpk  *float64 `json:"slowness_max_spk,omitempty"`
	SlownessStepSpk *float64 `json:"slowness_step_spk,omitempty"`
	FreqMinHz       *float64 `json:"freq_min_hz,omitempty"`
	FreqMaxHz       *float64 `json:"freq_max_hz,omitempty"`

	// Sliding-window DOA params
	DOAWindowSecs      *float64 `json:"doa_window_secs,omitempty"`
	DOAOverlapFraction *float64 `json:"doa_overlap_fraction,omitempty"`
	DOAMethod          *string  `json:"doa_method,omitempty"` // "grid" or "lstsq"

	// Local-similarity params
	SimilarityWindowSecs *float64 `json:"similarity_window_secs,omitempty"`
	NeighborCount        *int     `json:"neighbor_count,omitempty"`
	MinVelocityKmps      *float64 `json:"min_velocity_kmps,omitempty"`

	// Shared params
	Workers   *int    `json:"workers,omitempty"`
	StackMode *string `json:"stack_mode,omitempty"` // "mean" or "sum"
}

// DOA method values accepted by Validate.
const (
	DOAMethodGrid  = "grid"
	DOAMethodLstSq = "lstsq"
)

// EmptyProcessingConfig returns a ProcessingConfig with all fields unset.
func EmptyProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{}
}

// LoadProcessingConfig loads a ProcessingConfig from a JSON file. The path
// must carry a .json extension and stay under the size cap.
func LoadProcessingConfig(path string) (*ProcessingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyProcessingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *ProcessingConfig) Validate() error {
	if c.SlownessMaxSpk != nil && *c.SlownessMaxSpk <= 0 {
		return fmt.Errorf("slowness_max_spk must be positive, got %g", *c.SlownessMaxSpk)
	}
	if c.SlownessStepSpk != nil && *c.SlownessStepSpk <= 0 {
		return fmt.Errorf("slowness_step_spk must be positive, got %g", *c.SlownessStepSpk)
	}
	if c.FreqMinHz != nil && *c.FreqMinHz < 0 {
		return fmt.Errorf("freq_min_hz must be non-negative, got %g", *c.FreqMinHz)
	}
	if c.FreqMinHz != nil && c.FreqMaxHz != nil && *c.FreqMaxHz <= *c.FreqMinHz {
		return fmt.Errorf("freq_max_hz (%g) must exceed freq_min_hz (%g)", *c.FreqMaxHz, *c.FreqMinHz)
	}
	if c.DOAWindowSecs != nil && *c.DOAWindowSecs <= 0 {
		return fmt.Errorf("doa_window_secs must be positive, got %g", *c.DOAWindowSecs)
	}
	if c.DOAOverlapFraction != nil && (*c.DOAOverlapFraction < 0 || *c.DOAOverlapFraction >= 1) {
		return fmt.Errorf("doa_overlap_fraction must be in [0,1), got %g", *c.DOAOverlapFraction)
	}
	if c.DOAMethod != nil && *c.DOAMethod != DOAMethodGrid && *c.DOAMethod != DOAMethodLstSq {
		return fmt.Errorf("doa_method must be %q or %q, got %q", DOAMethodGrid, DOAMethodLstSq, *c.DOAMethod)
	}
	if c.SimilarityWindowSecs != nil && *c.SimilarityWindowSecs <= 0 {
		return fmt.Errorf("similarity_window_secs must be positive, got %g", *c.SimilarityWindowSecs)
	}
	if c.NeighborCount != nil && *c.NeighborCount < 1 {
		return fmt.Errorf("neighbor_count must be >= 1, got %d", *c.NeighborCount)
	}
	if c.MinVelocityKmps != nil && *c.MinVelocityKmps <= 0 {
		return fmt.Errorf("min_velocity_kmps must be positive, got %g", *c.MinVelocityKmps)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}
	if c.StackMode != nil && *c.StackMode != "mean" && *c.StackMode != "sum" {
		return fmt.Errorf("stack_mode must be \"mean\" or \"sum\", got %q", *c.StackMode)
	}
	return nil
}

// GetSlownessMaxSpk returns the slowness grid bound or the default.
func (c *ProcessingConfig) GetSlownessMaxSpk() float64 {
	if c.SlownessMaxSpk == nil {
		return 3.0
	}
	return *c.SlownessMaxSpk
}

// GetSlownessStepSpk returns the slowness grid step or the default.
func (c *ProcessingConfig) GetSlownessStepSpk() float64 {
	if c.SlownessStepSpk == nil {
		return 0.1
	}
	return *c.SlownessStepSpk
}

// GetFreqMinHz returns the lower band edge or the default.
func (c *ProcessingConfig) GetFreqMinHz() float64 {
	if c.FreqMinHz == nil {
		return 1.0
	}
	return *c.FreqMinHz
}

// GetFreqMaxHz returns the upper band edge or the default.
func (c *ProcessingConfig) GetFreqMaxHz() float64 {
	if c.FreqMaxHz == nil {
		return 10.0
	}
	return *c.FreqMaxHz
}

// GetDOAWindowSecs returns the DOA window length or the default.
func (c *ProcessingConfig) GetDOAWindowSecs() float64 {
	if c.DOAWindowSecs == nil {
		return 4.0
	}
	return *c.DOAWindowSecs
}

// GetDOAOverlapFraction returns the DOA window overlap or the default.
func (c *ProcessingConfig) GetDOAOverlapFraction() float64 {
	if c.DOAOverlapFraction == nil {
		return 0.5
	}
	return *c.DOAOverlapFraction
}

// GetDOAMethod returns the DOA estimation method or the default.
func (c *ProcessingConfig) GetDOAMethod() string {
	if c.DOAMethod == nil {
		return DOAMethodGrid
	}
	return *c.DOAMethod
}

// GetSimilarityWindowSecs returns the similarity window length or the default.
func (c *ProcessingConfig) GetSimilarityWindowSecs() float64 {
	if c.SimilarityWindowSecs == nil {
		return 1.0
	}
	return *c.SimilarityWindowSecs
}

// GetNeighborCount returns the similarity neighbour count or the default.
func (c *ProcessingConfig) GetNeighborCount() int {
	if c.NeighborCount == nil {
		return 2
	}
	return *c.NeighborCount
}

// GetMinVelocityKmps returns the slowest plausible wave speed or the default.
func (c *ProcessingConfig) GetMinVelocityKmps() float64 {
	if c.MinVelocityKmps == nil {
		return 0.5
	}
	return *c.MinVelocityKmps
}

// GetWorkers returns the worker count or the default (serial).
func (c *ProcessingConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetStackMode returns the beam stack mode or the default.
func (c *ProcessingConfig) GetStackMode() string {
	if c.StackMode == nil {
		return "mean"
	}
	return *c.StackMode
}
