// Package config provides unified configuration loading for the
// connectivity pipeline. It supports loading from YAML files with
// defaults matching the standard resting-state setup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains all pipeline configuration settings.
type Config struct {
	// Task is the BIDS task label used to select runs.
	Task string `yaml:"task"`

	// Parcellation names the atlas family. Only "schaefer" is bundled.
	Parcellation string `yaml:"parcellation"`

	// Parcels is the number of atlas regions.
	Parcels int `yaml:"parcels"`

	// GSR enables global signal regression.
	GSR bool `yaml:"gsr"`

	// Signal contains temporal cleaning settings.
	Signal SignalConfig `yaml:"signal"`

	// Fmriprep contains settings for the containerized preprocessing run.
	Fmriprep FmriprepConfig `yaml:"fmriprep"`

	// Atlas contains atlas acquisition settings.
	Atlas AtlasConfig `yaml:"atlas"`

	// Logging contains log verbosity settings.
	Logging LoggingConfig `yaml:"logging"`
}

// SignalConfig configures the band-pass/detrend cleaning step.
type SignalConfig struct {
	// TRSeconds is the repetition time of the acquisition.
	TRSeconds float64 `yaml:"tr_seconds"`

	// HighPassHz is the lower edge of the pass band.
	HighPassHz float64 `yaml:"high_pass_hz"`

	// LowPassHz is the upper edge of the pass band.
	LowPassHz float64 `yaml:"low_pass_hz"`

	// DropVolumes is the number of warm-up volumes discarded after cleaning.
	DropVolumes int `yaml:"drop_volumes"`
}

// FmriprepConfig configures the fmriprep-docker invocation.
type FmriprepConfig struct {
	// FSLicense is the path to the FreeSurfer license file.
	FSLicense string `yaml:"fs_license"`

	// MemMB is the container memory limit in megabytes.
	MemMB int `yaml:"mem_mb"`

	// SkipBIDSValidation skips the BIDS validator inside the container.
	SkipBIDSValidation bool `yaml:"skip_bids_validation"`

	// FSReconAll runs FreeSurfer's recon-all surface reconstruction.
	FSReconAll bool `yaml:"fs_reconall"`
}

// AtlasConfig configures where parcellation atlases come from.
type AtlasConfig struct {
	// LocalPath points at a labeled atlas volume on disk. When set, no
	// download happens.
	LocalPath string `yaml:"local_path"`

	// CacheDir is where fetched atlases are stored. Defaults to
	// ~/.cache/neuroconn.
	CacheDir string `yaml:"cache_dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default) or "debug".
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present:
// resting-state task, Schaefer 1000-parcel atlas, 0.01-0.08 Hz band at
// TR=2s with the first 10 volumes discarded.
func Default() *Config {
	return &Config{
		Task:         "rest",
		Parcellation: "schaefer",
		Parcels:      1000,
		Signal: SignalConfig{
			TRSeconds:   2,
			HighPassHz:  0.01,
			LowPassHz:   0.08,
			DropVolumes: 10,
		},
		Fmriprep: FmriprepConfig{
			MemMB:              5000,
			SkipBIDSValidation: true,
			FSReconAll:         true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file and merges it over the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the numeric settings make sense together.
func (c *Config) Validate() error {
	if c.Parcels <= 0 {
		return fmt.Errorf("parcels must be positive, got %d", c.Parcels)
	}
	if c.Signal.TRSeconds <= 0 {
		return fmt.Errorf("tr_seconds must be positive, got %g", c.Signal.TRSeconds)
	}
	if c.Signal.HighPassHz >= c.Signal.LowPassHz {
		return fmt.Errorf("high_pass_hz (%g) must be below low_pass_hz (%g)",
			c.Signal.HighPassHz, c.Signal.LowPassHz)
	}
	if c.Signal.DropVolumes < 0 {
		return fmt.Errorf("drop_volumes must not be negative, got %d", c.Signal.DropVolumes)
	}
	return nil
}
