package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Task != "rest" {
		t.Errorf("expected task 'rest', got %q", cfg.Task)
	}
	if cfg.Parcellation != "schaefer" {
		t.Errorf("expected parcellation 'schaefer', got %q", cfg.Parcellation)
	}
	if cfg.Parcels != 1000 {
		t.Errorf("expected 1000 parcels, got %d", cfg.Parcels)
	}
	if cfg.GSR {
		t.Error("expected GSR to be off by default")
	}
	if cfg.Signal.TRSeconds != 2 {
		t.Errorf("expected TR 2s, got %g", cfg.Signal.TRSeconds)
	}
	if cfg.Signal.HighPassHz != 0.01 || cfg.Signal.LowPassHz != 0.08 {
		t.Errorf("expected 0.01-0.08 Hz band, got %g-%g", cfg.Signal.HighPassHz, cfg.Signal.LowPassHz)
	}
	if cfg.Signal.DropVolumes != 10 {
		t.Errorf("expected 10 dropped volumes, got %d", cfg.Signal.DropVolumes)
	}
	if cfg.Fmriprep.MemMB != 5000 {
		t.Errorf("expected 5000 MB, got %d", cfg.Fmriprep.MemMB)
	}
	if !cfg.Fmriprep.SkipBIDSValidation {
		t.Error("expected BIDS validation to be skipped by default")
	}
	if !cfg.Fmriprep.FSReconAll {
		t.Error("expected recon-all to be on by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
task: nback
parcels: 400
gsr: true
signal:
  tr_seconds: 1.5
  drop_volumes: 4
fmriprep:
  fs_license: /opt/freesurfer/license.txt
  mem_mb: 12000
atlas:
  local_path: /data/atlas.nii.gz
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Task != "nback" {
		t.Errorf("expected task 'nback', got %q", cfg.Task)
	}
	if cfg.Parcels != 400 {
		t.Errorf("expected 400 parcels, got %d", cfg.Parcels)
	}
	if !cfg.GSR {
		t.Error("expected GSR on")
	}
	if cfg.Signal.TRSeconds != 1.5 {
		t.Errorf("expected TR 1.5s, got %g", cfg.Signal.TRSeconds)
	}
	if cfg.Signal.DropVolumes != 4 {
		t.Errorf("expected 4 dropped volumes, got %d", cfg.Signal.DropVolumes)
	}
	// Unset fields keep their defaults.
	if cfg.Signal.HighPassHz != 0.01 {
		t.Errorf("expected default high-pass, got %g", cfg.Signal.HighPassHz)
	}
	if cfg.Fmriprep.FSLicense != "/opt/freesurfer/license.txt" {
		t.Errorf("unexpected license path %q", cfg.Fmriprep.FSLicense)
	}
	if cfg.Fmriprep.MemMB != 12000 {
		t.Errorf("expected 12000 MB, got %d", cfg.Fmriprep.MemMB)
	}
	if cfg.Atlas.LocalPath != "/data/atlas.nii.gz" {
		t.Errorf("unexpected atlas path %q", cfg.Atlas.LocalPath)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Task != "rest" || cfg.Parcels != 1000 {
		t.Error("expected defaults for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero parcels", func(c *Config) { c.Parcels = 0 }},
		{"zero TR", func(c *Config) { c.Signal.TRSeconds = 0 }},
		{"inverted band", func(c *Config) { c.Signal.HighPassHz = 0.1 }},
		{"negative drop", func(c *Config) { c.Signal.DropVolumes = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
