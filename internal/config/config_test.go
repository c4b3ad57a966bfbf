package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OptimizationLevel != OptStandard {
		t.Errorf("expected optimization level %q, got %q", OptStandard, cfg.OptimizationLevel)
	}
	if cfg.SizeSpeedWeight != 0.5 {
		t.Errorf("expected size/speed weight 0.5, got %v", cfg.SizeSpeedWeight)
	}
	if cfg.MaxPasses != 10 {
		t.Errorf("expected max passes 10, got %d", cfg.MaxPasses)
	}
	if cfg.DiagnosticsCap != 100 {
		t.Errorf("expected diagnostics cap 100, got %d", cfg.DiagnosticsCap)
	}
	if cfg.CacheSize != 256 {
		t.Errorf("expected cache size 256, got %d", cfg.CacheSize)
	}
	if cfg.MaxInlineStatements != 10 || cfg.MaxInlineCallSites != 4 {
		t.Errorf("unexpected inline thresholds: %d statements, %d call sites",
			cfg.MaxInlineStatements, cfg.MaxInlineCallSites)
	}
	if cfg.CachePath != "" {
		t.Errorf("expected cache disabled by default, got %q", cfg.CachePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"level none", func(c *Config) { c.OptimizationLevel = OptNone }, false},
		{"level aggressive", func(c *Config) { c.OptimizationLevel = OptAggressive }, false},
		{"bad level", func(c *Config) { c.OptimizationLevel = "turbo" }, true},
		{"weight below range", func(c *Config) { c.SizeSpeedWeight = -0.1 }, true},
		{"weight above range", func(c *Config) { c.SizeSpeedWeight = 1.1 }, true},
		{"weight at edges", func(c *Config) { c.SizeSpeedWeight = 1 }, false},
		{"zero passes", func(c *Config) { c.MaxPasses = 0 }, true},
		{"zero diagnostics cap", func(c *Config) { c.DiagnosticsCap = 0 }, true},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }, true},
		{"zero inline statements", func(c *Config) { c.MaxInlineStatements = 0 }, true},
		{"zero inline call sites", func(c *Config) { c.MaxInlineCallSites = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAROC_OPT_LEVEL", "aggressive")
	t.Setenv("TAROC_SIZE_SPEED_WEIGHT", "0.8")
	t.Setenv("TAROC_MAX_PASSES", "5")
	t.Setenv("TAROC_CACHE_PATH", "/tmp/taroc.cache")
	t.Setenv("TAROC_REPORT_UNDERSCORE", "yes")
	t.Setenv("TAROC_VERBOSE", "1")
	t.Setenv("TAROC_JSON_OUTPUT", "false")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.OptimizationLevel != OptAggressive {
		t.Errorf("expected aggressive, got %q", cfg.OptimizationLevel)
	}
	if cfg.SizeSpeedWeight != 0.8 {
		t.Errorf("expected weight 0.8, got %v", cfg.SizeSpeedWeight)
	}
	if cfg.MaxPasses != 5 {
		t.Errorf("expected 5 passes, got %d", cfg.MaxPasses)
	}
	if cfg.CachePath != "/tmp/taroc.cache" {
		t.Errorf("unexpected cache path %q", cfg.CachePath)
	}
	if !cfg.ReportUnderscore {
		t.Error("expected report_underscore enabled")
	}
	if !cfg.Verbose {
		t.Error("expected verbose enabled")
	}
	if cfg.JSONOutput {
		t.Error("expected json output disabled")
	}
}

func TestEnvOverridesIgnoreBadValues(t *testing.T) {
	t.Setenv("TAROC_MAX_PASSES", "not-a-number")
	t.Setenv("TAROC_SIZE_SPEED_WEIGHT", "wide")
	t.Setenv("TAROC_CACHE_SIZE", "-3")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.MaxPasses != 10 {
		t.Errorf("bad env value should keep default, got %d", cfg.MaxPasses)
	}
	if cfg.SizeSpeedWeight != 0.5 {
		t.Errorf("bad env value should keep default, got %v", cfg.SizeSpeedWeight)
	}
	if cfg.CacheSize != 256 {
		t.Errorf("non-positive env value should keep default, got %d", cfg.CacheSize)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.OptimizationLevel = OptBasic
	cfg.SizeSpeedWeight = 0.25
	cfg.CachePath = "summaries.msgpack"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if loaded.OptimizationLevel != OptBasic {
		t.Errorf("expected basic, got %q", loaded.OptimizationLevel)
	}
	if loaded.SizeSpeedWeight != 0.25 {
		t.Errorf("expected weight 0.25, got %v", loaded.SizeSpeedWeight)
	}
	if loaded.CachePath != "summaries.msgpack" {
		t.Errorf("unexpected cache path %q", loaded.CachePath)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("optimization_level: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("optimization_level: turbo"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(invalid); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadFromFileAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.OptimizationLevel = OptBasic
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TAROC_OPT_LEVEL", "aggressive")
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if loaded.OptimizationLevel != OptAggressive {
		t.Errorf("env should override the file, got %q", loaded.OptimizationLevel)
	}
}
