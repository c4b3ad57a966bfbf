package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OptLevel names an optimization level.
type OptLevel string

const (
	OptNone       OptLevel = "none"
	OptBasic      OptLevel = "basic"
	OptStandard   OptLevel = "standard"
	OptAggressive OptLevel = "aggressive"
)

// Config holds all configuration for taroc
type Config struct {
	// OptimizationLevel selects the pattern set applied by optimize
	OptimizationLevel OptLevel `yaml:"optimization_level" env:"TAROC_OPT_LEVEL"`

	// SizeSpeedWeight in [0,1] trades speed (0) against size (1)
	SizeSpeedWeight float64 `yaml:"size_speed_weight" env:"TAROC_SIZE_SPEED_WEIGHT"`

	// MaxPasses bounds optimizer passes per function
	MaxPasses int `yaml:"max_passes" env:"TAROC_MAX_PASSES"`

	// TargetFile points to a YAML target descriptor; empty uses the
	// built-in m6502 descriptor
	TargetFile string `yaml:"target_file" env:"TAROC_TARGET_FILE"`

	// DiagnosticsCap bounds the diagnostics report
	DiagnosticsCap int `yaml:"diagnostics_cap" env:"TAROC_DIAGNOSTICS_CAP"`

	// CachePath is the analysis summary cache file; empty disables
	// the cache
	CachePath string `yaml:"cache_path" env:"TAROC_CACHE_PATH"`

	// CacheSize is the maximum number of cached function summaries
	CacheSize int `yaml:"cache_size" env:"TAROC_CACHE_SIZE"`

	// Inlining thresholds
	MaxInlineStatements int `yaml:"max_inline_statements" env:"TAROC_MAX_INLINE_STATEMENTS"`
	MaxInlineCallSites  int `yaml:"max_inline_call_sites" env:"TAROC_MAX_INLINE_CALL_SITES"`

	// Usage-report toggles
	ReportUnderscore  bool `yaml:"report_underscore" env:"TAROC_REPORT_UNDERSCORE"`
	ReportExported    bool `yaml:"report_exported" env:"TAROC_REPORT_EXPORTED"`
	ReportLoopCounter bool `yaml:"report_loop_counter" env:"TAROC_REPORT_LOOP_COUNTER"`

	// Logging
	Verbose    bool `yaml:"verbose" env:"TAROC_VERBOSE"`
	JSONOutput bool `yaml:"json_output" env:"TAROC_JSON_OUTPUT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OptimizationLevel:   OptStandard,
		SizeSpeedWeight:     0.5,
		MaxPasses:           10,
		TargetFile:          "",
		DiagnosticsCap:      100,
		CachePath:           "",
		CacheSize:           256,
		MaxInlineStatements: 10,
		MaxInlineCallSites:  4,
		ReportUnderscore:    false,
		ReportExported:      false,
		ReportLoopCounter:   false,
		Verbose:             false,
		JSONOutput:          false,
	}
}

// globalConfigFilePath returns the global config file path (~/.taroc/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taroc/config.yaml"
	}
	return filepath.Join(home, ".taroc", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.taroc/config.yaml)
func projectConfigFilePath() string {
	return ".taroc/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.taroc/config.yaml)
// 3. Global config (~/.taroc/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TAROC_OPT_LEVEL"); v != "" {
		cfg.OptimizationLevel = OptLevel(v)
	}
	if v := os.Getenv("TAROC_SIZE_SPEED_WEIGHT"); v != "" {
		if f, ok := parseFloat(v); ok {
			cfg.SizeSpeedWeight = f
		}
	}
	if v := os.Getenv("TAROC_MAX_PASSES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxPasses = i
		}
	}
	if v := os.Getenv("TAROC_TARGET_FILE"); v != "" {
		cfg.TargetFile = v
	}
	if v := os.Getenv("TAROC_DIAGNOSTICS_CAP"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.DiagnosticsCap = i
		}
	}
	if v := os.Getenv("TAROC_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("TAROC_CACHE_SIZE"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("TAROC_MAX_INLINE_STATEMENTS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxInlineStatements = i
		}
	}
	if v := os.Getenv("TAROC_MAX_INLINE_CALL_SITES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxInlineCallSites = i
		}
	}
	if v := os.Getenv("TAROC_REPORT_UNDERSCORE"); v != "" {
		cfg.ReportUnderscore = isTruthy(v)
	}
	if v := os.Getenv("TAROC_REPORT_EXPORTED"); v != "" {
		cfg.ReportExported = isTruthy(v)
	}
	if v := os.Getenv("TAROC_REPORT_LOOP_COUNTER"); v != "" {
		cfg.ReportLoopCounter = isTruthy(v)
	}
	if v := os.Getenv("TAROC_VERBOSE"); v != "" {
		cfg.Verbose = isTruthy(v)
	}
	if v := os.Getenv("TAROC_JSON_OUTPUT"); v != "" {
		cfg.JSONOutput = isTruthy(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.OptimizationLevel {
	case OptNone, OptBasic, OptStandard, OptAggressive:
	default:
		return fmt.Errorf("invalid optimization_level: %s (must be 'none', 'basic', 'standard' or 'aggressive')", c.OptimizationLevel)
	}

	if c.SizeSpeedWeight < 0 || c.SizeSpeedWeight > 1 {
		return fmt.Errorf("size_speed_weight must be between 0 and 1")
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive")
	}
	if c.DiagnosticsCap <= 0 {
		return fmt.Errorf("diagnostics_cap must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	if c.MaxInlineStatements <= 0 {
		return fmt.Errorf("max_inline_statements must be positive")
	}
	if c.MaxInlineCallSites <= 0 {
		return fmt.Errorf("max_inline_call_sites must be positive")
	}

	return nil
}

// isTruthy interprets common boolean spellings
func isTruthy(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}

// parseFloat attempts to parse a string as float64
func parseFloat(s string) (float64, bool) {
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil {
		return 0, false
	}
	return f, true
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
