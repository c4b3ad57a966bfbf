package optimizer

import (
	"time"

	"github.com/taro-lang/taro/pkg/ir"
)

// Config controls one optimization run.
type Config struct {
	Level Level `yaml:"level" json:"level"`
	// EnabledCategories restricts the run to the listed categories;
	// empty means all categories.
	EnabledCategories []Category `yaml:"enabled_categories" json:"enabled_categories,omitempty"`
	// DisabledPatterns lists pattern ids excluded from the run.
	DisabledPatterns []string `yaml:"disabled_patterns" json:"disabled_patterns,omitempty"`
	// SizeSpeedWeight in [0,1] slides pattern ordering between pure
	// speed (0) and pure size (1).
	SizeSpeedWeight float64 `yaml:"size_speed_weight" json:"size_speed_weight"`
	// TimeLimit bounds the wall-clock budget; zero means unlimited.
	// The budget is checked between passes, never mid-pass.
	TimeLimit time.Duration `yaml:"time_limit" json:"time_limit"`
	// MaxPasses bounds the pass count; zero falls back to the default.
	MaxPasses int `yaml:"max_passes" json:"max_passes"`
}

// DefaultMaxPasses bounds runs that do not set their own cap.
const DefaultMaxPasses = 10

// DefaultConfig returns the standard-level configuration.
func DefaultConfig() Config {
	return Config{
		Level:           LevelStandard,
		SizeSpeedWeight: 0.5,
		MaxPasses:       DefaultMaxPasses,
	}
}

// Application records one successful pattern application.
type Application struct {
	PatternID string `json:"pattern_id"`
	Pass      int    `json:"pass"`
	Metrics   Impact `json:"metrics"`
}

// Result is the outcome of an optimization run.
type Result struct {
	Sequence     *ir.Sequence  `json:"sequence"`
	Passes       int           `json:"passes"`
	Applications []Application `json:"applications,omitempty"`
	Metrics      Impact        `json:"metrics"`
	TimedOut     bool          `json:"timed_out"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Framework applies admissible patterns from a registry to instruction
// sequences. It is single-threaded; cancellation is cooperative and
// time-based only.
type Framework struct {
	registry *Registry
	config   Config
}

// NewFramework creates a framework over the given registry.
func NewFramework(registry *Registry, config Config) *Framework {
	if config.MaxPasses <= 0 {
		config.MaxPasses = DefaultMaxPasses
	}
	return &Framework{registry: registry, config: config}
}

// Run optimizes one sequence. Passes repeat until no pattern makes
// progress, the pass cap is reached, or the time budget elapses,
// whichever comes first. Level none performs zero passes and returns
// the input unchanged.
func (f *Framework) Run(seq *ir.Sequence) *Result {
	start := time.Now()
	result := &Result{Sequence: seq.Clone()}

	if levelOrder(f.config.Level) <= 0 {
		result.Elapsed = time.Since(start)
		return result
	}

	candidates := f.registry.ByLevel(f.config.Level)
	candidates = f.filter(candidates)
	sortForRun(candidates, f.config.SizeSpeedWeight)

	// satisfied tracks the patterns applied so far in this run, for
	// dependency and conflict resolution.
	satisfied := make(map[string]bool)

	for result.Passes < f.config.MaxPasses {
		if f.config.TimeLimit > 0 && time.Since(start) >= f.config.TimeLimit {
			result.TimedOut = true
			break
		}
		result.Passes++
		progress := false

		for _, p := range candidates {
			if !f.eligible(p, satisfied) {
				continue
			}
			if !p.Matches(result.Sequence) {
				continue
			}
			rewrite, err := p.Apply(result.Sequence)
			if err != nil || !rewrite.Changed {
				continue
			}
			result.Sequence.Instructions = rewrite.Instructions
			result.Metrics.Add(rewrite.Metrics)
			result.Applications = append(result.Applications, Application{
				PatternID: p.ID,
				Pass:      result.Passes,
				Metrics:   rewrite.Metrics,
			})
			satisfied[p.ID] = true
			progress = true
		}

		if !progress {
			break
		}
	}

	result.Elapsed = time.Since(start)
	return result
}

// RunAll optimizes a set of sequences independently, keyed by function
// name.
func (f *Framework) RunAll(seqs map[string]*ir.Sequence) map[string]*Result {
	out := make(map[string]*Result, len(seqs))
	for name, seq := range seqs {
		out[name] = f.Run(seq)
	}
	return out
}

// filter drops patterns from disabled ids and disabled categories.
func (f *Framework) filter(patterns []Pattern) []Pattern {
	disabled := make(map[string]bool, len(f.config.DisabledPatterns))
	for _, id := range f.config.DisabledPatterns {
		disabled[id] = true
	}
	enabledCat := make(map[Category]bool, len(f.config.EnabledCategories))
	for _, c := range f.config.EnabledCategories {
		enabledCat[c] = true
	}

	var out []Pattern
	for _, p := range patterns {
		if disabled[p.ID] {
			continue
		}
		if len(enabledCat) > 0 && !enabledCat[p.Category] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// eligible checks a pattern's dependency and conflict sets against the
// applications recorded so far in this run.
func (f *Framework) eligible(p Pattern, satisfied map[string]bool) bool {
	for _, dep := range p.DependsOn {
		if !satisfied[dep] {
			return false
		}
	}
	for _, conflict := range p.Conflicts {
		if satisfied[conflict] {
			return false
		}
	}
	return true
}
