// Package optimizer holds the rewrite-pattern registry and the pass
// framework that applies registered patterns to IR instruction
// sequences until a fixpoint, a pass cap, or a time budget stops it.
package optimizer

import (
	"fmt"

	"github.com/taro-lang/taro/pkg/ir"
)

// Level is the optimization level a pattern requires.
type Level string

const (
	LevelNone       Level = "none"
	LevelBasic      Level = "basic"
	LevelStandard   Level = "standard"
	LevelAggressive Level = "aggressive"
)

// levelOrder orders the known levels; unknown levels order below none,
// so lookups against them match nothing instead of failing.
func levelOrder(l Level) int {
	switch l {
	case LevelNone:
		return 0
	case LevelBasic:
		return 1
	case LevelStandard:
		return 2
	case LevelAggressive:
		return 3
	}
	return -1
}

// Admits reports whether a pattern requiring min is admissible at the
// configured level. Lookups are monotonic: raising the level never
// shrinks the admitted set.
func (l Level) Admits(min Level) bool {
	lo, mo := levelOrder(l), levelOrder(min)
	return lo > 0 && mo >= 0 && mo <= lo
}

// Category groups patterns by the kind of rewrite they perform.
type Category string

const (
	CategoryPeephole          Category = "peephole"
	CategoryRedundancy        Category = "redundancy"
	CategoryDeadCode          Category = "dead_code"
	CategoryStrengthReduction Category = "strength_reduction"
	CategoryFlow              Category = "flow"
)

// Safety describes how careful the framework must be with a pattern.
type Safety string

const (
	SafetyAlways       Safety = "always"       // semantics preserved unconditionally
	SafetyConservative Safety = "conservative" // preserved under checked preconditions
	SafetyAggressive   Safety = "aggressive"   // may change flag or timing behavior
)

// Impact is an estimated or measured metrics delta. Negative values
// are improvements.
type Impact struct {
	Cycles           int `json:"cycles"`
	Size             int `json:"size"`
	Memory           int `json:"memory"`
	RegisterPressure int `json:"register_pressure"`
	Complexity       int `json:"complexity"`
}

// Add accumulates another delta.
func (m *Impact) Add(other Impact) {
	m.Cycles += other.Cycles
	m.Size += other.Size
	m.Memory += other.Memory
	m.RegisterPressure += other.RegisterPressure
	m.Complexity += other.Complexity
}

// Rewrite is the outcome of applying a pattern.
type Rewrite struct {
	Changed      bool
	Instructions []ir.Instruction
	Metrics      Impact
}

// Pattern is one registered rewrite. Patterns are immutable value
// records once registered.
type Pattern struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Priority int      `json:"priority"`
	Safety   Safety   `json:"safety"`
	MinLevel Level    `json:"min_level"`
	// Estimated is the per-application impact estimate used to order
	// patterns under the size/speed trade-off weight.
	Estimated Impact   `json:"estimated"`
	DependsOn []string `json:"depends_on,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`

	// Matches reports whether the pattern applies to the sequence.
	Matches func(seq *ir.Sequence) bool `json:"-"`
	// Apply performs the rewrite. It must not mutate the input.
	Apply func(seq *ir.Sequence) (Rewrite, error) `json:"-"`
}

// Validate checks the required fields. A pattern missing any of them
// indicates a programming error in the registering caller.
func (p Pattern) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pattern missing id")
	}
	if p.Category == "" {
		return fmt.Errorf("pattern %s: missing category", p.ID)
	}
	if p.MinLevel == "" {
		return fmt.Errorf("pattern %s: missing minimum level", p.ID)
	}
	if levelOrder(p.MinLevel) < 0 {
		return fmt.Errorf("pattern %s: unknown minimum level %q", p.ID, p.MinLevel)
	}
	if p.Matches == nil {
		return fmt.Errorf("pattern %s: missing Matches predicate", p.ID)
	}
	if p.Apply == nil {
		return fmt.Errorf("pattern %s: missing Apply function", p.ID)
	}
	return nil
}
