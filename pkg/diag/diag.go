// Package diag defines the diagnostics produced by the analysis core.
// Diagnostics are plain values accumulated in order; they are never
// returned as errors and never abort an analysis.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taro-lang/taro/pkg/ast"
)

// Severity orders diagnostics by importance.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups diagnostics by the analysis that produced them.
type Category string

const (
	CategoryDefiniteAssignment Category = "definite_assignment"
	CategoryVariableUsage      Category = "variable_usage"
	CategoryDeadCode           Category = "dead_code"
	CategoryPurity             Category = "purity"
	CategoryLoop               Category = "loop"
	CategoryCallGraph          Category = "call_graph"
	CategoryM6502              Category = "m6502"
)

// Diagnostic is one finding. Immutable once created.
type Diagnostic struct {
	Severity   Severity     `json:"severity"`
	Category   Category     `json:"category"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Pos        ast.Position `json:"pos"`
	Suggestion string       `json:"suggestion,omitempty"`
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%d:%d: %s [%s/%s]: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Category, d.Code, d.Message)
	if d.Suggestion != "" {
		s += " (" + d.Suggestion + ")"
	}
	return s
}

// Collector accumulates diagnostics in emission order. A reporting cap
// truncates what Reported returns without stopping collection, so
// counts stay exact even past the cap.
type Collector struct {
	diags []Diagnostic
	cap   int
}

// DefaultReportCap is the default number of diagnostics Reported returns.
const DefaultReportCap = 100

// NewCollector creates a collector with the given reporting cap.
// A cap of zero or less means no cap.
func NewCollector(reportCap int) *Collector {
	return &Collector{cap: reportCap}
}

// Add appends a diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.diags = append(c.diags, d)
}

// Addf appends a diagnostic with a formatted message.
func (c *Collector) Addf(sev Severity, cat Category, code string, pos ast.Position, format string, args ...interface{}) {
	c.Add(Diagnostic{
		Severity: sev,
		Category: cat,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// All returns every collected diagnostic in emission order, ignoring
// the reporting cap.
func (c *Collector) All() []Diagnostic {
	return c.diags
}

// Reported returns the diagnostics up to the reporting cap.
func (c *Collector) Reported() []Diagnostic {
	if c.cap > 0 && len(c.diags) > c.cap {
		return c.diags[:c.cap]
	}
	return c.diags
}

// Truncated reports how many diagnostics the cap suppressed.
func (c *Collector) Truncated() int {
	if c.cap > 0 && len(c.diags) > c.cap {
		return len(c.diags) - c.cap
	}
	return 0
}

// BySeverity returns the diagnostics with the given severity.
func (c *Collector) BySeverity(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// ByCategory returns the diagnostics with the given category.
func (c *Collector) ByCategory(cat Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the total number of collected diagnostics.
func (c *Collector) Count() int { return len(c.diags) }

// CountBySeverity returns the number of diagnostics per severity.
func (c *Collector) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, d := range c.diags {
		counts[d.Severity]++
	}
	return counts
}

// Report renders a human-readable summary: per-category counts followed
// by the reported diagnostics in emission order.
func (c *Collector) Report() string {
	var sb strings.Builder

	counts := make(map[Category]int)
	for _, d := range c.diags {
		counts[d.Category]++
	}
	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)

	sevCounts := c.CountBySeverity()
	fmt.Fprintf(&sb, "%d error(s), %d warning(s), %d info\n",
		sevCounts[SeverityError], sevCounts[SeverityWarning], sevCounts[SeverityInfo])
	for _, cat := range cats {
		fmt.Fprintf(&sb, "  %-20s %d\n", cat, counts[Category(cat)])
	}

	for _, d := range c.Reported() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	if n := c.Truncated(); n > 0 {
		fmt.Fprintf(&sb, "... and %d more diagnostic(s) not shown\n", n)
	}
	return sb.String()
}
