// Package analyzer orchestrates the analysis passes in dependency
// tiers. Tier 1 walks function bodies directly, tier 2 requires built
// control-flow graphs, and tier 3 requires the whole program. A tier
// whose input is unavailable is skipped, never failed.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/cache"
	"github.com/taro-lang/taro/pkg/callgraph"
	"github.com/taro-lang/taro/pkg/cfg"
	"github.com/taro-lang/taro/pkg/dataflow"
	"github.com/taro-lang/taro/pkg/diag"
	"github.com/taro-lang/taro/pkg/gvn"
	"github.com/taro-lang/taro/pkg/symtab"
	"github.com/taro-lang/taro/pkg/target"
	"github.com/taro-lang/taro/pkg/zeropage"
)

// Tier identifies one analysis tier.
type Tier int

const (
	// TierUsage runs per-function walks: variable usage, definite
	// assignment, loop depth tracking.
	TierUsage Tier = 1
	// TierFlow runs CFG-dependent passes: dead code, liveness, value
	// numbering, cyclomatic complexity.
	TierFlow Tier = 2
	// TierProgram runs whole-program passes: call graph, recursion,
	// inlining, zero-page and register hints.
	TierProgram Tier = 3
)

// Options configure an analysis run. The zero value is usable: it
// analyzes all tiers against the built-in m6502 target with default
// thresholds and no summary cache.
type Options struct {
	// MaxTier stops after the given tier; 0 means all tiers.
	MaxTier Tier

	Usage      dataflow.UsageOptions
	Thresholds callgraph.Thresholds
	Weights    zeropage.Weights

	// Target defaults to the built-in m6502 descriptor.
	Target *target.Descriptor

	// ReportCap bounds the diagnostics report; 0 means the default.
	ReportCap int

	// Cache, when set, skips tier 1 and 2 for functions whose body
	// fingerprint hits a stored summary. Hits reuse the summary counts
	// and produce no fresh diagnostics for that function.
	Cache *cache.SummaryCache
}

// FunctionResult holds the per-function analysis outputs.
type FunctionResult struct {
	Name                 string                 `json:"name"`
	Fingerprint          uint64                 `json:"fingerprint"`
	FromCache            bool                   `json:"from_cache"`
	Usage                *dataflow.UsageStats   `json:"usage,omitempty"`
	Graph                *cfg.Graph             `json:"-"`
	CyclomaticComplexity int                    `json:"cyclomatic_complexity"`
	DeadRegions          []dataflow.DeadRegion  `json:"dead_regions,omitempty"`
	Liveness             *dataflow.LivenessInfo `json:"-"`
	ValueNumbering       *gvn.Result            `json:"value_numbering,omitempty"`
	ZeroPageHints        []zeropage.Hint        `json:"zeropage_hints,omitempty"`
}

// Result is the outcome of one analysis run.
type Result struct {
	Functions map[string]*FunctionResult `json:"functions"`
	CallGraph *callgraph.Graph           `json:"call_graph,omitempty"`
	Symbols   *symtab.Table              `json:"-"`

	TiersCompleted []Tier        `json:"tiers_completed"`
	CacheHits      int           `json:"cache_hits"`
	Elapsed        time.Duration `json:"elapsed"`

	collector *diag.Collector
}

// Diagnostics returns the run's diagnostic collector.
func (r *Result) Diagnostics() *diag.Collector { return r.collector }

// Counts returns the diagnostic totals by severity.
func (r *Result) Counts() map[diag.Severity]int {
	return r.collector.CountBySeverity()
}

// Analyzer runs the tiered analysis pipeline over a program.
type Analyzer struct {
	opts Options
}

// New creates an analyzer with the given options.
func New(opts Options) *Analyzer {
	if opts.Target == nil {
		opts.Target = target.M6502()
	}
	if opts.Thresholds == (callgraph.Thresholds{}) {
		opts.Thresholds = callgraph.DefaultThresholds()
	}
	if opts.Weights == (zeropage.Weights{}) {
		opts.Weights = zeropage.DefaultWeights()
	}
	if opts.MaxTier == 0 {
		opts.MaxTier = TierProgram
	}
	if opts.ReportCap == 0 {
		opts.ReportCap = diag.DefaultReportCap
	}
	return &Analyzer{opts: opts}
}

// Run analyzes a program through the configured tiers.
func (a *Analyzer) Run(p *ast.Program) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("no program to analyze")
	}
	start := time.Now()

	result := &Result{
		Functions: make(map[string]*FunctionResult, len(p.Functions)),
		collector: diag.NewCollector(a.opts.ReportCap),
	}

	table, err := buildSymbols(p)
	if err != nil {
		return nil, err
	}
	result.Symbols = table

	for _, fn := range p.Functions {
		fr := &FunctionResult{Name: fn.Name}
		if fp, err := fingerprint(fn); err == nil {
			fr.Fingerprint = fp
		}
		result.Functions[fn.Name] = fr

		if a.opts.Cache != nil && fr.Fingerprint != 0 {
			if _, ok := a.opts.Cache.Get(cache.Key(fn.Name, fr.Fingerprint)); ok {
				fr.FromCache = true
				result.CacheHits++
			}
		}
	}

	a.runUsageTier(p, table, result)
	result.TiersCompleted = append(result.TiersCompleted, TierUsage)

	if a.opts.MaxTier >= TierFlow {
		if err := a.runFlowTier(p, result); err != nil {
			return nil, err
		}
		result.TiersCompleted = append(result.TiersCompleted, TierFlow)
	}

	if a.opts.MaxTier >= TierProgram {
		a.runProgramTier(p, result)
		result.TiersCompleted = append(result.TiersCompleted, TierProgram)
	}

	if a.opts.Cache != nil {
		a.storeSummaries(result)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// runUsageTier runs the per-function walks. Functions without bodies
// and cache hits are skipped.
func (a *Analyzer) runUsageTier(p *ast.Program, table *symtab.Table, result *Result) {
	ua := dataflow.NewUsageAnalyzer(a.opts.Usage, table)
	for _, fn := range p.Functions {
		fr := result.Functions[fn.Name]
		if fr.FromCache || fn.Body == nil {
			continue
		}
		fr.Usage = ua.AnalyzeFunction(fn, p.Meta(), result.collector)
	}
}

// runFlowTier builds CFGs and runs the flow-sensitive passes over them.
func (a *Analyzer) runFlowTier(p *ast.Program, result *Result) error {
	for _, fn := range p.Functions {
		fr := result.Functions[fn.Name]
		if fr.FromCache || fn.Body == nil {
			continue
		}

		g, err := cfg.BuildFunction(fn)
		if err != nil {
			return fmt.Errorf("building cfg for %s: %w", fn.Name, err)
		}
		fr.Graph = g
		fr.CyclomaticComplexity = g.CyclomaticComplexity()

		regions, err := dataflow.AnalyzeDeadCode(g, result.collector)
		if err != nil {
			return fmt.Errorf("dead code in %s: %w", fn.Name, err)
		}
		fr.DeadRegions = regions
		fr.Liveness = dataflow.ComputeLiveness(g)

		vn, err := gvn.NewNumberer(p.Meta()).AnalyzeFunction(fn)
		if err != nil {
			return fmt.Errorf("value numbering in %s: %w", fn.Name, err)
		}
		fr.ValueNumbering = vn
	}
	return nil
}

// runProgramTier runs the whole-program passes. The call graph covers
// every declared function, cached or not; zero-page scoring needs the
// usage metadata and so skips cached functions.
func (a *Analyzer) runProgramTier(p *ast.Program, result *Result) {
	cg := callgraph.BuildWithThresholds(p, a.opts.Thresholds)
	cg.Annotate(p.Meta(), result.collector)
	result.CallGraph = cg

	zp := zeropage.NewAnalyzerWithWeights(a.opts.Target, a.opts.Weights)
	for _, fn := range p.Functions {
		fr := result.Functions[fn.Name]
		if fr.FromCache || fn.Body == nil {
			continue
		}
		fr.ZeroPageHints = zp.AnalyzeFunction(fn, p.Meta(), result.collector)
	}
}

// storeSummaries writes fresh per-function summaries into the cache.
func (a *Analyzer) storeSummaries(result *Result) {
	for name, fr := range result.Functions {
		if fr.FromCache || fr.Fingerprint == 0 {
			continue
		}
		s := cache.Summary{
			FunctionName:         name,
			Fingerprint:          fr.Fingerprint,
			CyclomaticComplexity: fr.CyclomaticComplexity,
			ZeroPageCandidates:   len(fr.ZeroPageHints),
		}
		if fr.Usage != nil {
			s.UnusedVariableCount = fr.Usage.UnusedVariableCount
			s.StatementCount = fr.Usage.DeclaredCount
		}
		if fr.Graph != nil {
			if nodes, err := fr.Graph.Unreachable(); err == nil {
				s.UnreachableCount = len(nodes)
			}
		}
		if fr.ValueNumbering != nil {
			s.RedundantExprCount = fr.ValueNumbering.RedundantCount
		}
		if result.CallGraph != nil {
			if node, ok := result.CallGraph.Nodes[name]; ok {
				s.Recursive = node.IsRecursive
				s.InlineCandidate = result.CallGraph.IsInlineCandidate(name)
			}
		}
		a.opts.Cache.Set(cache.Key(name, fr.Fingerprint), s)
	}
}

// fingerprint hashes a function declaration structurally, so any body
// or signature change produces a different value.
func fingerprint(fn *ast.FunctionDecl) (uint64, error) {
	return hashstructure.Hash(fn, hashstructure.FormatV2, nil)
}

// buildSymbols populates a symbol table from the program's declaration
// structure: functions at global scope, parameters and locals inside
// each function's scopes.
func buildSymbols(p *ast.Program) (*symtab.Table, error) {
	table := symtab.New()
	for _, fn := range p.Functions {
		if _, err := table.DeclareFunction(fn.Name, ast.TypeVoid, fn, fn.Exported); err != nil {
			return nil, err
		}
	}
	for _, fn := range p.Functions {
		table.EnterFunctionScope()
		for _, param := range fn.Params {
			if _, err := table.DeclareParameter(param.Name, param.Type, param); err != nil {
				return nil, err
			}
		}
		if fn.Body != nil {
			if err := declareBlock(table, fn.Body); err != nil {
				return nil, err
			}
		}
		if err := table.ExitScope(); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func declareBlock(table *symtab.Table, block *ast.BlockStmt) error {
	for _, stmt := range block.Stmts {
		if err := declareStmt(table, stmt); err != nil {
			return err
		}
	}
	return nil
}

func declareStmt(table *symtab.Table, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		_, err := table.DeclareVariable(s.Name, s.Type, s)
		return err
	case *ast.IfStmt:
		table.EnterBlockScope()
		if err := declareBlock(table, s.Then); err != nil {
			return err
		}
		if err := table.ExitScope(); err != nil {
			return err
		}
		if s.Else != nil {
			table.EnterBlockScope()
			if err := declareBlock(table, s.Else); err != nil {
				return err
			}
			return table.ExitScope()
		}
	case *ast.LoopStmt:
		table.EnterBlockScope()
		if s.Counter != nil {
			if _, err := table.DeclareVariable(s.Counter.Name, s.Counter.Type, s.Counter); err != nil {
				return err
			}
		}
		if err := declareBlock(table, s.Body); err != nil {
			return err
		}
		return table.ExitScope()
	}
	return nil
}

// Report formats a human-readable run summary followed by the
// diagnostics report.
func (r *Result) Report() string {
	var b strings.Builder

	b.WriteString("Analysis summary\n")
	fmt.Fprintf(&b, "  functions: %d", len(r.Functions))
	if r.CacheHits > 0 {
		fmt.Fprintf(&b, " (%d from cache)", r.CacheHits)
	}
	b.WriteString("\n")

	tiers := make([]string, 0, len(r.TiersCompleted))
	for _, t := range r.TiersCompleted {
		tiers = append(tiers, fmt.Sprintf("%d", t))
	}
	fmt.Fprintf(&b, "  tiers completed: %s\n", strings.Join(tiers, ", "))

	counts := r.Counts()
	fmt.Fprintf(&b, "  errors: %d, warnings: %d, info: %d\n",
		counts[diag.SeverityError], counts[diag.SeverityWarning], counts[diag.SeverityInfo])
	fmt.Fprintf(&b, "  elapsed: %s\n", r.Elapsed.Round(time.Microsecond))

	names := make([]string, 0, len(r.Functions))
	for name := range r.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fr := r.Functions[name]
		fmt.Fprintf(&b, "  %s: complexity %d", name, fr.CyclomaticComplexity)
		if fr.Usage != nil && fr.Usage.UnusedVariableCount > 0 {
			fmt.Fprintf(&b, ", %d unused", fr.Usage.UnusedVariableCount)
		}
		if fr.ValueNumbering != nil && fr.ValueNumbering.RedundantCount > 0 {
			fmt.Fprintf(&b, ", %d redundant", fr.ValueNumbering.RedundantCount)
		}
		if fr.FromCache {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
	}

	if r.collector.Count() > 0 {
		b.WriteString("\n")
		b.WriteString(r.collector.Report())
	}
	return b.String()
}
