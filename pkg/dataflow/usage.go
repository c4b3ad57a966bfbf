package dataflow

import (
	"strings"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/diag"
	"github.com/taro-lang/taro/pkg/symtab"
)

// HotPathDepth is the loop nesting depth at which accesses count as
// hot-path accesses.
const HotPathDepth = 2

// UsageOptions controls which declarations the usage diagnostics skip.
// The zero value enables every exclusion, matching the defaults.
type UsageOptions struct {
	ReportUnderscore  bool // report names starting with "_"
	ReportExported    bool // report exported symbols
	ReportLoopCounter bool // report loop counter variables
}

// UsageStats summarizes one function's variable usage.
type UsageStats struct {
	FunctionName        string   `json:"function_name"`
	DeclaredCount       int      `json:"declared_count"`
	UsedVariables       []string `json:"used_variables"`
	UnusedVariableCount int      `json:"unused_variable_count"`
	WriteOnlyCount      int      `json:"write_only_count"`
}

// varState tracks one declaration during the walk.
type varState struct {
	decl            *ast.VarDecl
	reads           int
	writes          int
	maxLoopDepth    int
	hotPath         bool
	arrayIndex      bool
	induction       bool
	readModify      bool
	pointerBase     bool
	hasInit         bool
	readBeforeWrite bool
}

// UsageAnalyzer walks function bodies counting reads and writes per
// declared variable, tracking loop depth and access patterns, and
// reporting unused, write-only, and possibly-unassigned variables.
// Results are written to each declaration's metadata record and, when a
// symbol table is supplied, onto the matching symbols.
type UsageAnalyzer struct {
	opts  UsageOptions
	table *symtab.Table
}

// NewUsageAnalyzer creates a usage analyzer. table may be nil.
func NewUsageAnalyzer(opts UsageOptions, table *symtab.Table) *UsageAnalyzer {
	return &UsageAnalyzer{opts: opts, table: table}
}

// AnalyzeFunction analyzes one function and emits its diagnostics.
func (a *UsageAnalyzer) AnalyzeFunction(fn *ast.FunctionDecl, meta *ast.MetaTable, collector *diag.Collector) *UsageStats {
	states := make(map[string]*varState)
	var order []string

	declare := func(d *ast.VarDecl) {
		st := &varState{decl: d, hasInit: d.Init != nil || d.IsParam}
		states[d.Name] = st
		order = append(order, d.Name)
	}
	for _, p := range fn.Params {
		declare(p)
	}

	w := &usageWalker{analyzer: a, states: states, declare: declare, collector: collector}
	if fn.Body != nil {
		w.walkBlock(fn.Body, 0)
	}

	stats := &UsageStats{FunctionName: fn.Name, DeclaredCount: len(order)}
	for _, name := range order {
		st := states[name]
		rec := meta.Get(st.decl.ID())
		rec.ReadCount = st.reads
		rec.WriteCount = st.writes
		rec.LoopDepth = st.maxLoopDepth
		rec.HotPath = st.hotPath
		rec.ArrayIndex = st.arrayIndex
		rec.Induction = st.induction || st.decl.IsLoopVar
		rec.ReadModify = st.readModify
		rec.PointerBase = st.pointerBase

		if a.table != nil {
			if sym := a.findSymbol(st.decl); sym != nil {
				sym.ReadCount = st.reads
				sym.WriteCount = st.writes
				sym.LoopDepth = st.maxLoopDepth
				sym.HotPath = st.hotPath
			}
		}

		if st.reads > 0 {
			stats.UsedVariables = append(stats.UsedVariables, name)
		}
		a.report(st, stats, collector)
	}
	return stats
}

// findSymbol locates the table symbol declared by the given node.
func (a *UsageAnalyzer) findSymbol(decl *ast.VarDecl) *symtab.Symbol {
	for _, sym := range a.table.AllSymbols() {
		if sym.Decl != nil && sym.Decl.ID() == decl.ID() {
			return sym
		}
	}
	return nil
}

// report emits unused and write-only findings for one declaration,
// honoring the configured exclusions.
func (a *UsageAnalyzer) report(st *varState, stats *UsageStats, collector *diag.Collector) {
	d := st.decl
	skip := (!a.opts.ReportUnderscore && strings.HasPrefix(d.Name, "_")) ||
		(!a.opts.ReportLoopCounter && d.IsLoopVar)

	if st.reads == 0 && st.writes == 0 {
		stats.UnusedVariableCount++
		if !skip && collector != nil {
			collector.Add(diag.Diagnostic{
				Severity:   diag.SeverityWarning,
				Category:   diag.CategoryVariableUsage,
				Code:       "unused-variable",
				Message:    "variable '" + d.Name + "' is never used",
				Pos:        d.Pos(),
				Suggestion: "remove the declaration or prefix the name with _",
			})
		}
		return
	}
	if st.writes > 0 && st.reads == 0 {
		stats.WriteOnlyCount++
		if !skip && collector != nil {
			collector.Add(diag.Diagnostic{
				Severity: diag.SeverityWarning,
				Category: diag.CategoryVariableUsage,
				Code:     "write-only-variable",
				Message:  "variable '" + d.Name + "' is written but never read",
				Pos:      d.Pos(),
			})
		}
	}
}

// usageWalker carries the walk state: loop depth and declaration order
// approximate the "read before write on some path" check by source
// order, which is exact for straight-line code and conservative inside
// branches.
type usageWalker struct {
	analyzer  *UsageAnalyzer
	states    map[string]*varState
	declare   func(*ast.VarDecl)
	collector *diag.Collector
}

func (w *usageWalker) walkBlock(block *ast.BlockStmt, depth int) {
	for _, stmt := range block.Stmts {
		w.walkStmt(stmt, depth)
	}
}

func (w *usageWalker) walkStmt(stmt ast.Stmt, depth int) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		if s.Init != nil {
			w.countReads(s.Init, depth)
		}
		w.declare(s)
	case *ast.AssignStmt:
		w.countReads(s.Value, depth)
		switch target := s.Target.(type) {
		case *ast.IdentExpr:
			w.countWrite(target.Name, depth)
			if readsVar(s.Value, target.Name) {
				if st, ok := w.states[target.Name]; ok {
					st.readModify = true
					if depth > 0 {
						st.induction = true
					}
				}
			}
		case *ast.IndexExpr:
			w.countReads(target.Index, depth)
			w.markArrayIndexes(target.Index)
			w.countWrite(target.Base, depth)
		case *ast.FieldExpr:
			w.countWrite(target.Base, depth)
			if st, ok := w.states[target.Base]; ok {
				st.pointerBase = true
			}
		}
	case *ast.IfStmt:
		w.countReads(s.Cond, depth)
		w.walkBlock(s.Then, depth)
		if s.Else != nil {
			w.walkBlock(s.Else, depth)
		}
	case *ast.LoopStmt:
		if s.Counter != nil {
			s.Counter.IsLoopVar = true
			if s.Counter.Init != nil {
				w.countReads(s.Counter.Init, depth)
			}
			w.declare(s.Counter)
			w.states[s.Counter.Name].induction = true
		}
		if s.Cond != nil {
			w.countReads(s.Cond, depth+1)
		}
		w.walkBlock(s.Body, depth+1)
	case *ast.ReturnStmt:
		if s.Value != nil {
			w.countReads(s.Value, depth)
		}
	case *ast.ExprStmt:
		w.countReads(s.X, depth)
	case *ast.BlockStmt:
		w.walkBlock(s, depth)
	}
}

// countReads counts every variable read inside an expression and marks
// array-index usage.
func (w *usageWalker) countReads(e ast.Expr, depth int) {
	if e == nil {
		return
	}
	ast.Walk(e, func(n ast.Node) ast.WalkControl {
		switch v := n.(type) {
		case *ast.IdentExpr:
			w.countRead(v.Name, depth, v.Pos())
		case *ast.IndexExpr:
			w.countRead(v.Base, depth, v.Pos())
			w.markArrayIndexes(v.Index)
		case *ast.FieldExpr:
			w.countRead(v.Base, depth, v.Pos())
			if st, ok := w.states[v.Base]; ok {
				st.pointerBase = true
			}
		}
		return ast.WalkContinue
	})
}

func (w *usageWalker) countRead(name string, depth int, pos ast.Position) {
	st, ok := w.states[name]
	if !ok {
		return
	}
	st.reads++
	w.touch(st, depth)
	if st.writes == 0 && !st.hasInit && !st.readBeforeWrite {
		st.readBeforeWrite = true
		if w.collector != nil {
			w.collector.Add(diag.Diagnostic{
				Severity:   diag.SeverityWarning,
				Category:   diag.CategoryDefiniteAssignment,
				Code:       "read-before-assign",
				Message:    "variable '" + name + "' may be read before it is assigned",
				Pos:        pos,
				Suggestion: "initialize '" + name + "' at its declaration",
			})
		}
	}
}

func (w *usageWalker) countWrite(name string, depth int) {
	st, ok := w.states[name]
	if !ok {
		return
	}
	st.writes++
	w.touch(st, depth)
}

func (w *usageWalker) touch(st *varState, depth int) {
	if depth > st.maxLoopDepth {
		st.maxLoopDepth = depth
	}
	if depth >= HotPathDepth {
		st.hotPath = true
	}
}

// markArrayIndexes flags every variable appearing in an index
// expression as an array index.
func (w *usageWalker) markArrayIndexes(index ast.Expr) {
	if index == nil {
		return
	}
	ast.Walk(index, func(n ast.Node) ast.WalkControl {
		if v, ok := n.(*ast.IdentExpr); ok {
			if st, ok := w.states[v.Name]; ok {
				st.arrayIndex = true
			}
		}
		return ast.WalkContinue
	})
}

// readsVar reports whether an expression reads the named variable.
func readsVar(e ast.Expr, name string) bool {
	found := false
	ast.Walk(e, func(n ast.Node) ast.WalkControl {
		if v, ok := n.(*ast.IdentExpr); ok && v.Name == name {
			found = true
			return ast.WalkStop
		}
		return ast.WalkContinue
	})
	return found
}
