// Package callgraph builds the whole-program call graph: one node per
// declared function, one directed edge per static call site. It detects
// direct and mutual recursion, scores functions for inlining, and flags
// functions that are never called.
package callgraph

import (
	"sort"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/diag"
)

// Node is one function in the call graph. Built once per compilation
// and read-only afterward.
type Node struct {
	Name string `json:"name"`
	// CallCount is the number of static call sites targeting this
	// function, including self-calls. It is not a dynamic count: a
	// call inside a loop contributes one.
	CallCount        int      `json:"call_count"`
	IsRecursive      bool     `json:"is_recursive"`
	RecursionDepth   int      `json:"recursion_depth"`
	Size             int      `json:"size"`
	Exported         bool     `json:"exported"`
	Callees          []string `json:"callees"`
	HasIndirectCalls bool     `json:"has_indirect_calls"`
	HasLoop          bool     `json:"has_loop"`

	decl      *ast.FunctionDecl
	calleeSet map[string]struct{}
}

// Decl returns the function's declaration node.
func (n *Node) Decl() *ast.FunctionDecl { return n.decl }

// Thresholds are the inlining heuristics. They are tuning constants,
// not invariants; override them per graph as needed.
type Thresholds struct {
	MaxInlineStatements int
	MaxInlineCallSites  int
}

// DefaultThresholds returns the stock inlining thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxInlineStatements: 10, MaxInlineCallSites: 4}
}

// EntryPointName is the designated program entry point.
const EntryPointName = "main"

// Graph is the whole-program call graph.
type Graph struct {
	Nodes      map[string]*Node `json:"nodes"`
	EntryPoint string           `json:"entry_point"`

	order      []string
	thresholds Thresholds
}

// Build constructs the call graph for a program and runs recursion
// detection. The returned graph is complete and read-only.
func Build(p *ast.Program) *Graph {
	return BuildWithThresholds(p, DefaultThresholds())
}

// BuildWithThresholds is Build with explicit inlining thresholds.
func BuildWithThresholds(p *ast.Program, th Thresholds) *Graph {
	g := &Graph{
		Nodes:      make(map[string]*Node),
		EntryPoint: EntryPointName,
		thresholds: th,
	}

	for _, fn := range p.Functions {
		n := &Node{
			Name:      fn.Name,
			Exported:  fn.Exported,
			decl:      fn,
			calleeSet: make(map[string]struct{}),
		}
		if fn.Body != nil {
			n.Size = len(fn.Body.Stmts)
			n.HasLoop = containsLoop(fn.Body)
		}
		g.Nodes[fn.Name] = n
		g.order = append(g.order, fn.Name)
	}

	for _, fn := range p.Functions {
		caller := g.Nodes[fn.Name]
		if fn.Body == nil {
			continue
		}
		ast.Walk(fn.Body, func(n ast.Node) ast.WalkControl {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return ast.WalkContinue
			}
			if call.Indirect {
				caller.HasIndirectCalls = true
				return ast.WalkContinue
			}
			callee, declared := g.Nodes[call.Callee]
			if !declared {
				return ast.WalkContinue
			}
			callee.CallCount++
			if _, seen := caller.calleeSet[call.Callee]; !seen {
				caller.calleeSet[call.Callee] = struct{}{}
				caller.Callees = append(caller.Callees, call.Callee)
			}
			return ast.WalkContinue
		})
	}

	g.detectRecursion()
	return g
}

// containsLoop reports whether the block contains a loop at any depth.
func containsLoop(block *ast.BlockStmt) bool {
	found := false
	ast.Walk(block, func(n ast.Node) ast.WalkControl {
		if n.Kind() == ast.KindLoop {
			found = true
			return ast.WalkStop
		}
		return ast.WalkContinue
	})
	return found
}

// detectRecursion runs an iterative Tarjan SCC over the graph. Every
// function in a component of size > 1, or with a self edge, is
// recursive; RecursionDepth records the component size. The explicit
// work stack keeps pathological call chains from overflowing the
// goroutine stack.
func (g *Graph) detectRecursion() {
	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	next := 0

	type frame struct {
		name string
		ci   int // next callee index to visit
	}

	for _, root := range g.order {
		if _, visited := index[root]; visited {
			continue
		}
		work := []frame{{name: root}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			f := &work[len(work)-1]
			node := g.Nodes[f.name]
			if f.ci < len(node.Callees) {
				callee := node.Callees[f.ci]
				f.ci++
				if _, visited := index[callee]; !visited {
					index[callee] = next
					lowlink[callee] = next
					next++
					stack = append(stack, callee)
					onStack[callee] = true
					work = append(work, frame{name: callee})
				} else if onStack[callee] {
					if index[callee] < lowlink[f.name] {
						lowlink[f.name] = index[callee]
					}
				}
				continue
			}

			if lowlink[f.name] == index[f.name] {
				var scc []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					scc = append(scc, top)
					if top == f.name {
						break
					}
				}
				g.markSCC(scc)
			}
			finished := f.name
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[finished] < lowlink[parent.name] {
					lowlink[parent.name] = lowlink[finished]
				}
			}
		}
	}
}

// markSCC marks a strongly connected component recursive when it is a
// real cycle.
func (g *Graph) markSCC(scc []string) {
	recursive := len(scc) > 1
	if !recursive {
		n := g.Nodes[scc[0]]
		if _, ok := n.calleeSet[n.Name]; ok {
			recursive = true
		}
	}
	if !recursive {
		return
	}
	for _, name := range scc {
		n := g.Nodes[name]
		n.IsRecursive = true
		n.RecursionDepth = len(scc)
	}
}

// IsInlineCandidate applies the inlining predicate: not recursive, not
// exported, small, loop-free, actually called, and not called so often
// that inlining would blow up code size.
func (g *Graph) IsInlineCandidate(name string) bool {
	n, ok := g.Nodes[name]
	if !ok || n.decl == nil || n.decl.Body == nil {
		return false
	}
	return !n.IsRecursive &&
		!n.Exported &&
		n.Size <= g.thresholds.MaxInlineStatements &&
		!n.HasLoop &&
		n.CallCount > 0 &&
		n.CallCount <= g.thresholds.MaxInlineCallSites
}

// InlineCandidates returns the inlining candidates in name order.
func (g *Graph) InlineCandidates() []string {
	var out []string
	for _, name := range g.order {
		if g.IsInlineCandidate(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DeadFunctions returns functions that are never called and are neither
// exported nor the entry point. Exported functions and the entry point
// are exempt regardless of call count.
func (g *Graph) DeadFunctions() []string {
	var out []string
	for _, name := range g.order {
		n := g.Nodes[name]
		if n.CallCount == 0 && !n.Exported && name != g.EntryPoint {
			out = append(out, name)
		}
	}
	return out
}

// Functions returns all function names in declaration order.
func (g *Graph) Functions() []string {
	return g.order
}

// Annotate writes call-graph results onto each function's metadata
// record and emits recursion and dead-function diagnostics.
func (g *Graph) Annotate(meta *ast.MetaTable, collector *diag.Collector) {
	dead := make(map[string]bool)
	for _, name := range g.DeadFunctions() {
		dead[name] = true
	}
	for _, name := range g.order {
		n := g.Nodes[name]
		if n.decl == nil {
			continue
		}
		rec := meta.Get(n.decl.ID())
		rec.CallCount = n.CallCount
		rec.IsRecursive = n.IsRecursive
		rec.DeadFunction = dead[name]

		if collector == nil {
			continue
		}
		if n.IsRecursive {
			collector.Add(diag.Diagnostic{
				Severity: diag.SeverityInfo,
				Category: diag.CategoryCallGraph,
				Code:     "recursive-function",
				Message:  "function '" + name + "' is recursive",
				Pos:      n.decl.Pos(),
			})
		}
		if dead[name] {
			collector.Add(diag.Diagnostic{
				Severity:   diag.SeverityWarning,
				Category:   diag.CategoryCallGraph,
				Code:       "dead-function",
				Message:    "function '" + name + "' is never called",
				Pos:        n.decl.Pos(),
				Suggestion: "remove it or export it",
			})
		}
	}
}
