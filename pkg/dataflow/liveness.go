package dataflow

import (
	"container/list"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/cfg"
)

// VarSet is a set of variable names.
type VarSet map[string]struct{}

func (s VarSet) add(name string)      { s[name] = struct{}{} }
func (s VarSet) Has(name string) bool { _, ok := s[name]; return ok }

func (s VarSet) equal(other VarSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

func (s VarSet) clone() VarSet {
	out := make(VarSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// LivenessInfo holds the per-node live-in and live-out sets of one
// function's graph.
type LivenessInfo struct {
	FunctionName string
	LiveIn       map[string]VarSet
	LiveOut      map[string]VarSet
	Use          map[string]VarSet
	Def          map[string]VarSet
}

// ComputeLiveness runs the standard backward liveness fixpoint over a
// graph:
//
//	live-in(n)  = use(n) ∪ (live-out(n) − def(n))
//	live-out(n) = ∪ live-in(succ)
//
// using a worklist seeded with every node.
func ComputeLiveness(g *cfg.Graph) *LivenessInfo {
	info := &LivenessInfo{
		FunctionName: g.FunctionName,
		LiveIn:       make(map[string]VarSet),
		LiveOut:      make(map[string]VarSet),
		Use:          make(map[string]VarSet),
		Def:          make(map[string]VarSet),
	}

	for _, n := range g.NodesInOrder() {
		use, def := UseDef(n.Stmt)
		info.Use[n.ID] = use
		info.Def[n.ID] = def
		info.LiveIn[n.ID] = make(VarSet)
		info.LiveOut[n.ID] = make(VarSet)
	}

	worklist := list.New()
	for _, n := range g.NodesInOrder() {
		worklist.PushBack(n.ID)
	}

	for worklist.Len() > 0 {
		id := worklist.Remove(worklist.Front()).(string)

		out := make(VarSet)
		for _, succ := range g.Successors(id) {
			for v := range info.LiveIn[succ] {
				out.add(v)
			}
		}
		info.LiveOut[id] = out

		in := info.Use[id].clone()
		for v := range out {
			if !info.Def[id].Has(v) {
				in.add(v)
			}
		}

		if !in.equal(info.LiveIn[id]) {
			info.LiveIn[id] = in
			for _, pred := range g.Predecessors(id) {
				worklist.PushBack(pred)
			}
		}
	}

	return info
}

// ComputeAllLiveness computes liveness for every supplied graph, keyed
// by function name.
func ComputeAllLiveness(graphs map[string]*cfg.Graph) map[string]*LivenessInfo {
	out := make(map[string]*LivenessInfo, len(graphs))
	for name, g := range graphs {
		out[name] = ComputeLiveness(g)
	}
	return out
}

// UseDef extracts the variables a statement reads (use) and writes
// (def). For a branch or loop node the statement is the construct whose
// condition the node evaluates; only the condition contributes.
func UseDef(stmt ast.Stmt) (use, def VarSet) {
	use = make(VarSet)
	def = make(VarSet)
	if stmt == nil {
		return use, def
	}
	switch s := stmt.(type) {
	case *ast.VarDecl:
		if s.Init != nil {
			collectReads(s.Init, use)
			def.add(s.Name)
		}
	case *ast.AssignStmt:
		collectReads(s.Value, use)
		switch target := s.Target.(type) {
		case *ast.IdentExpr:
			def.add(target.Name)
		case *ast.IndexExpr:
			// Writing one element keeps the rest of the array live.
			use.add(target.Base)
			collectReads(target.Index, use)
			def.add(target.Base)
		case *ast.FieldExpr:
			use.add(target.Base)
			def.add(target.Base)
		}
	case *ast.IfStmt:
		collectReads(s.Cond, use)
	case *ast.LoopStmt:
		if s.Cond != nil {
			collectReads(s.Cond, use)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			collectReads(s.Value, use)
		}
	case *ast.ExprStmt:
		collectReads(s.X, use)
	}
	return use, def
}

// collectReads adds every variable read by an expression to the set.
func collectReads(e ast.Expr, into VarSet) {
	if e == nil {
		return
	}
	ast.Walk(e, func(n ast.Node) ast.WalkControl {
		switch v := n.(type) {
		case *ast.IdentExpr:
			into.add(v.Name)
		case *ast.IndexExpr:
			into.add(v.Base)
		case *ast.FieldExpr:
			into.add(v.Base)
		}
		return ast.WalkContinue
	})
}
