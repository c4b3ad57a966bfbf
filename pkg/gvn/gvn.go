// Package gvn assigns value numbers to expressions within one function:
// two expressions receive the same number exactly when they provably
// compute the same value at that point. Redundant recomputation is
// marked on the node metadata so the code generator can reuse the first
// result instead of recomputing.
package gvn

import (
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/taro-lang/taro/pkg/ast"
)

// exprKey is the canonical shape of an expression that is hashed to
// find structurally equal computations. Operands are value numbers, not
// subtrees, so equal subexpressions collapse transitively. For
// commutative operators the operand numbers are sorted first, making
// a+b and b+a collide while a-b and b-a stay apart.
type exprKey struct {
	Op       string
	Operands []int
	Base     string
	Field    string
}

// entry is one known value: its number, the variables its computation
// transitively depends on, and the first declaration that computed it.
type entry struct {
	number    int
	deps      map[string]struct{}
	firstName string
	firstNode ast.NodeID
}

// Result summarizes value numbering for one function.
type Result struct {
	FunctionName   string                `json:"function_name"`
	ValueNumbers   map[ast.NodeID]int    `json:"value_numbers"`
	RedundantCount int                   `json:"redundant_count"`
	Redundant      map[ast.NodeID]string `json:"redundant"`
}

// Numberer performs value numbering over one function body.
type Numberer struct {
	meta *ast.MetaTable
	next int

	// varValues maps each variable to the number of its current value;
	// a write replaces the mapping and kills every entry depending on
	// the old value.
	varValues map[string]int
	literals  map[int64]int
	entries   map[uint64]*entry
	result    *Result
}

// NewNumberer creates a numberer writing into the given metadata table.
func NewNumberer(meta *ast.MetaTable) *Numberer {
	return &Numberer{
		meta:      meta,
		next:      1,
		varValues: make(map[string]int),
		literals:  make(map[int64]int),
		entries:   make(map[uint64]*entry),
	}
}

// AnalyzeFunction numbers every expression in the function in source
// order and returns the per-function result. State from any previous
// call is discarded; value numbers never cross function boundaries.
func (n *Numberer) AnalyzeFunction(fn *ast.FunctionDecl) (*Result, error) {
	n.next = 1
	n.varValues = make(map[string]int)
	n.literals = make(map[int64]int)
	n.entries = make(map[uint64]*entry)
	n.result = &Result{
		FunctionName: fn.Name,
		ValueNumbers: make(map[ast.NodeID]int),
		Redundant:    make(map[ast.NodeID]string),
	}
	for _, p := range fn.Params {
		n.varValues[p.Name] = n.fresh()
	}
	if fn.Body != nil {
		if err := n.walkBlock(fn.Body); err != nil {
			return nil, err
		}
	}
	return n.result, nil
}

func (n *Numberer) fresh() int {
	v := n.next
	n.next++
	return v
}

func (n *Numberer) walkBlock(block *ast.BlockStmt) error {
	for _, stmt := range block.Stmts {
		if err := n.walkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (n *Numberer) walkStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		if s.Init != nil {
			vn, _, err := n.number(s.Init, s.Name)
			if err != nil {
				return err
			}
			n.varValues[s.Name] = vn
		} else {
			n.varValues[s.Name] = n.fresh()
		}
	case *ast.AssignStmt:
		vn, _, err := n.number(s.Value, "")
		if err != nil {
			return err
		}
		switch target := s.Target.(type) {
		case *ast.IdentExpr:
			n.kill(target.Name)
			n.varValues[target.Name] = vn
		case *ast.IndexExpr:
			if _, _, err := n.number(target.Index, ""); err != nil {
				return err
			}
			n.kill(target.Base)
		case *ast.FieldExpr:
			n.kill(target.Base)
		}
	case *ast.IfStmt:
		if _, _, err := n.number(s.Cond, ""); err != nil {
			return err
		}
		// Arms are numbered in source order; a write in either arm
		// kills the affected values for everything that follows.
		if err := n.walkBlock(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			if err := n.walkBlock(s.Else); err != nil {
				return err
			}
		}
	case *ast.LoopStmt:
		if s.Counter != nil {
			if err := n.walkStmt(s.Counter); err != nil {
				return err
			}
		}
		if s.Cond != nil {
			if _, _, err := n.number(s.Cond, ""); err != nil {
				return err
			}
		}
		if err := n.walkBlock(s.Body); err != nil {
			return err
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			if _, _, err := n.number(s.Value, ""); err != nil {
				return err
			}
		}
	case *ast.ExprStmt:
		if _, _, err := n.number(s.X, ""); err != nil {
			return err
		}
	case *ast.BlockStmt:
		return n.walkBlock(s)
	}
	return nil
}

// kill invalidates every known value that transitively used the
// variable's old value. A later, textually identical expression then
// receives a fresh number.
func (n *Numberer) kill(name string) {
	for h, e := range n.entries {
		if _, ok := e.deps[name]; ok {
			delete(n.entries, h)
		}
	}
	delete(n.varValues, name)
}

// number assigns a value number to an expression. declName, when
// non-empty, names the declaration whose initializer this expression
// is; it becomes the reuse reference for later redundant occurrences.
func (n *Numberer) number(e ast.Expr, declName string) (int, map[string]struct{}, error) {
	switch v := e.(type) {
	case *ast.LiteralExpr:
		vn, ok := n.literals[v.Value]
		if !ok {
			vn = n.fresh()
			n.literals[v.Value] = vn
		}
		n.record(v.ID(), vn)
		return vn, nil, nil

	case *ast.IdentExpr:
		vn, ok := n.varValues[v.Name]
		if !ok {
			vn = n.fresh()
			n.varValues[v.Name] = vn
		}
		n.record(v.ID(), vn)
		return vn, deps(v.Name), nil

	case *ast.UnaryExpr:
		xvn, xdeps, err := n.number(v.X, "")
		if err != nil {
			return 0, nil, err
		}
		key := exprKey{Op: "unary:" + string(v.Op), Operands: []int{xvn}}
		return n.lookup(v, key, declName, xdeps)

	case *ast.BinaryExpr:
		lvn, ldeps, err := n.number(v.Left, "")
		if err != nil {
			return 0, nil, err
		}
		rvn, rdeps, err := n.number(v.Right, "")
		if err != nil {
			return 0, nil, err
		}
		operands := []int{lvn, rvn}
		if v.Op.Commutative() {
			sort.Ints(operands)
		}
		key := exprKey{Op: "binary:" + string(v.Op), Operands: operands}
		return n.lookup(v, key, declName, merge(ldeps, rdeps))

	case *ast.IndexExpr:
		ivn, ideps, err := n.number(v.Index, "")
		if err != nil {
			return 0, nil, err
		}
		key := exprKey{Op: "index", Base: v.Base, Operands: []int{ivn}}
		return n.lookup(v, key, declName, merge(ideps, deps(v.Base)))

	case *ast.FieldExpr:
		key := exprKey{Op: "field", Base: v.Base, Field: v.Field}
		return n.lookup(v, key, declName, deps(v.Base))

	case *ast.CallExpr:
		// Calls may have side effects; every occurrence is a new value.
		for _, a := range v.Args {
			if _, _, err := n.number(a, ""); err != nil {
				return 0, nil, err
			}
		}
		vn := n.fresh()
		n.record(v.ID(), vn)
		return vn, nil, nil
	}
	return 0, nil, fmt.Errorf("gvn: unsupported expression kind %T", e)
}

// lookup finds or creates the entry for a canonical key. A hit marks
// the expression redundant with a reference to the first computation.
func (n *Numberer) lookup(node ast.Expr, key exprKey, declName string, d map[string]struct{}) (int, map[string]struct{}, error) {
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("gvn: hashing expression: %w", err)
	}
	if e, ok := n.entries[h]; ok {
		n.record(node.ID(), e.number)
		ref := e.firstName
		if ref == "" {
			ref = fmt.Sprintf("node#%d", e.firstNode)
		}
		rec := n.meta.Get(node.ID())
		rec.Redundant = true
		rec.RedundantWith = ref
		n.result.RedundantCount++
		n.result.Redundant[node.ID()] = ref
		return e.number, e.deps, nil
	}
	vn := n.fresh()
	n.entries[h] = &entry{
		number:    vn,
		deps:      d,
		firstName: declName,
		firstNode: node.ID(),
	}
	n.record(node.ID(), vn)
	return vn, d, nil
}

func (n *Numberer) record(id ast.NodeID, vn int) {
	rec := n.meta.Get(id)
	rec.ValueNumber = vn
	rec.HasValue = true
	n.result.ValueNumbers[id] = vn
}

func deps(names ...string) map[string]struct{} {
	d := make(map[string]struct{}, len(names))
	for _, name := range names {
		d[name] = struct{}{}
	}
	return d
}

func merge(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// AnalyzeProgram numbers every function in the program independently,
// keyed by function name.
func AnalyzeProgram(p *ast.Program) (map[string]*Result, error) {
	out := make(map[string]*Result, len(p.Functions))
	for _, fn := range p.Functions {
		res, err := NewNumberer(p.Meta()).AnalyzeFunction(fn)
		if err != nil {
			return nil, err
		}
		out[fn.Name] = res
	}
	return out, nil
}
