package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree assembles a registered one-function program:
//
//	fn f(p) { x := 1 + p; if x { return x } }
func buildTree(t *testing.T) (*Program, *FunctionDecl) {
	t.Helper()
	prog := NewProgram()
	reg := func(n Node) Node {
		prog.Register(n)
		return n
	}

	p := reg(&VarDecl{Name: "p", Type: TypeByte, IsParam: true}).(*VarDecl)
	one := reg(&LiteralExpr{Value: 1}).(*LiteralExpr)
	pRef := reg(&IdentExpr{Name: "p"}).(*IdentExpr)
	sum := reg(&BinaryExpr{Op: OpAdd, Left: one, Right: pRef}).(*BinaryExpr)
	x := reg(&VarDecl{Name: "x", Type: TypeByte, Init: sum}).(*VarDecl)

	cond := reg(&IdentExpr{Name: "x"}).(*IdentExpr)
	retVal := reg(&IdentExpr{Name: "x"}).(*IdentExpr)
	ret := reg(&ReturnStmt{Value: retVal}).(*ReturnStmt)
	then := reg(&BlockStmt{Stmts: []Stmt{ret}}).(*BlockStmt)
	ifStmt := reg(&IfStmt{Cond: cond, Then: then}).(*IfStmt)

	body := reg(&BlockStmt{Stmts: []Stmt{x, ifStmt}}).(*BlockStmt)
	fn := reg(&FunctionDecl{Name: "f", Params: []*VarDecl{p}, Body: body}).(*FunctionDecl)
	prog.AddFunction(fn)
	return prog, fn
}

func TestRegisterAssignsStableIDs(t *testing.T) {
	prog, fn := buildTree(t)

	seen := make(map[NodeID]bool)
	Walk(fn, func(n Node) WalkControl {
		id := n.ID()
		assert.NotEqual(t, NoNode, id, "%s has no identity", n.Kind())
		assert.False(t, seen[id], "duplicate id %d on %s", id, n.Kind())
		seen[id] = true
		return WalkContinue
	})
	assert.NotEqual(t, prog.ID(), fn.ID())
}

func TestWalkVisitsSourceOrder(t *testing.T) {
	_, fn := buildTree(t)

	var kinds []NodeKind
	complete := Walk(fn, func(n Node) WalkControl {
		kinds = append(kinds, n.Kind())
		return WalkContinue
	})

	assert.True(t, complete)
	want := []NodeKind{
		KindFunctionDecl,
		KindVarDecl, // param p
		KindBlock,
		KindVarDecl, // x
		KindBinary, KindLiteral, KindIdent,
		KindIf, KindIdent,
		KindBlock, KindReturn, KindIdent,
	}
	assert.Equal(t, want, kinds)
}

func TestWalkSkipChildren(t *testing.T) {
	_, fn := buildTree(t)

	var kinds []NodeKind
	Walk(fn, func(n Node) WalkControl {
		kinds = append(kinds, n.Kind())
		if n.Kind() == KindVarDecl {
			return WalkSkipChildren
		}
		return WalkContinue
	})

	assert.NotContains(t, kinds, KindBinary, "initializer skipped")
	assert.Contains(t, kinds, KindIf, "siblings still visited")
}

func TestWalkStop(t *testing.T) {
	_, fn := buildTree(t)

	count := 0
	complete := Walk(fn, func(n Node) WalkControl {
		count++
		if n.Kind() == KindBlock {
			return WalkStop
		}
		return WalkContinue
	})

	assert.False(t, complete)
	assert.Equal(t, 3, count, "function, param, then the body block")
}

func TestWalkNil(t *testing.T) {
	assert.True(t, Walk(nil, func(Node) WalkControl { return WalkContinue }))
}

func TestMetaTable(t *testing.T) {
	m := NewMetaTable()
	assert.Zero(t, m.Len())

	_, found := m.Lookup(NodeID(7))
	assert.False(t, found)

	rec := m.Get(NodeID(7))
	require.NotNil(t, rec)
	rec.ReadCount = 3

	again, found := m.Lookup(NodeID(7))
	require.True(t, found)
	assert.Same(t, rec, again)
	assert.Equal(t, 3, again.ReadCount)
	assert.Equal(t, 1, m.Len())
}

func TestSetPos(t *testing.T) {
	e := &IdentExpr{Name: "x"}
	SetPos(e, Position{Line: 4, Column: 9})
	assert.Equal(t, 4, e.Pos().Line)
	assert.Equal(t, 9, e.Pos().Column)
}

func TestCommutative(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		want bool
	}{
		{OpAdd, true},
		{OpMul, true},
		{OpAnd, true},
		{OpOr, true},
		{OpXor, true},
		{OpEq, true},
		{OpSub, false},
		{OpLt, false},
	}
	for _, tt := range tests {
		if got := tt.op.Commutative(); got != tt.want {
			t.Errorf("Commutative(%s) = %v, want %v", tt.op, got, tt.want)
		}
	}
}
