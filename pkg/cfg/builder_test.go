package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taro-lang/taro/pkg/ast"
)

// fixture builds registered AST nodes for a single test function.
type fixture struct {
	prog *ast.Program
}

func newFixture() *fixture {
	return &fixture{prog: ast.NewProgram()}
}

func (f *fixture) stmt() ast.Stmt {
	s := &ast.ExprStmt{X: f.lit(0)}
	f.prog.Register(s)
	return s
}

func (f *fixture) lit(v int64) ast.Expr {
	e := &ast.LiteralExpr{Value: v}
	f.prog.Register(e)
	return e
}

func (f *fixture) ret() *ast.ReturnStmt {
	s := &ast.ReturnStmt{}
	f.prog.Register(s)
	return s
}

func (f *fixture) block(stmts ...ast.Stmt) *ast.BlockStmt {
	b := &ast.BlockStmt{Stmts: stmts}
	f.prog.Register(b)
	return b
}

func (f *fixture) fn(name string, body *ast.BlockStmt) *ast.FunctionDecl {
	fn := &ast.FunctionDecl{Name: name, Body: body}
	f.prog.Register(fn)
	f.prog.AddFunction(fn)
	return fn
}

func TestBuilderLinear(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	s1, err := b.Statement(f.stmt())
	require.NoError(t, err)
	s2, err := b.Statement(f.stmt())
	require.NoError(t, err)

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	assert.True(t, g.Nodes[s1.ID].Reachable)
	assert.True(t, g.Nodes[s2.ID].Reachable)
	assert.True(t, g.Nodes[g.ExitID].Reachable)

	dead, err := g.Unreachable()
	require.NoError(t, err)
	assert.Empty(t, dead)

	// entry->s1, s1->s2, s2->exit over 4 nodes.
	assert.Equal(t, 1, g.CyclomaticComplexity())
}

func TestBuilderStatementsAfterReturn(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	_, err := b.Statement(f.stmt())
	require.NoError(t, err)
	_, err = b.Return(f.ret())
	require.NoError(t, err)

	d1, err := b.Statement(f.stmt())
	require.NoError(t, err)
	d2, err := b.Statement(f.stmt())
	require.NoError(t, err)

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	dead, err := g.Unreachable()
	require.NoError(t, err)
	require.Len(t, dead, 2)

	// The first node of the cut region carries the terminator kind;
	// later nodes in the same region do not.
	assert.Equal(t, SeverReturn, g.Nodes[d1.ID].SeveredBy)
	assert.Equal(t, SeverNone, g.Nodes[d2.ID].SeveredBy)
}

func TestBuilderBranchMerge(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	_, err := b.StartBranch(f.stmt())
	require.NoError(t, err)
	_, err = b.Statement(f.stmt())
	require.NoError(t, err)
	require.NoError(t, b.StartAlternate())
	_, err = b.Statement(f.stmt())
	require.NoError(t, err)
	merge, err := b.MergeBranches()
	require.NoError(t, err)
	require.NotNil(t, merge)

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	assert.Len(t, g.Predecessors(merge.ID), 2)
	// Diamond: complexity 2.
	assert.Equal(t, 2, g.CyclomaticComplexity())
}

func TestBuilderBothArmsTerminate(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	_, err := b.StartBranch(f.stmt())
	require.NoError(t, err)
	_, err = b.Return(f.ret())
	require.NoError(t, err)
	require.NoError(t, b.StartAlternate())
	_, err = b.Return(f.ret())
	require.NoError(t, err)

	merge, err := b.MergeBranches()
	require.NoError(t, err)
	assert.Nil(t, merge, "no live merge point when both arms return")

	d, err := b.Statement(f.stmt())
	require.NoError(t, err)

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	assert.False(t, g.Nodes[d.ID].Reachable)
	assert.Equal(t, SeverReturn, g.Nodes[d.ID].SeveredBy)
}

func TestBuilderLoopBreakContinue(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	header, exit, err := b.StartLoop(f.stmt())
	require.NoError(t, err)

	_, err = b.StartBranch(f.stmt())
	require.NoError(t, err)
	brk, err := b.Break(&ast.BreakStmt{})
	require.NoError(t, err)
	_, err = b.MergeBranches()
	require.NoError(t, err)

	cont, err := b.Continue(&ast.ContinueStmt{})
	require.NoError(t, err)
	require.NoError(t, b.EndLoop())

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	assert.Contains(t, g.Successors(brk.ID), exit.ID)
	assert.Contains(t, g.Successors(cont.ID), header.ID)
	assert.True(t, g.Nodes[exit.ID].Reachable)

	dead, err := g.Unreachable()
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestBuilderStatementAfterBreak(t *testing.T) {
	f := newFixture()
	b := NewBuilder("f")

	_, _, err := b.StartLoop(f.stmt())
	require.NoError(t, err)
	_, err = b.Break(&ast.BreakStmt{})
	require.NoError(t, err)
	d, err := b.Statement(f.stmt())
	require.NoError(t, err)
	require.NoError(t, b.EndLoop())

	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, g.ComputeReachability())

	assert.False(t, g.Nodes[d.ID].Reachable)
	assert.Equal(t, SeverBreak, g.Nodes[d.ID].SeveredBy)
}

func TestBuilderStructuralErrors(t *testing.T) {
	f := newFixture()

	b := NewBuilder("f")
	_, err := b.Break(&ast.BreakStmt{})
	assert.Error(t, err, "break outside loop")

	b = NewBuilder("f")
	_, err = b.Continue(&ast.ContinueStmt{})
	assert.Error(t, err, "continue outside loop")

	b = NewBuilder("f")
	assert.Error(t, b.EndLoop())
	assert.Error(t, b.StartAlternate())
	_, err = b.MergeBranches()
	assert.Error(t, err)

	b = NewBuilder("f")
	_, _, err = b.StartLoop(f.stmt())
	require.NoError(t, err)
	_, err = b.Finalize()
	assert.Error(t, err, "finalize with open loop")
}

func TestBuildFunctionNilBody(t *testing.T) {
	f := newFixture()
	fn := f.fn("stub", nil)

	g, err := BuildFunction(fn)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	assert.True(t, g.Nodes[g.ExitID].Reachable)
}

func TestBuildFunctionLowering(t *testing.T) {
	f := newFixture()
	body := f.block(
		f.stmt(),
		&ast.IfStmt{Cond: f.lit(1), Then: f.block(f.ret()), Else: f.block(f.stmt())},
		f.stmt(),
	)
	f.prog.Register(body.Stmts[1])
	fn := f.fn("f", body)

	g, err := BuildFunction(fn)
	require.NoError(t, err)

	dead, err := g.Unreachable()
	require.NoError(t, err)
	assert.Empty(t, dead, "else arm keeps the tail statement live")
	assert.Equal(t, 2, g.CyclomaticComplexity())
}
