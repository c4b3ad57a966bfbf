package dataflow

import (
	"github.com/taro-lang/taro/pkg/ast"
)

// fx builds registered AST nodes for tests.
type fx struct {
	prog *ast.Program
}

func newFx() *fx {
	return &fx{prog: ast.NewProgram()}
}

func (f *fx) reg(n ast.Node) ast.Node {
	f.prog.Register(n)
	return n
}

func (f *fx) ident(name string) *ast.IdentExpr {
	e := &ast.IdentExpr{Name: name}
	f.reg(e)
	return e
}

func (f *fx) lit(v int64) *ast.LiteralExpr {
	e := &ast.LiteralExpr{Value: v}
	f.reg(e)
	return e
}

func (f *fx) bin(op ast.BinaryOp, l, r ast.Expr) *ast.BinaryExpr {
	e := &ast.BinaryExpr{Op: op, Left: l, Right: r}
	f.reg(e)
	return e
}

func (f *fx) decl(name string, init ast.Expr) *ast.VarDecl {
	d := &ast.VarDecl{Name: name, Type: ast.TypeByte, Init: init}
	f.reg(d)
	return d
}

func (f *fx) assign(target, value ast.Expr) *ast.AssignStmt {
	s := &ast.AssignStmt{Target: target, Value: value}
	f.reg(s)
	return s
}

func (f *fx) ret(value ast.Expr) *ast.ReturnStmt {
	s := &ast.ReturnStmt{Value: value}
	f.reg(s)
	return s
}

func (f *fx) exprStmt(e ast.Expr) *ast.ExprStmt {
	s := &ast.ExprStmt{X: e}
	f.reg(s)
	return s
}

func (f *fx) block(stmts ...ast.Stmt) *ast.BlockStmt {
	b := &ast.BlockStmt{Stmts: stmts}
	f.reg(b)
	return b
}

func (f *fx) loop(cond ast.Expr, counter *ast.VarDecl, body *ast.BlockStmt) *ast.LoopStmt {
	s := &ast.LoopStmt{Cond: cond, Counter: counter, Body: body}
	f.reg(s)
	return s
}

func (f *fx) ifStmt(cond ast.Expr, then, els *ast.BlockStmt) *ast.IfStmt {
	s := &ast.IfStmt{Cond: cond, Then: then, Else: els}
	f.reg(s)
	return s
}

func (f *fx) fn(name string, body *ast.BlockStmt, params ...*ast.VarDecl) *ast.FunctionDecl {
	for _, p := range params {
		p.IsParam = true
	}
	fn := &ast.FunctionDecl{Name: name, Params: params, Body: body}
	f.reg(fn)
	f.prog.AddFunction(fn)
	return fn
}

func (f *fx) brk() *ast.BreakStmt {
	s := &ast.BreakStmt{}
	f.reg(s)
	return s
}

func (f *fx) param(name string) *ast.VarDecl {
	d := &ast.VarDecl{Name: name, Type: ast.TypeByte, IsParam: true}
	f.reg(d)
	return d
}
