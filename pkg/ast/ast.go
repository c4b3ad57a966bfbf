// Package ast defines the abstract syntax tree consumed by the analysis
// and optimization core. The tree itself is produced by the parser, which
// lives outside this repository; this package only fixes the shape the
// analyses rely on: node kinds, statement and expression forms, stable
// node identities, and a typed per-node metadata side table.
package ast

// NodeID is a stable identity for one AST node. IDs are assigned by the
// Program that owns the tree and never change after construction, so they
// can be used as keys into side tables.
type NodeID int

// NoNode is the zero NodeID, used where a node reference is optional.
const NoNode NodeID = 0

// NodeKind identifies the concrete form of a node.
type NodeKind string

const (
	KindProgram      NodeKind = "program"
	KindFunctionDecl NodeKind = "function_decl"
	KindVarDecl      NodeKind = "var_decl"
	KindAssign       NodeKind = "assign"
	KindIf           NodeKind = "if"
	KindLoop         NodeKind = "loop"
	KindReturn       NodeKind = "return"
	KindBreak        NodeKind = "break"
	KindContinue     NodeKind = "continue"
	KindExprStmt     NodeKind = "expr_stmt"
	KindBlock        NodeKind = "block"
	KindLiteral      NodeKind = "literal"
	KindIdent        NodeKind = "ident"
	KindBinary       NodeKind = "binary"
	KindUnary        NodeKind = "unary"
	KindCall         NodeKind = "call"
	KindIndex        NodeKind = "index"
	KindField        NodeKind = "field"
)

// Position is a source location carried by every node.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Node is the interface implemented by every AST node.
type Node interface {
	ID() NodeID
	Kind() NodeKind
	Pos() Position
}

// Stmt is implemented by statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by expression nodes.
type Expr interface {
	Node
	exprNode()
}

// base carries the fields shared by every node.
type base struct {
	NodeID   NodeID   `json:"id"`
	Position Position `json:"pos"`
}

func (b *base) ID() NodeID    { return b.NodeID }
func (b *base) Pos() Position { return b.Position }

func (b *base) setPos(pos Position) { b.Position = pos }

type positioned interface {
	setPos(Position)
}

// SetPos records a node's source position. Builders that construct
// trees outside this package use it after Register.
func SetPos(n Node, pos Position) {
	if p, ok := n.(positioned); ok {
		p.setPos(pos)
	}
}

// Program is the root of a whole-program tree. It owns node identity
// assignment and the metadata side table for every node below it.
type Program struct {
	base
	Functions []*FunctionDecl

	nextID NodeID
	meta   *MetaTable
}

// NewProgram creates an empty program. Nodes must be registered through
// Register so they receive a stable identity.
func NewProgram() *Program {
	p := &Program{
		nextID: 1,
		meta:   NewMetaTable(),
	}
	p.base.NodeID = p.allocID()
	return p
}

func (p *Program) Kind() NodeKind { return KindProgram }

// Meta returns the program's metadata side table.
func (p *Program) Meta() *MetaTable { return p.meta }

func (p *Program) allocID() NodeID {
	id := p.nextID
	p.nextID++
	return id
}

// Register assigns a fresh identity to a node. Every node in the tree
// must be registered exactly once, before any analysis runs.
func (p *Program) Register(n Node) NodeID {
	id := p.allocID()
	switch v := n.(type) {
	case *FunctionDecl:
		v.base.NodeID = id
	case *VarDecl:
		v.base.NodeID = id
	case *AssignStmt:
		v.base.NodeID = id
	case *IfStmt:
		v.base.NodeID = id
	case *LoopStmt:
		v.base.NodeID = id
	case *ReturnStmt:
		v.base.NodeID = id
	case *BreakStmt:
		v.base.NodeID = id
	case *ContinueStmt:
		v.base.NodeID = id
	case *ExprStmt:
		v.base.NodeID = id
	case *BlockStmt:
		v.base.NodeID = id
	case *LiteralExpr:
		v.base.NodeID = id
	case *IdentExpr:
		v.base.NodeID = id
	case *BinaryExpr:
		v.base.NodeID = id
	case *UnaryExpr:
		v.base.NodeID = id
	case *CallExpr:
		v.base.NodeID = id
	case *IndexExpr:
		v.base.NodeID = id
	case *FieldExpr:
		v.base.NodeID = id
	}
	return id
}

// AddFunction appends a function declaration to the program.
func (p *Program) AddFunction(fn *FunctionDecl) {
	p.Functions = append(p.Functions, fn)
}

// Function looks up a function declaration by name.
func (p *Program) Function(name string) *FunctionDecl {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// FunctionDecl is a function declaration with an ordered statement body.
// A declaration without a body (Body == nil) is a stub, e.g. a forward
// declaration for a routine implemented in assembly.
type FunctionDecl struct {
	base
	Name     string
	Params   []*VarDecl
	Body     *BlockStmt
	Exported bool
}

func (*FunctionDecl) Kind() NodeKind { return KindFunctionDecl }
func (*FunctionDecl) stmtNode()      {}

// VarDecl declares a variable or parameter, optionally with an
// initializer and an explicit fixed address ("@ $00F0" in source).
type VarDecl struct {
	base
	Name        string
	Type        TypeInfo
	Init        Expr
	IsParam     bool
	IsLoopVar   bool
	HasAddress  bool
	Address     uint16
	AddressSpan int // bytes occupied starting at Address; 0 means SizeOf(Type)
}

func (*VarDecl) Kind() NodeKind { return KindVarDecl }
func (*VarDecl) stmtNode()      {}

// AssignStmt writes the value of an expression into a target. The target
// is an identifier, index, or field expression.
type AssignStmt struct {
	base
	Target Expr
	Value  Expr
}

func (*AssignStmt) Kind() NodeKind { return KindAssign }
func (*AssignStmt) stmtNode()      {}

// IfStmt is a two-way branch; Else may be nil.
type IfStmt struct {
	base
	Cond Expr
	Then *BlockStmt
	Else *BlockStmt
}

func (*IfStmt) Kind() NodeKind { return KindIf }
func (*IfStmt) stmtNode()      {}

// LoopStmt is the single loop form. Cond may be nil for an infinite
// loop; Counter names the induction variable declaration when the loop
// was written as a counted for-loop.
type LoopStmt struct {
	base
	Cond    Expr
	Body    *BlockStmt
	Counter *VarDecl
}

func (*LoopStmt) Kind() NodeKind { return KindLoop }
func (*LoopStmt) stmtNode()      {}

// ReturnStmt returns from the enclosing function; Value may be nil.
type ReturnStmt struct {
	base
	Value Expr
}

func (*ReturnStmt) Kind() NodeKind { return KindReturn }
func (*ReturnStmt) stmtNode()      {}

// BreakStmt exits the innermost loop.
type BreakStmt struct{ base }

func (*BreakStmt) Kind() NodeKind { return KindBreak }
func (*BreakStmt) stmtNode()      {}

// ContinueStmt jumps to the next iteration of the innermost loop.
type ContinueStmt struct{ base }

func (*ContinueStmt) Kind() NodeKind { return KindContinue }
func (*ContinueStmt) stmtNode()      {}

// ExprStmt evaluates an expression for its side effects, typically a call.
type ExprStmt struct {
	base
	X Expr
}

func (*ExprStmt) Kind() NodeKind { return KindExprStmt }
func (*ExprStmt) stmtNode()      {}

// BlockStmt is an ordered statement sequence.
type BlockStmt struct {
	base
	Stmts []Stmt
}

func (*BlockStmt) Kind() NodeKind { return KindBlock }
func (*BlockStmt) stmtNode()      {}

// LiteralExpr is an integer or boolean constant.
type LiteralExpr struct {
	base
	Value int64
}

func (*LiteralExpr) Kind() NodeKind { return KindLiteral }
func (*LiteralExpr) exprNode()      {}

// IdentExpr reads a named variable or parameter.
type IdentExpr struct {
	base
	Name string
}

func (*IdentExpr) Kind() NodeKind { return KindIdent }
func (*IdentExpr) exprNode()      {}

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpAnd BinaryOp = "&"
	OpOr  BinaryOp = "|"
	OpXor BinaryOp = "^"
	OpShl BinaryOp = "<<"
	OpShr BinaryOp = ">>"
)

// Commutative reports whether operand order is irrelevant for the
// operator. Equality is commutative; inequality comparisons are not.
func (op BinaryOp) Commutative() bool {
	switch op {
	case OpAdd, OpMul, OpEq, OpAnd, OpOr, OpXor:
		return true
	}
	return false
}

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) Kind() NodeKind { return KindBinary }
func (*BinaryExpr) exprNode()      {}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
	OpInv UnaryOp = "~"
)

// UnaryExpr applies a unary operator to one operand.
type UnaryExpr struct {
	base
	Op UnaryOp
	X  Expr
}

func (*UnaryExpr) Kind() NodeKind { return KindUnary }
func (*UnaryExpr) exprNode()      {}

// CallExpr calls a function. Indirect is set when the callee is not a
// simple name (a call through a function pointer); such calls contribute
// no precise call-graph edge.
type CallExpr struct {
	base
	Callee   string
	Args     []Expr
	Indirect bool
}

func (*CallExpr) Kind() NodeKind { return KindCall }
func (*CallExpr) exprNode()      {}

// IndexExpr reads or writes an array element.
type IndexExpr struct {
	base
	Base  string
	Index Expr
}

func (*IndexExpr) Kind() NodeKind { return KindIndex }
func (*IndexExpr) exprNode()      {}

// FieldExpr reads or writes a record field.
type FieldExpr struct {
	base
	Base  string
	Field string
}

func (*FieldExpr) Kind() NodeKind { return KindField }
func (*FieldExpr) exprNode()      {}

// TypeInfo is the declared type of a symbol as far as the analyses need
// it: a name and a byte size on the target.
type TypeInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Predeclared types of the language.
var (
	TypeByte = TypeInfo{Name: "byte", Size: 1}
	TypeWord = TypeInfo{Name: "word", Size: 2}
	TypeBool = TypeInfo{Name: "bool", Size: 1}
	TypeVoid = TypeInfo{Name: "void", Size: 0}
)
