// Package loader deserializes YAML program descriptions into AST and
// IR values. The compiler front end is a separate component; the
// loader gives the CLI a complete input path without it.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/ir"
)

// programDoc is the YAML shape of a program description.
type programDoc struct {
	Functions []functionDoc `yaml:"functions"`
}

type functionDoc struct {
	Name     string     `yaml:"name"`
	Exported bool       `yaml:"exported"`
	Params   []paramDoc `yaml:"params"`
	Body     []stmtDoc  `yaml:"body"`
}

type paramDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// stmtDoc is a tagged statement node. Kind selects which fields apply.
type stmtDoc struct {
	Kind    string    `yaml:"kind"`
	Line    int       `yaml:"line"`
	Col     int       `yaml:"col"`
	Name    string    `yaml:"name"`    // var
	Type    string    `yaml:"type"`    // var
	Init    *exprDoc  `yaml:"init"`    // var
	Addr    *addrDoc  `yaml:"addr"`    // var
	Target  *exprDoc  `yaml:"target"`  // assign
	Value   *exprDoc  `yaml:"value"`   // assign, return
	Cond    *exprDoc  `yaml:"cond"`    // if, loop
	Then    []stmtDoc `yaml:"then"`    // if
	Else    []stmtDoc `yaml:"else"`    // if
	Counter *stmtDoc  `yaml:"counter"` // loop
	Body    []stmtDoc `yaml:"body"`    // loop
	Expr    *exprDoc  `yaml:"expr"`    // expr
}

type addrDoc struct {
	At   uint16 `yaml:"at"`
	Span int    `yaml:"span"`
}

// exprDoc is a tagged expression node.
type exprDoc struct {
	Kind     string    `yaml:"kind"`
	Line     int       `yaml:"line"`
	Col      int       `yaml:"col"`
	Value    int64     `yaml:"value"`    // literal
	Name     string    `yaml:"name"`     // ident
	Op       string    `yaml:"op"`       // binary, unary
	Left     *exprDoc  `yaml:"left"`     // binary
	Right    *exprDoc  `yaml:"right"`    // binary
	X        *exprDoc  `yaml:"x"`        // unary
	Callee   string    `yaml:"callee"`   // call
	Indirect bool      `yaml:"indirect"` // call
	Args     []exprDoc `yaml:"args"`     // call
	Base     string    `yaml:"base"`     // index, field
	Index    *exprDoc  `yaml:"index"`    // index
	Field    string    `yaml:"field"`    // field
}

// LoadProgram reads a YAML program description into an AST program.
// Every node in the result is registered with the program.
func LoadProgram(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file %s: %w", path, err)
	}
	return ParseProgram(data)
}

// ParseProgram builds an AST program from YAML bytes.
func ParseProgram(data []byte) (*ast.Program, error) {
	var doc programDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse program description: %w", err)
	}
	if len(doc.Functions) == 0 {
		return nil, fmt.Errorf("program description declares no functions")
	}

	b := &builder{prog: ast.NewProgram()}
	for _, fd := range doc.Functions {
		fn, err := b.function(fd)
		if err != nil {
			return nil, err
		}
		b.prog.AddFunction(fn)
	}
	return b.prog, nil
}

type builder struct {
	prog *ast.Program
}

func (b *builder) function(fd functionDoc) (*ast.FunctionDecl, error) {
	if fd.Name == "" {
		return nil, fmt.Errorf("function missing name")
	}
	fn := &ast.FunctionDecl{Name: fd.Name, Exported: fd.Exported}
	b.prog.Register(fn)

	for _, pd := range fd.Params {
		typ, err := typeByName(pd.Type)
		if err != nil {
			return nil, fmt.Errorf("function %s: param %s: %w", fd.Name, pd.Name, err)
		}
		param := &ast.VarDecl{Name: pd.Name, Type: typ, IsParam: true}
		b.prog.Register(param)
		fn.Params = append(fn.Params, param)
	}

	if fd.Body != nil {
		body, err := b.block(fd.Body)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fd.Name, err)
		}
		fn.Body = body
	}
	return fn, nil
}

func (b *builder) block(docs []stmtDoc) (*ast.BlockStmt, error) {
	block := &ast.BlockStmt{}
	b.prog.Register(block)
	for i := range docs {
		stmt, err := b.stmt(&docs[i])
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	return block, nil
}

func (b *builder) stmt(d *stmtDoc) (ast.Stmt, error) {
	pos := ast.Position{Line: d.Line, Column: d.Col}
	switch d.Kind {
	case "var":
		typ, err := typeByName(d.Type)
		if err != nil {
			return nil, fmt.Errorf("var %s: %w", d.Name, err)
		}
		v := &ast.VarDecl{Name: d.Name, Type: typ}
		if d.Addr != nil {
			v.HasAddress = true
			v.Address = d.Addr.At
			v.AddressSpan = d.Addr.Span
		}
		if d.Init != nil {
			init, err := b.expr(d.Init)
			if err != nil {
				return nil, err
			}
			v.Init = init
		}
		return b.register(v, pos), nil
	case "assign":
		if d.Target == nil || d.Value == nil {
			return nil, fmt.Errorf("assign requires target and value")
		}
		target, err := b.expr(d.Target)
		if err != nil {
			return nil, err
		}
		value, err := b.expr(d.Value)
		if err != nil {
			return nil, err
		}
		return b.register(&ast.AssignStmt{Target: target, Value: value}, pos), nil
	case "if":
		if d.Cond == nil {
			return nil, fmt.Errorf("if requires cond")
		}
		cond, err := b.expr(d.Cond)
		if err != nil {
			return nil, err
		}
		then, err := b.block(d.Then)
		if err != nil {
			return nil, err
		}
		s := &ast.IfStmt{Cond: cond, Then: then}
		if d.Else != nil {
			alt, err := b.block(d.Else)
			if err != nil {
				return nil, err
			}
			s.Else = alt
		}
		return b.register(s, pos), nil
	case "loop":
		s := &ast.LoopStmt{}
		if d.Cond != nil {
			cond, err := b.expr(d.Cond)
			if err != nil {
				return nil, err
			}
			s.Cond = cond
		}
		if d.Counter != nil {
			counter, err := b.stmt(d.Counter)
			if err != nil {
				return nil, err
			}
			decl, ok := counter.(*ast.VarDecl)
			if !ok {
				return nil, fmt.Errorf("loop counter must be a var statement")
			}
			decl.IsLoopVar = true
			s.Counter = decl
		}
		body, err := b.block(d.Body)
		if err != nil {
			return nil, err
		}
		s.Body = body
		return b.register(s, pos), nil
	case "return":
		s := &ast.ReturnStmt{}
		if d.Value != nil {
			value, err := b.expr(d.Value)
			if err != nil {
				return nil, err
			}
			s.Value = value
		}
		return b.register(s, pos), nil
	case "break":
		return b.register(&ast.BreakStmt{}, pos), nil
	case "continue":
		return b.register(&ast.ContinueStmt{}, pos), nil
	case "expr":
		if d.Expr == nil {
			return nil, fmt.Errorf("expr statement requires expr")
		}
		e, err := b.expr(d.Expr)
		if err != nil {
			return nil, err
		}
		return b.register(&ast.ExprStmt{X: e}, pos), nil
	default:
		return nil, fmt.Errorf("unknown statement kind %q", d.Kind)
	}
}

func (b *builder) expr(d *exprDoc) (ast.Expr, error) {
	pos := ast.Position{Line: d.Line, Column: d.Col}
	switch d.Kind {
	case "literal":
		return b.registerExpr(&ast.LiteralExpr{Value: d.Value}, pos), nil
	case "ident":
		if d.Name == "" {
			return nil, fmt.Errorf("ident requires name")
		}
		return b.registerExpr(&ast.IdentExpr{Name: d.Name}, pos), nil
	case "binary":
		if d.Left == nil || d.Right == nil {
			return nil, fmt.Errorf("binary %q requires left and right", d.Op)
		}
		left, err := b.expr(d.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.expr(d.Right)
		if err != nil {
			return nil, err
		}
		e := &ast.BinaryExpr{Op: ast.BinaryOp(d.Op), Left: left, Right: right}
		return b.registerExpr(e, pos), nil
	case "unary":
		if d.X == nil {
			return nil, fmt.Errorf("unary %q requires x", d.Op)
		}
		x, err := b.expr(d.X)
		if err != nil {
			return nil, err
		}
		return b.registerExpr(&ast.UnaryExpr{Op: ast.UnaryOp(d.Op), X: x}, pos), nil
	case "call":
		e := &ast.CallExpr{Callee: d.Callee, Indirect: d.Indirect}
		for i := range d.Args {
			arg, err := b.expr(&d.Args[i])
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
		}
		return b.registerExpr(e, pos), nil
	case "index":
		if d.Base == "" || d.Index == nil {
			return nil, fmt.Errorf("index requires base and index")
		}
		index, err := b.expr(d.Index)
		if err != nil {
			return nil, err
		}
		return b.registerExpr(&ast.IndexExpr{Base: d.Base, Index: index}, pos), nil
	case "field":
		if d.Base == "" || d.Field == "" {
			return nil, fmt.Errorf("field requires base and field")
		}
		return b.registerExpr(&ast.FieldExpr{Base: d.Base, Field: d.Field}, pos), nil
	default:
		return nil, fmt.Errorf("unknown expression kind %q", d.Kind)
	}
}

func (b *builder) register(s ast.Stmt, pos ast.Position) ast.Stmt {
	b.prog.Register(s)
	ast.SetPos(s, pos)
	return s
}

func (b *builder) registerExpr(e ast.Expr, pos ast.Position) ast.Expr {
	b.prog.Register(e)
	ast.SetPos(e, pos)
	return e
}

func typeByName(name string) (ast.TypeInfo, error) {
	switch name {
	case "byte", "":
		return ast.TypeByte, nil
	case "word":
		return ast.TypeWord, nil
	case "bool":
		return ast.TypeBool, nil
	case "void":
		return ast.TypeVoid, nil
	default:
		return ast.TypeInfo{}, fmt.Errorf("unknown type %q", name)
	}
}

// sequenceDoc is the YAML shape of an IR instruction listing.
type sequenceDoc struct {
	Functions []struct {
		Name         string `yaml:"name"`
		Instructions []struct {
			Label   string `yaml:"label"`
			Op      string `yaml:"op"`
			Operand string `yaml:"operand"`
			Mode    string `yaml:"mode"`
			Cycles  int    `yaml:"cycles"`
			Size    int    `yaml:"size"`
		} `yaml:"instructions"`
	} `yaml:"functions"`
}

// LoadSequences reads a YAML instruction listing into IR sequences
// keyed by function name.
func LoadSequences(path string) (map[string]*ir.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ir file %s: %w", path, err)
	}

	var doc sequenceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ir listing: %w", err)
	}

	out := make(map[string]*ir.Sequence, len(doc.Functions))
	for _, fd := range doc.Functions {
		if fd.Name == "" {
			return nil, fmt.Errorf("ir listing: function missing name")
		}
		seq := ir.NewSequence(fd.Name)
		for _, id := range fd.Instructions {
			mode := ir.AddrMode(id.Mode)
			if id.Mode == "" {
				mode = ir.ModeImplied
			}
			seq.Instructions = append(seq.Instructions, ir.Instruction{
				Label:   id.Label,
				Op:      ir.Opcode(id.Op),
				Operand: id.Operand,
				Mode:    mode,
				Cycles:  id.Cycles,
				Size:    id.Size,
			})
		}
		out[fd.Name] = seq
	}
	return out, nil
}
