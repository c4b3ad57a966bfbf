// Package symtab provides the scoped symbol table built by the resolver
// and consumed by every analysis tier. Scopes nest lexically: the global
// scope holds functions, each function opens a function scope for its
// parameters and top-level locals, and each block opens a block scope.
package symtab

import (
	"fmt"

	"github.com/taro-lang/taro/pkg/ast"
)

// SymbolKind classifies a declared name.
type SymbolKind string

const (
	SymbolVariable  SymbolKind = "variable"
	SymbolParameter SymbolKind = "parameter"
	SymbolFunction  SymbolKind = "function"
)

// Symbol is one declared name. The declaring node is the single writer
// of the symbol's metadata record; analyses address metadata through
// Decl.ID().
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Type     ast.TypeInfo
	Decl     ast.Node
	Exported bool

	// Usage counters populated by the usage analysis.
	ReadCount  int
	WriteCount int
	LoopDepth  int
	HotPath    bool

	scope *Scope
}

// Scope returns the scope the symbol was declared in.
func (s *Symbol) Scope() *Scope { return s.scope }

// Unused reports whether the symbol was never read and never written
// beyond its own initializer.
func (s *Symbol) Unused() bool {
	return s.ReadCount == 0 && s.WriteCount == 0
}

// WriteOnly reports whether the symbol is written but never read.
func (s *Symbol) WriteOnly() bool {
	return s.WriteCount > 0 && s.ReadCount == 0
}

// ScopeKind classifies a scope.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeFunction ScopeKind = "function"
	ScopeBlock    ScopeKind = "block"
)

// Scope is one lexical scope with its declared symbols in declaration
// order.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	children []*Scope
	symbols  map[string]*Symbol
	order    []*Symbol
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	s := &Scope{
		Kind:    kind,
		Parent:  parent,
		symbols: make(map[string]*Symbol),
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// Symbols returns the scope's symbols in declaration order.
func (s *Scope) Symbols() []*Symbol {
	return s.order
}

// Table is the scoped symbol table. Declarations always go into the
// current scope; lookups search outward through enclosing scopes.
type Table struct {
	global  *Scope
	current *Scope
}

// New creates a symbol table with an empty global scope.
func New() *Table {
	g := newScope(ScopeGlobal, nil)
	return &Table{global: g, current: g}
}

// Global returns the global scope.
func (t *Table) Global() *Scope { return t.global }

// Current returns the innermost open scope.
func (t *Table) Current() *Scope { return t.current }

// EnterFunctionScope opens a function scope under the current scope.
func (t *Table) EnterFunctionScope() *Scope {
	t.current = newScope(ScopeFunction, t.current)
	return t.current
}

// EnterBlockScope opens a block scope under the current scope.
func (t *Table) EnterBlockScope() *Scope {
	t.current = newScope(ScopeBlock, t.current)
	return t.current
}

// ExitScope closes the innermost scope. Exiting the global scope is a
// caller bug and returns an error.
func (t *Table) ExitScope() error {
	if t.current.Parent == nil {
		return fmt.Errorf("exiting global scope")
	}
	t.current = t.current.Parent
	return nil
}

func (t *Table) declare(name string, kind SymbolKind, typ ast.TypeInfo, decl ast.Node, exported bool) (*Symbol, error) {
	if _, exists := t.current.symbols[name]; exists {
		return nil, fmt.Errorf("%s %q already declared in this scope", kind, name)
	}
	sym := &Symbol{
		Name:     name,
		Kind:     kind,
		Type:     typ,
		Decl:     decl,
		Exported: exported,
		scope:    t.current,
	}
	t.current.symbols[name] = sym
	t.current.order = append(t.current.order, sym)
	return sym, nil
}

// DeclareVariable declares a variable in the current scope.
func (t *Table) DeclareVariable(name string, typ ast.TypeInfo, decl ast.Node) (*Symbol, error) {
	return t.declare(name, SymbolVariable, typ, decl, false)
}

// DeclareParameter declares a parameter in the current scope.
func (t *Table) DeclareParameter(name string, typ ast.TypeInfo, decl ast.Node) (*Symbol, error) {
	return t.declare(name, SymbolParameter, typ, decl, false)
}

// DeclareFunction declares a function in the current scope.
func (t *Table) DeclareFunction(name string, typ ast.TypeInfo, decl ast.Node, exported bool) (*Symbol, error) {
	return t.declare(name, SymbolFunction, typ, decl, exported)
}

// Lookup resolves a name, searching from the innermost scope outward.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for s := t.current; s != nil; s = s.Parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupIn resolves a name starting from a specific scope.
func (t *Table) LookupIn(scope *Scope, name string) (*Symbol, bool) {
	for s := scope; s != nil; s = s.Parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// AllSymbols returns every symbol in the table in declaration order,
// outermost scope first.
func (t *Table) AllSymbols() []*Symbol {
	var out []*Symbol
	var walk func(s *Scope)
	walk = func(s *Scope) {
		out = append(out, s.order...)
		for _, c := range s.children {
			walk(c)
		}
	}
	walk(t.global)
	return out
}

// SymbolsUnder returns every symbol declared in the scope or any scope
// nested within it, in declaration order.
func SymbolsUnder(scope *Scope) []*Symbol {
	var out []*Symbol
	var walk func(s *Scope)
	walk = func(s *Scope) {
		out = append(out, s.order...)
		for _, c := range s.children {
			walk(c)
		}
	}
	walk(scope)
	return out
}
