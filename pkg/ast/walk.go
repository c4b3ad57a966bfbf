package ast

// WalkControl tells Walk how to proceed after visiting a node.
type WalkControl int

const (
	// WalkContinue descends into the node's children.
	WalkContinue WalkControl = iota
	// WalkSkipChildren visits the node's siblings but not its children.
	WalkSkipChildren
	// WalkStop abandons the traversal entirely.
	WalkStop
)

// Visitor is called once per node in source order.
type Visitor func(n Node) WalkControl

// Walk traverses the tree rooted at n in depth-first source order,
// calling fn for every node. It returns false if the traversal was
// stopped early by WalkStop.
func Walk(n Node, fn Visitor) bool {
	if n == nil {
		return true
	}
	switch fn(n) {
	case WalkStop:
		return false
	case WalkSkipChildren:
		return true
	}
	for _, child := range children(n) {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// children returns the direct child nodes of n in source order.
func children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		switch v := c.(type) {
		case nil:
		case *BlockStmt:
			if v != nil {
				out = append(out, v)
			}
		case *VarDecl:
			if v != nil {
				out = append(out, v)
			}
		case *FunctionDecl:
			if v != nil {
				out = append(out, v)
			}
		default:
			out = append(out, c)
		}
	}
	switch v := n.(type) {
	case *Program:
		for _, fn := range v.Functions {
			add(fn)
		}
	case *FunctionDecl:
		for _, p := range v.Params {
			add(p)
		}
		add(v.Body)
	case *VarDecl:
		if v.Init != nil {
			add(v.Init)
		}
	case *AssignStmt:
		add(v.Target)
		add(v.Value)
	case *IfStmt:
		add(v.Cond)
		add(v.Then)
		add(v.Else)
	case *LoopStmt:
		if v.Counter != nil {
			add(v.Counter)
		}
		if v.Cond != nil {
			add(v.Cond)
		}
		add(v.Body)
	case *ReturnStmt:
		if v.Value != nil {
			add(v.Value)
		}
	case *ExprStmt:
		add(v.X)
	case *BlockStmt:
		for _, s := range v.Stmts {
			add(s)
		}
	case *BinaryExpr:
		add(v.Left)
		add(v.Right)
	case *UnaryExpr:
		add(v.X)
	case *CallExpr:
		for _, a := range v.Args {
			add(a)
		}
	case *IndexExpr:
		add(v.Index)
	}
	return out
}
