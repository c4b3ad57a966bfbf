package cfg

import (
	"fmt"

	"github.com/taro-lang/taro/pkg/ast"
)

// Builder lowers one function body into a Graph. It tracks the current
// live control point and wires edges as statements arrive; after a
// terminator (return, break, continue) the live point is cut, and the
// next statement starts an unwired region that reachability will later
// report as dead code.
type Builder struct {
	graph   *Graph
	current *Node

	// severed names the terminator that cut the live point; it is
	// stamped on the first node created while the path is cut.
	severed SeverKind

	loops    []*loopFrame
	branches []*branchFrame
}

type loopFrame struct {
	header *Node
	exit   *Node
}

type branchFrame struct {
	branch *Node
	// thenEnd is the live node at the end of the then-arm, nil if that
	// arm terminated. thenSevered remembers how.
	thenEnd     *Node
	thenSevered SeverKind
	inElse      bool
}

// NewBuilder creates a builder with a fresh graph for the function.
func NewBuilder(functionName string) *Builder {
	g := NewGraph(functionName)
	return &Builder{
		graph:   g,
		current: g.Nodes[g.EntryID],
	}
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *Graph { return b.graph }

// append creates a node of the given kind and wires it from the current
// live point. If the path is severed the node starts a new, unwired
// region carrying the sever kind, and becomes the new current so that
// following statements chain onto it.
func (b *Builder) append(kind NodeKind, stmt ast.Stmt) (*Node, error) {
	n, err := b.graph.CreateNode(kind, stmt)
	if err != nil {
		return nil, err
	}
	if b.current != nil {
		if err := b.graph.AddEdge(b.current.ID, n.ID); err != nil {
			return nil, err
		}
	} else {
		n.SeveredBy = b.severed
		b.severed = SeverNone
	}
	b.current = n
	return n, nil
}

// Statement adds a straight-line statement node.
func (b *Builder) Statement(stmt ast.Stmt) (*Node, error) {
	return b.append(NodeStatement, stmt)
}

// Return adds a return node, wires it to the exit node, and cuts the
// live point.
func (b *Builder) Return(stmt ast.Stmt) (*Node, error) {
	n, err := b.append(NodeReturn, stmt)
	if err != nil {
		return nil, err
	}
	if err := b.graph.AddEdge(n.ID, b.graph.ExitID); err != nil {
		return nil, err
	}
	b.sever(SeverReturn)
	return n, nil
}

// Break wires the live point to the innermost loop's exit and cuts it.
func (b *Builder) Break(stmt ast.Stmt) (*Node, error) {
	if len(b.loops) == 0 {
		return nil, fmt.Errorf("cfg %s: break outside loop", b.graph.FunctionName)
	}
	n, err := b.append(NodeStatement, stmt)
	if err != nil {
		return nil, err
	}
	frame := b.loops[len(b.loops)-1]
	if err := b.graph.AddEdge(n.ID, frame.exit.ID); err != nil {
		return nil, err
	}
	b.sever(SeverBreak)
	return n, nil
}

// Continue wires the live point back to the innermost loop header and
// cuts it.
func (b *Builder) Continue(stmt ast.Stmt) (*Node, error) {
	if len(b.loops) == 0 {
		return nil, fmt.Errorf("cfg %s: continue outside loop", b.graph.FunctionName)
	}
	n, err := b.append(NodeStatement, stmt)
	if err != nil {
		return nil, err
	}
	frame := b.loops[len(b.loops)-1]
	if err := b.graph.AddEdge(n.ID, frame.header.ID); err != nil {
		return nil, err
	}
	b.sever(SeverContinue)
	return n, nil
}

func (b *Builder) sever(kind SeverKind) {
	b.current = nil
	b.severed = kind
}

// StartLoop opens a loop: it appends the loop header, creates the loop
// exit node, and returns both. The condition's false edge
// (header -> exit) is wired immediately; the back edge is wired by
// EndLoop.
func (b *Builder) StartLoop(stmt ast.Stmt) (header, exit *Node, err error) {
	header, err = b.append(NodeLoopHeader, stmt)
	if err != nil {
		return nil, nil, err
	}
	exit, err = b.graph.CreateNode(NodeStatement, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := b.graph.AddEdge(header.ID, exit.ID); err != nil {
		return nil, nil, err
	}
	b.loops = append(b.loops, &loopFrame{header: header, exit: exit})
	return header, exit, nil
}

// EndLoop closes the innermost loop: it wires the back edge from the
// live point to the header and resumes at the loop exit node.
func (b *Builder) EndLoop() error {
	if len(b.loops) == 0 {
		return fmt.Errorf("cfg %s: EndLoop without StartLoop", b.graph.FunctionName)
	}
	frame := b.loops[len(b.loops)-1]
	b.loops = b.loops[:len(b.loops)-1]

	if b.current != nil {
		if err := b.graph.AddEdge(b.current.ID, frame.header.ID); err != nil {
			return err
		}
	}
	b.current = frame.exit
	b.severed = SeverNone
	return nil
}

// StartBranch opens a two-way branch on the condition statement and
// enters the then-arm.
func (b *Builder) StartBranch(stmt ast.Stmt) (*Node, error) {
	n, err := b.append(NodeBranch, stmt)
	if err != nil {
		return nil, err
	}
	b.branches = append(b.branches, &branchFrame{branch: n})
	return n, nil
}

// StartAlternate ends the then-arm and enters the else-arm.
func (b *Builder) StartAlternate() error {
	if len(b.branches) == 0 {
		return fmt.Errorf("cfg %s: StartAlternate without StartBranch", b.graph.FunctionName)
	}
	frame := b.branches[len(b.branches)-1]
	if frame.inElse {
		return fmt.Errorf("cfg %s: StartAlternate called twice", b.graph.FunctionName)
	}
	frame.thenEnd = b.current
	frame.thenSevered = b.severed
	frame.inElse = true
	b.current = frame.branch
	b.severed = SeverNone
	return nil
}

// MergeBranches closes the innermost branch, wiring the diamond. When
// both arms terminated there is no live merge point and the path stays
// cut; the next statement starts a dead region.
func (b *Builder) MergeBranches() (*Node, error) {
	if len(b.branches) == 0 {
		return nil, fmt.Errorf("cfg %s: MergeBranches without StartBranch", b.graph.FunctionName)
	}
	frame := b.branches[len(b.branches)-1]
	b.branches = b.branches[:len(b.branches)-1]

	elseEnd := b.current
	elseSevered := b.severed
	thenEnd := frame.thenEnd
	if !frame.inElse {
		// No else-arm: control falls through from the branch node.
		thenEnd = b.current
		frame.thenSevered = b.severed
		elseEnd = frame.branch
		elseSevered = SeverNone
	}

	if thenEnd == nil && elseEnd == nil {
		// Both arms terminated; priority order keeps the then-arm's
		// terminator kind for anything that follows.
		severed := frame.thenSevered
		if severed == SeverNone {
			severed = elseSevered
		}
		b.sever(severed)
		return nil, nil
	}

	merge, err := b.graph.CreateNode(NodeStatement, nil)
	if err != nil {
		return nil, err
	}
	if thenEnd != nil {
		if err := b.graph.AddEdge(thenEnd.ID, merge.ID); err != nil {
			return nil, err
		}
	}
	if elseEnd != nil {
		if err := b.graph.AddEdge(elseEnd.ID, merge.ID); err != nil {
			return nil, err
		}
	}
	b.current = merge
	b.severed = SeverNone
	return merge, nil
}

// Finalize wires the live point to the exit node, seals the graph, and
// returns it.
func (b *Builder) Finalize() (*Graph, error) {
	if len(b.loops) > 0 {
		return nil, fmt.Errorf("cfg %s: finalize with %d open loop(s)", b.graph.FunctionName, len(b.loops))
	}
	if len(b.branches) > 0 {
		return nil, fmt.Errorf("cfg %s: finalize with %d open branch(es)", b.graph.FunctionName, len(b.branches))
	}
	if b.current != nil && b.current.ID != b.graph.ExitID {
		if err := b.graph.AddEdge(b.current.ID, b.graph.ExitID); err != nil {
			return nil, err
		}
	}
	b.graph.Finalize()
	return b.graph, nil
}

// BuildFunction lowers a function declaration into a finalized graph
// with reachability computed. A nil body produces the minimal
// entry -> exit graph.
func BuildFunction(fn *ast.FunctionDecl) (*Graph, error) {
	b := NewBuilder(fn.Name)
	if fn.Body != nil {
		if err := b.lowerBlock(fn.Body); err != nil {
			return nil, err
		}
	}
	g, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	if err := g.ComputeReachability(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *Builder) lowerBlock(block *ast.BlockStmt) error {
	for _, stmt := range block.Stmts {
		if err := b.lowerStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		_, err := b.Return(s)
		return err
	case *ast.BreakStmt:
		_, err := b.Break(s)
		return err
	case *ast.ContinueStmt:
		_, err := b.Continue(s)
		return err
	case *ast.IfStmt:
		if _, err := b.StartBranch(s); err != nil {
			return err
		}
		if err := b.lowerBlock(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			if err := b.StartAlternate(); err != nil {
				return err
			}
			if err := b.lowerBlock(s.Else); err != nil {
				return err
			}
		}
		_, err := b.MergeBranches()
		return err
	case *ast.LoopStmt:
		if _, _, err := b.StartLoop(s); err != nil {
			return err
		}
		if err := b.lowerBlock(s.Body); err != nil {
			return err
		}
		return b.EndLoop()
	case *ast.BlockStmt:
		return b.lowerBlock(s)
	default:
		_, err := b.Statement(stmt)
		return err
	}
}
