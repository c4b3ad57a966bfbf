// Package cfg builds per-function control flow graphs from statement
// sequences and answers reachability queries over them. A graph owns its
// nodes and edges; predecessor and successor sets are derived views.
package cfg

import (
	"fmt"

	"github.com/taro-lang/taro/pkg/ast"
)

// NodeKind represents the kind of a CFG node.
type NodeKind string

const (
	NodeEntry      NodeKind = "entry"       // function entry point
	NodeExit       NodeKind = "exit"        // function exit point
	NodeStatement  NodeKind = "statement"   // straight-line statement
	NodeBranch     NodeKind = "branch"      // conditional branch
	NodeLoopHeader NodeKind = "loop_header" // loop header with back edge
	NodeReturn     NodeKind = "return"      // return statement
)

// SeverKind records what cut the control path leading to a node that was
// created while no live predecessor existed. It drives dead-code
// classification.
type SeverKind string

const (
	SeverNone     SeverKind = ""
	SeverReturn   SeverKind = "after_return"
	SeverBreak    SeverKind = "after_break"
	SeverContinue SeverKind = "after_continue"
)

// Node is one control point in the graph.
type Node struct {
	ID        string       `json:"id"`
	Kind      NodeKind     `json:"kind"`
	Stmt      ast.Stmt     `json:"-"`
	Pos       ast.Position `json:"pos"`
	Reachable bool         `json:"reachable"`

	// SeveredBy is set on the first node of a region that follows a
	// terminator; it names the terminator kind for dead-code reporting.
	SeveredBy SeverKind `json:"severed_by,omitempty"`
}

// Edge is an ordered pair of node identities.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the control flow graph for one function. It has exactly one
// entry and one exit node, created at construction. Edges may be added
// until ComputeReachability runs, which freezes the graph.
type Graph struct {
	FunctionName string           `json:"function_name"`
	Nodes        map[string]*Node `json:"nodes"`
	Edges        []Edge           `json:"edges"`
	EntryID      string           `json:"entry_id"`
	ExitID       string           `json:"exit_id"`

	// order holds node IDs in creation order so analyses iterate
	// deterministically.
	order     []string
	finalized bool
	reachDone bool
	nextID    int
}

// NewGraph creates a graph containing only the entry and exit nodes.
func NewGraph(functionName string) *Graph {
	g := &Graph{
		FunctionName: functionName,
		Nodes:        make(map[string]*Node),
	}
	entry := g.newNode(NodeEntry, nil, ast.Position{})
	exit := g.newNode(NodeExit, nil, ast.Position{})
	g.EntryID = entry.ID
	g.ExitID = exit.ID
	return g
}

func (g *Graph) newNode(kind NodeKind, stmt ast.Stmt, pos ast.Position) *Node {
	id := fmt.Sprintf("n%d", g.nextID)
	g.nextID++
	n := &Node{ID: id, Kind: kind, Stmt: stmt, Pos: pos}
	g.Nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// CreateNode adds a node of the given kind. A node that is never wired
// into an edge stays permanently unreachable; that is the intended
// representation of dead code, not an error.
func (g *Graph) CreateNode(kind NodeKind, stmt ast.Stmt) (*Node, error) {
	if g.finalized {
		return nil, fmt.Errorf("cfg %s: node created after finalize", g.FunctionName)
	}
	var pos ast.Position
	if stmt != nil {
		pos = stmt.Pos()
	}
	return g.newNode(kind, stmt, pos), nil
}

// AddEdge wires a directed edge between two existing nodes.
func (g *Graph) AddEdge(from, to string) error {
	if g.reachDone {
		return fmt.Errorf("cfg %s: edge added after reachability was computed", g.FunctionName)
	}
	if _, ok := g.Nodes[from]; !ok {
		return fmt.Errorf("cfg %s: unknown edge source %s", g.FunctionName, from)
	}
	if _, ok := g.Nodes[to]; !ok {
		return fmt.Errorf("cfg %s: unknown edge target %s", g.FunctionName, to)
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	return nil
}

// Finalize seals the graph: no further nodes may be created.
func (g *Graph) Finalize() {
	g.finalized = true
}

// Finalized reports whether the graph has been sealed.
func (g *Graph) Finalized() bool { return g.finalized }

// ComputeReachability marks every node reachable from the entry node by
// breadth-first search and freezes the edge set. It must run before any
// dead-code query; querying earlier is a caller bug.
func (g *Graph) ComputeReachability() error {
	if !g.finalized {
		return fmt.Errorf("cfg %s: ComputeReachability before Finalize", g.FunctionName)
	}
	succs := g.successorMap()

	queue := []string{g.EntryID}
	g.Nodes[g.EntryID].Reachable = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range succs[id] {
			n := g.Nodes[next]
			if !n.Reachable {
				n.Reachable = true
				queue = append(queue, next)
			}
		}
	}
	g.reachDone = true
	return nil
}

// ReachabilityComputed reports whether ComputeReachability has run.
func (g *Graph) ReachabilityComputed() bool { return g.reachDone }

// Unreachable returns the non-entry nodes not reachable from entry, in
// creation order. It is an error to call it before ComputeReachability.
func (g *Graph) Unreachable() ([]*Node, error) {
	if !g.reachDone {
		return nil, fmt.Errorf("cfg %s: dead-code query before ComputeReachability", g.FunctionName)
	}
	var out []*Node
	for _, id := range g.order {
		n := g.Nodes[id]
		if n.Kind != NodeEntry && !n.Reachable {
			out = append(out, n)
		}
	}
	return out, nil
}

// NodesInOrder returns all nodes in creation order.
func (g *Graph) NodesInOrder() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// Successors returns the IDs of the nodes directly reachable from id.
func (g *Graph) Successors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// Predecessors returns the IDs of the nodes with an edge into id.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}

func (g *Graph) successorMap() map[string][]string {
	succs := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		succs[e.From] = append(succs[e.From], e.To)
	}
	return succs
}

func (g *Graph) predecessorMap() map[string][]string {
	preds := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		preds[e.To] = append(preds[e.To], e.From)
	}
	return preds
}

// CyclomaticComplexity returns E - N + 2 over the graph.
func (g *Graph) CyclomaticComplexity() int {
	return len(g.Edges) - len(g.Nodes) + 2
}
