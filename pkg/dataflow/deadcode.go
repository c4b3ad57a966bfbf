// Package dataflow runs the data-flow analyses over control flow
// graphs: dead-code detection, backward liveness, and variable usage
// with definite-assignment checking.
package dataflow

import (
	"github.com/taro-lang/taro/pkg/cfg"
	"github.com/taro-lang/taro/pkg/diag"
)

// DeadKind classifies why a dead region is unreachable.
type DeadKind string

const (
	DeadAfterReturn   DeadKind = "after_return"
	DeadAfterBreak    DeadKind = "after_break"
	DeadAfterContinue DeadKind = "after_continue"
	DeadUnreachable   DeadKind = "unreachable"
)

// DeadRegion is one maximal connected group of unreachable nodes. The
// First node is the region's head in creation order; one diagnostic is
// emitted per region, on that node.
type DeadRegion struct {
	Kind  DeadKind
	First *cfg.Node
	Nodes []*cfg.Node
}

// AnalyzeDeadCode finds the maximal dead regions of a graph and emits
// one warning per region. ComputeReachability must have run; calling
// earlier returns an error.
func AnalyzeDeadCode(g *cfg.Graph, collector *diag.Collector) ([]DeadRegion, error) {
	dead, err := g.Unreachable()
	if err != nil {
		return nil, err
	}
	if len(dead) == 0 {
		return nil, nil
	}

	deadSet := make(map[string]*cfg.Node, len(dead))
	for _, n := range dead {
		deadSet[n.ID] = n
	}

	// Group connected dead nodes. Edges between two dead nodes join
	// their regions; reachable endpoints are ignored.
	parent := make(map[string]string, len(dead))
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}
	for _, n := range dead {
		parent[n.ID] = n.ID
	}
	for _, e := range g.Edges {
		if _, ok := deadSet[e.From]; !ok {
			continue
		}
		if _, ok := deadSet[e.To]; !ok {
			continue
		}
		union(e.From, e.To)
	}

	// dead is in creation order, so the first node seen per root is the
	// region head.
	regionByRoot := make(map[string]*DeadRegion)
	var regions []DeadRegion
	order := make([]string, 0, len(dead))
	for _, n := range dead {
		root := find(n.ID)
		r, ok := regionByRoot[root]
		if !ok {
			r = &DeadRegion{First: n, Kind: classify(n)}
			regionByRoot[root] = r
			order = append(order, root)
		}
		r.Nodes = append(r.Nodes, n)
	}
	for _, root := range order {
		regions = append(regions, *regionByRoot[root])
	}

	if collector != nil {
		for _, r := range regions {
			collector.Add(diag.Diagnostic{
				Severity: diag.SeverityWarning,
				Category: diag.CategoryDeadCode,
				Code:     "dead-code",
				Message:  deadMessage(r.Kind),
				Pos:      r.First.Pos,
			})
		}
	}
	return regions, nil
}

// classify maps a region head to its dead-code kind, in the priority
// order return > break > continue > generic.
func classify(head *cfg.Node) DeadKind {
	switch head.SeveredBy {
	case cfg.SeverReturn:
		return DeadAfterReturn
	case cfg.SeverBreak:
		return DeadAfterBreak
	case cfg.SeverContinue:
		return DeadAfterContinue
	}
	return DeadUnreachable
}

func deadMessage(kind DeadKind) string {
	switch kind {
	case DeadAfterReturn:
		return "unreachable code after return"
	case DeadAfterBreak:
		return "unreachable code after break"
	case DeadAfterContinue:
		return "unreachable code after continue"
	}
	return "unreachable code"
}
