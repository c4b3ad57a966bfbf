// Package zeropage derives target-aware allocation hints for declared
// variables: a priority score for placement in the scarce zero-page
// window, a preferred hardware register, and validation of explicit
// fixed addresses against the target's reserved ranges.
package zeropage

import (
	"sort"

	"github.com/taro-lang/taro/pkg/ast"
	"github.com/taro-lang/taro/pkg/diag"
	"github.com/taro-lang/taro/pkg/target"
)

// Weights caps the contribution of each scoring factor. These are
// tuning constants; override them per analyzer as needed.
type Weights struct {
	AccessCap       int // access frequency (reads + writes)
	LoopDepthCap    int // loop nesting bonus
	HotPathCap      int // hot-path bonus
	SizeBonus       int // single-byte values
	ArithmeticCap   int // read-modify-write / induction variables
	ArrayIndexBonus int // variables used as array indices
}

// DefaultWeights returns the stock factor caps. They sum to 100, the
// score ceiling.
func DefaultWeights() Weights {
	return Weights{
		AccessCap:       30,
		LoopDepthCap:    25,
		HotPathCap:      20,
		SizeBonus:       10,
		ArithmeticCap:   10,
		ArrayIndexBonus: 5,
	}
}

// MaxPriority is the score ceiling.
const MaxPriority = 100

// Score exposes every sub-score alongside the clamped total, so
// allocation decisions stay auditable.
type Score struct {
	Access     int `json:"access"`
	LoopDepth  int `json:"loop_depth"`
	HotPath    int `json:"hot_path"`
	Size       int `json:"size"`
	Arithmetic int `json:"arithmetic"`
	ArrayIndex int `json:"array_index"`
	Total      int `json:"total"`
}

// Hint is the placement recommendation for one variable.
type Hint struct {
	Name     string       `json:"name"`
	Score    Score        `json:"score"`
	Register ast.Register `json:"register,omitempty"`
	Pos      ast.Position `json:"pos"`
}

// Analyzer computes placement hints from the usage metadata the
// tier-1 analysis attached to each declaration.
type Analyzer struct {
	weights Weights
	desc    *target.Descriptor
}

// NewAnalyzer creates an analyzer for the given target.
func NewAnalyzer(desc *target.Descriptor) *Analyzer {
	return NewAnalyzerWithWeights(desc, DefaultWeights())
}

// NewAnalyzerWithWeights is NewAnalyzer with explicit factor caps.
func NewAnalyzerWithWeights(desc *target.Descriptor, w Weights) *Analyzer {
	return &Analyzer{weights: w, desc: desc}
}

// AnalyzeFunction scores every declaration in a function, writes the
// results onto the metadata records, and validates explicit addresses.
// Hints come back sorted by descending priority, ties by name.
func (a *Analyzer) AnalyzeFunction(fn *ast.FunctionDecl, meta *ast.MetaTable, collector *diag.Collector) []Hint {
	decls := collectDecls(fn)

	var hints []Hint
	// lastCounter remembers the register handed to the previous loop
	// counter so a nested counter gets the other index register.
	lastCounter := ast.RegNone
	for _, d := range decls {
		rec := meta.Get(d.ID())
		score := a.score(d, rec)
		reg := a.preferRegister(rec, &lastCounter)

		rec.ZeroPagePriority = score.Total
		rec.RegisterPref = reg

		hints = append(hints, Hint{
			Name:     d.Name,
			Score:    score,
			Register: reg,
			Pos:      d.Pos(),
		})
		a.ValidateAddress(d, collector)
	}

	sort.SliceStable(hints, func(i, j int) bool {
		if hints[i].Score.Total != hints[j].Score.Total {
			return hints[i].Score.Total > hints[j].Score.Total
		}
		return hints[i].Name < hints[j].Name
	})
	return hints
}

// collectDecls gathers parameters and every variable declaration in
// the body, in source order.
func collectDecls(fn *ast.FunctionDecl) []*ast.VarDecl {
	decls := append([]*ast.VarDecl{}, fn.Params...)
	if fn.Body != nil {
		ast.Walk(fn.Body, func(n ast.Node) ast.WalkControl {
			if d, ok := n.(*ast.VarDecl); ok && !d.IsParam {
				decls = append(decls, d)
			}
			return ast.WalkContinue
		})
	}
	return decls
}

// score computes the factor contributions for one declaration.
func (a *Analyzer) score(d *ast.VarDecl, rec *ast.Metadata) Score {
	var s Score

	accesses := rec.ReadCount + rec.WriteCount
	s.Access = clamp(accesses*2, a.weights.AccessCap)
	s.LoopDepth = clamp(rec.LoopDepth*10, a.weights.LoopDepthCap)
	if rec.HotPath {
		s.HotPath = a.weights.HotPathCap
	}
	if d.Type.Size == 1 {
		s.Size = a.weights.SizeBonus
	} else if d.Type.Size == 2 {
		s.Size = a.weights.SizeBonus / 2
	}
	if rec.ReadModify || rec.Induction {
		s.Arithmetic = a.weights.ArithmeticCap
	}
	if rec.ArrayIndex {
		s.ArrayIndex = a.weights.ArrayIndexBonus
	}

	s.Total = s.Access + s.LoopDepth + s.HotPath + s.Size + s.Arithmetic + s.ArrayIndex
	if s.Total > MaxPriority {
		s.Total = MaxPriority
	}
	if s.Total < 0 {
		s.Total = 0
	}
	return s
}

// clamp bounds v to the range [0, max].
func clamp(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// highAccessThreshold is the raw access count past which a variable
// earns the accumulator even without a read-modify-write pattern.
const highAccessThreshold = 8

// preferRegister walks the priority-ordered decision list, first match
// wins.
func (a *Analyzer) preferRegister(rec *ast.Metadata, lastCounter *ast.Register) ast.Register {
	switch {
	case rec.PointerBase:
		// Indirect base+offset addressing is (zp),Y on the 6502.
		return ast.RegY
	case rec.ArrayIndex:
		return ast.RegX
	case rec.Induction:
		reg := ast.RegX
		if *lastCounter == ast.RegX {
			reg = ast.RegY
		}
		*lastCounter = reg
		return reg
	case rec.ReadModify || rec.ReadCount+rec.WriteCount >= highAccessThreshold:
		return ast.RegA
	}
	return ast.RegNone
}

// ValidateAddress checks an explicit fixed-address declaration against
// the target's reserved ranges, byte by byte across the allocation's
// full span. One error is emitted per reserved range hit, naming the
// first offending address and the range's reason.
func (a *Analyzer) ValidateAddress(d *ast.VarDecl, collector *diag.Collector) {
	if !d.HasAddress || collector == nil {
		return
	}
	span := d.AddressSpan
	if span <= 0 {
		span = d.Type.Size
	}
	if span <= 0 {
		span = 1
	}

	seen := make(map[string]bool)
	for offset := 0; offset < span; offset++ {
		addr := d.Address + uint16(offset)
		r, reserved := a.desc.ReservedAt(addr)
		if !reserved || seen[r.Reason] {
			continue
		}
		seen[r.Reason] = true
		collector.Addf(diag.SeverityError, diag.CategoryM6502, "reserved-address", d.Pos(),
			"address $%04X for '%s' lies in reserved range $%04X-$%04X (%s)",
			addr, d.Name, r.Start, r.End, r.Reason)
	}
}
