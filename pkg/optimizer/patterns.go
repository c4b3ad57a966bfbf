package optimizer

import "github.com/taro-lang/taro/pkg/ir"

// RegisterBuiltins installs the stock 6502 rewrite patterns into a
// registry. Callers may layer their own patterns on top or disable
// individual ids through the run configuration.
func RegisterBuiltins(r *Registry) error {
	builtins := []Pattern{
		redundantLoadPattern(),
		incrementFoldPattern(),
		deadStorePattern(),
		transferCollapsePattern(),
		jumpToNextPattern(),
		nopRemovalPattern(),
	}
	for _, p := range builtins {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// removalImpact is the metrics delta for dropping one instruction.
func removalImpact(in ir.Instruction) Impact {
	return Impact{Cycles: -in.Cycles, Size: -in.Size}
}

// sameOperand reports whether two instructions address the same
// location with the same mode. Labeled instructions never match; a
// label is a potential branch target and the rewrite window must not
// straddle one.
func sameOperand(a, b ir.Instruction) bool {
	if a.Label != "" || b.Label != "" {
		return false
	}
	return a.Operand == b.Operand && a.Mode == b.Mode
}

// redundantLoadPattern drops an LDA that reloads the value the
// preceding STA just wrote to the same location. The accumulator still
// holds that value, so the load is a no-op apart from flag updates.
func redundantLoadPattern() Pattern {
	match := func(instrs []ir.Instruction, i int) bool {
		return i+1 < len(instrs) &&
			instrs[i].Op == ir.STA && instrs[i+1].Op == ir.LDA &&
			sameOperand(instrs[i], instrs[i+1])
	}
	return Pattern{
		ID:        "redundant-load",
		Category:  CategoryRedundancy,
		Priority:  80,
		Safety:    SafetyConservative,
		MinLevel:  LevelBasic,
		Estimated: Impact{Cycles: -3, Size: -2},
		Matches: func(seq *ir.Sequence) bool {
			for i := range seq.Instructions {
				if match(seq.Instructions, i) {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for i := 0; i < len(seq.Instructions); i++ {
				out = append(out, seq.Instructions[i])
				if match(seq.Instructions, i) {
					rw.Changed = true
					rw.Metrics.Add(removalImpact(seq.Instructions[i+1]))
					i++
				}
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}

// incrementFoldPattern rewrites a load/add-one/store of the same memory
// cell into a single INC. The rewrite discards the incremented value
// from the accumulator, so the window only matches when the next
// instruction overwrites A or ends the function.
func incrementFoldPattern() Pattern {
	directMem := func(m ir.AddrMode) bool {
		return m == ir.ModeZeroPage || m == ir.ModeAbsolute
	}
	accDead := func(instrs []ir.Instruction, i int) bool {
		if i+1 >= len(instrs) {
			return true
		}
		next := instrs[i+1]
		if next.Label != "" {
			return false
		}
		switch next.Op {
		case ir.LDA, ir.PLA, ir.TXA, ir.TYA, ir.RTS:
			return true
		}
		return false
	}
	match := func(instrs []ir.Instruction, i int) bool {
		if i+3 >= len(instrs) {
			return false
		}
		load, clc, add, store := instrs[i], instrs[i+1], instrs[i+2], instrs[i+3]
		if clc.Label != "" || add.Label != "" || store.Label != "" {
			return false
		}
		return load.Op == ir.LDA && directMem(load.Mode) &&
			clc.Op == ir.CLC &&
			add.Op == ir.ADC && add.Mode == ir.ModeImmediate && add.Operand == "#$01" &&
			store.Op == ir.STA &&
			load.Operand == store.Operand && load.Mode == store.Mode &&
			accDead(instrs, i+3)
	}
	inc := func(load ir.Instruction) ir.Instruction {
		out := ir.Instruction{Label: load.Label, Op: ir.INC, Operand: load.Operand, Mode: load.Mode, Cycles: 5, Size: 2}
		if load.Mode == ir.ModeAbsolute {
			out.Cycles, out.Size = 6, 3
		}
		return out
	}
	return Pattern{
		ID:        "increment-fold",
		Category:  CategoryStrengthReduction,
		Priority:  75,
		Safety:    SafetyConservative,
		MinLevel:  LevelStandard,
		Estimated: Impact{Cycles: -5, Size: -5},
		Matches: func(seq *ir.Sequence) bool {
			for i := range seq.Instructions {
				if match(seq.Instructions, i) {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for i := 0; i < len(seq.Instructions); i++ {
				if match(seq.Instructions, i) {
					repl := inc(seq.Instructions[i])
					for j := i; j < i+4; j++ {
						rw.Metrics.Add(removalImpact(seq.Instructions[j]))
					}
					rw.Metrics.Add(Impact{Cycles: repl.Cycles, Size: repl.Size})
					out = append(out, repl)
					rw.Changed = true
					i += 3
					continue
				}
				out = append(out, seq.Instructions[i])
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}

// deadStorePattern drops a store that is overwritten by a following
// store to the same location with no intervening load, call, or
// branch. Only plain zero page and absolute stores are rewritten;
// indexed modes may alias other cells.
func deadStorePattern() Pattern {
	directStore := func(in ir.Instruction) bool {
		if in.Op != ir.STA && in.Op != ir.STX && in.Op != ir.STY {
			return false
		}
		return in.Mode == ir.ModeZeroPage || in.Mode == ir.ModeAbsolute
	}
	// overwritten reports whether the store at i is killed before use.
	overwritten := func(instrs []ir.Instruction, i int) bool {
		for j := i + 1; j < len(instrs); j++ {
			in := instrs[j]
			if in.Label != "" || in.IsBranch() {
				return false
			}
			if directStore(in) && sameOperand(instrs[i], in) {
				return true
			}
			// Any other operand reference may read the location.
			if in.Operand == instrs[i].Operand && in.Operand != "" {
				return false
			}
		}
		return false
	}
	return Pattern{
		ID:        "dead-store",
		Category:  CategoryDeadCode,
		Priority:  70,
		Safety:    SafetyConservative,
		MinLevel:  LevelStandard,
		Estimated: Impact{Cycles: -3, Size: -2, Memory: -1},
		Matches: func(seq *ir.Sequence) bool {
			for i, in := range seq.Instructions {
				if in.Label == "" && directStore(in) && overwritten(seq.Instructions, i) {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for i, in := range seq.Instructions {
				if in.Label == "" && directStore(in) && overwritten(seq.Instructions, i) {
					rw.Changed = true
					rw.Metrics.Add(removalImpact(in))
					continue
				}
				out = append(out, in)
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}

// transferCollapsePattern drops the second half of an inverse register
// transfer pair such as TAX followed by TXA. The second transfer
// restores a value the register already holds.
func transferCollapsePattern() Pattern {
	inverse := map[ir.Opcode]ir.Opcode{
		ir.TAX: ir.TXA,
		ir.TXA: ir.TAX,
		ir.TAY: ir.TYA,
		ir.TYA: ir.TAY,
	}
	match := func(instrs []ir.Instruction, i int) bool {
		if i+1 >= len(instrs) || instrs[i+1].Label != "" {
			return false
		}
		inv, ok := inverse[instrs[i].Op]
		return ok && instrs[i+1].Op == inv
	}
	return Pattern{
		ID:        "transfer-collapse",
		Category:  CategoryPeephole,
		Priority:  60,
		Safety:    SafetyAggressive,
		MinLevel:  LevelAggressive,
		Estimated: Impact{Cycles: -2, Size: -1, RegisterPressure: -1},
		Matches: func(seq *ir.Sequence) bool {
			for i := range seq.Instructions {
				if match(seq.Instructions, i) {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for i := 0; i < len(seq.Instructions); i++ {
				out = append(out, seq.Instructions[i])
				if match(seq.Instructions, i) {
					rw.Changed = true
					rw.Metrics.Add(removalImpact(seq.Instructions[i+1]))
					i++
				}
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}

// jumpToNextPattern drops an unconditional JMP whose target is the
// label on the instruction immediately after it.
func jumpToNextPattern() Pattern {
	match := func(instrs []ir.Instruction, i int) bool {
		return i+1 < len(instrs) &&
			instrs[i].Op == ir.JMP && instrs[i].Label == "" &&
			instrs[i].Operand != "" && instrs[i].Operand == instrs[i+1].Label
	}
	return Pattern{
		ID:        "jump-to-next",
		Category:  CategoryFlow,
		Priority:  90,
		Safety:    SafetyAlways,
		MinLevel:  LevelBasic,
		Estimated: Impact{Cycles: -3, Size: -3, Complexity: -1},
		Matches: func(seq *ir.Sequence) bool {
			for i := range seq.Instructions {
				if match(seq.Instructions, i) {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for i, in := range seq.Instructions {
				if match(seq.Instructions, i) {
					rw.Changed = true
					rw.Metrics.Add(removalImpact(in))
					continue
				}
				out = append(out, in)
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}

// nopRemovalPattern drops unlabeled NOP instructions. Labeled NOPs are
// kept as branch anchors.
func nopRemovalPattern() Pattern {
	return Pattern{
		ID:        "nop-removal",
		Category:  CategoryPeephole,
		Priority:  100,
		Safety:    SafetyAlways,
		MinLevel:  LevelBasic,
		Estimated: Impact{Cycles: -2, Size: -1},
		Matches: func(seq *ir.Sequence) bool {
			for _, in := range seq.Instructions {
				if in.Op == ir.NOP && in.Label == "" {
					return true
				}
			}
			return false
		},
		Apply: func(seq *ir.Sequence) (Rewrite, error) {
			var rw Rewrite
			out := make([]ir.Instruction, 0, seq.Len())
			for _, in := range seq.Instructions {
				if in.Op == ir.NOP && in.Label == "" {
					rw.Changed = true
					rw.Metrics.Add(removalImpact(in))
					continue
				}
				out = append(out, in)
			}
			rw.Instructions = out
			return rw, nil
		},
	}
}
