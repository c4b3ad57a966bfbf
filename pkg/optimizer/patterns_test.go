package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taro-lang/taro/pkg/ir"
)

func builtins(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func applyOne(t *testing.T, r *Registry, id string, seq *ir.Sequence) *ir.Sequence {
	t.Helper()
	p, ok := r.Get(id)
	require.True(t, ok, "pattern %s registered", id)
	require.True(t, p.Matches(seq))
	rw, err := p.Apply(seq)
	require.NoError(t, err)
	require.True(t, rw.Changed)
	return &ir.Sequence{FunctionName: seq.FunctionName, Instructions: rw.Instructions}
}

func TestRegisterBuiltins(t *testing.T) {
	r := builtins(t)
	assert.Equal(t, 6, r.Len())
	for _, id := range []string{"redundant-load", "increment-fold", "dead-store", "transfer-collapse", "jump-to-next", "nop-removal"} {
		_, ok := r.Get(id)
		assert.True(t, ok, id)
	}
}

func TestRedundantLoad(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$10", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.LDA, Operand: "$10", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	out := applyOne(t, builtins(t), "redundant-load", seq)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, ir.STA, out.Instructions[0].Op)
	assert.Equal(t, ir.RTS, out.Instructions[1].Op)
}

func TestRedundantLoadDifferentOperand(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$10", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.LDA, Operand: "$11", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("redundant-load")
	assert.False(t, p.Matches(seq))
}

func TestRedundantLoadLabeledTargetKept(t *testing.T) {
	// The load carries a label: it is a branch target and must stay.
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$10", Mode: ir.ModeZeroPage},
		ir.Instruction{Label: "again", Op: ir.LDA, Operand: "$10", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("redundant-load")
	assert.False(t, p.Matches(seq))
}

func TestIncrementFold(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "$30", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.CLC, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.ADC, Operand: "#$01", Mode: ir.ModeImmediate, Cycles: 2, Size: 2},
		ir.Instruction{Op: ir.STA, Operand: "$30", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	out := applyOne(t, builtins(t), "increment-fold", seq)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, ir.INC, out.Instructions[0].Op)
	assert.Equal(t, "$30", out.Instructions[0].Operand)
	assert.Equal(t, ir.ModeZeroPage, out.Instructions[0].Mode)
	assert.Equal(t, 5, out.Instructions[0].Cycles)
	assert.Equal(t, ir.RTS, out.Instructions[1].Op)
}

func TestIncrementFoldMetrics(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "$30", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.CLC, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.ADC, Operand: "#$01", Mode: ir.ModeImmediate, Cycles: 2, Size: 2},
		ir.Instruction{Op: ir.STA, Operand: "$30", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
	)

	p, _ := builtins(t).Get("increment-fold")
	rw, err := p.Apply(seq)
	require.NoError(t, err)
	require.True(t, rw.Changed)
	assert.Equal(t, -5, rw.Metrics.Cycles)
	assert.Equal(t, -5, rw.Metrics.Size)
}

func TestIncrementFoldAccumulatorLiveKept(t *testing.T) {
	// The STA below still needs the incremented value in A.
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "$30", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.CLC, Mode: ir.ModeImplied},
		ir.Instruction{Op: ir.ADC, Operand: "#$01", Mode: ir.ModeImmediate},
		ir.Instruction{Op: ir.STA, Operand: "$30", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.STA, Operand: "$31", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("increment-fold")
	assert.False(t, p.Matches(seq))
}

func TestIncrementFoldDifferentCellKept(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "$30", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.CLC, Mode: ir.ModeImplied},
		ir.Instruction{Op: ir.ADC, Operand: "#$01", Mode: ir.ModeImmediate},
		ir.Instruction{Op: ir.STA, Operand: "$31", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("increment-fold")
	assert.False(t, p.Matches(seq))
}

func TestIncrementFoldAbsoluteCosts(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "$C000", Mode: ir.ModeAbsolute, Cycles: 4, Size: 3},
		ir.Instruction{Op: ir.CLC, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.ADC, Operand: "#$01", Mode: ir.ModeImmediate, Cycles: 2, Size: 2},
		ir.Instruction{Op: ir.STA, Operand: "$C000", Mode: ir.ModeAbsolute, Cycles: 4, Size: 3},
	)

	out := applyOne(t, builtins(t), "increment-fold", seq)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, ir.INC, out.Instructions[0].Op)
	assert.Equal(t, 6, out.Instructions[0].Cycles)
	assert.Equal(t, 3, out.Instructions[0].Size)
}

func TestDeadStore(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.LDA, Operand: "#$01", Mode: ir.ModeImmediate, Cycles: 2, Size: 2},
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
	)

	out := applyOne(t, builtins(t), "dead-store", seq)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, ir.LDA, out.Instructions[0].Op)
	assert.Equal(t, ir.STA, out.Instructions[1].Op)
}

func TestDeadStoreReadInBetweenKept(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.ADC, Operand: "$20", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("dead-store")
	assert.False(t, p.Matches(seq))
}

func TestDeadStoreLabelBlocksWindow(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
		ir.Instruction{Label: "entry", Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("dead-store")
	assert.False(t, p.Matches(seq))
}

func TestDeadStoreBranchBlocksWindow(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
		ir.Instruction{Op: ir.JSR, Operand: "sub", Mode: ir.ModeAbsolute},
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeZeroPage},
	)
	p, _ := builtins(t).Get("dead-store")
	assert.False(t, p.Matches(seq))
}

func TestDeadStoreIndexedModeKept(t *testing.T) {
	// Indexed stores may alias; the pattern leaves them alone.
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeIndexedX},
		ir.Instruction{Op: ir.STA, Operand: "$20", Mode: ir.ModeIndexedX},
	)
	p, _ := builtins(t).Get("dead-store")
	assert.False(t, p.Matches(seq))
}

func TestTransferCollapse(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.TAX, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.TXA, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	out := applyOne(t, builtins(t), "transfer-collapse", seq)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, ir.TAX, out.Instructions[0].Op)
	assert.Equal(t, ir.RTS, out.Instructions[1].Op)
}

func TestTransferCollapseSamePairKept(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.TAX, Mode: ir.ModeImplied},
		ir.Instruction{Op: ir.TAY, Mode: ir.ModeImplied},
	)
	p, _ := builtins(t).Get("transfer-collapse")
	assert.False(t, p.Matches(seq))
}

func TestJumpToNext(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.JMP, Operand: "done", Mode: ir.ModeAbsolute, Cycles: 3, Size: 3},
		ir.Instruction{Label: "done", Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	out := applyOne(t, builtins(t), "jump-to-next", seq)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, ir.RTS, out.Instructions[0].Op)
	assert.Equal(t, "done", out.Instructions[0].Label)
}

func TestJumpToFartherLabelKept(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.JMP, Operand: "done", Mode: ir.ModeAbsolute},
		ir.Instruction{Op: ir.NOP, Mode: ir.ModeImplied},
		ir.Instruction{Label: "done", Op: ir.RTS, Mode: ir.ModeImplied},
	)
	p, _ := builtins(t).Get("jump-to-next")
	assert.False(t, p.Matches(seq))
}

func TestNopRemovalKeepsLabeled(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.NOP, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Label: "anchor", Op: ir.NOP, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	out := applyOne(t, builtins(t), "nop-removal", seq)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, "anchor", out.Instructions[0].Label)
	assert.Equal(t, ir.RTS, out.Instructions[1].Op)
}

func TestBuiltinLevels(t *testing.T) {
	r := builtins(t)

	assert.Len(t, r.ByLevel(LevelBasic), 3, "basic admits the always-safe rewrites")
	assert.Len(t, r.ByLevel(LevelStandard), 5)
	assert.Len(t, r.ByLevel(LevelAggressive), 6)
	assert.Empty(t, r.ByLevel(LevelNone))
}

func TestBuiltinsEndToEnd(t *testing.T) {
	seq := ir.NewSequence("f",
		ir.Instruction{Op: ir.LDA, Operand: "#$05", Mode: ir.ModeImmediate, Cycles: 2, Size: 2},
		ir.Instruction{Op: ir.STA, Operand: "$10", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.LDA, Operand: "$10", Mode: ir.ModeZeroPage, Cycles: 3, Size: 2},
		ir.Instruction{Op: ir.NOP, Mode: ir.ModeImplied, Cycles: 2, Size: 1},
		ir.Instruction{Op: ir.JMP, Operand: "exit", Mode: ir.ModeAbsolute, Cycles: 3, Size: 3},
		ir.Instruction{Label: "exit", Op: ir.RTS, Mode: ir.ModeImplied, Cycles: 6, Size: 1},
	)

	cfg := DefaultConfig()
	res := NewFramework(builtins(t), cfg).Run(seq)

	want := []ir.Opcode{ir.LDA, ir.STA, ir.RTS}
	require.Equal(t, len(want), res.Sequence.Len())
	for i, op := range want {
		assert.Equal(t, op, res.Sequence.Instructions[i].Op)
	}
	assert.Negative(t, res.Metrics.Cycles)
	assert.Negative(t, res.Metrics.Size)
	assert.False(t, res.TimedOut)
}
