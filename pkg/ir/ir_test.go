package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceCosts(t *testing.T) {
	s := NewSequence("f",
		Instruction{Op: LDA, Operand: "#$05", Mode: ModeImmediate, Cycles: 2, Size: 2},
		Instruction{Op: STA, Operand: "$10", Mode: ModeZeroPage, Cycles: 3, Size: 2},
		Instruction{Op: RTS, Mode: ModeImplied, Cycles: 6, Size: 1},
	)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 11, s.Cycles())
	assert.Equal(t, 5, s.Bytes())
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewSequence("f",
		Instruction{Op: NOP, Mode: ModeImplied, Cycles: 2, Size: 1},
	)

	c := s.Clone()
	c.Instructions[0].Op = LDA
	c.Instructions = append(c.Instructions, Instruction{Op: RTS, Mode: ModeImplied})

	assert.Equal(t, NOP, s.Instructions[0].Op)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "f", c.FunctionName)
}

func TestIsBranch(t *testing.T) {
	tests := []struct {
		op   Opcode
		want bool
	}{
		{JMP, true},
		{JSR, true},
		{RTS, true},
		{BEQ, true},
		{BNE, true},
		{LDA, false},
		{STA, false},
		{NOP, false},
	}
	for _, tt := range tests {
		got := Instruction{Op: tt.op}.IsBranch()
		if got != tt.want {
			t.Errorf("IsBranch(%s) = %v, want %v", tt.op, got, tt.want)
		}
	}
}
