// Package ir models the instruction sequences the optimizer rewrites:
// a thin, 6502-shaped intermediate form produced by the lowering stage
// and consumed by the final emitter. The analyses in this repository
// transform sequences; they never format or emit them.
package ir

// Opcode is a 6502-family mnemonic.
type Opcode string

const (
	LDA Opcode = "LDA"
	LDX Opcode = "LDX"
	LDY Opcode = "LDY"
	STA Opcode = "STA"
	STX Opcode = "STX"
	STY Opcode = "STY"
	TAX Opcode = "TAX"
	TXA Opcode = "TXA"
	TAY Opcode = "TAY"
	TYA Opcode = "TYA"
	ADC Opcode = "ADC"
	SBC Opcode = "SBC"
	AND Opcode = "AND"
	ORA Opcode = "ORA"
	EOR Opcode = "EOR"
	ASL Opcode = "ASL"
	LSR Opcode = "LSR"
	INC Opcode = "INC"
	DEC Opcode = "DEC"
	INX Opcode = "INX"
	INY Opcode = "INY"
	CMP Opcode = "CMP"
	CLC Opcode = "CLC"
	SEC Opcode = "SEC"
	JMP Opcode = "JMP"
	JSR Opcode = "JSR"
	RTS Opcode = "RTS"
	BEQ Opcode = "BEQ"
	BNE Opcode = "BNE"
	PHA Opcode = "PHA"
	PLA Opcode = "PLA"
	NOP Opcode = "NOP"
)

// AddrMode is the operand addressing mode.
type AddrMode string

const (
	ModeImplied   AddrMode = "implied"
	ModeImmediate AddrMode = "immediate"
	ModeZeroPage  AddrMode = "zeropage"
	ModeAbsolute  AddrMode = "absolute"
	ModeIndexedX  AddrMode = "indexed_x"
	ModeIndexedY  AddrMode = "indexed_y"
	ModeIndirectY AddrMode = "indirect_y"
	ModeRelative  AddrMode = "relative"
)

// Instruction is one IR instruction with its cost estimates.
type Instruction struct {
	Label   string   `json:"label,omitempty"`
	Op      Opcode   `json:"op"`
	Operand string   `json:"operand,omitempty"`
	Mode    AddrMode `json:"mode"`
	Cycles  int      `json:"cycles"`
	Size    int      `json:"size"`
}

// IsBranch reports whether the instruction transfers control.
func (i Instruction) IsBranch() bool {
	switch i.Op {
	case JMP, JSR, RTS, BEQ, BNE:
		return true
	}
	return false
}

// Sequence is an ordered instruction list for one function.
type Sequence struct {
	FunctionName string        `json:"function_name"`
	Instructions []Instruction `json:"instructions"`
}

// NewSequence creates a sequence for the named function.
func NewSequence(functionName string, instrs ...Instruction) *Sequence {
	return &Sequence{FunctionName: functionName, Instructions: instrs}
}

// Len returns the instruction count.
func (s *Sequence) Len() int { return len(s.Instructions) }

// Cycles returns the estimated total cycle cost.
func (s *Sequence) Cycles() int {
	total := 0
	for _, i := range s.Instructions {
		total += i.Cycles
	}
	return total
}

// Bytes returns the estimated encoded size.
func (s *Sequence) Bytes() int {
	total := 0
	for _, i := range s.Instructions {
		total += i.Size
	}
	return total
}

// Clone returns a deep copy of the sequence.
func (s *Sequence) Clone() *Sequence {
	out := &Sequence{
		FunctionName: s.FunctionName,
		Instructions: make([]Instruction, len(s.Instructions)),
	}
	copy(out.Instructions, s.Instructions)
	return out
}
