// Package emu provides functional RV32I emulation.
package emu

import "github.com/sarchlab/rv32sim/insts"

// ALU implements RV32I integer arithmetic and logic. Operands are the low
// 32 bits of their registers; results are sign-extended on write back.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// OpImm executes a register-immediate operation: rd = rs1 op imm.
// For shifts imm is the shift amount.
func (a *ALU) OpImm(op insts.Op, rd, rs1 uint8, imm int64) {
	op1 := a.regFile.ReadReg32(rs1)
	op2 := uint32(imm)

	a.regFile.WriteReg32(rd, compute(op, op1, op2))
}

// Op executes a register-register operation: rd = rs1 op rs2.
func (a *ALU) Op(op insts.Op, rd, rs1, rs2 uint8) {
	op1 := a.regFile.ReadReg32(rs1)
	op2 := a.regFile.ReadReg32(rs2)

	a.regFile.WriteReg32(rd, compute(op, op1, op2))
}

// compute evaluates a 32-bit ALU operation. Shift amounts use only the
// low 5 bits of op2.
func compute(op insts.Op, op1, op2 uint32) uint32 {
	shamt := op2 & 0x1F

	switch op {
	case insts.OpADD, insts.OpADDI:
		return op1 + op2
	case insts.OpSUB:
		return op1 - op2
	case insts.OpSLL, insts.OpSLLI:
		return op1 << shamt
	case insts.OpSLT, insts.OpSLTI:
		return boolToWord(int32(op1) < int32(op2))
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToWord(op1 < op2)
	case insts.OpXOR, insts.OpXORI:
		return op1 ^ op2
	case insts.OpSRL, insts.OpSRLI:
		return op1 >> shamt
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(op1) >> shamt)
	case insts.OpOR, insts.OpORI:
		return op1 | op2
	case insts.OpAND, insts.OpANDI:
		return op1 & op2
	default:
		return 0
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
