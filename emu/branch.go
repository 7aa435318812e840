// Package emu provides functional RV32I emulation.
package emu

import "github.com/sarchlab/rv32sim/insts"

// BranchUnit implements RV32I jumps and conditional branches. It is the
// only unit that writes the program counter.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// target computes a 32-bit wrapped pc-relative address.
func (b *BranchUnit) target(offset int64) uint64 {
	return uint64(uint32(b.regFile.PC) + uint32(offset))
}

// JAL performs a jump and link: rd = pc+4, pc = pc+offset.
func (b *BranchUnit) JAL(rd uint8, offset int64) {
	link := uint32(b.regFile.PC) + 4
	b.regFile.PC = b.target(offset)
	b.regFile.WriteReg32(rd, link)
}

// JALR performs an indirect jump and link: rd = pc+4,
// pc = (rs1+offset) with bit 0 cleared.
func (b *BranchUnit) JALR(rd, rs1 uint8, offset int64) {
	// Read the base first in case rd == rs1.
	base := b.regFile.ReadReg32(rs1)
	link := uint32(b.regFile.PC) + 4

	b.regFile.PC = uint64((base + uint32(offset)) &^ 1)
	b.regFile.WriteReg32(rd, link)
}

// Branch performs a conditional branch. If the condition holds, pc is set
// to pc+offset and Branch returns true; otherwise pc is unchanged.
func (b *BranchUnit) Branch(op insts.Op, rs1, rs2 uint8, offset int64) bool {
	if !b.CheckCondition(op, b.regFile.ReadReg32(rs1), b.regFile.ReadReg32(rs2)) {
		return false
	}

	b.regFile.PC = b.target(offset)
	return true
}

// CheckCondition evaluates a branch comparison on two 32-bit operands.
func (b *BranchUnit) CheckCondition(op insts.Op, op1, op2 uint32) bool {
	switch op {
	case insts.OpBEQ:
		return op1 == op2
	case insts.OpBNE:
		return op1 != op2
	case insts.OpBLT:
		return int32(op1) < int32(op2)
	case insts.OpBGE:
		return int32(op1) >= int32(op2)
	case insts.OpBLTU:
		return op1 < op2
	case insts.OpBGEU:
		return op1 >= op2
	default:
		return false
	}
}
