// Package emu provides functional RV32I emulation.
package emu

import "github.com/sarchlab/rv32sim/insts"

// LoadStoreUnit implements RV32I loads and stores.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// EffectiveAddress computes rs1 + offset wrapped to 32 bits.
func (lsu *LoadStoreUnit) EffectiveAddress(rs1 uint8, offset int64) uint64 {
	return uint64(lsu.regFile.ReadReg32(rs1) + uint32(offset))
}

// Load performs rd = mem[rs1 + offset] with the width and extension
// selected by op. rd is left unchanged if the access faults.
func (lsu *LoadStoreUnit) Load(op insts.Op, rd, rs1 uint8, offset int64) error {
	addr := lsu.EffectiveAddress(rs1, offset)

	var value uint32

	switch op {
	case insts.OpLB:
		b, err := lsu.memory.Read8(addr)
		if err != nil {
			return err
		}
		value = uint32(int32(int8(b)))
	case insts.OpLBU:
		b, err := lsu.memory.Read8(addr)
		if err != nil {
			return err
		}
		value = uint32(b)
	case insts.OpLH:
		h, err := lsu.memory.Read16(addr)
		if err != nil {
			return err
		}
		value = uint32(int32(int16(h)))
	case insts.OpLHU:
		h, err := lsu.memory.Read16(addr)
		if err != nil {
			return err
		}
		value = uint32(h)
	case insts.OpLW:
		w, err := lsu.memory.Read32(addr)
		if err != nil {
			return err
		}
		value = w
	default:
		return nil
	}

	lsu.regFile.WriteReg32(rd, value)
	return nil
}

// Store performs mem[rs1 + offset] = rs2, truncated to the width selected
// by op. Memory is left unchanged if the access faults.
func (lsu *LoadStoreUnit) Store(op insts.Op, rs1, rs2 uint8, offset int64) error {
	addr := lsu.EffectiveAddress(rs1, offset)
	value := lsu.regFile.ReadReg32(rs2)

	switch op {
	case insts.OpSB:
		return lsu.memory.Write8(addr, uint8(value))
	case insts.OpSH:
		return lsu.memory.Write16(addr, uint16(value))
	case insts.OpSW:
		return lsu.memory.Write32(addr, value)
	default:
		return nil
	}
}
