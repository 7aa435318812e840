// Package emu provides functional RV32I emulation.
package emu

// RegFile represents the RV32I register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter (PC).
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is the zero register which always reads as 0.
	X [32]uint64

	// PC is the program counter. Instruction execution never advances it
	// past a non-jump instruction; that is the fetch loop's job.
	PC uint64
}

// ReadReg reads a register value. Register 0 returns 0.
// Registers >= 32 return 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 or to
// registers >= 32 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes a 32-bit result, sign-extended into the 64-bit slot.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, uint64(int64(int32(value))))
}
