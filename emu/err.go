package emu

import (
	"errors"

	"github.com/sarchlab/rv32sim/internal/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrIllegalInstruction = errors.New(f("illegal instruction"))
	ErrMaxInstructions    = errors.New(f("max instructions reached"))
	ErrBreakpoint         = errors.New(f("breakpoint"))

	// Memory faults
	ErrOutOfBounds      = errors.New(f("address out of bounds"))
	ErrPermissionDenied = errors.New(f("permission denied"))
)

// IllegalInstructionError reports a word whose opcode, funct3 or funct7
// combination is not part of RV32I.
type IllegalInstructionError struct {
	Word uint32
	PC   uint64
}

func (err *IllegalInstructionError) Error() string {
	return f("illegal instruction 0x%08x at pc 0x%x", err.Word, err.PC)
}

func (err *IllegalInstructionError) Unwrap() error {
	return ErrIllegalInstruction
}

// MemoryFault reports a rejected memory access. Reason is ErrOutOfBounds or
// ErrPermissionDenied.
type MemoryFault struct {
	Access    Access
	Addr      uint64 // first byte of the access
	Size      uint64 // access width in bytes
	FaultAddr uint64 // first byte that failed the check
	Reason    error
}

func (err *MemoryFault) Error() string {
	return f("%v of %v bytes at 0x%x: 0x%x %v",
		err.Access, err.Size, err.Addr, err.FaultAddr, err.Reason)
}

func (err *MemoryFault) Unwrap() error {
	return err.Reason
}
