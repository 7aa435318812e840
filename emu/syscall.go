package emu

import (
	"errors"
	"io"
)

// RISC-V Linux syscall numbers.
const (
	SyscallClose uint64 = 57 // close(fd)
	SyscallRead  uint64 = 63 // read(fd, buf, count)
	SyscallWrite uint64 = 64 // write(fd, buf, count)
	SyscallExit  uint64 = 93 // exit(status)
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	EFAULT = 14 // Bad address
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
)

// RISC-V calling convention registers.
const (
	RegA0 uint8 = 10
	RegA1 uint8 = 11
	RegA2 uint8 = 12
	RegA7 uint8 = 17
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling ECALL traps.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// RISC-V Linux syscall convention:
	//   - Syscall number in a7 (x17)
	//   - Arguments in a0-a5 (x10-x15)
	//   - Return value in a0
	Handle() SyscallResult
}

// DefaultSyscallHandler provides read, write, close and exit over the
// standard streams.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	fdTable *FDTable
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		fdTable: NewFDTable(nil, stdout, stderr),
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.fdTable.SetReader(FDStdin, stdin)
}

// FDTable returns the handler's file descriptor table.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fdTable
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadReg(RegA7) {
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	case SyscallClose:
		return h.handleClose()
	case SyscallExit:
		return h.handleExit()
	default:
		return h.handleUnknown()
	}
}

// handleExit handles the exit syscall (93).
func (h *DefaultSyscallHandler) handleExit() SyscallResult {
	return SyscallResult{
		Exited:   true,
		ExitCode: int64(int32(h.regFile.ReadReg32(RegA0))),
	}
}

// handleClose handles the close syscall (57).
func (h *DefaultSyscallHandler) handleClose() SyscallResult {
	if err := h.fdTable.Close(h.regFile.ReadReg32(RegA0)); err != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}

	h.regFile.WriteReg(RegA0, 0)
	return SyscallResult{}
}

// handleRead handles the read syscall (63).
func (h *DefaultSyscallHandler) handleRead() SyscallResult {
	fd := h.regFile.ReadReg32(RegA0)
	bufPtr := uint64(h.regFile.ReadReg32(RegA1))
	count := uint64(h.regFile.ReadReg32(RegA2))

	entry, ok := h.fdTable.Get(fd)
	if !ok || entry.Writer != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}

	if count == 0 {
		h.regFile.WriteReg(RegA0, 0)
		return SyscallResult{}
	}

	// The whole buffer must be writable before any input is consumed.
	if err := h.memory.Check(bufPtr, count, AccessWrite); err != nil {
		h.setError(EFAULT)
		return SyscallResult{}
	}

	buf := make([]byte, count)
	n, err := h.fdTable.Read(fd, buf)
	if err != nil && !errors.Is(err, io.EOF) && n == 0 {
		h.setError(EIO)
		return SyscallResult{}
	}

	if err := h.memory.WriteBytes(bufPtr, buf[:n]); err != nil {
		h.setError(EFAULT)
		return SyscallResult{}
	}

	h.regFile.WriteReg32(RegA0, uint32(n))
	return SyscallResult{}
}

// handleWrite handles the write syscall (64).
func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg32(RegA0)
	bufPtr := uint64(h.regFile.ReadReg32(RegA1))
	count := uint64(h.regFile.ReadReg32(RegA2))

	entry, ok := h.fdTable.Get(fd)
	if !ok || entry.Writer == nil {
		h.setError(EBADF)
		return SyscallResult{}
	}

	buf, err := h.memory.ReadBytes(bufPtr, count)
	if err != nil {
		h.setError(EFAULT)
		return SyscallResult{}
	}

	n, err := h.fdTable.Write(fd, buf)
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.regFile.WriteReg32(RegA0, uint32(n))
	return SyscallResult{}
}

// handleUnknown handles unrecognized syscalls.
func (h *DefaultSyscallHandler) handleUnknown() SyscallResult {
	h.setError(ENOSYS)
	return SyscallResult{}
}

// setError sets a0 to -errno.
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg32(RegA0, uint32(-int32(errno)))
}
