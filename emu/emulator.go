// Package emu provides functional RV32I emulation.
package emu

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32sim/insts"
)

// Trap is an environment condition raised by an instruction. Traps are not
// errors; the caller decides how to react.
type Trap uint8

// Trap kinds.
const (
	TrapNone Trap = iota
	TrapECall
	TrapEBreak
)

func (t Trap) String() string {
	switch t {
	case TrapECall:
		return "ecall"
	case TrapEBreak:
		return "ebreak"
	default:
		return "none"
	}
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Jumped is true if the instruction wrote the PC (JAL, JALR or a taken
	// branch). Otherwise the caller advances the PC by 4.
	Jumped bool

	// Trap is set by ECALL and EBREAK.
	Trap Trap

	// Exited is true if the program terminated (via exit syscall).
	// Only Step sets it.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if the instruction is illegal or its memory access
	// faulted. Architectural state is unchanged in that case.
	Err error
}

// Interpreter executes RV32I instructions functionally. It exclusively owns
// its register file and memory and is not safe for concurrent use.
type Interpreter struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	syscallHandler SyscallHandler
	logger         *log.Logger

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// I/O
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// InterpreterOption is a functional option for configuring the Interpreter.
type InterpreterOption func(*Interpreter)

// WithMemory uses the given memory instead of a default one.
func WithMemory(memory *Memory) InterpreterOption {
	return func(e *Interpreter) {
		e.memory = memory
	}
}

// WithMemoryCapacity creates the default memory with the given capacity.
func WithMemoryCapacity(capacity uint64) InterpreterOption {
	return func(e *Interpreter) {
		e.memory = NewMemory(WithCapacity(capacity))
	}
}

// WithLogger sets the logger used for instruction tracing.
func WithLogger(logger *log.Logger) InterpreterOption {
	return func(e *Interpreter) {
		e.logger = logger
	}
}

// WithStdin sets the reader behind guest fd 0 for the default syscall
// handler.
func WithStdin(r io.Reader) InterpreterOption {
	return func(e *Interpreter) {
		e.stdin = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) InterpreterOption {
	return func(e *Interpreter) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) InterpreterOption {
	return func(e *Interpreter) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) InterpreterOption {
	return func(e *Interpreter) {
		e.syscallHandler = handler
	}
}

// WithEntryPoint sets the initial program counter.
func WithEntryPoint(pc uint64) InterpreterOption {
	return func(e *Interpreter) {
		e.regFile.PC = pc
	}
}

// WithMaxInstructions sets the maximum number of instructions Step will
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) InterpreterOption {
	return func(e *Interpreter) {
		e.maxInstructions = max
	}
}

// NewInterpreter creates a new RV32I interpreter. Without options it owns a
// 4 MiB read/write memory and logs through the standard logrus logger.
func NewInterpreter(opts ...InterpreterOption) *Interpreter {
	e := &Interpreter{
		regFile: &RegFile{},
		decoder: insts.NewDecoder(),
		logger:  log.StandardLogger(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory()
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)
	e.branchUnit = NewBranchUnit(e.regFile)

	if e.syscallHandler == nil {
		handler := NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
		handler.SetStdin(e.stdin)
		e.syscallHandler = handler
	}

	return e
}

// RegFile returns the interpreter's register file.
func (e *Interpreter) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the interpreter's memory.
func (e *Interpreter) Memory() *Memory {
	return e.memory
}

// PC returns the program counter.
func (e *Interpreter) PC() uint64 {
	return e.regFile.PC
}

// SetPC sets the program counter.
func (e *Interpreter) SetPC(pc uint64) {
	e.regFile.PC = pc
}

// InstructionCount returns the number of instructions executed by Step.
func (e *Interpreter) InstructionCount() uint64 {
	return e.instructionCount
}

// Execute decodes and executes one instruction word against the current
// state. It never advances the PC past a non-jump instruction.
func (e *Interpreter) Execute(word uint32) StepResult {
	inst := e.decoder.Decode(word)

	if e.logger.IsLevelEnabled(log.DebugLevel) {
		e.logger.WithFields(log.Fields{
			"pc":   fmt.Sprintf("0x%08x", e.regFile.PC),
			"word": fmt.Sprintf("0x%08x", word),
		}).Debug(inst.String())
	}

	result := e.execute(inst)
	if result.Err != nil {
		e.logger.WithError(result.Err).Debug("instruction faulted")
	}

	return result
}

// execute dispatches a decoded instruction on its major opcode.
func (e *Interpreter) execute(inst *insts.Instruction) StepResult {
	if inst.Op == insts.OpUnknown {
		return StepResult{
			Err: &IllegalInstructionError{Word: inst.Word, PC: e.regFile.PC},
		}
	}

	switch inst.Opcode {
	case insts.OpcodeLUI:
		e.regFile.WriteReg32(inst.Rd, uint32(inst.Imm))
	case insts.OpcodeAUIPC:
		e.regFile.WriteReg32(inst.Rd, uint32(e.regFile.PC)+uint32(inst.Imm))
	case insts.OpcodeJAL:
		e.branchUnit.JAL(inst.Rd, inst.Imm)
		return StepResult{Jumped: true}
	case insts.OpcodeJALR:
		e.branchUnit.JALR(inst.Rd, inst.Rs1, inst.Imm)
		return StepResult{Jumped: true}
	case insts.OpcodeBranch:
		taken := e.branchUnit.Branch(inst.Op, inst.Rs1, inst.Rs2, inst.Imm)
		return StepResult{Jumped: taken}
	case insts.OpcodeLoad:
		if err := e.lsu.Load(inst.Op, inst.Rd, inst.Rs1, inst.Imm); err != nil {
			return StepResult{Err: fmt.Errorf("pc=0x%X: %w", e.regFile.PC, err)}
		}
	case insts.OpcodeStore:
		if err := e.lsu.Store(inst.Op, inst.Rs1, inst.Rs2, inst.Imm); err != nil {
			return StepResult{Err: fmt.Errorf("pc=0x%X: %w", e.regFile.PC, err)}
		}
	case insts.OpcodeOpImm:
		e.alu.OpImm(inst.Op, inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpcodeOp:
		e.alu.Op(inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpcodeMiscMem:
		// Single hart, in order: nothing to order.
	case insts.OpcodeSystem:
		if inst.Op == insts.OpEBREAK {
			return StepResult{Trap: TrapEBreak}
		}
		return StepResult{Trap: TrapECall}
	}

	return StepResult{}
}

// Step fetches the word at PC (which must be executable), executes it and
// advances the PC by 4 unless the instruction jumped. ECALL is passed to
// the syscall handler and the PC moves past it; EBREAK leaves the PC on
// the breakpoint.
func (e *Interpreter) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	// 1. Fetch
	word, err := e.memory.Fetch32(e.regFile.PC)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch: %w", err)}
	}

	// 2. Decode and execute
	result := e.Execute(word)
	e.instructionCount++

	if result.Err != nil {
		return result
	}

	switch result.Trap {
	case TrapECall:
		e.advance()
		syscallResult := e.syscallHandler.Handle()
		result.Exited = syscallResult.Exited
		result.ExitCode = syscallResult.ExitCode
		return result
	case TrapEBreak:
		return result
	}

	if !result.Jumped {
		e.advance()
	}

	return result
}

func (e *Interpreter) advance() {
	e.regFile.PC = uint64(uint32(e.regFile.PC) + 4)
}

// Run executes instructions until the program exits, hits EBREAK, faults,
// reaches the instruction limit or ctx is cancelled. It returns the exit
// code of the exit syscall, or -1 with the reason execution stopped.
func (e *Interpreter) Run(ctx context.Context) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		result := e.Step()
		if result.Err != nil {
			e.logger.WithError(result.Err).WithField("instructions", e.instructionCount).
				Warn("execution stopped")
			return -1, result.Err
		}
		if result.Exited {
			e.logger.WithField("code", result.ExitCode).Info("program exited")
			return result.ExitCode, nil
		}
		if result.Trap == TrapEBreak {
			e.logger.WithField("pc", fmt.Sprintf("0x%08x", e.regFile.PC)).Info("breakpoint")
			return -1, fmt.Errorf("%w at pc=0x%X", ErrBreakpoint, e.regFile.PC)
		}
	}
}
