package insts

import "fmt"

// String renders the instruction in assembler syntax, using xN register
// names and decimal branch offsets relative to the instruction.
func (inst *Instruction) String() string {
	name := inst.Op.String()

	switch inst.Op {
	case OpUnknown:
		return fmt.Sprintf("unknown 0x%08x", inst.Word)
	case OpFENCE, OpFENCEI, OpECALL, OpEBREAK:
		return name
	case OpLUI, OpAUIPC:
		return fmt.Sprintf("%s x%d, 0x%x", name, inst.Rd, uint32(inst.Imm)>>12)
	case OpJAL:
		return fmt.Sprintf("%s x%d, %d", name, inst.Rd, inst.Imm)
	case OpJALR, OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rd, inst.Imm, inst.Rs1)
	case OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rs2, inst.Imm, inst.Rs1)
	}

	switch inst.Format {
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, inst.Rd, inst.Rs1, inst.Rs2)
	default:
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, inst.Imm)
	}
}

// Disassemble decodes and renders a single instruction word.
func Disassemble(word uint32) string {
	return NewDecoder().Decode(word).String()
}
