// Package insts provides RV32I instruction formats and decoding.
package insts

// Op represents an RV32I operation.
type Op uint16

// RV32I operations.
const (
	OpUnknown Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpLUI:     "lui",
	OpAUIPC:   "auipc",
	OpJAL:     "jal",
	OpJALR:    "jalr",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpBLT:     "blt",
	OpBGE:     "bge",
	OpBLTU:    "bltu",
	OpBGEU:    "bgeu",
	OpLB:      "lb",
	OpLH:      "lh",
	OpLW:      "lw",
	OpLBU:     "lbu",
	OpLHU:     "lhu",
	OpSB:      "sb",
	OpSH:      "sh",
	OpSW:      "sw",
	OpADDI:    "addi",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpXORI:    "xori",
	OpORI:     "ori",
	OpANDI:    "andi",
	OpSLLI:    "slli",
	OpSRLI:    "srli",
	OpSRAI:    "srai",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpXOR:     "xor",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpOR:      "or",
	OpAND:     "and",
	OpFENCE:   "fence",
	OpFENCEI:  "fence.i",
	OpECALL:   "ecall",
	OpEBREAK:  "ebreak",
}

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return opNames[OpUnknown]
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR           // Register-register
	FormatI           // Register-immediate, loads, JALR, system
	FormatS           // Stores
	FormatB           // Conditional branches
	FormatU           // Upper immediate
	FormatJ           // Jump and link
)

// Instruction represents a decoded RV32I instruction.
type Instruction struct {
	Word   uint32 // Raw encoding
	Opcode Opcode // Major opcode, bits [6:0]
	Op     Op     // Operation
	Format Format // Encoding format

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate. For shifts it holds the shift
	// amount, and for U-type it holds the 32-bit value with the low 12
	// bits clear, sign-extended to 64 bits.
	Imm int64
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word. Words that do not name
// an RV32I operation decode with Op set to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Word:   word,
		Opcode: OpcodeOf(word),
		Op:     OpUnknown,
		Format: FormatUnknown,
	}

	switch inst.Opcode {
	case OpcodeLUI, OpcodeAUIPC:
		d.decodeUpper(word, inst)
	case OpcodeJAL:
		d.decodeJAL(word, inst)
	case OpcodeJALR:
		d.decodeJALR(word, inst)
	case OpcodeBranch:
		d.decodeBranch(word, inst)
	case OpcodeLoad:
		d.decodeLoad(word, inst)
	case OpcodeStore:
		d.decodeStore(word, inst)
	case OpcodeOpImm:
		d.decodeOpImm(word, inst)
	case OpcodeOp:
		d.decodeOp(word, inst)
	case OpcodeMiscMem:
		d.decodeMiscMem(word, inst)
	case OpcodeSystem:
		d.decodeSystem(word, inst)
	}

	return inst
}

func (d *Decoder) decodeUpper(word uint32, inst *Instruction) {
	u := DecodeU(word)

	inst.Format = FormatU
	inst.Rd = u.Rd
	inst.Imm = int64(int32(u.Imm))

	if inst.Opcode == OpcodeLUI {
		inst.Op = OpLUI
	} else {
		inst.Op = OpAUIPC
	}
}

func (d *Decoder) decodeJAL(word uint32, inst *Instruction) {
	j := DecodeJ(word)

	inst.Format = FormatJ
	inst.Op = OpJAL
	inst.Rd = j.Rd
	inst.Imm = j.Imm
}

func (d *Decoder) decodeJALR(word uint32, inst *Instruction) {
	i := DecodeI(word)
	if i.Funct3 != 0b000 {
		return
	}

	inst.Format = FormatI
	inst.Op = OpJALR
	inst.Rd = i.Rd
	inst.Rs1 = i.Rs1
	inst.Imm = i.Imm
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	b := DecodeB(word)

	switch b.Funct3 {
	case 0b000:
		inst.Op = OpBEQ
	case 0b001:
		inst.Op = OpBNE
	case 0b100:
		inst.Op = OpBLT
	case 0b101:
		inst.Op = OpBGE
	case 0b110:
		inst.Op = OpBLTU
	case 0b111:
		inst.Op = OpBGEU
	default:
		return
	}

	inst.Format = FormatB
	inst.Rs1 = b.Rs1
	inst.Rs2 = b.Rs2
	inst.Imm = b.Imm
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	i := DecodeI(word)

	switch i.Funct3 {
	case 0b000:
		inst.Op = OpLB
	case 0b001:
		inst.Op = OpLH
	case 0b010:
		inst.Op = OpLW
	case 0b100:
		inst.Op = OpLBU
	case 0b101:
		inst.Op = OpLHU
	default:
		return
	}

	inst.Format = FormatI
	inst.Rd = i.Rd
	inst.Rs1 = i.Rs1
	inst.Imm = i.Imm
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	s := DecodeS(word)

	switch s.Funct3 {
	case 0b000:
		inst.Op = OpSB
	case 0b001:
		inst.Op = OpSH
	case 0b010:
		inst.Op = OpSW
	default:
		return
	}

	inst.Format = FormatS
	inst.Rs1 = s.Rs1
	inst.Rs2 = s.Rs2
	inst.Imm = s.Imm
}

// decodeOpImm decodes register-immediate ALU instructions.
// Shifts reuse imm[11:5] as a funct7 field and imm[4:0] as the shift amount.
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	i := DecodeI(word)
	hi := funct7(word) // imm[11:5]
	shamt := rs2(word) // imm[4:0]

	switch i.Funct3 {
	case 0b000:
		inst.Op = OpADDI
	case 0b010:
		inst.Op = OpSLTI
	case 0b011:
		inst.Op = OpSLTIU
	case 0b100:
		inst.Op = OpXORI
	case 0b110:
		inst.Op = OpORI
	case 0b111:
		inst.Op = OpANDI
	case 0b001:
		if hi != 0b0000000 {
			return
		}
		inst.Op = OpSLLI
	case 0b101:
		switch hi {
		case 0b0000000:
			inst.Op = OpSRLI
		case 0b0100000:
			inst.Op = OpSRAI
		default:
			return
		}
	}

	inst.Format = FormatI
	inst.Rd = i.Rd
	inst.Rs1 = i.Rs1
	inst.Imm = i.Imm

	if i.Funct3 == 0b001 || i.Funct3 == 0b101 {
		inst.Imm = int64(shamt)
	}
}

func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	r := DecodeR(word)

	switch r.Funct7 {
	case 0b0000000:
		inst.Op = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}[r.Funct3]
	case 0b0100000:
		switch r.Funct3 {
		case 0b000:
			inst.Op = OpSUB
		case 0b101:
			inst.Op = OpSRA
		default:
			return
		}
	default:
		return
	}

	inst.Format = FormatR
	inst.Rd = r.Rd
	inst.Rs1 = r.Rs1
	inst.Rs2 = r.Rs2
}

func (d *Decoder) decodeMiscMem(word uint32, inst *Instruction) {
	i := DecodeI(word)

	switch i.Funct3 {
	case 0b000:
		inst.Op = OpFENCE
	case 0b001:
		inst.Op = OpFENCEI
	default:
		return
	}

	inst.Format = FormatI
	inst.Imm = i.Imm
}

// decodeSystem accepts only the two fully-specified environment encodings.
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	switch word {
	case 0x00000073:
		inst.Op = OpECALL
	case 0x00100073:
		inst.Op = OpEBREAK
	default:
		return
	}

	inst.Format = FormatI
	inst.Imm = int64(word >> 20)
}
