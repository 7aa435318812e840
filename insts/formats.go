// Package insts provides RV32I instruction formats and decoding.
package insts

// Opcode is the major opcode held in the low 7 bits of an instruction word.
type Opcode uint8

// RV32I major opcodes.
const (
	OpcodeLoad    Opcode = 0b0000011
	OpcodeMiscMem Opcode = 0b0001111
	OpcodeOpImm   Opcode = 0b0010011
	OpcodeAUIPC   Opcode = 0b0010111
	OpcodeStore   Opcode = 0b0100011
	OpcodeOp      Opcode = 0b0110011
	OpcodeLUI     Opcode = 0b0110111
	OpcodeBranch  Opcode = 0b1100011
	OpcodeJALR    Opcode = 0b1100111
	OpcodeJAL     Opcode = 0b1101111
	OpcodeSystem  Opcode = 0b1110011
)

// OpcodeOf extracts the major opcode from bits [6:0].
func OpcodeOf(word uint32) Opcode {
	return Opcode(word & 0x7F)
}

// SignExtend interprets the low bits of value as a two's complement number
// and widens it to 64 bits. bits must be in the range [1, 32].
func SignExtend(value uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(value<<shift) >> shift
}

// RType holds the fields of a register-register instruction.
type RType struct {
	Rd     uint8
	Funct3 uint8
	Rs1    uint8
	Rs2    uint8
	Funct7 uint8
}

// IType holds the fields of a register-immediate, load or JALR instruction.
type IType struct {
	Rd     uint8
	Funct3 uint8
	Rs1    uint8
	Imm    int64 // sign-extended imm[11:0]
}

// SType holds the fields of a store instruction.
type SType struct {
	Funct3 uint8
	Rs1    uint8
	Rs2    uint8
	Imm    int64 // sign-extended {imm[11:5], imm[4:0]}
}

// BType holds the fields of a conditional branch.
type BType struct {
	Funct3 uint8
	Rs1    uint8
	Rs2    uint8
	Imm    int64 // sign-extended byte offset, bit 0 always clear
}

// UType holds the fields of LUI and AUIPC.
type UType struct {
	Rd  uint8
	Imm uint32 // imm[31:12] in place, low 12 bits zero
}

// JType holds the fields of JAL.
type JType struct {
	Rd  uint8
	Imm int64 // sign-extended byte offset, bit 0 always clear
}

func rd(word uint32) uint8 { return uint8((word >> 7) & 0x1F) }
func funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }
func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }
func funct7(word uint32) uint8 { return uint8((word >> 25) & 0x7F) }

// DecodeR decodes an R-type word.
// Format: funct7 | rs2 | rs1 | funct3 | rd | opcode
func DecodeR(word uint32) RType {
	return RType{
		Rd:     rd(word),
		Funct3: funct3(word),
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Funct7: funct7(word),
	}
}

// DecodeI decodes an I-type word.
// Format: imm[11:0] | rs1 | funct3 | rd | opcode
func DecodeI(word uint32) IType {
	imm := uint64(word >> 20) // bits [31:20]

	return IType{
		Rd:     rd(word),
		Funct3: funct3(word),
		Rs1:    rs1(word),
		Imm:    SignExtend(imm, 12),
	}
}

// DecodeS decodes an S-type word.
// Format: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func DecodeS(word uint32) SType {
	lo := uint64((word >> 7) & 0x1F) // bits [11:7]
	hi := uint64(word >> 25)         // bits [31:25]

	return SType{
		Funct3: funct3(word),
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Imm:    SignExtend(hi<<5|lo, 12),
	}
}

// DecodeB decodes a B-type word.
// Format: imm[12] | imm[10:5] | rs2 | rs1 | funct3 | imm[4:1] | imm[11] | opcode
func DecodeB(word uint32) BType {
	imm11 := uint64((word >> 7) & 0x1)     // bit 7
	imm4_1 := uint64((word >> 8) & 0xF)    // bits [11:8]
	imm10_5 := uint64((word >> 25) & 0x3F) // bits [30:25]
	imm12 := uint64(word >> 31)            // bit 31

	imm := imm12<<12 | imm11<<11 | imm10_5<<5 | imm4_1<<1

	return BType{
		Funct3: funct3(word),
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Imm:    SignExtend(imm, 13),
	}
}

// DecodeU decodes a U-type word.
// Format: imm[31:12] | rd | opcode
func DecodeU(word uint32) UType {
	return UType{
		Rd:  rd(word),
		Imm: word & 0xFFFFF000,
	}
}

// DecodeJ decodes a J-type word.
// Format: imm[20] | imm[10:1] | imm[11] | imm[19:12] | rd | opcode
func DecodeJ(word uint32) JType {
	imm19_12 := uint64((word >> 12) & 0xFF) // bits [19:12]
	imm11 := uint64((word >> 20) & 0x1)     // bit 20
	imm10_1 := uint64((word >> 21) & 0x3FF) // bits [30:21]
	imm20 := uint64(word >> 31)             // bit 31

	imm := imm20<<20 | imm19_12<<12 | imm11<<11 | imm10_1<<1

	return JType{
		Rd:  rd(word),
		Imm: SignExtend(imm, 21),
	}
}
