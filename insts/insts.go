// Package insts provides RV32I instruction formats and decoding.
//
// This package turns raw 32-bit RISC-V instruction words into structured
// operand records. It supports:
//   - The six base encoding formats: R, I, S, B, U and J
//   - Sign extension of packed immediates
//   - Mnemonic decoding and disassembly of the RV32I base set
//
// Usage:
//
//	addi := insts.DecodeI(0xFF010113) // addi x2, x2, -16
//	fmt.Printf("Rd: %d, Rs1: %d, Imm: %d\n", addi.Rd, addi.Rs1, addi.Imm)
//
//	decoder := insts.NewDecoder()
//	fmt.Println(decoder.Decode(0xFF010113)) // addi x2, x2, -16
package insts
