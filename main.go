// Package main provides the entry point for rv32sim.
// rv32sim is a functional RV32I interpreter.
//
// For the full CLI, use: go run ./cmd/rv32sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32sim - RV32I Interpreter")
	fmt.Println("")
	fmt.Println("Usage: rv32sim <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  exec      Execute instruction words directly")
	fmt.Println("  run       Run a flat binary or word-list program")
	fmt.Println("  disasm    Disassemble instruction words")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32sim' instead.")
	}
}
