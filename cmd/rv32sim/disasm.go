package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/loader"
)

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm [flags] [word...]",
		Short: "disassemble instruction words.",
		Long: `Print the assembler form of instruction words given as arguments,
	or of every word in a program with --file. Addresses start at --base.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := getUint(cmd, "base")
			file := getString(cmd, "file")
			words := getFlag(cmd, "words")

			if file == "" && len(args) == 0 {
				return fmt.Errorf("nothing to disassemble")
			}

			if file != "" {
				prog, err := loadProgram(file, base, words)
				if err != nil {
					return err
				}
				for _, seg := range prog.Segments {
					if seg.Flags&loader.SegmentFlagExecute == 0 {
						continue
					}
					disassemble(cmd.OutOrStdout(), seg.VirtAddr, decodeWords(seg.Data))
				}
				return nil
			}

			code, err := parseWordArgs(args)
			if err != nil {
				return err
			}
			disassemble(cmd.OutOrStdout(), base, code)
			return nil
		},
	}

	cmd.Flags().Uint64("base", 0, "address of the first word")
	cmd.Flags().String("file", "", "disassemble a program file")
	cmd.Flags().Bool("words", false, "read --file as a word list")

	return cmd
}

func decodeWords(data []byte) []uint32 {
	words := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(data[i:]))
	}
	return words
}

func disassemble(w io.Writer, addr uint64, words []uint32) {
	for i, word := range words {
		fmt.Fprintf(w, "%08x:  %08x  %s\n", uint32(addr)+uint32(4*i), word, insts.Disassemble(word))
	}
}
