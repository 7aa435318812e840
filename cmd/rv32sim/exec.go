package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] word...",
		Short: "execute instruction words directly.",
		Long: `Execute each instruction word against a fresh interpreter, in order,
	without fetching from memory. Words are integer expressions such as
	0b01000101010100000000000011101111 or 0xFF010113. The pc advances by 4
	after every instruction that does not jump. The final register file is
	printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := getUint(cmd, "entry")
			capacity := getUint(cmd, "capacity")

			words, err := parseWordArgs(args)
			if err != nil {
				return err
			}

			interp := emu.NewInterpreter(
				emu.WithMemoryCapacity(capacity),
				emu.WithEntryPoint(entry),
				emu.WithLogger(log.StandardLogger()),
			)

			if err := execWords(interp, words); err != nil {
				return err
			}

			printRegisters(cmd.OutOrStdout(), interp.RegFile())
			return nil
		},
	}

	cmd.Flags().Uint64("entry", 0, "initial pc")
	cmd.Flags().Uint64("capacity", emu.DefaultMemoryCapacity, "memory size in bytes")

	return cmd
}

// execWords runs words through Execute, advancing pc past non-jumps. Traps
// are logged and skipped.
func execWords(interp *emu.Interpreter, words []uint32) error {
	for _, word := range words {
		result := interp.Execute(word)
		if result.Err != nil {
			return result.Err
		}

		if result.Trap != emu.TrapNone {
			log.WithField("pc", fmt.Sprintf("0x%08x", interp.PC())).Info(result.Trap)
		}

		if !result.Jumped {
			interp.SetPC(uint64(uint32(interp.PC()) + 4))
		}
	}

	return nil
}

func parseWordArgs(args []string) ([]uint32, error) {
	words := make([]uint32, 0, len(args))
	for _, arg := range args {
		value, err := loader.Eval(arg, nil)
		if err != nil {
			return nil, err
		}
		if value < -(1<<31) || value > 1<<32-1 {
			return nil, fmt.Errorf("%w: %s does not fit in 32 bits", loader.ErrExpression, arg)
		}
		words = append(words, uint32(value))
	}

	return words, nil
}
