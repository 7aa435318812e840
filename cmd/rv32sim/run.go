package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/loader"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] program",
		Short: "run a program until it exits.",
		Long: `Load a flat binary, or a word list with --words, at --base and run
	it. The loaded words are read-only and executable; the rest of memory is
	read/write. The stack pointer starts at the top of memory. The guest exit
	status becomes the exit status of rv32sim.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := getUint(cmd, "base")
			capacity := getUint(cmd, "capacity")
			maxInsts := getUint(cmd, "max-instructions")
			presets := getStringArray(cmd, "reg")
			words := getFlag(cmd, "words")
			showRegs := getFlag(cmd, "registers")

			prog, err := loadProgram(args[0], base, words)
			if err != nil {
				return err
			}
			if err := prog.Fits(capacity); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			log.WithFields(log.Fields{
				"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
				"segments": len(prog.Segments),
			}).Debug("loaded ", args[0])

			memory := emu.NewMemory(append(
				[]emu.MemoryOption{emu.WithCapacity(capacity)},
				prog.MemoryOptions()...)...)

			interp := emu.NewInterpreter(
				emu.WithMemory(memory),
				emu.WithEntryPoint(prog.EntryPoint),
				emu.WithMaxInstructions(maxInsts),
				emu.WithLogger(log.StandardLogger()),
				emu.WithStdin(cmd.InOrStdin()),
				emu.WithStdout(cmd.OutOrStdout()),
				emu.WithStderr(cmd.ErrOrStderr()),
			)
			interp.RegFile().WriteReg(2, capacity&^0xF)

			if err := applyPresets(interp.RegFile(), presets, map[string]int64{
				"capacity": int64(capacity),
				"entry":    int64(prog.EntryPoint),
			}); err != nil {
				return err
			}

			code, err := interp.Run(cmd.Context())

			log.WithField("instructions", interp.InstructionCount()).Debug("done")
			if showRegs {
				printRegisters(cmd.ErrOrStderr(), interp.RegFile())
			}

			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: int(code)}
			}
			return nil
		},
	}

	cmd.Flags().Bool("words", false, "read the program as a word list")
	cmd.Flags().Uint64("base", 0x1000, "load address of flat and word-list programs")
	cmd.Flags().Uint64("capacity", emu.DefaultMemoryCapacity, "memory size in bytes")
	cmd.Flags().Uint64("max-instructions", 0, "stop after this many instructions (0 = no limit)")
	cmd.Flags().StringArray("reg", nil, "preset a register, e.g. a0=3 or sp=capacity-64")
	cmd.Flags().Bool("registers", false, "print the register file on exit")

	return cmd
}

func loadProgram(path string, base uint64, words bool) (*loader.Program, error) {
	if words {
		return loader.LoadWords(path, base)
	}
	return loader.LoadFlat(path, base)
}

// applyPresets evaluates NAME=EXPR assignments into the register file.
func applyPresets(regs *emu.RegFile, presets []string, env map[string]int64) error {
	for _, preset := range presets {
		name, expr, ok := strings.Cut(preset, "=")
		if !ok {
			return fmt.Errorf("register preset %q: want NAME=EXPR", preset)
		}

		reg, ok := insts.RegisterIndex(name)
		if !ok {
			return fmt.Errorf("register preset %q: unknown register %q", preset, name)
		}

		value, err := loader.Eval(expr, env)
		if err != nil {
			return fmt.Errorf("register preset %q: %w", preset, err)
		}

		regs.WriteReg32(reg, uint32(value))
	}

	return nil
}
