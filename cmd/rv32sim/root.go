package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// exitError carries a guest exit status out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rv32sim",
		Short:         "A functional RV32I interpreter.",
		Long:          "Execute, run and disassemble RV32I machine code.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd.ErrOrStderr(), getFlag(cmd, "debug"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if getFlag(cmd, "version") {
				version := "(unknown version)"
				if info, ok := debug.ReadBuildInfo(); ok {
					version = info.Main.Version
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rv32sim %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}

	root.Flags().Bool("version", false, "Report version of this executable")
	root.PersistentFlags().Bool("debug", false, "trace every instruction")

	root.AddCommand(newExecCmd(), newRunCmd(), newDisasmCmd())

	return root
}

// configureLogging routes logrus to w, with colors only on a terminal.
func configureLogging(w io.Writer, debugLevel bool) {
	colors := false
	if f, ok := w.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}

	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:      colors,
		DisableColors:    !colors,
		DisableTimestamp: true,
	})

	if debugLevel {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// getFlag reads a bool flag that is known to exist.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		log.Fatal(err)
	}

	return r
}

// getUint reads a uint64 flag that is known to exist.
func getUint(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		log.Fatal(err)
	}

	return r
}

// getString reads a string flag that is known to exist.
func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		log.Fatal(err)
	}

	return r
}

// getStringArray reads a string array flag that is known to exist.
func getStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		log.Fatal(err)
	}

	return r
}

// printRegisters dumps the register file four registers per line.
func printRegisters(w io.Writer, regs *emu.RegFile) {
	for i := uint8(0); i < 32; i++ {
		sep := "  "
		if i%4 == 3 {
			sep = "\n"
		}
		name := fmt.Sprintf("x%d/%s", i, insts.ABIName(i))
		fmt.Fprintf(w, "%-8s 0x%08x%s", name, regs.ReadReg32(i), sep)
	}
	fmt.Fprintf(w, "pc       0x%08x\n", uint32(regs.PC))
}
