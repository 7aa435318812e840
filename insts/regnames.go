package insts

import (
	"strconv"
	"strings"
)

// abiNames are the calling-convention names of x0-x31.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// ABIName returns the calling-convention name of register reg.
func ABIName(reg uint8) string {
	if int(reg) < len(abiNames) {
		return abiNames[reg]
	}
	return "x" + strconv.Itoa(int(reg))
}

// RegisterIndex resolves "x0".."x31", an ABI name or "fp" to a register
// number.
func RegisterIndex(name string) (uint8, bool) {
	name = strings.ToLower(strings.TrimSpace(name))

	if rest, ok := strings.CutPrefix(name, "x"); ok {
		n, err := strconv.ParseUint(rest, 10, 8)
		if err == nil && n < 32 {
			return uint8(n), true
		}
		return 0, false
	}

	if name == "fp" {
		return 8, true
	}

	for i, abi := range abiNames {
		if abi == name {
			return uint8(i), true
		}
	}

	return 0, false
}
