package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// textFlags marks code placed by the flat loaders.
const textFlags = SegmentFlagRead | SegmentFlagExecute

// LoadFlat loads a raw little-endian binary image at base. Execution starts
// at base.
func LoadFlat(path string, base uint64) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return flatProgram(base, data), nil
}

// LoadWords loads a word-list text file at base. See ParseWords.
func LoadWords(path string, base uint64) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer func() { _ = f.Close() }()

	words, err := ParseWords(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return flatProgram(base, EncodeWords(words)), nil
}

// ParseWords reads one instruction word per line. Each line is an integer
// expression such as 0x00040513, 0b1111111100000001 or base + 8; text after
// '#' is ignored. The names base and pc are bound to the load address and
// the address of the word being parsed.
func ParseWords(r io.Reader, base uint64) ([]uint32, error) {
	var words []uint32

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pc := base + 4*uint64(len(words))
		value, err := Eval(line, map[string]int64{
			"base": int64(base),
			"pc":   int64(pc),
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}

		word, err := toWord(value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		words = append(words, word)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return words, nil
}

// EncodeWords lays out words little-endian.
func EncodeWords(words []uint32) []byte {
	data := make([]byte, 0, 4*len(words))
	for _, w := range words {
		data = binary.LittleEndian.AppendUint32(data, w)
	}
	return data
}

func toWord(value int64) (uint32, error) {
	if value < -(1<<31) || value > 1<<32-1 {
		return 0, fmt.Errorf("%w: 0x%x does not fit in 32 bits", ErrExpression, value)
	}
	return uint32(value), nil
}

func flatProgram(base uint64, data []byte) *Program {
	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    textFlags,
		}},
	}
}
