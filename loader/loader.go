// Package loader places RV32I programs into interpreter memory.
package loader

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rv32sim/emu"
)

// ErrSegmentRange is returned for a segment that does not fit in memory.
var ErrSegmentRange = errors.New("segment does not fit in memory")

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Perm converts segment flags into a memory permission mask.
func (f SegmentFlags) Perm() emu.Perm {
	var perm emu.Perm
	if f&SegmentFlagRead != 0 {
		perm |= emu.PermRead
	}
	if f&SegmentFlagWrite != 0 {
		perm |= emu.PermWrite
	}
	if f&SegmentFlagExecute != 0 {
		perm |= emu.PermExec
	}
	return perm
}

// Segment represents a loadable segment of a program.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments.
	Segments []Segment
}

// Fits checks that every segment, including its zero-filled tail, lies
// within a memory of the given capacity.
func (p *Program) Fits(capacity uint64) error {
	for i, seg := range p.Segments {
		size := max(seg.MemSize, uint64(len(seg.Data)))
		if seg.VirtAddr >= capacity || size > capacity-seg.VirtAddr {
			return fmt.Errorf("segment %d at 0x%x (%d bytes), capacity 0x%x: %w",
				i, seg.VirtAddr, size, capacity, ErrSegmentRange)
		}
	}
	return nil
}

// MemoryOptions returns the options that place every segment into an
// emu.Memory with the segment's permissions.
func (p *Program) MemoryOptions() []emu.MemoryOption {
	opts := make([]emu.MemoryOption, 0, 2*len(p.Segments))
	for _, seg := range p.Segments {
		perm := seg.Flags.Perm()
		if seg.MemSize > uint64(len(seg.Data)) {
			opts = append(opts, emu.WithRegion(seg.VirtAddr, seg.MemSize, perm))
		}
		opts = append(opts, emu.WithImage(seg.VirtAddr, seg.Data, perm))
	}
	return opts
}
