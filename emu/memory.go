package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// DefaultMemoryCapacity is the size of the address space when no capacity
// is configured.
const DefaultMemoryCapacity = 4 * mem.MB

// Perm is the permission mask kept for every byte of memory.
type Perm uint8

// Permission bits.
const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec

	PermNone Perm = 0
)

// Has reports whether every bit of mask is set.
func (p Perm) Has(mask Perm) bool {
	return p&mask == mask
}

// String renders the mask as an "rwx" triple.
func (p Perm) String() string {
	out := []byte("---")
	if p.Has(PermRead) {
		out[0] = 'r'
	}
	if p.Has(PermWrite) {
		out[1] = 'w'
	}
	if p.Has(PermExec) {
		out[2] = 'x'
	}
	return string(out)
}

// Access is the kind of memory access being checked.
type Access uint8

// Access kinds.
const (
	AccessRead Access = iota
	AccessWrite
	AccessExec
)

// Perm returns the permission bit an access requires.
func (a Access) Perm() Perm {
	switch a {
	case AccessWrite:
		return PermWrite
	case AccessExec:
		return PermExec
	default:
		return PermRead
	}
}

func (a Access) String() string {
	switch a {
	case AccessWrite:
		return "write"
	case AccessExec:
		return "fetch"
	default:
		return "read"
	}
}

// Memory is a flat little-endian byte store with a permission byte per
// address. Data lives in an akita storage sized to the capacity.
//
// Every access checks bounds and permission for each byte it spans before
// any data is read or written.
type Memory struct {
	storage  *mem.Storage
	perms    []Perm
	capacity uint64
}

type memoryRegion struct {
	addr uint64
	size uint64
	perm Perm
	data []byte
}

type memoryConfig struct {
	capacity uint64
	regions  []memoryRegion
}

// MemoryOption configures a Memory at construction time.
type MemoryOption func(*memoryConfig)

// WithCapacity sets the number of addressable bytes.
func WithCapacity(capacity uint64) MemoryOption {
	return func(c *memoryConfig) {
		c.capacity = capacity
	}
}

// WithRegion sets the permission of [addr, addr+size). Bytes beyond the
// capacity are ignored.
func WithRegion(addr, size uint64, perm Perm) MemoryOption {
	return func(c *memoryConfig) {
		c.regions = append(c.regions, memoryRegion{addr: addr, size: size, perm: perm})
	}
}

// WithImage copies data to addr and sets its permission. This is how a
// loader places code and marks it executable. Bytes beyond the capacity
// are dropped.
func WithImage(addr uint64, data []byte, perm Perm) MemoryOption {
	return func(c *memoryConfig) {
		c.regions = append(c.regions, memoryRegion{
			addr: addr,
			size: uint64(len(data)),
			perm: perm,
			data: data,
		})
	}
}

// NewMemory creates a memory with every byte readable and writable.
// Options are applied in order, so later regions override earlier ones.
func NewMemory(opts ...MemoryOption) *Memory {
	cfg := memoryConfig{capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memory{
		storage:  mem.NewStorage(cfg.capacity),
		perms:    make([]Perm, cfg.capacity),
		capacity: cfg.capacity,
	}

	for i := range m.perms {
		m.perms[i] = PermRead | PermWrite
	}

	for _, region := range cfg.regions {
		m.applyRegion(region)
	}

	return m
}

func (m *Memory) applyRegion(region memoryRegion) {
	if region.addr >= m.capacity {
		return
	}

	size := min(region.size, m.capacity-region.addr)
	for i := uint64(0); i < size; i++ {
		m.perms[region.addr+i] = region.perm
	}

	if region.data != nil {
		// Construction-time contents bypass the permission check.
		_ = m.storage.Write(region.addr, region.data[:size])
	}
}

// Capacity returns the number of addressable bytes.
func (m *Memory) Capacity() uint64 {
	return m.capacity
}

// Perm returns the permission of a single byte. ok is false if addr is
// outside the capacity.
func (m *Memory) Perm(addr uint64) (perm Perm, ok bool) {
	if addr >= m.capacity {
		return PermNone, false
	}
	return m.perms[addr], true
}

// check validates bounds and permission for every byte of an access.
func (m *Memory) check(addr, size uint64, access Access) error {
	if addr >= m.capacity || size > m.capacity-addr {
		faultAddr := addr
		if addr < m.capacity {
			faultAddr = m.capacity
		}
		return &MemoryFault{
			Access:    access,
			Addr:      addr,
			Size:      size,
			FaultAddr: faultAddr,
			Reason:    ErrOutOfBounds,
		}
	}

	need := access.Perm()
	for i := uint64(0); i < size; i++ {
		if !m.perms[addr+i].Has(need) {
			return &MemoryFault{
				Access:    access,
				Addr:      addr,
				Size:      size,
				FaultAddr: addr + i,
				Reason:    ErrPermissionDenied,
			}
		}
	}

	return nil
}

func (m *Memory) load(addr, size uint64, access Access) ([]byte, error) {
	if err := m.check(addr, size, access); err != nil {
		return nil, err
	}

	data, err := m.storage.Read(addr, size)
	if err != nil {
		return nil, fmt.Errorf("storage read at 0x%x: %w", addr, err)
	}
	return data, nil
}

func (m *Memory) store(addr uint64, data []byte) error {
	if err := m.check(addr, uint64(len(data)), AccessWrite); err != nil {
		return err
	}

	if err := m.storage.Write(addr, data); err != nil {
		return fmt.Errorf("storage write at 0x%x: %w", addr, err)
	}
	return nil
}

// Check reports the fault an access of size bytes at addr would raise, or
// nil if it would succeed. Nothing is read or written.
func (m *Memory) Check(addr, size uint64, access Access) error {
	return m.check(addr, size, access)
}

// ReadBytes reads size bytes. Either every byte is read or none is.
func (m *Memory) ReadBytes(addr, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return m.load(addr, size, AccessRead)
}

// WriteBytes writes data at addr. Either every byte is written or none is.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return m.store(addr, data)
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) (uint8, error) {
	data, err := m.load(addr, 1, AccessRead)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Read16 reads a little-endian halfword. addr need not be aligned.
func (m *Memory) Read16(addr uint64) (uint16, error) {
	data, err := m.load(addr, 2, AccessRead)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

// Read32 reads a little-endian word. addr need not be aligned.
func (m *Memory) Read32(addr uint64) (uint32, error) {
	data, err := m.load(addr, 4, AccessRead)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Fetch32 reads an instruction word, which requires execute permission
// rather than read permission.
func (m *Memory) Fetch32(addr uint64) (uint32, error) {
	data, err := m.load(addr, 4, AccessExec)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, value uint8) error {
	return m.store(addr, []byte{value})
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) error {
	return m.store(addr, binary.LittleEndian.AppendUint16(nil, value))
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, value uint32) error {
	return m.store(addr, binary.LittleEndian.AppendUint32(nil, value))
}
