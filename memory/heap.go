package memory

import (
	"encoding/binary"
	"sync"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/errors"
)

// Address is a raw native pointer scalar.
type Address uint64

// Heap is a linear, bounds-checked native address space with a bump
// allocator. It implements both the Memory and Allocator contracts.
// Address zero is reserved as null; the first allocation starts past it.
type Heap struct {
	mu     sync.Mutex
	data   []byte
	brk    uint64
	allocs uint64
	frees  uint64
}

const heapBase = 16

// NewHeap creates a heap of the given byte size.
func NewHeap(size uint64) *Heap {
	if size < heapBase {
		size = heapBase
	}
	return &Heap{data: make([]byte, size), brk: heapBase}
}

// Alloc reserves an aligned block. The heap never reuses freed space;
// Free only participates in accounting.
func (h *Heap) Alloc(size, align uint64) (uint64, error) {
	if align == 0 {
		align = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	addr := (h.brk + align - 1) &^ (align - 1)
	if end := addr + size; end > uint64(len(h.data)) || end < addr {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	h.brk = addr + size
	h.allocs++
	return addr, nil
}

// Free releases a block. The underlying space is not reclaimed.
func (h *Heap) Free(addr, size, align uint64) {
	h.mu.Lock()
	h.frees++
	h.mu.Unlock()
}

// Counts reports lifetime allocation and free counts.
func (h *Heap) Counts() (allocs, frees uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocs, h.frees
}

func (h *Heap) check(addr, length uint64) error {
	if addr+length > uint64(len(h.data)) || addr+length < addr {
		return errors.OutOfBounds(errors.PhaseMarshal, addr, length, uint64(len(h.data)))
	}
	return nil
}

// Read returns a copy of length bytes at addr.
func (h *Heap) Read(addr uint64, length uint64) ([]byte, error) {
	if err := h.check(addr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, h.data[addr:addr+length])
	return out, nil
}

func (h *Heap) Write(addr uint64, data []byte) error {
	if err := h.check(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(h.data[addr:], data)
	return nil
}

func (h *Heap) ReadU8(addr uint64) (uint8, error) {
	if err := h.check(addr, 1); err != nil {
		return 0, err
	}
	return h.data[addr], nil
}

func (h *Heap) ReadU16(addr uint64) (uint16, error) {
	if err := h.check(addr, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(h.data[addr:]), nil
}

func (h *Heap) ReadU32(addr uint64) (uint32, error) {
	if err := h.check(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(h.data[addr:]), nil
}

func (h *Heap) ReadU64(addr uint64) (uint64, error) {
	if err := h.check(addr, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(h.data[addr:]), nil
}

func (h *Heap) WriteU8(addr uint64, value uint8) error {
	if err := h.check(addr, 1); err != nil {
		return err
	}
	h.data[addr] = value
	return nil
}

func (h *Heap) WriteU16(addr uint64, value uint16) error {
	if err := h.check(addr, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(h.data[addr:], value)
	return nil
}

func (h *Heap) WriteU32(addr uint64, value uint32) error {
	if err := h.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(h.data[addr:], value)
	return nil
}

func (h *Heap) WriteU64(addr uint64, value uint64) error {
	if err := h.check(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(h.data[addr:], value)
	return nil
}

var _ ffiengine.Memory = (*Heap)(nil)
var _ ffiengine.Allocator = (*Heap)(nil)
