package ffiengine

// Memory is the native address space the engine marshals call data through.
// Addresses are plain offsets; implementations bounds-check every access.
type Memory interface {
	Read(addr uint64, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	ReadU8(addr uint64) (uint8, error)
	ReadU16(addr uint64) (uint16, error)
	ReadU32(addr uint64) (uint32, error)
	ReadU64(addr uint64) (uint64, error)
	WriteU8(addr uint64, value uint8) error
	WriteU16(addr uint64, value uint16) error
	WriteU32(addr uint64, value uint32) error
	WriteU64(addr uint64, value uint64) error
}

// Allocator carves temporary buffers out of native memory. Alloc never
// returns address zero; zero stays reserved as the null address.
type Allocator interface {
	Alloc(size, align uint64) (uint64, error)
	Free(addr, size, align uint64)
}
