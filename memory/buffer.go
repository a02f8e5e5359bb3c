package memory

import "github.com/wippyai/userhost"

// Buffer is a LinearMemory held in a Go byte slice. Like WASM memory it
// grows in whole pages and never shrinks.
type Buffer struct {
	data []byte
}

// NewBuffer allocates a zeroed memory of the given number of pages.
func NewBuffer(pages uint32) *Buffer {
	return &Buffer{data: make([]byte, uint64(pages)*uint64(userhost.PageSize))}
}

// SizePages returns the memory size in pages.
func (b *Buffer) SizePages() uint32 {
	return uint32(uint64(len(b.data)) / uint64(userhost.PageSize))
}

// Grow adds delta pages and returns the previous size.
func (b *Buffer) Grow(delta uint32) uint32 {
	prev := b.SizePages()
	b.data = append(b.data, make([]byte, uint64(delta)*uint64(userhost.PageSize))...)
	return prev
}

// Read copies length bytes at ptr. The caller has already checked bounds.
func (b *Buffer) Read(ptr, length uint32) []byte {
	out := make([]byte, length)
	copy(out, b.data[ptr:uint64(ptr)+uint64(length)])
	return out
}

// Write copies data to ptr. The caller has already checked bounds.
func (b *Buffer) Write(ptr uint32, data []byte) {
	copy(b.data[ptr:uint64(ptr)+uint64(len(data))], data)
}
