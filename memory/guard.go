package memory

import (
	"encoding/binary"
	"math/bits"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
)

// Check reports whether [ptr, ptr+length) fits in pages pages of pageSize
// bytes. The end address is rounded up to whole pages, so an access ending
// exactly on the last page boundary is accepted. A ptr+length that does not
// fit in 32 bits saturates and is always rejected.
func Check(ptr, length, pages, pageSize uint32) error {
	end, carry := bits.Add32(ptr, length, 0)
	if carry != 0 || pageSize == 0 {
		return errors.OutOfBounds(ptr, length, pages)
	}
	lastPage := (uint64(end) + uint64(pageSize) - 1) / uint64(pageSize)
	if lastPage > uint64(pages) {
		return errors.OutOfBounds(ptr, length, pages)
	}
	return nil
}

// Guard is the bounds-checked view of one program's linear memory.
type Guard struct {
	raw userhost.LinearMemory
}

// NewGuard wraps raw. The returned Guard owns the only reference callers
// should keep.
func NewGuard(raw userhost.LinearMemory) *Guard {
	return &Guard{raw: raw}
}

// SizePages returns the current memory size in pages.
func (g *Guard) SizePages() uint32 {
	return g.raw.SizePages()
}

// Check validates an access against the current memory size.
func (g *Guard) Check(ptr, length uint32) error {
	return Check(ptr, length, g.raw.SizePages(), userhost.PageSize)
}

// Read returns a copy of length bytes at ptr.
func (g *Guard) Read(ptr, length uint32) ([]byte, error) {
	if err := g.Check(ptr, length); err != nil {
		return nil, err
	}
	return g.raw.Read(ptr, length), nil
}

// ReadInto fills dst from ptr.
func (g *Guard) ReadInto(ptr uint32, dst []byte) error {
	data, err := g.Read(ptr, uint32(len(dst)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Write copies data to ptr.
func (g *Guard) Write(ptr uint32, data []byte) error {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return errors.OutOfBounds(ptr, ^uint32(0), g.raw.SizePages())
	}
	if err := g.Check(ptr, uint32(len(data))); err != nil {
		return err
	}
	g.raw.Write(ptr, data)
	return nil
}

// WriteU32 stores x little-endian at ptr.
func (g *Guard) WriteU32(ptr uint32, x uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], x)
	return g.Write(ptr, buf[:])
}

// ReadU32 loads a little-endian uint32 from ptr.
func (g *Guard) ReadU32(ptr uint32) (uint32, error) {
	data, err := g.Read(ptr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}
