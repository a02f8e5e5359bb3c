package memory

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
)

// Wazero adapts a wazero api.Memory to userhost.LinearMemory.
type Wazero struct {
	Mem api.Memory
}

// Exported returns the memory mod exports, or nil if it exports none.
// mod.Memory() alone cannot be compared to nil: for a module without memory
// wazero returns a nil instance behind a non-nil interface.
func Exported(mod api.Module) api.Memory {
	for name := range mod.ExportedMemoryDefinitions() {
		return mod.ExportedMemory(name)
	}
	return nil
}

// WrapWazero wraps the memory mod exports, or returns nil if there is none.
func WrapWazero(mod api.Module) userhost.LinearMemory {
	mem := Exported(mod)
	if mem == nil {
		return nil
	}
	return &Wazero{Mem: mem}
}

// SizePages returns the memory size in pages.
func (m *Wazero) SizePages() uint32 {
	return m.Mem.Size() / userhost.PageSize
}

// Read copies length bytes at ptr. wazero's own range check failing here
// means the guard and the runtime disagree on the memory size.
func (m *Wazero) Read(ptr, length uint32) []byte {
	data, ok := m.Mem.Read(ptr, length)
	if !ok {
		errors.Fatal(errors.New(errors.PhaseMemory, errors.KindInternal).
			Detail("guarded read rejected by runtime: ptr=%d, len=%d", ptr, length).
			Build())
	}
	out := make([]byte, length)
	copy(out, data)
	return out
}

// Write copies data to ptr.
func (m *Wazero) Write(ptr uint32, data []byte) {
	if !m.Mem.Write(ptr, data) {
		errors.Fatal(errors.New(errors.PhaseMemory, errors.KindInternal).
			Detail("guarded write rejected by runtime: ptr=%d, len=%d", ptr, len(data)).
			Build())
	}
}
