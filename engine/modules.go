package engine

import (
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/userhost/evm"
)

// moduleTable maps handles to instantiated user modules.
// Handles start at 1; released handles are reused.
type moduleTable struct {
	entries  []moduleEntry
	freeList []uint32
	mu       sync.RWMutex
}

type moduleEntry struct {
	mod   api.Module
	hash  evm.Bytes32
	valid bool
}

func newModuleTable() *moduleTable {
	return &moduleTable{
		entries:  make([]moduleEntry, 0, 16),
		freeList: make([]uint32, 0, 4),
	}
}

func (t *moduleTable) add(mod api.Module, hash evm.Bytes32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := moduleEntry{mod: mod, hash: hash, valid: true}
	if len(t.freeList) > 0 {
		handle := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
		return handle
	}

	t.entries = append(t.entries, e)
	return uint32(len(t.entries))
}

func (t *moduleTable) get(handle uint32) (moduleEntry, bool) {
	if handle == 0 {
		return moduleEntry{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return moduleEntry{}, false
	}
	return t.entries[idx], true
}

func (t *moduleTable) remove(handle uint32) (api.Module, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	mod := t.entries[idx].mod
	t.entries[idx] = moduleEntry{}
	t.freeList = append(t.freeList, handle)
	return mod, true
}

// drain empties the table and returns every live module.
func (t *moduleTable) drain() []api.Module {
	t.mu.Lock()
	defer t.mu.Unlock()

	var mods []api.Module
	for _, e := range t.entries {
		if e.valid {
			mods = append(mods, e.mod)
		}
	}
	t.entries = t.entries[:0]
	t.freeList = t.freeList[:0]
	return mods
}

func (t *moduleTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}
