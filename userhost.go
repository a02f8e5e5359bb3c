package userhost

// PageSize is the size in bytes of one page of WASM linear memory.
const PageSize uint32 = 65536

// LinearMemory is the raw capability over one program's linear memory.
// Implementations perform no bounds checking; every access made on behalf
// of a program goes through memory.Guard first.
type LinearMemory interface {
	// SizePages returns the current memory size in pages.
	SizePages() uint32
	// Read copies length bytes starting at ptr.
	Read(ptr, length uint32) []byte
	// Write copies data into memory starting at ptr.
	Write(ptr uint32, data []byte)
}

// Host is the single opaque call across the sandbox boundary.
type Host interface {
	// IssueRequest hands the pending request identified by id to the host
	// and blocks until the host has delivered its response. The host returns
	// the id it served.
	IssueRequest(id uint32) uint32
}
