//go:build wasip1

package guest

import "unsafe"

//go:wasmimport hostio program_memory_size
func programMemorySize(module uint32) uint32

//go:wasmimport hostio program_request
func programRequest(id uint32) uint32

//go:wasmimport hostio program_memory_read
func programMemoryRead(module, ptr, dst, length uint32)

//go:wasmimport hostio program_memory_write
func programMemoryWrite(module, ptr, src, length uint32)

//go:wasmexport program_request_kind
func programRequestKind(id uint32) uint32 {
	return defaultRuntime.RequestKind(id)
}

//go:wasmexport program_request_len
func programRequestLen(id uint32) uint32 {
	return uint32(len(defaultRuntime.RequestData(id)))
}

//go:wasmexport program_request_ptr
func programRequestPtr(id uint32) uint32 {
	return addressOf(defaultRuntime.RequestData(id))
}

//go:wasmexport program_response_alloc
func programResponseAlloc(length uint32) uint32 {
	return addressOf(defaultRuntime.AllocResponse(length))
}

//go:wasmexport program_set_response
func programSetResponse(id, length uint32, cost uint64) {
	defaultRuntime.SetResponse(id, length, cost)
}

// addressOf returns the linear memory address of b's first byte.
func addressOf(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}
