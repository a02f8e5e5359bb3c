// Package engine hosts programs and the guest runtime on wazero.
//
// An Engine owns one wazero runtime holding three kinds of modules:
//
//	hostio   - host module implementing the imports the guest runtime binds
//	programs - user modules whose linear memory programs read and write
//	guest    - the wasip1 build of the guest runtime
//
// User modules are addressed by a uint32 handle returned from LoadProgram.
// The guest passes that handle back through program_memory_size,
// program_memory_read and program_memory_write, which copy bytes between the
// user module's memory and the guest's own memory without bounds policy of
// their own; the guest checks every access before it reaches the host.
//
// # Request Flow
//
// When a program issues a request, the guest calls program_request(id). The
// engine then:
//
//  1. reads the request through the guest exports program_request_kind,
//     program_request_len and program_request_ptr
//  2. serves it with the configured Server
//  3. reserves an answer buffer with program_response_alloc, copies the
//     answer in, and completes the request with program_set_response
//  4. returns id, which the guest checks against the id it issued
//
// A request the Server rejects is answered with an empty response and no
// cost.
//
// # Thread Safety
//
// Engine is safe for concurrent use. A guest instance is not: wazero
// serializes nothing for it, and the guest runtime has a single execution
// context.
package engine
