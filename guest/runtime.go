// Package guest binds the program runtime to the hostio boundary when
// compiled for wasip1.
//
// The guest has exactly one execution context: the Runtime returned by
// Default. Host callbacks arrive as WASM exports and are routed to the
// program on top of that Runtime's registry. On other platforms the imports
// are unavailable and panic; the routing logic is platform independent and
// can be driven by any userhost.Host through NewRuntime.
package guest

import (
	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/program"
)

// Runtime is the guest's execution context.
type Runtime struct {
	programs *program.Registry
	response []byte
}

var defaultRuntime = NewRuntime(program.Env{
	Host:   hostio{},
	Memory: func(module uint32) userhost.LinearMemory { return moduleMemory{module: module} },
})

// Default returns the runtime bound to the hostio imports.
func Default() *Runtime {
	return defaultRuntime
}

// NewRuntime creates a runtime whose programs are built from env.
func NewRuntime(env program.Env) *Runtime {
	return &Runtime{programs: program.NewRegistry(env)}
}

// Programs returns the program stack.
func (r *Runtime) Programs() *program.Registry {
	return r.programs
}

// RequestKind returns the kind of the current program's pending request.
func (r *Runtime) RequestKind(id uint32) uint32 {
	kind, _ := r.programs.Current().EvmAPI().Request(id)
	return kind
}

// RequestData returns the payload of the current program's pending request.
// The slice stays valid until the request completes.
func (r *Runtime) RequestData(id uint32) []byte {
	_, data := r.programs.Current().EvmAPI().Request(id)
	return data
}

// AllocResponse reserves a buffer the host fills before SetResponse.
func (r *Runtime) AllocResponse(length uint32) []byte {
	r.response = make([]byte, length)
	return r.response
}

// SetResponse completes request id with the first length bytes of the
// buffer from AllocResponse.
func (r *Runtime) SetResponse(id, length uint32, cost uint64) {
	if uint64(length) > uint64(len(r.response)) {
		errors.Fatal(errors.ProtocolDesync("response for id %d claims %d bytes, %d allocated", id, length, len(r.response)))
	}
	answer := r.response[:length]
	r.response = nil
	r.programs.Current().EvmAPI().Complete(id, answer, cost)
}

// hostio crosses the boundary through the program_request import.
type hostio struct{}

func (hostio) IssueRequest(id uint32) uint32 {
	return programRequest(id)
}

// moduleMemory reaches a user module's memory through the hostio imports.
// It is wrapped by memory.Guard inside every Program.
type moduleMemory struct {
	module uint32
}

func (m moduleMemory) SizePages() uint32 {
	return programMemorySize(m.module)
}

func (m moduleMemory) Read(ptr, length uint32) []byte {
	out := make([]byte, length)
	if length > 0 {
		programMemoryRead(m.module, ptr, addressOf(out), length)
	}
	return out
}

func (m moduleMemory) Write(ptr uint32, data []byte) {
	if len(data) > 0 {
		programMemoryWrite(m.module, ptr, addressOf(data), uint32(len(data)))
	}
}
