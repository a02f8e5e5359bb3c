package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/memory"
)

// HostModuleName is the import module the guest runtime binds.
const HostModuleName = "hostio"

// Guest exports used to move a request across the boundary.
const (
	exportRequestKind   = "program_request_kind"
	exportRequestLen    = "program_request_len"
	exportRequestPtr    = "program_request_ptr"
	exportResponseAlloc = "program_response_alloc"
	exportSetResponse   = "program_set_response"
)

// GuestExports is the guest side of program_request.
type GuestExports interface {
	RequestKind(ctx context.Context, id uint32) (uint32, error)
	RequestData(ctx context.Context, id uint32) ([]byte, error)
	SetResponse(ctx context.Context, id uint32, answer []byte, cost uint64) error
}

func (e *Engine) instantiateHostIO(ctx context.Context) (api.Module, error) {
	i32 := api.ValueTypeI32
	builder := e.runtime.NewHostModuleBuilder(HostModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.programMemorySize), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("program_memory_size")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.programMemoryRead), []api.ValueType{i32, i32, i32, i32}, nil).
		Export("program_memory_read")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.programMemoryWrite), []api.ValueType{i32, i32, i32, i32}, nil).
		Export("program_memory_write")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.programRequest), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("program_request")

	return builder.Instantiate(ctx)
}

// userMemory resolves a program handle passed in by the guest. An unknown
// handle traps the guest call.
func (e *Engine) userMemory(handle uint32) *memory.Wazero {
	entry, ok := e.modules.get(handle)
	if !ok {
		errors.Fatal(errors.NotFound(errors.PhaseEngine, "program", handleName(handle)))
	}
	return &memory.Wazero{Mem: memory.Exported(entry.mod)}
}

func callerMemory(mod api.Module) *memory.Wazero {
	mem := memory.Exported(mod)
	if mem == nil {
		errors.Fatal(errors.Unsupported(errors.PhaseEngine, "hostio caller exports no memory"))
	}
	return &memory.Wazero{Mem: mem}
}

// program_memory_size(module) -> pages
func (e *Engine) programMemorySize(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(e.userMemory(api.DecodeU32(stack[0])).SizePages())
}

// program_memory_read(module, ptr, dst, len) copies program memory into the caller.
func (e *Engine) programMemoryRead(_ context.Context, mod api.Module, stack []uint64) {
	handle, ptr, dst, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), api.DecodeU32(stack[3])
	data := e.userMemory(handle).Read(ptr, length)
	callerMemory(mod).Write(dst, data)
}

// program_memory_write(module, ptr, src, len) copies caller memory into the program.
func (e *Engine) programMemoryWrite(_ context.Context, mod api.Module, stack []uint64) {
	handle, ptr, src, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), api.DecodeU32(stack[3])
	data := callerMemory(mod).Read(src, length)
	e.userMemory(handle).Write(ptr, data)
}

// program_request(id) -> id
func (e *Engine) programRequest(ctx context.Context, mod api.Module, stack []uint64) {
	id := api.DecodeU32(stack[0])
	if err := e.serveRequest(ctx, moduleExports{mod: mod}, id); err != nil {
		errors.Fatal(errors.Wrap(errors.PhaseEngine, errors.KindInternal, err, "program_request"))
	}
	stack[0] = api.EncodeU32(id)
}

// serveRequest reads request id from the guest, serves it and delivers the
// answer. Errors from the guest exports abort the request; errors from the
// server become an empty answer.
func (e *Engine) serveRequest(ctx context.Context, guest GuestExports, id uint32) error {
	kind, err := guest.RequestKind(ctx, id)
	if err != nil {
		return err
	}
	payload, err := guest.RequestData(ctx, id)
	if err != nil {
		return err
	}

	answer, cost, err := e.server.ServeRequest(id, kind, payload)
	if err != nil {
		Logger().Warn("answering failed request with empty response",
			zap.Uint32("id", id),
			zap.Uint32("kind", kind),
			zap.Error(err))
		answer, cost = nil, 0
	}
	return guest.SetResponse(ctx, id, answer, cost)
}

// moduleExports calls the request exports of an instantiated guest.
type moduleExports struct {
	mod api.Module
}

func (m moduleExports) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	fn := m.mod.ExportedFunction(name)
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseEngine, "guest export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (m moduleExports) RequestKind(ctx context.Context, id uint32) (uint32, error) {
	kind, err := m.call(ctx, exportRequestKind, api.EncodeU32(id))
	return api.DecodeU32(kind), err
}

func (m moduleExports) RequestData(ctx context.Context, id uint32) ([]byte, error) {
	length, err := m.call(ctx, exportRequestLen, api.EncodeU32(id))
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	ptr, err := m.call(ctx, exportRequestPtr, api.EncodeU32(id))
	if err != nil {
		return nil, err
	}
	return callerMemory(m.mod).Read(api.DecodeU32(ptr), api.DecodeU32(length)), nil
}

func (m moduleExports) SetResponse(ctx context.Context, id uint32, answer []byte, cost uint64) error {
	length := uint32(len(answer))
	ptr, err := m.call(ctx, exportResponseAlloc, api.EncodeU32(length))
	if err != nil {
		return err
	}
	if length > 0 {
		callerMemory(m.mod).Write(api.DecodeU32(ptr), answer)
	}
	_, err = m.call(ctx, exportSetResponse, api.EncodeU32(id), api.EncodeU32(length), cost)
	return err
}
