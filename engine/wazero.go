package engine

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/host"
	"github.com/wippyai/userhost/memory"
	"github.com/wippyai/userhost/program"
)

// Server answers requests issued by programs.
// *host.Dispatcher implements it.
type Server interface {
	ServeRequest(id, kind uint32, payload []byte) ([]byte, uint64, error)
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone stops running modules when the calling context ends.
	CloseOnContextDone bool
}

// Engine runs user modules and the guest runtime on a shared wazero runtime.
type Engine struct {
	runtime wazero.Runtime
	server  Server
	modules *moduleTable
}

// New creates an engine whose hostio imports serve requests with server.
func New(ctx context.Context, cfg *Config, server Server) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(cfg.CloseOnContextDone)
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		server:  server,
		modules: newModuleTable(),
	}
	if _, err := e.instantiateHostIO(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, errors.Instantiation("hostio", err)
	}
	return e, nil
}

// Close closes every module and the runtime.
func (e *Engine) Close(ctx context.Context) error {
	for _, mod := range e.modules.drain() {
		_ = mod.Close(ctx)
	}
	return e.runtime.Close(ctx)
}

// LoadProgram compiles and instantiates a user module and returns its handle.
func (e *Engine) LoadProgram(ctx context.Context, wasm []byte) (uint32, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return 0, errors.Instantiation("compile program", err)
	}
	if len(compiled.ExportedMemories()) == 0 {
		_ = compiled.Close(ctx)
		return 0, errors.Instantiation("program exports no memory", nil)
	}
	// Anonymous so the same code can be loaded more than once.
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return 0, errors.Instantiation("instantiate program", err)
	}

	handle := e.modules.add(mod, host.ModuleHash(wasm))
	Logger().Debug("program loaded",
		zap.Uint32("handle", handle),
		zap.Uint32("pages", memory.WrapWazero(mod).SizePages()))
	return handle, nil
}

// UnloadProgram closes the module behind handle.
func (e *Engine) UnloadProgram(ctx context.Context, handle uint32) error {
	mod, ok := e.modules.remove(handle)
	if !ok {
		return errors.NotFound(errors.PhaseEngine, "program", handleName(handle))
	}
	return mod.Close(ctx)
}

// Programs reports the number of loaded user modules.
func (e *Engine) Programs() int {
	return e.modules.len()
}

// Memory returns the linear memory of the program behind handle, or nil if
// there is none.
func (e *Engine) Memory(handle uint32) userhost.LinearMemory {
	entry, ok := e.modules.get(handle)
	if !ok {
		return nil
	}
	return memory.WrapWazero(entry.mod)
}

// ModuleHash returns the hash recorded when handle was loaded.
func (e *Engine) ModuleHash(handle uint32) (evm.Bytes32, bool) {
	entry, ok := e.modules.get(handle)
	return entry.hash, ok
}

// Env returns a program environment backed by this engine's modules.
// Host is left for the caller to fill in.
func (e *Engine) Env() program.Env {
	return program.Env{Memory: e.Memory}
}

// Guest is an instantiated guest runtime.
type Guest struct {
	mod api.Module
}

// StartGuest instantiates a wasip1 reactor build of the guest runtime.
func (e *Engine) StartGuest(ctx context.Context, wasm []byte) (*Guest, error) {
	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			return nil, errors.Instantiation("wasi", err)
		}
	}
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Instantiation("compile guest", err)
	}
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation("instantiate guest", err)
	}
	return &Guest{mod: mod}, nil
}

// Call invokes an exported guest function. Fatal guest errors raised inside
// hostio calls come back wrapped in the returned error.
func (g *Guest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseEngine, "guest export", name)
	}
	return fn.Call(ctx, params...)
}

// Close closes the guest instance.
func (g *Guest) Close(ctx context.Context) error {
	return g.mod.Close(ctx)
}

func handleName(handle uint32) string {
	return "#" + strconv.FormatUint(uint64(handle), 10)
}
