// Package userhost is the guest-side runtime for user programs running in a
// WASM sandbox under an EVM-compatible host.
//
// A program is one invocation of user code: its arguments, output, EVM
// context and call configuration, plus a view of its module's linear memory.
// Programs nest as contracts call each other, and every request a program
// makes to the host crosses the sandbox boundary as a single synchronous
// call correlated by id.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	userhost/        Root package with the LinearMemory and Host capabilities
//	├── errors/      Structured errors; recoverable vs fatal kinds
//	├── memory/      Bounds-checked access to linear memory
//	├── evm/         EVM context, call config and API method vocabulary
//	├── bridge/      Request/response bridge with correlation ids
//	├── program/     Program instances and the program stack
//	├── guest/       hostio bindings for GOOS=wasip1 builds
//	├── host/        Simulated host: dispatcher, world state, metrics
//	├── engine/      wazero host for user modules and the guest runtime
//	├── trace/       Persistent record of served requests
//	└── cmd/userhost Command line driver and interactive TUI
//
// # Quick Start
//
// Run a program against the simulated host:
//
//	state := host.NewState()
//	defer state.Close()
//
//	programs, _ := host.NewSession(state, program.Env{
//	    Memory: func(uint32) userhost.LinearMemory { return memory.NewBuffer(1) },
//	})
//
//	p := programs.PushNew(args, evm.Data{}, 1, evm.Config{})
//	value, cost := p.EvmAPI().HandleRequest(evm.GetBytes32, key[:])
//	programs.Pop()
//
// # Error Handling
//
// A memory access outside the module's pages returns an error and leaves the
// program usable. An empty program stack or a request/response mismatch is
// a broken protocol invariant: it panics with an *errors.Error, which
// errors.CatchFatal turns back into an error for harnesses.
//
// # Thread Safety
//
// A program stack and its programs belong to one execution context and are
// not safe for concurrent use. Request ids come from a process-wide atomic
// counter and never repeat.
package userhost
