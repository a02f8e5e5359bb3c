// Package program tracks the stack of active programs.
//
// Guest execution nests: a program calling another contract causes a new
// Program to be pushed, and the callee's return pops it. The top of the
// Registry is the program currently executing. Popping or reading the top of
// an empty Registry is a caller bug and aborts via errors.Fatal.
package program

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
)

// Env supplies the capabilities new programs are built from.
type Env struct {
	// Host is the boundary every program's requests cross.
	Host userhost.Host
	// Memory returns the raw linear memory of a module.
	Memory func(module uint32) userhost.LinearMemory
	// Output receives Say messages; nil keeps the default of stdout.
	Output io.Writer
}

// Registry is the stack of active programs. It is owned by the single
// execution context driving the guest and is not safe for concurrent use.
type Registry struct {
	env      Env
	programs []*Program
}

// NewRegistry creates an empty registry.
func NewRegistry(env Env) *Registry {
	return &Registry{env: env}
}

// PushNew creates a program for module and makes it current.
func (r *Registry) PushNew(args []byte, data evm.Data, module uint32, config evm.Config) *Program {
	var mem userhost.LinearMemory
	if r.env.Memory != nil {
		mem = r.env.Memory(module)
	}
	p := New(args, data, module, config, mem, r.env.Host)
	if r.env.Output != nil {
		p.SetOutput(r.env.Output)
	}
	r.Push(p)
	return p
}

// Push makes p current.
func (r *Registry) Push(p *Program) {
	r.programs = append(r.programs, p)
	Logger().Debug("program push",
		zap.Uint32("module", p.module),
		zap.Int("depth", len(r.programs)))
}

// Pop discards the current program along with its Requester.
func (r *Registry) Pop() {
	n := len(r.programs)
	if n == 0 {
		errors.Fatal(errors.EmptyStack("pop"))
	}
	p := r.programs[n-1]
	r.programs[n-1] = nil
	r.programs = r.programs[:n-1]
	Logger().Debug("program pop",
		zap.Uint32("module", p.module),
		zap.Int("depth", n-1))
}

// Current returns the program on top of the stack.
func (r *Registry) Current() *Program {
	n := len(r.programs)
	if n == 0 {
		errors.Fatal(errors.EmptyStack("current"))
	}
	return r.programs[n-1]
}

// Len returns the nesting depth.
func (r *Registry) Len() int {
	return len(r.programs)
}
