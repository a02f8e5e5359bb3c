package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/userhost/program"
)

// Simulator answers requests in-process. It plays the part of the host on
// the far side of program_request: it reads the pending request of the
// current program, serves it, and completes it before returning the id.
type Simulator struct {
	dispatcher *Dispatcher
	programs   *program.Registry
}

// NewSimulator creates a simulator serving requests with d.
// Bind must be called before the first request is issued.
func NewSimulator(d *Dispatcher) *Simulator {
	return &Simulator{dispatcher: d}
}

// Bind attaches the program stack whose requests are served.
func (s *Simulator) Bind(programs *program.Registry) {
	s.programs = programs
}

// IssueRequest implements userhost.Host.
// A failed request is answered with no data and no cost.
func (s *Simulator) IssueRequest(id uint32) uint32 {
	api := s.programs.Current().EvmAPI()
	kind, payload := api.Request(id)

	answer, cost, err := s.dispatcher.ServeRequest(id, kind, payload)
	if err != nil {
		Logger().Warn("answering failed request with empty response",
			zap.Uint32("id", id),
			zap.Uint32("kind", kind),
			zap.Error(err))
		answer, cost = []byte{}, 0
	}
	api.Complete(id, answer, cost)
	return id
}

// NewSession wires a registry to a simulator backed by state.
// The returned registry's programs issue their requests to the simulator.
func NewSession(state *State, env program.Env, opts ...Option) (*program.Registry, *Dispatcher) {
	d := NewDispatcher(opts...)
	state.RegisterHandlers(d)
	sim := NewSimulator(d)
	env.Host = sim
	programs := program.NewRegistry(env)
	sim.Bind(programs)
	return programs, d
}
