package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/engine"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/host"
	"github.com/wippyai/userhost/memory"
	"github.com/wippyai/userhost/program"
	"github.com/wippyai/userhost/trace"
)

const (
	defaultMaxDepth = 64
	defaultInkPrice = 10000
	stylusVersion   = 2
)

type runOptions struct {
	tracePath   string
	metrics     bool
	memoryLimit uint32
	maxDepth    uint32
}

// runner executes a script against a simulated host.
type runner struct {
	out      io.Writer
	st       styles
	opts     runOptions
	programs *program.Registry
	server   *host.Dispatcher
	engine   *engine.Engine
	memories map[uint32]userhost.LinearMemory
}

func seedState(state *host.State, spec StateSpec) error {
	for _, a := range spec.Accounts {
		addr := evm.Bytes20(a.Address)
		if len(a.Balance) > 0 {
			var balance evm.Bytes32
			copy(balance[32-len(a.Balance):], a.Balance)
			state.SetBalance(addr, balance)
		}
		if len(a.Code) > 0 {
			state.SetCode(addr, a.Code)
		}
	}
	for _, s := range spec.Slots {
		if err := state.Store(evm.Bytes32(s.Key), evm.Bytes32(s.Value)); err != nil {
			return err
		}
	}
	return nil
}

func runScript(ctx context.Context, w io.Writer, st styles, s *Script, opts runOptions) error {
	if opts.maxDepth == 0 {
		opts.maxDepth = defaultMaxDepth
	}

	state := host.NewState()
	defer state.Close()
	if err := seedState(state, s.State); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	hostOpts := []host.Option{host.WithMetrics(reg)}
	if opts.tracePath != "" {
		store, err := trace.Open(opts.tracePath, nil)
		if err != nil {
			return err
		}
		defer store.Close()
		hostOpts = append(hostOpts, host.WithRecorder(store))
	}

	r := newRunner(w, st, state, opts, hostOpts...)
	defer func() {
		if r.engine != nil {
			_ = r.engine.Close(ctx)
		}
	}()

	for _, spec := range s.Programs {
		var runErr error
		if err := errors.CatchFatal(func() { _, runErr = r.run(ctx, spec) }); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
	}

	if opts.metrics {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		printMetrics(w, families)
	}
	return nil
}

func newRunner(w io.Writer, st styles, state *host.State, opts runOptions, hostOpts ...host.Option) *runner {
	r := &runner{
		out:      w,
		st:       st,
		opts:     opts,
		memories: make(map[uint32]userhost.LinearMemory),
	}
	r.programs, r.server = host.NewSession(state, program.Env{Memory: r.memory, Output: w}, hostOpts...)
	return r
}

func (r *runner) memory(module uint32) userhost.LinearMemory {
	return r.memories[module]
}

// bind gives spec a module: a loaded user module when it names wasm, a fresh
// buffer otherwise.
func (r *runner) bind(ctx context.Context, spec ProgramSpec) (uint32, evm.Bytes32, error) {
	if spec.Wasm == "" {
		if _, busy := r.memories[spec.Module]; busy {
			return 0, evm.Bytes32{}, fmt.Errorf("module %d is already running", spec.Module)
		}
		pages := spec.Pages
		if pages == 0 {
			pages = 1
		}
		r.memories[spec.Module] = memory.NewBuffer(pages)
		return spec.Module, host.ModuleHash([]byte(spec.Name)), nil
	}

	if r.engine == nil {
		e, err := engine.New(ctx, &engine.Config{MemoryLimitPages: r.opts.memoryLimit}, r.server)
		if err != nil {
			return 0, evm.Bytes32{}, err
		}
		r.engine = e
	}
	wasm, err := os.ReadFile(spec.Wasm)
	if err != nil {
		return 0, evm.Bytes32{}, fmt.Errorf("read program: %w", err)
	}
	handle, err := r.engine.LoadProgram(ctx, wasm)
	if err != nil {
		return 0, evm.Bytes32{}, err
	}
	if _, busy := r.memories[handle]; busy {
		_ = r.engine.UnloadProgram(ctx, handle)
		return 0, evm.Bytes32{}, fmt.Errorf("module %d is already running", handle)
	}
	r.memories[handle] = r.engine.Memory(handle)
	hash, _ := r.engine.ModuleHash(handle)
	return handle, hash, nil
}

func (r *runner) unbind(ctx context.Context, spec ProgramSpec, module uint32) {
	delete(r.memories, module)
	if spec.Wasm != "" {
		_ = r.engine.UnloadProgram(ctx, module)
	}
}

// run pushes spec, performs its steps and pops it, returning its output.
func (r *runner) run(ctx context.Context, spec ProgramSpec) ([]byte, error) {
	if uint32(r.programs.Len()) >= r.opts.maxDepth {
		return nil, fmt.Errorf("%s: call depth exceeds %d", spec.Name, r.opts.maxDepth)
	}
	module, hash, err := r.bind(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	defer r.unbind(ctx, spec, module)

	data := evm.Data{ModuleHash: hash}
	config := evm.Config{
		Version:  stylusVersion,
		MaxDepth: r.opts.maxDepth,
		Pricing:  evm.PricingParams{InkPrice: defaultInkPrice},
	}
	p := r.programs.PushNew(spec.Args, data, module, config)
	defer r.programs.Pop()
	depth := r.programs.Len()
	indent := strings.Repeat("  ", depth-1)

	fmt.Fprintf(r.out, "%s%s module %d, %d pages, args %s\n",
		indent, r.st.title.Render(spec.Name), module, p.MemorySize(), HexBytes(p.Args()))

	for i, step := range spec.Steps {
		if err := r.step(ctx, p, step, indent+"  "); err != nil {
			return nil, fmt.Errorf("%s step %d: %w", spec.Name, i, err)
		}
	}

	outs := p.Outs()
	fmt.Fprintf(r.out, "%s%s outs %s\n", indent, r.st.help.Render("return"), r.st.value.Render(HexBytes(outs).String()))
	return outs, nil
}

func (r *runner) step(ctx context.Context, p *program.Program, step Step, indent string) error {
	switch {
	case step.Request != nil:
		method, _ := evm.ParseMethod(step.Request.Method)
		answer, cost := p.EvmAPI().HandleRequest(method, step.Request.Payload)
		fmt.Fprintf(r.out, "%s%s %s -> %s %s\n", indent,
			r.st.method.Render(method.String()),
			HexBytes(step.Request.Payload),
			r.st.value.Render(HexBytes(answer).String()),
			r.st.cost.Render(fmt.Sprintf("cost %d", cost)))

	case step.Write != nil:
		if err := p.WriteSlice(step.Write.Ptr, step.Write.Data); err != nil {
			r.recoverable(indent, err)
			return nil
		}
		fmt.Fprintf(r.out, "%s%s %#x <- %d bytes\n", indent, r.st.method.Render("write"), step.Write.Ptr, len(step.Write.Data))

	case step.Read != nil:
		data, err := p.ReadSlice(step.Read.Ptr, step.Read.Len)
		if err != nil {
			r.recoverable(indent, err)
			return nil
		}
		fmt.Fprintf(r.out, "%s%s %#x[%d] -> %s\n", indent, r.st.method.Render("read"), step.Read.Ptr, step.Read.Len,
			r.st.value.Render("0x"+hex.EncodeToString(data)))

	case step.Say != nil:
		p.Say(*step.Say)

	case step.Output != nil:
		p.AppendOutput(step.Output)

	case step.Call != nil:
		outs, err := r.run(ctx, *step.Call)
		if err != nil {
			return err
		}
		p.SetReturnDataLen(uint32(len(outs)))
	}
	return nil
}

// recoverable reports an error that aborts only the current step.
func (r *runner) recoverable(indent string, err error) {
	fmt.Fprintf(r.out, "%s%s\n", indent, r.st.err.Render(err.Error()))
}

func printMetrics(w io.Writer, families []*dto.MetricFamily) {
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName() + "{" + strings.Join(labels, ",") + "}"
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
