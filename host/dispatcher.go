// Package host is the host-side counterpart of the request bridge: it
// serves EVM API requests against simulated world state. It is used to run
// programs natively, to back the wazero engine, and in tests.
package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
)

// HandlerFunc serves one request and reports its cost.
type HandlerFunc func(payload []byte) (answer []byte, cost uint64, err error)

// Exchange is one served request, as seen by a Recorder.
type Exchange struct {
	ID      uint32
	Kind    uint32
	Payload []byte
	Answer  []byte
	Cost    uint64
	At      time.Time
}

// Recorder observes served requests.
type Recorder interface {
	Record(ex Exchange) error
}

// Dispatcher routes request kinds to handlers.
type Dispatcher struct {
	handlers map[evm.Method]HandlerFunc
	recorder Recorder
	metrics  *metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder records every served exchange.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithMetrics registers request metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		d.metrics = newMetrics(reg)
	}
}

// NewDispatcher creates a dispatcher with no handlers.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{handlers: make(map[evm.Method]HandlerFunc)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle installs fn for method, replacing any previous handler.
func (d *Dispatcher) Handle(method evm.Method, fn HandlerFunc) {
	d.handlers[method] = fn
}

// Serve decodes kind and runs the matching handler.
func (d *Dispatcher) Serve(kind uint32, payload []byte) ([]byte, uint64, error) {
	method, ok := evm.MethodFromKind(kind)
	if !ok {
		d.metrics.observe("unknown", outcomeRejected, 0)
		return nil, 0, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Value(kind).
			Detail("unknown request kind %#x", kind).
			Build()
	}
	fn, ok := d.handlers[method]
	if !ok {
		d.metrics.observe(method.String(), outcomeRejected, 0)
		return nil, 0, errors.Unsupported(errors.PhaseHost, method.String())
	}

	answer, cost, err := fn(payload)
	if err != nil {
		d.metrics.observe(method.String(), outcomeFailed, 0)
		Logger().Warn("request failed",
			zap.Stringer("method", method),
			zap.Error(err))
		return nil, 0, err
	}
	d.metrics.observe(method.String(), outcomeOK, cost)
	return answer, cost, nil
}

// ServeRequest serves a correlated request and hands it to the recorder.
func (d *Dispatcher) ServeRequest(id, kind uint32, payload []byte) ([]byte, uint64, error) {
	answer, cost, err := d.Serve(kind, payload)
	if err != nil {
		return nil, 0, err
	}
	if d.recorder != nil {
		ex := Exchange{ID: id, Kind: kind, Payload: payload, Answer: answer, Cost: cost, At: time.Now()}
		if err := d.recorder.Record(ex); err != nil {
			Logger().Error("record exchange", zap.Uint32("id", id), zap.Error(err))
		}
	}
	return answer, cost, nil
}
