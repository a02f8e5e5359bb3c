// Package bridge implements the synchronous request/response channel a
// program uses to invoke host operations.
//
// A Requester carries at most one outstanding request. Call records the
// request, crosses the host boundary once, and returns the answer the host
// delivered through Complete while that crossing was in progress:
//
//	Idle -> Pending (Begin) -> Answered (Complete) -> Idle (Call returns)
//
// Any other transition, or any id that does not match the pending one, is a
// protocol desync and aborts execution via errors.Fatal.
package bridge

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
)

// requestIDBase keeps correlation ids clear of the low identifier range the
// host uses for its own signaling.
const requestIDBase uint32 = 0x10000

// lastRequestID is shared by every Requester in the process.
var lastRequestID atomic.Uint32

// nextRequestID is fatal once the ids above requestIDBase are used up. The
// counter never wraps, so an id is never issued twice.
func nextRequestID() uint32 {
	for {
		n := lastRequestID.Load()
		if n >= math.MaxUint32-requestIDBase {
			errors.Fatal(errors.New(errors.PhaseRequest, errors.KindInternal).
				Detail("request ids exhausted").
				Build())
		}
		if lastRequestID.CompareAndSwap(n, n+1) {
			return requestIDBase + n + 1
		}
	}
}

// State is the lifecycle position of a Requester.
type State uint32

const (
	StateIdle State = iota
	StatePending
	StateAnswered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateAnswered:
		return "answered"
	default:
		return "unknown"
	}
}

// Requester is one program's channel to the host.
//
// The request and answer fields are plain memory written on one side of the
// host call and read on the other. state is the only atomic: Begin and
// Complete publish with a Store after filling the fields, and readers Load it
// before touching them, which orders those accesses around IssueRequest.
type Requester struct {
	host  userhost.Host
	state atomic.Uint32

	id     uint32
	kind   uint32
	data   []byte
	answer []byte
	cost   uint64
}

var _ evm.RequestHandler = (*Requester)(nil)

// New creates an idle Requester that crosses the boundary through host.
func New(host userhost.Host) *Requester {
	return &Requester{host: host}
}

// State returns the current lifecycle state.
func (r *Requester) State() State {
	return State(r.state.Load())
}

// Pending returns the id of the outstanding request, if any.
func (r *Requester) Pending() (uint32, bool) {
	if r.State() != StatePending {
		return 0, false
	}
	return r.id, true
}

// Begin records a new pending request and returns its correlation id.
// Any previous answer is discarded.
func (r *Requester) Begin(kind uint32, payload []byte) uint32 {
	id := nextRequestID()
	r.id = id
	r.kind = kind
	r.data = append([]byte(nil), payload...)
	r.answer = nil
	r.cost = 0
	r.state.Store(uint32(StatePending))

	Logger().Debug("request begin",
		zap.Uint32("id", id),
		zap.Uint32("kind", kind),
		zap.Int("payload_len", len(payload)))
	return id
}

// Request returns the pending request so the host can serve it.
func (r *Requester) Request(id uint32) (kind uint32, payload []byte) {
	r.expectPending("request", id)
	return r.kind, r.data
}

// Complete delivers the host's answer for request id.
func (r *Requester) Complete(id uint32, answer []byte, cost uint64) {
	r.expectPending("response", id)
	r.answer = append(make([]byte, 0, len(answer)), answer...)
	r.cost = cost
	r.state.Store(uint32(StateAnswered))

	Logger().Debug("request complete",
		zap.Uint32("id", id),
		zap.Int("answer_len", len(answer)),
		zap.Uint64("cost", cost))
}

// Call issues a request and blocks until the host has answered it.
func (r *Requester) Call(kind uint32, payload []byte) ([]byte, uint64) {
	id := r.Begin(kind, payload)

	got := r.host.IssueRequest(id)

	if got != id {
		errors.Fatal(errors.ProtocolDesync("host served request %d, sent %d", got, id))
	}
	if s := r.State(); s != StateAnswered {
		errors.Fatal(errors.ProtocolDesync("host returned from request %d leaving it %s", id, s))
	}

	answer, cost := r.answer, r.cost
	r.data = nil
	r.answer = nil
	r.cost = 0
	r.state.Store(uint32(StateIdle))
	return answer, cost
}

// HandleRequest issues a request for an EVM API method.
func (r *Requester) HandleRequest(method evm.Method, payload []byte) ([]byte, uint64) {
	return r.Call(method.RequestKind(), payload)
}

func (r *Requester) expectPending(what string, id uint32) {
	if s := r.State(); s != StatePending {
		errors.Fatal(errors.ProtocolDesync("%s for id %d while %s", what, id, s))
	}
	if id != r.id {
		errors.Fatal(errors.ProtocolDesync("%s for id %d, pending id is %d", what, id, r.id))
	}
}
