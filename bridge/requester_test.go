package bridge

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
)

// hostFunc adapts a function to userhost.Host.
type hostFunc func(id uint32) uint32

func (f hostFunc) IssueRequest(id uint32) uint32 { return f(id) }

// answering returns a host that serves every request with answer and cost.
func answering(r **Requester, answer []byte, cost uint64) hostFunc {
	return func(id uint32) uint32 {
		(*r).Complete(id, answer, cost)
		return id
	}
}

func requireDesync(t *testing.T, fn func()) {
	t.Helper()
	err := errors.CatchFatal(fn)
	require.Error(t, err)
	require.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseRequest, Kind: errors.KindProtocolDesync}), err.Error())
}

func TestRequester_Call(t *testing.T) {
	var r *Requester
	var seenKind uint32
	var seenPayload []byte
	r = New(hostFunc(func(id uint32) uint32 {
		seenKind, seenPayload = r.Request(id)
		r.Complete(id, []byte{0x99}, 42)
		return id
	}))

	answer, cost := r.Call(7, []byte{0x01, 0x02})
	require.Equal(t, []byte{0x99}, answer)
	require.Equal(t, uint64(42), cost)
	require.Equal(t, uint32(7), seenKind)
	require.Equal(t, []byte{0x01, 0x02}, seenPayload)
	require.Equal(t, StateIdle, r.State())

	// the bridge is reusable once idle
	r.host = answering(&r, []byte{0x01, 0x02, 0x03}, 1)
	answer, cost = r.Call(8, nil)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, answer)
	require.Equal(t, uint64(1), cost)
}

func TestRequester_BeginComplete(t *testing.T) {
	r := New(nil)
	require.Equal(t, StateIdle, r.State())

	id := r.Begin(3, []byte("abc"))
	pending, ok := r.Pending()
	require.True(t, ok)
	require.Equal(t, id, pending)
	require.Equal(t, StatePending, r.State())

	kind, data := r.Request(id)
	require.Equal(t, uint32(3), kind)
	require.Equal(t, []byte("abc"), data)

	r.Complete(id, []byte{}, 0)
	require.Equal(t, StateAnswered, r.State())
	_, ok = r.Pending()
	require.False(t, ok)
}

func TestRequester_BeginCopiesPayload(t *testing.T) {
	r := New(nil)
	payload := []byte{1, 2, 3}
	id := r.Begin(1, payload)
	payload[0] = 9

	_, data := r.Request(id)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestRequester_IDsStrictlyIncrease(t *testing.T) {
	var last uint32
	for i := 0; i < 100; i++ {
		r := New(nil)
		id := r.Begin(0, nil)
		require.Greater(t, id, requestIDBase)
		require.Greater(t, id, last)
		last = id
	}
}

func TestRequester_IDsExhausted(t *testing.T) {
	prev := lastRequestID.Load()
	t.Cleanup(func() { lastRequestID.Store(prev) })
	lastRequestID.Store(math.MaxUint32 - requestIDBase - 1)

	r := New(nil)
	require.Equal(t, uint32(math.MaxUint32), r.Begin(1, nil))

	err := errors.CatchFatal(func() { r.Begin(1, nil) })
	require.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseRequest, Kind: errors.KindInternal}))
	require.Equal(t, uint32(math.MaxUint32-requestIDBase), lastRequestID.Load())
}

func TestRequester_CompleteWrongID(t *testing.T) {
	r := New(nil)
	id := r.Begin(1, nil)
	requireDesync(t, func() { r.Complete(id+1, []byte{1}, 1) })
	require.Equal(t, StatePending, r.State())
}

func TestRequester_CompleteWhileIdle(t *testing.T) {
	r := New(nil)
	requireDesync(t, func() { r.Complete(requestIDBase+1, nil, 0) })
}

func TestRequester_CompleteTwice(t *testing.T) {
	r := New(nil)
	id := r.Begin(1, nil)
	r.Complete(id, []byte{1}, 1)
	requireDesync(t, func() { r.Complete(id, []byte{2}, 2) })
}

func TestRequester_RequestWrongID(t *testing.T) {
	r := New(nil)
	id := r.Begin(1, nil)
	requireDesync(t, func() { r.Request(id - 1) })
}

func TestRequester_HostAnswersForeignID(t *testing.T) {
	var r *Requester
	r = New(hostFunc(func(id uint32) uint32 {
		r.Complete(id+1, []byte{0}, 0)
		return id
	}))
	requireDesync(t, func() { r.Call(1, nil) })
}

func TestRequester_HostReturnsWrongID(t *testing.T) {
	var r *Requester
	r = New(hostFunc(func(id uint32) uint32 {
		r.Complete(id, []byte{0}, 0)
		return id + 1
	}))
	requireDesync(t, func() { r.Call(1, nil) })
}

func TestRequester_HostNeverAnswers(t *testing.T) {
	r := New(hostFunc(func(id uint32) uint32 { return id }))
	requireDesync(t, func() { r.Call(1, nil) })
}

func TestRequester_HandleRequest(t *testing.T) {
	var r *Requester
	var kind uint32
	r = New(hostFunc(func(id uint32) uint32 {
		kind, _ = r.Request(id)
		r.Complete(id, nil, 5)
		return id
	}))

	answer, cost := r.HandleRequest(evm.AccountBalance, []byte{1})
	require.Equal(t, evm.AccountBalance.RequestKind(), kind)
	require.Empty(t, answer)
	require.Equal(t, uint64(5), cost)
}

func TestRequester_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	var r *Requester
	r = New(answering(&r, []byte{1}, 2))
	r.Call(1, []byte{1, 2, 3})

	require.Equal(t, 1, logs.FilterMessage("request begin").Len())
	entry := logs.FilterMessage("request complete").All()
	require.Len(t, entry, 1)
	require.Equal(t, uint64(2), entry[0].ContextMap()["cost"])
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "pending", StatePending.String())
	require.Equal(t, "answered", StateAnswered.String())
	require.Equal(t, "unknown", State(9).String())
}
