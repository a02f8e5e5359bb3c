package program

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/memory"
)

type hostFunc func(id uint32) uint32

func (f hostFunc) IssueRequest(id uint32) uint32 { return f(id) }

func newEnv(reg **Registry) Env {
	mems := map[uint32]*memory.Buffer{}
	return Env{
		Host: hostFunc(func(id uint32) uint32 {
			api := (*reg).Current().EvmAPI()
			kind, payload := api.Request(id)
			answer := append([]byte{byte(kind)}, payload...)
			api.Complete(id, answer, uint64(len(payload)))
			return id
		}),
		Memory: func(module uint32) userhost.LinearMemory {
			if mems[module] == nil {
				mems[module] = memory.NewBuffer(1)
			}
			return mems[module]
		},
	}
}

func requireEmptyStack(t *testing.T, fn func()) {
	t.Helper()
	err := errors.CatchFatal(fn)
	require.Error(t, err)
	require.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseProgram, Kind: errors.KindEmptyStack}))
}

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry(Env{})
	require.Equal(t, 0, r.Len())
	requireEmptyStack(t, func() { r.Pop() })
	requireEmptyStack(t, func() { r.Current() })
}

func TestRegistry_PushNewWithoutMemory(t *testing.T) {
	for name, env := range map[string]Env{
		"no memory func": {},
		"module unknown": {Memory: func(uint32) userhost.LinearMemory { return nil }},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry(env)
			err := errors.CatchFatal(func() { r.PushNew(nil, evm.Data{}, 7, evm.Config{}) })
			require.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseProgram, Kind: errors.KindInternal}))
			require.ErrorContains(t, err, "module 7")
			require.Zero(t, r.Len())
		})
	}
}

func TestRegistry_PushPopOrder(t *testing.T) {
	var r *Registry
	r = NewRegistry(newEnv(&r))

	const k = 6
	pushed := make([]*Program, 0, k)
	for i := 0; i < k; i++ {
		pushed = append(pushed, r.PushNew([]byte{byte(i)}, evm.Data{ChainID: uint64(i)}, uint32(i), evm.Config{MaxDepth: uint32(i)}))
	}

	for j := 0; j < k; j++ {
		cur := r.Current()
		want := pushed[k-j-1]
		require.Same(t, want, cur)
		require.Equal(t, []byte{byte(k - j - 1)}, cur.Args())
		require.Equal(t, uint32(k-j-1), cur.Module())
		require.Equal(t, uint32(k-j-1), cur.Config().MaxDepth)
		require.Equal(t, k-j, r.Len())
		r.Pop()
	}
	requireEmptyStack(t, func() { r.Current() })
}

func TestRegistry_NestedCallLeavesCallerIntact(t *testing.T) {
	var r *Registry
	r = NewRegistry(newEnv(&r))

	a := r.PushNew([]byte("args-a"), evm.Data{ReturnDataLen: 0}, 1, evm.Config{Version: 1})
	a.AppendOutput([]byte("a:"))

	b := r.PushNew([]byte("args-b"), evm.Data{}, 2, evm.Config{Version: 1})
	b.AppendOutput([]byte("b-out"))
	b.SetReturnDataLen(99)
	require.NoError(t, b.WriteSlice(0, []byte("callee")))
	_, _ = b.EvmAPI().HandleRequest(evm.GetBytes32, []byte{1})

	r.Pop()
	a.SetReturnDataLen(uint32(len(b.Outs())))

	cur := r.Current()
	require.Same(t, a, cur)
	require.Equal(t, []byte("args-a"), cur.Args())
	require.Equal(t, []byte("a:"), cur.Outs())
	require.Equal(t, uint32(5), cur.ReturnDataLen())

	// module 1's memory was not touched by the callee
	data, err := cur.ReadSlice(0, 6)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 6), data)
}

func TestRegistry_RequestsUseCurrentProgram(t *testing.T) {
	var r *Registry
	r = NewRegistry(newEnv(&r))

	r.PushNew(nil, evm.Data{}, 1, evm.Config{})
	b := r.PushNew(nil, evm.Data{}, 2, evm.Config{})

	answer, cost := b.EvmAPI().Call(7, []byte{0x01, 0x02})
	require.Equal(t, []byte{7, 0x01, 0x02}, answer)
	require.Equal(t, uint64(2), cost)

	r.Pop()
	answer, _ = r.Current().EvmAPI().Call(3, nil)
	require.Equal(t, []byte{3}, answer)
}

func TestRegistry_Output(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(Env{Memory: func(uint32) userhost.LinearMemory { return memory.NewBuffer(0) }, Output: &buf})
	p := r.PushNew(nil, evm.Data{}, 0, evm.Config{})
	p.Say("hello")
	require.Contains(t, buf.String(), "Stylus says:")
	require.Contains(t, buf.String(), "hello")
}
