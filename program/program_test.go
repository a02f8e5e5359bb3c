package program

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/memory"
)

func isBounds(err error) bool {
	return stderrors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindOutOfBounds})
}

func TestProgram_MemoryScenario(t *testing.T) {
	p := New(nil, evm.Data{}, 0, evm.Config{}, memory.NewBuffer(1), nil)
	require.Equal(t, uint32(1), p.MemorySize())

	data, err := p.ReadSlice(0, 3)
	require.NoError(t, err)
	require.Len(t, data, 3)

	_, err = p.ReadSlice(65534, 10)
	require.True(t, isBounds(err), "expected bounds error, got %v", err)
}

func TestProgram_FixedWidth(t *testing.T) {
	p := New(nil, evm.Data{}, 0, evm.Config{}, memory.NewBuffer(1), nil)

	var addr evm.Bytes20
	for i := range addr {
		addr[i] = byte(i + 1)
	}
	var word evm.Bytes32
	for i := range word {
		word[i] = byte(0xff - i)
	}

	require.NoError(t, p.WriteBytes20(64, addr))
	require.NoError(t, p.WriteBytes32(128, word))
	require.NoError(t, p.WriteU32(256, 0x01020304))

	gotAddr, err := p.ReadBytes20(64)
	require.NoError(t, err)
	require.Equal(t, addr, gotAddr)

	gotWord, err := p.ReadBytes32(128)
	require.NoError(t, err)
	require.Equal(t, word, gotWord)

	raw, err := p.ReadSlice(256, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 3, 2, 1}, raw)

	_, err = p.ReadBytes32(65536 - 31)
	require.True(t, isBounds(err))
	require.True(t, isBounds(p.WriteBytes20(65536-19, addr)))
	require.True(t, isBounds(p.WriteU32(65536-3, 1)))
	require.True(t, isBounds(p.WriteSlice(65536, []byte{1})))
}

func TestProgram_ArgsAreCopied(t *testing.T) {
	args := []byte{1, 2, 3}
	p := New(args, evm.Data{}, 0, evm.Config{}, memory.NewBuffer(0), nil)
	args[0] = 9
	require.Equal(t, []byte{1, 2, 3}, p.Args())
}

func TestProgram_OutputAccumulates(t *testing.T) {
	p := New(nil, evm.Data{}, 0, evm.Config{}, memory.NewBuffer(0), nil)
	p.AppendOutput([]byte("ab"))
	p.AppendOutput([]byte("cd"))
	require.Equal(t, []byte("abcd"), p.Outs())
}

func TestProgram_EvmData(t *testing.T) {
	p := New(nil, evm.Data{ChainID: 412346, ReturnDataLen: 4}, 3, evm.Config{Version: 2}, memory.NewBuffer(0), nil)
	require.Equal(t, uint64(412346), p.EvmData().ChainID)
	require.Equal(t, uint32(4), p.ReturnDataLen())
	p.SetReturnDataLen(10)
	require.Equal(t, uint32(10), p.EvmData().ReturnDataLen)
	require.Equal(t, uint16(2), p.Config().Version)
}

func TestProgram_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	p := New(nil, evm.Data{}, 0, evm.Config{}, memory.NewBuffer(0), nil)
	p.Trace("storage_load_bytes32", []byte{0xab}, []byte{0xcd}, 100)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "storage_load_bytes32", fields["name"])
	require.Equal(t, "ab", fields["args"])
	require.Equal(t, "cd", fields["outs"])
}
