package evm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethod_RequestKind(t *testing.T) {
	require.Equal(t, uint32(0x10000000), GetBytes32.RequestKind())
	require.Equal(t, uint32(0x10000007), Create1.RequestKind())

	for _, m := range Methods() {
		got, ok := MethodFromKind(m.RequestKind())
		require.True(t, ok, m.String())
		require.Equal(t, m, got)
	}
}

func TestMethodFromKind_Rejects(t *testing.T) {
	_, ok := MethodFromKind(7)
	require.False(t, ok)

	_, ok = MethodFromKind(KindOffset + uint32(methodCount))
	require.False(t, ok)
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod("account_code_hash")
	require.True(t, ok)
	require.Equal(t, AccountCodeHash, m)
	require.Equal(t, "account_code_hash", m.String())

	_, ok = ParseMethod("selfdestruct")
	require.False(t, ok)
	require.Equal(t, "method(99)", Method(99).String())
}

func TestBytes_String(t *testing.T) {
	var a Bytes20
	a[19] = 0x01
	require.Equal(t, "0x0000000000000000000000000000000000000001", a.String())

	var w Bytes32
	w[0] = 0xff
	require.Len(t, w.String(), 66)
}
