//go:build !wasip1

package guest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/userhost/evm"
)

func TestDefault_ImportsUnavailableOffWasm(t *testing.T) {
	programs := Default().Programs()
	p := programs.PushNew(nil, evm.Data{}, 0, evm.Config{})
	defer programs.Pop()

	require.Panics(t, func() { p.MemorySize() })
	require.Panics(t, func() { p.EvmAPI().Call(1, nil) })
}
