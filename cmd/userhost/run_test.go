package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/host"
)

func TestRunScript(t *testing.T) {
	s, err := ParseScript([]byte(nestedScript))
	require.NoError(t, err)

	var out bytes.Buffer
	err = runScript(context.Background(), &out, newStyles(false), s, runOptions{metrics: true})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "outer module 1, 1 pages, args 0x0102")
	require.Contains(t, text, "get_bytes32 0x0000000000000000000000000000000000000000000000000000000000000001 -> 0x000000000000000000000000000000000000000000000000000000000000002a cost 2100")
	require.Contains(t, text, "write 0x0 <- 4 bytes")
	require.Contains(t, text, "inner module 2")
	require.Contains(t, text, "add_pages 0x0002 -> 0x cost 2000")
	require.Contains(t, text, "return outs 0xbeef")
	require.Contains(t, text, "read 0x0[4] -> 0xdeadbeef")
	require.Contains(t, text, "out_of_bounds")
	require.Contains(t, text, "Stylus says: hello")
	require.Contains(t, text, "return outs 0x01")
	require.Contains(t, text, `userhost_host_requests_total{method=get_bytes32,outcome=ok} 1`)
}

func TestRunScript_TraceAndReplay(t *testing.T) {
	s, err := ParseScript([]byte(nestedScript))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trace.db")

	var out bytes.Buffer
	require.NoError(t, runScript(context.Background(), &out, newStyles(false), s, runOptions{tracePath: path}))

	out.Reset()
	require.NoError(t, replay(&out, newStyles(false), path))
	require.Contains(t, out.String(), "get_bytes32")
	require.Contains(t, out.String(), "add_pages")
	require.Contains(t, out.String(), "2 exchanges")
}

func TestRunScript_Errors(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		s, err := ParseScript([]byte(`
programs:
  - name: a
    module: 1
    steps:
      - call:
          name: b
          module: 2
          steps:
            - say: deep`))
		require.NoError(t, err)
		err = runScript(context.Background(), &bytes.Buffer{}, newStyles(false), s, runOptions{maxDepth: 1})
		require.ErrorContains(t, err, "call depth exceeds 1")
	})

	t.Run("module already running", func(t *testing.T) {
		s, err := ParseScript([]byte(`
programs:
  - name: a
    module: 1
    steps:
      - call:
          name: again
          module: 1
          steps:
            - say: twice`))
		require.NoError(t, err)
		err = runScript(context.Background(), &bytes.Buffer{}, newStyles(false), s, runOptions{})
		require.ErrorContains(t, err, "module 1 is already running")
	})

	t.Run("module reusable after return", func(t *testing.T) {
		s, err := ParseScript([]byte(`
programs:
  - name: a
    module: 1
    steps:
      - say: first
  - name: b
    module: 1
    steps:
      - say: second`))
		require.NoError(t, err)
		require.NoError(t, runScript(context.Background(), &bytes.Buffer{}, newStyles(false), s, runOptions{}))
	})

	t.Run("wasm without memory", func(t *testing.T) {
		wasm := filepath.Join(t.TempDir(), "empty.wasm")
		require.NoError(t, os.WriteFile(wasm, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0o600))
		s, err := ParseScript([]byte("programs:\n  - name: a\n    wasm: " + wasm + "\n    steps:\n      - say: hi\n"))
		require.NoError(t, err)
		err = runScript(context.Background(), &bytes.Buffer{}, newStyles(false), s, runOptions{})
		require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseEngine, Kind: errors.KindInstantiation})
	})
}

func TestRunner_FailedProgramIsPopped(t *testing.T) {
	state := host.NewState()
	defer state.Close()
	r := newRunner(&bytes.Buffer{}, newStyles(false), state, runOptions{maxDepth: 1})

	spec := ProgramSpec{
		Name:   "a",
		Module: 1,
		Steps: []Step{{Call: &ProgramSpec{
			Name:   "b",
			Module: 2,
			Steps:  []Step{{Say: strPtr("deep")}},
		}}},
	}
	_, err := r.run(context.Background(), spec)
	require.ErrorContains(t, err, "call depth exceeds 1")
	require.Zero(t, r.programs.Len())
	require.Empty(t, r.memories)

	spec.Steps = []Step{{Say: strPtr("again")}}
	outs, err := r.run(context.Background(), spec)
	require.NoError(t, err)
	require.Empty(t, outs)
	require.Zero(t, r.programs.Len())
}

func strPtr(s string) *string {
	return &s
}
