//go:build !wasip1

package guest

import (
	"os"
	"os/exec"
	"testing"
)

func TestBuildsForWasip1(t *testing.T) {
	if testing.Short() {
		t.Skip("cross-compiles the guest")
	}
	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}

	cmd := exec.Command(gobin, "build", ".", "../program", "../bridge", "../memory")
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("GOOS=wasip1 build failed: %v\n%s", err, out)
	}
}
