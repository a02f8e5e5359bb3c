//go:build !wasip1

package guest

import "github.com/wippyai/userhost/errors"

func unavailable() *errors.Error {
	return errors.Unsupported(errors.PhaseEngine, "hostio imports require GOOS=wasip1")
}

func programMemorySize(uint32) uint32 {
	panic(unavailable())
}

func programRequest(uint32) uint32 {
	panic(unavailable())
}

func programMemoryRead(_, _, _, _ uint32) {
	panic(unavailable())
}

func programMemoryWrite(_, _, _, _ uint32) {
	panic(unavailable())
}

func addressOf([]byte) uint32 {
	return 0
}
