package host

import (
	"github.com/zeebo/blake3"

	"github.com/wippyai/userhost/evm"
)

// ModuleHash identifies a user module by the blake3 hash of its bytes.
func ModuleHash(wasm []byte) evm.Bytes32 {
	return evm.Bytes32(blake3.Sum256(wasm))
}
