// Package evm holds the EVM-facing vocabulary shared by guest and host:
// fixed-width byte types, the API method table, the per-call context and the
// call configuration. Payload encodings of individual methods live on the
// host side.
package evm

import "encoding/hex"

// Bytes20 is an EVM address.
type Bytes20 [20]byte

// Bytes32 is an EVM word or hash.
type Bytes32 [32]byte

func (b Bytes20) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

func (b Bytes32) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

// Data is the EVM context of one program invocation.
type Data struct {
	BlockBasefee    Bytes32
	ChainID         uint64
	BlockCoinbase   Bytes20
	BlockGasLimit   uint64
	BlockNumber     uint64
	BlockTimestamp  uint64
	ContractAddress Bytes20
	ModuleHash      Bytes32
	MsgSender       Bytes20
	MsgValue        Bytes32
	TxGasPrice      Bytes32
	TxOrigin        Bytes20
	Reentrant       uint32
	// ReturnDataLen is the length of the last call's return data. It is the
	// only field programs mutate.
	ReturnDataLen uint32
	Cached        bool
	Tracing       bool
}

// PricingParams controls ink pricing.
type PricingParams struct {
	InkPrice uint32
}

// Config is the immutable configuration of one call.
type Config struct {
	Version  uint16
	MaxDepth uint32
	Pricing  PricingParams
}
