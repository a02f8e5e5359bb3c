package evm

import "fmt"

// KindOffset separates request kinds from other identifier spaces on the
// wire: a request for method m carries kind m + KindOffset.
const KindOffset uint32 = 0x10000000

// Method identifies a host-side EVM operation.
type Method uint32

const (
	GetBytes32 Method = iota
	SetTrieSlots
	GetTransientBytes32
	SetTransientBytes32
	ContractCall
	DelegateCall
	StaticCall
	Create1
	Create2
	EmitLog
	AccountBalance
	AccountCode
	AccountCodeHash
	AddPages
	CaptureHostIO
	methodCount
)

var methodNames = [...]string{
	GetBytes32:          "get_bytes32",
	SetTrieSlots:        "set_trie_slots",
	GetTransientBytes32: "get_transient_bytes32",
	SetTransientBytes32: "set_transient_bytes32",
	ContractCall:        "contract_call",
	DelegateCall:        "delegate_call",
	StaticCall:          "static_call",
	Create1:             "create1",
	Create2:             "create2",
	EmitLog:             "emit_log",
	AccountBalance:      "account_balance",
	AccountCode:         "account_code",
	AccountCodeHash:     "account_code_hash",
	AddPages:            "add_pages",
	CaptureHostIO:       "capture_hostio",
}

func (m Method) String() string {
	if m < methodCount {
		return methodNames[m]
	}
	return fmt.Sprintf("method(%d)", uint32(m))
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m < methodCount
}

// RequestKind returns the wire kind for m.
func (m Method) RequestKind() uint32 {
	return uint32(m) + KindOffset
}

// MethodFromKind decodes a wire kind.
func MethodFromKind(kind uint32) (Method, bool) {
	if kind < KindOffset {
		return 0, false
	}
	m := Method(kind - KindOffset)
	return m, m.Valid()
}

// ParseMethod looks a method up by its snake_case name.
func ParseMethod(name string) (Method, bool) {
	for i, n := range methodNames {
		if n == name {
			return Method(i), true
		}
	}
	return 0, false
}

// Methods returns every known method in numeric order.
func Methods() []Method {
	out := make([]Method, methodCount)
	for i := range out {
		out[i] = Method(i)
	}
	return out
}

// RequestHandler issues host requests on behalf of a program.
type RequestHandler interface {
	HandleRequest(method Method, payload []byte) (answer []byte, cost uint64)
}
