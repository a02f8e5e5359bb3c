package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/userhost/evm"
)

// field is one typed input of an operation. String fields are hex; size is
// the exact byte length they must decode to, or 0 for any length.
type field struct {
	name string
	typ  wit.Type
	size int
}

// operation describes how to build the payload of a method the host serves.
type operation struct {
	method   evm.Method
	fields   []field
	result   string
	assemble func(parts [][]byte) []byte
}

func bytesField(name string, size int) field {
	return field{name: name, typ: wit.String{}, size: size}
}

var topicList = &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}

var operations = []operation{
	{method: evm.GetBytes32, fields: []field{bytesField("key", 32)}, result: "bytes32"},
	{
		method: evm.SetTrieSlots,
		fields: []field{{name: "gas", typ: wit.U64{}}, bytesField("key", 32), bytesField("value", 32)},
		result: "status",
	},
	{method: evm.GetTransientBytes32, fields: []field{bytesField("key", 32)}, result: "bytes32"},
	{method: evm.SetTransientBytes32, fields: []field{bytesField("key", 32), bytesField("value", 32)}, result: "status"},
	{method: evm.AccountBalance, fields: []field{bytesField("address", 20)}, result: "bytes32"},
	{
		method: evm.AccountCode,
		fields: []field{bytesField("address", 20), {name: "gas", typ: wit.U64{}}},
		result: "bytes",
	},
	{method: evm.AccountCodeHash, fields: []field{bytesField("address", 20)}, result: "bytes32"},
	{
		method: evm.EmitLog,
		fields: []field{{name: "topics", typ: topicList, size: 32}, bytesField("data", 0)},
		assemble: func(parts [][]byte) []byte {
			out := binary.BigEndian.AppendUint32(nil, uint32(len(parts[0])/32))
			return append(append(out, parts[0]...), parts[1]...)
		},
	},
	{method: evm.AddPages, fields: []field{{name: "pages", typ: wit.U16{}}}},
}

func lookupOperation(m evm.Method) (operation, bool) {
	for _, op := range operations {
		if op.method == m {
			return op, true
		}
	}
	return operation{}, false
}

// encode builds the request payload from one string per field.
func (op operation) encode(values []string) ([]byte, error) {
	if len(values) != len(op.fields) {
		return nil, fmt.Errorf("%s takes %d fields, got %d", op.method, len(op.fields), len(values))
	}
	parts := make([][]byte, len(values))
	for i, f := range op.fields {
		b, err := encodeField(strings.TrimSpace(values[i]), f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		parts[i] = b
	}
	if op.assemble != nil {
		return op.assemble(parts), nil
	}
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func encodeField(value string, f field) ([]byte, error) {
	switch t := f.typ.(type) {
	case wit.U16:
		v, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint16(nil, uint16(v)), nil
	case wit.U32:
		v, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint32(nil, uint32(v)), nil
	case wit.U64:
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(nil, v), nil
	case wit.String:
		b, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			return nil, err
		}
		if f.size > 0 && len(b) != f.size {
			return nil, fmt.Errorf("want %d bytes, got %d", f.size, len(b))
		}
		return b, nil
	case *wit.TypeDef:
		list, ok := t.Kind.(*wit.List)
		if !ok {
			break
		}
		var out []byte
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			b, err := encodeField(item, field{name: f.name, typ: list.Type, size: f.size})
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", witTypeStr(f.typ))
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U16:
		return "u16"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.String:
		return "hex"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		if list, ok := v.Kind.(*wit.List); ok {
			return "list<" + witTypeStr(list.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
