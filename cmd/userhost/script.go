package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/userhost/evm"
)

// Script describes a session: initial world state and the programs to run.
type Script struct {
	State    StateSpec     `yaml:"state" json:"state,omitempty"`
	Programs []ProgramSpec `yaml:"programs" json:"programs" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

// StateSpec seeds the simulated world state.
type StateSpec struct {
	Accounts []AccountSpec `yaml:"accounts" json:"accounts,omitempty" validate:"dive"`
	Slots    []SlotSpec    `yaml:"slots" json:"slots,omitempty" validate:"dive"`
}

// AccountSpec is an account with an optional balance and code.
type AccountSpec struct {
	Address HexBytes `yaml:"address" json:"address" validate:"len=20"`
	Balance HexBytes `yaml:"balance" json:"balance,omitempty" validate:"omitempty,max=32"`
	Code    HexBytes `yaml:"code" json:"code,omitempty"`
}

// SlotSpec is a persistent storage slot.
type SlotSpec struct {
	Key   HexBytes `yaml:"key" json:"key" validate:"len=32"`
	Value HexBytes `yaml:"value" json:"value" validate:"len=32"`
}

// ProgramSpec is one program invocation. Nested calls push further programs.
type ProgramSpec struct {
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Module uint32   `yaml:"module" json:"module,omitempty" jsonschema:"description=Module handle for programs without wasm"`
	Wasm   string   `yaml:"wasm" json:"wasm,omitempty" validate:"omitempty,file" jsonschema:"description=User module loaded into the engine"`
	Pages  uint32   `yaml:"pages" json:"pages,omitempty" validate:"omitempty,max=65536" jsonschema:"description=Memory pages for programs without wasm,default=1"`
	Args   HexBytes `yaml:"args" json:"args,omitempty"`
	Steps  []Step   `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}

// Step is exactly one action.
type Step struct {
	Request *RequestStep `yaml:"request" json:"request,omitempty"`
	Write   *WriteStep   `yaml:"write" json:"write,omitempty"`
	Read    *ReadStep    `yaml:"read" json:"read,omitempty"`
	Say     *string      `yaml:"say" json:"say,omitempty"`
	Output  HexBytes     `yaml:"output" json:"output,omitempty"`
	Call    *ProgramSpec `yaml:"call" json:"call,omitempty"`
}

// RequestStep issues an EVM API request.
type RequestStep struct {
	Method  string   `yaml:"method" json:"method" validate:"required,evm_method"`
	Payload HexBytes `yaml:"payload" json:"payload,omitempty"`
}

// WriteStep writes bytes into the program's memory.
type WriteStep struct {
	Ptr  uint32   `yaml:"ptr" json:"ptr"`
	Data HexBytes `yaml:"data" json:"data" validate:"required"`
}

// ReadStep reads bytes from the program's memory.
type ReadStep struct {
	Ptr uint32 `yaml:"ptr" json:"ptr"`
	Len uint32 `yaml:"len" json:"len"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Request != nil, s.Write != nil, s.Read != nil, s.Say != nil, s.Output != nil, s.Call != nil} {
		if set {
			n++
		}
	}
	return n
}

// HexBytes is a byte string written as hex, with or without 0x.
type HexBytes []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexBytes) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*h = b
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h HexBytes) MarshalYAML() (any, error) {
	return h.String(), nil
}

func (h HexBytes) String() string {
	return "0x" + hex.EncodeToString(h)
}

// JSONSchema describes HexBytes as a hex string.
func (HexBytes) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     "^(0x)?([0-9a-fA-F]{2})*$",
		Description: "hex-encoded bytes",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("evm_method", func(fl validator.FieldLevel) bool {
		_, ok := evm.ParseMethod(fl.Field().String())
		return ok
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		if sl.Current().Interface().(Step).actions() != 1 {
			sl.ReportError(sl.Current().Interface(), "Step", "Step", "one_action", "")
		}
	}, Step{})
	return v
}

// ParseScript decodes and validates a script.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &s, nil
}

// LoadScript reads and parses the script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// ScriptSchema returns the JSON Schema of the script format.
func ScriptSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{ExpandedStruct: true}
	return r.Reflect(&Script{})
}
