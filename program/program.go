package program

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/bridge"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/memory"
)

// Program is one active invocation of a user program.
type Program struct {
	args   []byte
	outs   []byte
	api    *bridge.Requester
	data   evm.Data
	module uint32
	config evm.Config
	memory *memory.Guard
	out    io.Writer
}

// New creates a program over the given module memory. The program owns a
// fresh Requester that reaches the host through host. A nil mem is fatal.
func New(args []byte, data evm.Data, module uint32, config evm.Config, mem userhost.LinearMemory, host userhost.Host) *Program {
	if mem == nil {
		errors.Fatal(errors.New(errors.PhaseProgram, errors.KindInternal).
			Detail("module %d has no linear memory", module).
			Build())
	}
	return &Program{
		args:   append([]byte(nil), args...),
		api:    bridge.New(host),
		data:   data,
		module: module,
		config: config,
		memory: memory.NewGuard(mem),
		out:    os.Stdout,
	}
}

// SetOutput redirects Say.
func (p *Program) SetOutput(w io.Writer) {
	p.out = w
}

// Args returns the call arguments.
func (p *Program) Args() []byte {
	return p.args
}

// Outs returns the output produced so far.
func (p *Program) Outs() []byte {
	return p.outs
}

// AppendOutput adds b to the program's output.
func (p *Program) AppendOutput(b []byte) {
	p.outs = append(p.outs, b...)
}

// EvmAPI returns the program's channel to the host.
func (p *Program) EvmAPI() *bridge.Requester {
	return p.api
}

// EvmData returns the call's EVM context.
func (p *Program) EvmData() *evm.Data {
	return &p.data
}

// ReturnDataLen returns the length of the last call's return data.
func (p *Program) ReturnDataLen() uint32 {
	return p.data.ReturnDataLen
}

// SetReturnDataLen records the length of the last call's return data.
func (p *Program) SetReturnDataLen(n uint32) {
	p.data.ReturnDataLen = n
}

// Module returns the module handle.
func (p *Program) Module() uint32 {
	return p.module
}

// Config returns the call configuration.
func (p *Program) Config() evm.Config {
	return p.config
}

// MemorySize returns the program's memory size in pages.
func (p *Program) MemorySize() uint32 {
	return p.memory.SizePages()
}

// ReadBytes20 reads an address from program memory.
func (p *Program) ReadBytes20(ptr uint32) (evm.Bytes20, error) {
	var b evm.Bytes20
	err := p.memory.ReadInto(ptr, b[:])
	return b, err
}

// ReadBytes32 reads a word from program memory.
func (p *Program) ReadBytes32(ptr uint32) (evm.Bytes32, error) {
	var b evm.Bytes32
	err := p.memory.ReadInto(ptr, b[:])
	return b, err
}

// ReadSlice reads length bytes from program memory.
func (p *Program) ReadSlice(ptr, length uint32) ([]byte, error) {
	return p.memory.Read(ptr, length)
}

// WriteU32 stores x little-endian in program memory.
func (p *Program) WriteU32(ptr uint32, x uint32) error {
	return p.memory.WriteU32(ptr, x)
}

// WriteBytes20 writes an address to program memory.
func (p *Program) WriteBytes20(ptr uint32, src evm.Bytes20) error {
	return p.memory.Write(ptr, src[:])
}

// WriteBytes32 writes a word to program memory.
func (p *Program) WriteBytes32(ptr uint32, src evm.Bytes32) error {
	return p.memory.Write(ptr, src[:])
}

// WriteSlice writes src to program memory.
func (p *Program) WriteSlice(ptr uint32, src []byte) error {
	return p.memory.Write(ptr, src)
}

// Say prints a message from the program.
func (p *Program) Say(text any) {
	fmt.Fprintf(p.out, "%s %v\n", sayPrefix(), text)
}

// Trace reports host I/O tracing. Tracing is not expected while proving, so
// every call is logged as a warning.
func (p *Program) Trace(name string, args, outs []byte, endInk uint64) {
	Logger().Warn("unexpected hostio tracing info while proving",
		zap.String("name", name),
		zap.String("args", hex.EncodeToString(args)),
		zap.String("outs", hex.EncodeToString(outs)),
		zap.Uint64("end_ink", endInk))
}
