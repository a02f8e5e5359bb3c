// Package memory guards every access a program makes to linear memory.
//
// Check is the bounds rule. Guard wraps a raw userhost.LinearMemory and is the
// only path through which program code reaches memory: each read or write
// is checked against the current page count before the raw capability is
// touched.
//
// Buffer is an in-process LinearMemory for native hosts and tests; Wazero
// adapts a wazero api.Memory.
package memory
