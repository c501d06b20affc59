// Package i8080 provides an implementation of an Intel 8080 CPU that can be
// used to execute unmodified 8080 machine code.
package i8080

import (
	"fmt"
	"io"
	"os"
)

// MemSize is the size of the 8080 address space.
const MemSize = 0x10000

// COMBase is the address at which CP/M loads .COM programs.
const COMBase = 0x0100

// CPU is an implementation of an Intel 8080 CPU.
type CPU struct {
	A, B, C, D, E, H, L byte

	SP, PC uint16
	Flags  Flags
	Mem    [MemSize]byte

	IntEnabled bool // Set by EI, cleared by DI.
	Halted     bool // Set by HLT, cleared by an accepted interrupt.

	// ProgramSize bounds Run: execution stops once PC reaches it.
	ProgramSize int

	// Console receives the output of the CP/M print-string hook.
	Console io.Writer

	// Trace, if non-nil, is called by Step before each instruction
	// is executed.
	Trace TraceFunc
}

// TraceFunc is called with the CPU state and the instruction that is
// about to be executed.
type TraceFunc func(*CPU, Instr)

// Device provides access to external systems connected to the 8080's
// I/O ports.
type Device interface {
	In(port byte) (value byte)
	Out(port, value byte)
}

// New returns a CPU with zeroed state and the given image loaded at address 0.
// Bytes that do not fit in the address space are dropped.
func New(image []byte) *CPU {
	c := &CPU{Console: os.Stdout}
	c.ProgramSize = copy(c.Mem[:], image)
	return c
}

// NewCOM returns a CPU with the given CP/M program loaded at COMBase
// and a jump to COMBase at address 0. The BDOS entry point at 0x0005 holds a
// RET, so BDOS calls other than print-string return to the caller.
func NewCOM(image []byte) *CPU {
	c := New(nil)
	n := copy(c.Mem[COMBase:], image)
	c.Mem[0], c.Mem[1], c.Mem[2] = 0xc3, COMBase&0xff, COMBase>>8
	c.Mem[bdosEntry] = 0xc9
	c.ProgramSize = COMBase + n
	return c
}

// Pair returns the 16-bit value of the given register pair.
// PSW is the accumulator followed by the packed flags byte.
func (c *CPU) Pair(p Pair) uint16 {
	switch p {
	case BC:
		return short(c.B, c.C)
	case DE:
		return short(c.D, c.E)
	case HL:
		return short(c.H, c.L)
	case SP:
		return c.SP
	case PSW:
		return short(c.A, c.Flags.Byte())
	}
	panic(fmt.Errorf("internal error: bad register pair %d", p))
}

// SetPair sets the 16-bit value of the given register pair.
func (c *CPU) SetPair(p Pair, v uint16) {
	hi, lo := byte(v>>8), byte(v)
	switch p {
	case BC:
		c.B, c.C = hi, lo
	case DE:
		c.D, c.E = hi, lo
	case HL:
		c.H, c.L = hi, lo
	case SP:
		c.SP = v
	case PSW:
		c.A = hi
		c.Flags.SetByte(lo)
	default:
		panic(fmt.Errorf("internal error: bad register pair %d", p))
	}
}

// Reg returns the value of the given register. M reads memory at HL.
func (c *CPU) Reg(r Reg) byte {
	switch r {
	case B:
		return c.B
	case C:
		return c.C
	case D:
		return c.D
	case E:
		return c.E
	case H:
		return c.H
	case L:
		return c.L
	case M:
		return c.Mem[c.Pair(HL)]
	case A:
		return c.A
	}
	panic(fmt.Errorf("internal error: bad register %d", r))
}

// SetReg sets the value of the given register. M writes memory at HL.
func (c *CPU) SetReg(r Reg, v byte) {
	switch r {
	case B:
		c.B = v
	case C:
		c.C = v
	case D:
		c.D = v
	case E:
		c.E = v
	case H:
		c.H = v
	case L:
		c.L = v
	case M:
		c.Mem[c.Pair(HL)] = v
	case A:
		c.A = v
	default:
		panic(fmt.Errorf("internal error: bad register %d", r))
	}
}

// Short returns the little-endian 16-bit value at addr.
func (c *CPU) Short(addr uint16) uint16 {
	return short(c.Mem[addr+1], c.Mem[addr])
}

// SetShort stores v little-endian at addr.
func (c *CPU) SetShort(addr, v uint16) {
	c.Mem[addr] = byte(v)
	c.Mem[addr+1] = byte(v >> 8)
}

// push stores v in the two bytes below SP, high byte above low byte,
// and moves SP down by two.
func (c *CPU) push(v uint16) {
	c.SP -= 2
	c.SetShort(c.SP, v)
}

// pop is the inverse of push.
func (c *CPU) pop() uint16 {
	v := c.Short(c.SP)
	c.SP += 2
	return v
}

// fetch returns the byte at addr, or zero if addr is outside memory.
func (c *CPU) fetch(addr int) byte {
	if addr < 0 || addr >= len(c.Mem) {
		return 0
	}
	return c.Mem[addr]
}

func (c *CPU) String() string {
	return fmt.Sprintf("pc:%.4x sp:%.4x a:%.2x b:%.2x c:%.2x d:%.2x e:%.2x h:%.2x l:%.2x %v",
		c.PC, c.SP, c.A, c.B, c.C, c.D, c.E, c.H, c.L, c.Flags)
}

func short(hi, lo byte) uint16 {
	return uint16(hi)<<8 + uint16(lo)
}
