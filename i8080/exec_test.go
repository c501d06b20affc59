package i8080

import (
	"bytes"
	"fmt"
	"testing"
)

func TestExec(t *testing.T) {
	c := newExecTestCase
	var z, s, p, cy, ac byte = flagZ, flagS, flagP, flagCY, flagAC
	for i, c := range []*execTestCase{
		c(0x00).cycles(4), // NOP

		// Data transfer.
		c(0x41).reg(C, 0x42).want().reg(B, 0x42).cycles(5),                    // MOV B,C
		c(0x77).pair(HL, 0x2000).reg(A, 0x99).want().mem(0x2000, 0x99).cycles(7), // MOV M,A
		c(0x7e).pair(HL, 0x2000).mem(0x2000, 0x55).want().reg(A, 0x55).cycles(7), // MOV A,M
		c(0x3e, 0x12).want().reg(A, 0x12).cycles(7),                              // MVI A
		c(0x36, 0xab).pair(HL, 0x2100).want().mem(0x2100, 0xab).cycles(10),       // MVI M
		c(0x21, 0x34, 0x12).want().pair(HL, 0x1234).cycles(10),                   // LXI H
		c(0x31, 0x00, 0x24).want().pair(SP, 0x2400).cycles(10),                   // LXI SP
		c(0x02).pair(BC, 0x3f16).reg(A, 0x42).want().mem(0x3f16, 0x42).cycles(7), // STAX B
		c(0x1a).pair(DE, 0x938b).mem(0x938b, 0x7a).want().reg(A, 0x7a).cycles(7), // LDAX D
		c(0x22, 0x0a, 0x01).pair(HL, 0xae29).want().mem(0x010a, 0x29, 0xae).cycles(16),      // SHLD
		c(0x2a, 0x5b, 0x02).mem(0x025b, 0xff, 0x03).want().pair(HL, 0x03ff).cycles(16),      // LHLD
		c(0x32, 0x00, 0x24).reg(A, 0x77).want().mem(0x2400, 0x77).cycles(13),                // STA
		c(0x3a, 0x00, 0x24).mem(0x2400, 0x66).want().reg(A, 0x66).cycles(13),                // LDA
		c(0xeb).pair(HL, 0x1234).pair(DE, 0xabcd).want().pair(HL, 0xabcd).pair(DE, 0x1234).cycles(4), // XCHG

		// Increment and decrement.
		c(0x3c).reg(A, 0xff).flags(cy).want().reg(A, 0x00).flags(z|p|ac|cy).cycles(5), // INR A
		c(0x05).reg(B, 0x01).want().reg(B, 0x00).flags(z|p|ac).cycles(5),              // DCR B
		c(0x05).reg(B, 0x00).want().reg(B, 0xff).flags(s|p).cycles(5),                 // DCR B
		c(0x34).pair(HL, 0x2000).mem(0x2000, 0x7f).want().mem(0x2000, 0x80).flags(s|ac).cycles(10), // INR M
		c(0x23).pair(HL, 0xffff).want().pair(HL, 0x0000).cycles(5),                    // INX H
		c(0x0b).pair(BC, 0x0000).want().pair(BC, 0xffff).cycles(5),                    // DCX B
		c(0x33).pair(SP, 0xffff).want().pair(SP, 0x0000).cycles(5),                    // INX SP

		// Register arithmetic.
		c(0x80).reg(A, 0x6c).reg(B, 0x2e).want().reg(A, 0x9a).flags(s|p|ac).cycles(4),          // ADD B
		c(0x80).reg(A, 0xff).reg(B, 0x01).want().reg(A, 0x00).flags(z|p|cy|ac).cycles(4),       // ADD B
		c(0x89).reg(A, 0x42).reg(C, 0x3d).flags(cy).want().reg(A, 0x80).flags(s|ac).cycles(4),  // ADC C
		c(0x97).reg(A, 0x3e).want().reg(A, 0x00).flags(z|p|ac).cycles(4),                       // SUB A
		c(0x90).reg(A, 0x01).reg(B, 0x02).want().reg(A, 0xff).flags(s|p|cy).cycles(4),          // SUB B
		c(0x98).reg(A, 0x04).reg(B, 0x02).flags(cy).want().reg(A, 0x01).flags(ac).cycles(4),    // SBB B
		c(0xb8).reg(A, 0x05).reg(B, 0x0a).want().flags(s|cy).cycles(4),                         // CMP B
		c(0xb8).reg(A, 0x33).reg(B, 0x33).want().flags(z|p|ac).cycles(4),                       // CMP B
		c(0x86).reg(A, 0x01).pair(HL, 0x2000).mem(0x2000, 0x01).want().reg(A, 0x02).cycles(7), // ADD M

		// Logical.
		c(0xa0).reg(A, 0xfc).reg(B, 0x0f).want().reg(A, 0x0c).flags(p|ac).cycles(4),     // ANA B
		c(0xaf).reg(A, 0x5a).flags(cy).want().reg(A, 0x00).flags(z|p).cycles(4),        // XRA A
		c(0xb0).reg(A, 0x01).reg(B, 0x10).want().reg(A, 0x11).flags(p|cy).cycles(4),     // ORA B
		c(0xb7).reg(A, 0x80).flags(cy).want().flags(s).cycles(4),                        // ORA A

		// Immediates.
		c(0xc6, 0x01).reg(A, 0xff).want().reg(A, 0x00).flags(z|p|cy|ac).cycles(7), // ADI
		c(0xce, 0xff).flags(cy).want().reg(A, 0x00).flags(z|p|cy|ac).cycles(7),    // ACI
		c(0xd6, 0x01).want().reg(A, 0xff).flags(s|p|cy).cycles(7),                 // SUI
		c(0xde, 0x00).flags(cy).want().reg(A, 0xff).flags(s|p|cy).cycles(7),       // SBI
		c(0xfe, 0x40).reg(A, 0x3f).want().flags(s|p|cy|ac).cycles(7),              // CPI
		c(0xe6, 0x0f).reg(A, 0x3a).want().reg(A, 0x0a).flags(p|ac).cycles(7),      // ANI
		c(0xee, 0xff).reg(A, 0x0f).want().reg(A, 0xf0).flags(s|p|cy).cycles(7),    // XRI
		c(0xf6, 0x00).reg(A, 0x80).want().flags(s).cycles(7),                      // ORI

		// Double add.
		c(0x29).pair(HL, 0x8000).want().pair(HL, 0x0000).flags(cy).cycles(10),                // DAD H
		c(0x09).pair(HL, 0x1234).pair(BC, 0x1111).flags(cy).want().pair(HL, 0x2345).flags(0).cycles(10), // DAD B
		c(0x39).pair(HL, 0x0001).pair(SP, 0xffff).want().pair(HL, 0x0000).flags(cy).cycles(10), // DAD SP

		// Rotates and accumulator.
		c(0x07).reg(A, 0xf2).want().reg(A, 0xe5).flags(cy).cycles(4),           // RLC
		c(0x0f).reg(A, 0xf2).flags(cy).want().reg(A, 0x79).flags(0).cycles(4),           // RRC
		c(0x17).reg(A, 0xb5).want().reg(A, 0x6a).flags(cy).cycles(4),           // RAL
		c(0x1f).reg(A, 0x6a).flags(cy).want().reg(A, 0xb5).flags(0).cycles(4),           // RAR
		c(0x27).reg(A, 0x9b).want().reg(A, 0x01).flags(cy|ac).cycles(4),        // DAA
		c(0x2f).reg(A, 0x51).flags(z).want().reg(A, 0xae).cycles(4),            // CMA
		c(0x37).want().flags(cy).cycles(4),                                     // STC
		c(0x3f).flags(cy | z).want().flags(z).cycles(4),                        // CMC

		// Stack.
		c(0xc5).pair(BC, 0x8f9d).pair(SP, 0x3a2c).want().mem(0x3a2a, 0x9d, 0x8f).pair(SP, 0x3a2a).cycles(11), // PUSH B
		c(0xe1).pair(SP, 0x1239).mem(0x1239, 0x3d, 0x93).want().pair(HL, 0x933d).pair(SP, 0x123b).cycles(10), // POP H
		c(0xf5).reg(A, 0x1f).flags(cy|z|p).pair(SP, 0x502a).want().mem(0x5028, 0x47, 0x1f).pair(SP, 0x5028).cycles(11), // PUSH PSW
		c(0xf1).pair(SP, 0x2c00).mem(0x2c00, 0xc3, 0xff).want().reg(A, 0xff).flags(s|z|cy).pair(SP, 0x2c02).cycles(10), // POP PSW
		c(0xe3).pair(SP, 0x10ad).pair(HL, 0x0b3c).mem(0x10ad, 0xf0, 0x0d).want().pair(HL, 0x0df0).mem(0x10ad, 0x3c, 0x0b).cycles(18), // XTHL
		c(0xf9).pair(HL, 0x506c).want().pair(SP, 0x506c).cycles(5), // SPHL

		// Branches.
		c(0xc3, 0x00, 0x3e).want().pc(0x3e00).cycles(10),          // JMP
		c(0xc2, 0x00, 0x3e).want().pc(0x3e00).cycles(10),          // JNZ taken
		c(0xc2, 0x00, 0x3e).flags(z).want().pc(0x0003).cycles(10), // JNZ not taken
		c(0xda, 0x00, 0x3e).flags(cy).want().pc(0x3e00).cycles(10), // JC
		c(0xea, 0x00, 0x3e).flags(p).want().pc(0x3e00).cycles(10),  // JPE
		c(0xfa, 0x00, 0x3e).want().pc(0x0003).cycles(10),           // JM
		c(0xcd, 0x00, 0x20).pair(SP, 0x2400).want().mem(0x23fe, 0x03, 0x00).pair(SP, 0x23fe).pc(0x2000).cycles(17), // CALL
		c(0xc4, 0x00, 0x20).flags(z).pair(SP, 0x2400).want().pc(0x0003).cycles(11),                                 // CNZ
		c(0xcc, 0x00, 0x20).flags(z).pair(SP, 0x2400).want().mem(0x23fe, 0x03, 0x00).pair(SP, 0x23fe).pc(0x2000).cycles(17), // CZ
		c(0xc9).pair(SP, 0x23fe).mem(0x23fe, 0x03, 0x10).want().pc(0x1003).pair(SP, 0x2400).cycles(10),            // RET
		c(0xc0).flags(z).pair(SP, 0x23fe).want().pc(0x0001).cycles(5),                                               // RNZ
		c(0xc8).flags(z).pair(SP, 0x23fe).mem(0x23fe, 0x03, 0x10).want().pc(0x1003).pair(SP, 0x2400).cycles(11),    // RZ
		c(0xcf).pair(SP, 0x2400).want().mem(0x23fe, 0x01, 0x00).pair(SP, 0x23fe).pc(0x0008).cycles(11),             // RST 1
		c(0xff).pair(SP, 0x2400).want().mem(0x23fe, 0x01, 0x00).pair(SP, 0x23fe).pc(0x0038).cycles(11),             // RST 7
		c(0xe9).pair(HL, 0x413e).want().pc(0x413e).cycles(5),                                                        // PCHL

		// Control.
		c(0xfb).want().ie(true).cycles(4),           // EI
		c(0xf3).ie(true).want().ie(false).cycles(4), // DI
		c(0x76).want().halted().cycles(7),           // HLT

		// I/O.
		c(0xdb, 0x01).in(0x01, 0x08).want().reg(A, 0x08).cycles(10),                // IN
		c(0xd3, 0x03).reg(A, 0x02).want().out(0x03, 0x02).cycles(10),               // OUT

		// Undocumented opcodes are not executed.
		c(0x08).want().pc(0).error(DecodeError{Addr: 0, Opcode: 0x08}),
		c(0xcb, 0x00, 0x00).want().pc(0).error(DecodeError{Addr: 0, Opcode: 0xcb}),
		c(0xd9).want().pc(0).error(DecodeError{Addr: 0, Opcode: 0xd9}),
		c(0xdd).want().pc(0).error(DecodeError{Addr: 0, Opcode: 0xdd}),
	} {
		in, _ := c.m.Decode(0)
		t.Run(fmt.Sprintf("%.2x_%v_%d", c.m.Mem[0], in, i), func(t *testing.T) {
			n, err := c.m.Step(c.dev)
			if err != c.err {
				t.Fatalf("got error %v, want %v", err, c.err)
			}
			if c.err == nil && n != c.n {
				t.Errorf("got %d cycles, want %d", n, c.n)
			}
			c.check(t)
		})
	}
}

type execTestCase struct {
	m, w *CPU
	dev  *testDevice
	wantDev *testDevice
	set  []*CPU
	n    int
	err  error
}

func newExecTestCase(code ...byte) *execTestCase {
	c := &execTestCase{
		m:     New(code),
		w:     New(code),
		dev:   &testDevice{in: map[byte]byte{}},
		wantDev: &testDevice{},
	}
	c.w.PC = uint16(len(code))
	c.set = []*CPU{c.m, c.w}
	return c
}

// want switches the builder from setting up the initial state to setting up
// the expected state. Before want, setters apply to both.
func (c *execTestCase) want() *execTestCase {
	c.set = []*CPU{c.w}
	return c
}

func (c *execTestCase) reg(r Reg, v byte) *execTestCase {
	for _, m := range c.set {
		m.SetReg(r, v)
	}
	return c
}

func (c *execTestCase) pair(p Pair, v uint16) *execTestCase {
	for _, m := range c.set {
		m.SetPair(p, v)
	}
	return c
}

func (c *execTestCase) mem(addr uint16, b ...byte) *execTestCase {
	for _, m := range c.set {
		copy(m.Mem[addr:], b)
	}
	return c
}

func (c *execTestCase) flags(b byte) *execTestCase {
	for _, m := range c.set {
		m.Flags.SetByte(b)
	}
	return c
}

func (c *execTestCase) pc(v uint16) *execTestCase {
	c.w.PC = v
	return c
}

func (c *execTestCase) ie(v bool) *execTestCase {
	for _, m := range c.set {
		m.IntEnabled = v
	}
	return c
}

func (c *execTestCase) halted() *execTestCase {
	c.w.Halted = true
	return c
}

func (c *execTestCase) in(port, v byte) *execTestCase {
	c.dev.in[port] = v
	return c
}

func (c *execTestCase) out(port, v byte) *execTestCase {
	c.wantDev.out = append(c.wantDev.out, [2]byte{port, v})
	return c
}

func (c *execTestCase) cycles(n int) *execTestCase {
	c.n = n
	return c
}

func (c *execTestCase) error(err error) *execTestCase {
	c.err = err
	return c
}

func (c *execTestCase) check(t *testing.T) {
	t.Helper()
	m, w := c.m, c.w
	if got, want := m.String(), w.String(); got != want {
		t.Errorf("registers\ngot  %s\nwant %s", got, want)
	}
	if m.IntEnabled != w.IntEnabled {
		t.Errorf("got IntEnabled %v, want %v", m.IntEnabled, w.IntEnabled)
	}
	if m.Halted != w.Halted {
		t.Errorf("got Halted %v, want %v", m.Halted, w.Halted)
	}
	if m.Mem != w.Mem {
		for i := range m.Mem {
			if m.Mem[i] != w.Mem[i] {
				t.Errorf("mem[%.4x] = %.2x, want %.2x", i, m.Mem[i], w.Mem[i])
			}
		}
	}
	if !bytes.Equal(flatten(c.dev.out), flatten(c.wantDev.out)) {
		t.Errorf("got outputs %x, want %x", c.dev.out, c.wantDev.out)
	}
}

type testDevice struct {
	in  map[byte]byte
	out [][2]byte
}

func (d *testDevice) In(port byte) byte { return d.in[port] }

func (d *testDevice) Out(port, v byte) { d.out = append(d.out, [2]byte{port, v}) }

func flatten(b [][2]byte) []byte {
	var out []byte
	for _, p := range b {
		out = append(out, p[0], p[1])
	}
	return out
}
