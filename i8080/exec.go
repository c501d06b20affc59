package i8080

import (
	"errors"
	"fmt"
)

// ErrExit is returned by Exec when the program hands control back to the
// host, through the CP/M print-string hook.
var ErrExit = errors.New("program exit")

// CP/M BDOS entry point, the function number that prints a '$'-terminated
// string and the number of bytes at DE skipped before printing.
const (
	bdosEntry        = 0x0005
	bdosPrintString  = 9
	bdosStringOffset = 3
	bdosTerminator   = '$'
)

// cycles holds the clock cost of each operation. Operations with a memory
// operand or an untaken branch are adjusted in Exec.
var cycles = [...]int{
	NOP: 4, LXI: 10, STAX: 7, SHLD: 16, STA: 13, INX: 5, INR: 5, DCR: 5,
	MVI: 7, RLC: 4, RRC: 4, RAL: 4, RAR: 4, DAA: 4, CMA: 4, STC: 4,
	CMC: 4, DAD: 10, LDAX: 7, LHLD: 16, LDA: 13, DCX: 5, MOV: 5, HLT: 7,
	ADD: 4, ADC: 4, SUB: 4, SBB: 4, ANA: 4, XRA: 4, ORA: 4, CMP: 4,
	Rcc: 11, RET: 10, POP: 10, Jcc: 10, JMP: 10, Ccc: 17, CALL: 17, PUSH: 11,
	ADI: 7, ACI: 7, SUI: 7, SBI: 7, ANI: 7, XRI: 7, ORI: 7, CPI: 7,
	RST: 11, OUT: 10, IN: 10, XTHL: 18, PCHL: 5, XCHG: 4, SPHL: 5, DI: 4,
	EI: 4,
}

// Step decodes and executes the instruction at PC, returning the number of
// clock cycles it took. A halted CPU does nothing and reports 4 cycles.
func (c *CPU) Step(dev Device) (int, error) {
	if c.Halted {
		return 4, nil
	}
	in, err := c.Decode(c.PC)
	if err != nil {
		return 0, err
	}
	if c.Trace != nil {
		c.Trace(c, in)
	}
	return c.Exec(in, dev)
}

// Run executes instructions until PC reaches ProgramSize, the CPU halts, the
// program exits through the CP/M hook, or an error occurs.
// Exiting through the hook is not an error.
func (c *CPU) Run(dev Device) error {
	for int(c.PC) < c.ProgramSize && !c.Halted {
		if _, err := c.Step(dev); err == ErrExit {
			return nil
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Interrupt services an interrupt request with the given RST vector (0-7),
// if interrupts are enabled, by pushing PC and jumping to vector*8. It
// reports whether the interrupt was accepted. The interrupt enable state is
// left unchanged.
func (c *CPU) Interrupt(vector byte) bool {
	if !c.IntEnabled {
		return false
	}
	c.Halted = false
	c.push(c.PC)
	c.PC = uint16(vector&7) << 3
	return true
}

// Exec executes the given instruction, which must have been decoded at PC.
// It advances PC past the instruction before applying its effects and
// returns the number of clock cycles consumed.
func (c *CPU) Exec(in Instr, dev Device) (int, error) {
	n := cycles[in.Op]
	c.PC += uint16(in.Len())

	switch in.Op {
	case NOP:
	case LXI:
		c.SetPair(in.Pair, in.Addr)
	case STAX:
		c.Mem[c.Pair(in.Pair)] = c.A
	case LDAX:
		c.A = c.Mem[c.Pair(in.Pair)]
	case SHLD:
		c.SetShort(in.Addr, c.Pair(HL))
	case LHLD:
		c.SetPair(HL, c.Short(in.Addr))
	case STA:
		c.Mem[in.Addr] = c.A
	case LDA:
		c.A = c.Mem[in.Addr]
	case INX:
		c.SetPair(in.Pair, c.Pair(in.Pair)+1)
	case DCX:
		c.SetPair(in.Pair, c.Pair(in.Pair)-1)
	case INR:
		v := c.Reg(in.Dst) + 1
		c.Flags.AC = v&0xf == 0
		c.Flags.setZSP(v)
		c.SetReg(in.Dst, v)
		if in.Dst == M {
			n = 10
		}
	case DCR:
		v := c.Reg(in.Dst) - 1
		c.Flags.AC = v&0xf != 0xf
		c.Flags.setZSP(v)
		c.SetReg(in.Dst, v)
		if in.Dst == M {
			n = 10
		}
	case MVI:
		c.SetReg(in.Dst, in.Imm)
		if in.Dst == M {
			n = 10
		}
	case MOV:
		c.SetReg(in.Dst, c.Reg(in.Src))
		if in.Dst == M || in.Src == M {
			n = 7
		}
	case HLT:
		c.Halted = true

	case RLC:
		c.Flags.CY = c.A&0x80 != 0
		c.A = c.A<<1 | c.A>>7
	case RRC:
		c.Flags.CY = c.A&1 != 0
		c.A = c.A>>1 | c.A<<7
	case RAL:
		cy := c.A&0x80 != 0
		c.A = c.A<<1 | b2i(c.Flags.CY)
		c.Flags.CY = cy
	case RAR:
		cy := c.A&1 != 0
		c.A = c.A>>1 | b2i(c.Flags.CY)<<7
		c.Flags.CY = cy
	case DAA:
		c.daa()
	case CMA:
		c.A = ^c.A
	case STC:
		c.Flags.CY = true
	case CMC:
		c.Flags.CY = !c.Flags.CY
	case DAD:
		sum := uint32(c.Pair(HL)) + uint32(c.Pair(in.Pair))
		c.Flags.CY = sum > 0xffff
		c.SetPair(HL, uint16(sum))

	case ADD, ADC, SUB, SBB, ANA, XRA, ORA, CMP:
		c.alu(in.Op, c.Reg(in.Src))
		if in.Src == M {
			n = 7
		}
	case ADI, ACI, SUI, SBI, ANI, XRI, ORI, CPI:
		c.alu(in.Op, in.Imm)

	case JMP:
		c.PC = in.Addr
	case Jcc:
		if in.Cond.Holds(c.Flags) {
			c.PC = in.Addr
		}
	case CALL:
		if in.Addr == bdosEntry && c.C == bdosPrintString {
			return n, c.bdosPrint()
		}
		c.push(c.PC)
		c.PC = in.Addr
	case Ccc:
		if !in.Cond.Holds(c.Flags) {
			return 11, nil
		}
		c.push(c.PC)
		c.PC = in.Addr
	case RET:
		c.PC = c.pop()
	case Rcc:
		if !in.Cond.Holds(c.Flags) {
			return 5, nil
		}
		c.PC = c.pop()
	case RST:
		c.push(c.PC)
		c.PC = uint16(in.Vec) << 3
	case PCHL:
		c.PC = c.Pair(HL)

	case PUSH:
		c.push(c.Pair(in.Pair))
	case POP:
		c.SetPair(in.Pair, c.pop())
	case XTHL:
		v := c.Short(c.SP)
		c.SetShort(c.SP, c.Pair(HL))
		c.SetPair(HL, v)
	case XCHG:
		c.H, c.L, c.D, c.E = c.D, c.E, c.H, c.L
	case SPHL:
		c.SP = c.Pair(HL)

	case IN:
		if dev != nil {
			c.A = dev.In(in.Imm)
		}
	case OUT:
		if dev != nil {
			dev.Out(in.Imm, c.A)
		}
	case EI:
		c.IntEnabled = true
	case DI:
		c.IntEnabled = false

	default:
		panic(fmt.Errorf("internal error: unhandled op %v", in.Op))
	}
	return n, nil
}

// alu applies an arithmetic or logical operation to the accumulator.
func (c *CPU) alu(op Op, v byte) {
	switch op {
	case ADD, ADI:
		c.A = c.add(v, 0)
	case ADC, ACI:
		c.A = c.add(v, b2i(c.Flags.CY))
	case SUB, SUI:
		c.A = c.sub(v, 0)
	case SBB, SBI:
		c.A = c.sub(v, b2i(c.Flags.CY))
	case CMP, CPI:
		c.sub(v, 0)
	case ANA, ANI:
		c.Flags.AC = (c.A|v)&0x08 != 0
		c.logic(c.A & v)
	case XRA, XRI:
		c.Flags.AC = false
		c.logic(c.A ^ v)
	case ORA, ORI:
		c.Flags.AC = false
		c.logic(c.A | v)
	}
}

// add returns A+v+carry and sets all flags.
func (c *CPU) add(v, carry byte) byte {
	sum := uint16(c.A) + uint16(v) + uint16(carry)
	c.Flags.CY = sum > 0xff
	c.Flags.AC = c.A&0xf+v&0xf+carry > 0xf
	c.Flags.setZSP(byte(sum))
	return byte(sum)
}

// sub returns A-v-borrow and sets all flags. Carry means a borrow occurred.
// Auxiliary carry follows the 8080's two's complement adder, so it is set
// when there is no borrow out of bit 3.
func (c *CPU) sub(v, borrow byte) byte {
	diff := int(c.A) - int(v) - int(borrow)
	c.Flags.CY = diff < 0
	c.Flags.AC = c.A&0xf+^v&0xf+(1-borrow) > 0xf
	c.Flags.setZSP(byte(diff))
	return byte(diff)
}

// logic stores the result of a logical operation. Carry is set when the
// result is numerically greater than the previous accumulator, which clears
// it for ANA and for any operation that leaves A unchanged.
func (c *CPU) logic(v byte) {
	c.Flags.CY = c.A < v
	c.Flags.setZSP(v)
	c.A = v
}

// daa adjusts A to packed BCD after an addition.
func (c *CPU) daa() {
	var corr byte
	cy := c.Flags.CY
	lo, hi := c.A&0xf, c.A>>4
	if lo > 9 || c.Flags.AC {
		corr |= 0x06
	}
	if hi > 9 || cy || (hi >= 9 && lo > 9) {
		corr |= 0x60
		cy = true
	}
	c.A = c.add(corr, 0)
	c.Flags.CY = cy
}

// bdosPrint writes the '$'-terminated string at DE, skipping its leading
// control bytes, followed by a newline, and ends the program.
func (c *CPU) bdosPrint() error {
	start := int(c.Pair(DE)) + bdosStringOffset
	end := start
	for end < len(c.Mem) && c.Mem[end] != bdosTerminator {
		end++
	}
	if start < end {
		if _, err := c.Console.Write(c.Mem[start:end]); err != nil {
			return err
		}
	}
	if _, err := c.Console.Write([]byte{'\n'}); err != nil {
		return err
	}
	return ErrExit
}
