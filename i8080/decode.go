package i8080

import "fmt"

// DecodeError reports an opcode byte with no documented 8080 meaning.
type DecodeError struct {
	Addr   uint16
	Opcode byte
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode %.2x at %.4x", e.Opcode, e.Addr)
}

// opTable maps each opcode byte to its operand-free decoding.
var (
	opTable [256]Instr
	opValid [256]bool
)

func init() {
	for i := range opTable {
		opTable[i], opValid[i] = decodeOpcode(byte(i))
	}
}

var (
	aluOps  = [8]Op{ADD, ADC, SUB, SBB, ANA, XRA, ORA, CMP}
	aluImms = [8]Op{ADI, ACI, SUI, SBI, ANI, XRI, ORI, CPI}
	miscOps = [8]Op{RLC, RRC, RAL, RAR, DAA, CMA, STC, CMC}
)

// decodeOpcode splits b into its xx yyy zzz fields and returns the
// instruction it encodes.
func decodeOpcode(b byte) (Instr, bool) {
	x, y, z := b>>6, (b>>3)&7, b&7
	p, q := Pair(y>>1), y&1
	in := Instr{Code: b}
	switch x {
	case 0:
		switch z {
		case 0:
			if y != 0 {
				return in, false
			}
			in.Op = NOP
		case 1:
			in.Op, in.Pair = LXI, p
			if q == 1 {
				in.Op = DAD
			}
		case 2:
			switch y {
			case 0, 2:
				in.Op, in.Pair = STAX, p
			case 1, 3:
				in.Op, in.Pair = LDAX, p
			case 4:
				in.Op = SHLD
			case 5:
				in.Op = LHLD
			case 6:
				in.Op = STA
			case 7:
				in.Op = LDA
			}
		case 3:
			in.Op, in.Pair = INX, p
			if q == 1 {
				in.Op = DCX
			}
		case 4:
			in.Op, in.Dst = INR, Reg(y)
		case 5:
			in.Op, in.Dst = DCR, Reg(y)
		case 6:
			in.Op, in.Dst = MVI, Reg(y)
		case 7:
			in.Op = miscOps[y]
		}
	case 1:
		if b == 0x76 {
			in.Op = HLT
		} else {
			in.Op, in.Dst, in.Src = MOV, Reg(y), Reg(z)
		}
	case 2:
		in.Op, in.Src = aluOps[y], Reg(z)
	case 3:
		switch z {
		case 0:
			in.Op, in.Cond = Rcc, Cond(y)
		case 1:
			if q == 0 {
				in.Op, in.Pair = POP, stackPair(p)
				break
			}
			switch y {
			case 1:
				in.Op = RET
			case 5:
				in.Op = PCHL
			case 7:
				in.Op = SPHL
			default:
				return in, false
			}
		case 2:
			in.Op, in.Cond = Jcc, Cond(y)
		case 3:
			switch y {
			case 0:
				in.Op = JMP
			case 2:
				in.Op = OUT
			case 3:
				in.Op = IN
			case 4:
				in.Op = XTHL
			case 5:
				in.Op = XCHG
			case 6:
				in.Op = DI
			case 7:
				in.Op = EI
			default:
				return in, false
			}
		case 4:
			in.Op, in.Cond = Ccc, Cond(y)
		case 5:
			if q == 0 {
				in.Op, in.Pair = PUSH, stackPair(p)
			} else if y == 1 {
				in.Op = CALL
			} else {
				return in, false
			}
		case 6:
			in.Op = aluImms[y]
		case 7:
			in.Op, in.Vec = RST, y
		}
	}
	return in, true
}

// stackPair maps the pair field of PUSH and POP, where SP's slot means PSW.
func stackPair(p Pair) Pair {
	if p == SP {
		return PSW
	}
	return p
}

// Decode decodes the instruction at addr. Operand bytes beyond the end of
// memory read as zero.
func (c *CPU) Decode(addr uint16) (Instr, error) {
	b := c.Mem[addr]
	if !opValid[b] {
		return Instr{}, DecodeError{Addr: addr, Opcode: b}
	}
	in := opTable[b]
	lo, hi := c.fetch(int(addr)+1), c.fetch(int(addr)+2)
	switch in.Len() {
	case 2:
		in.Imm = lo
	case 3:
		in.Addr = short(hi, lo)
	}
	return in, nil
}

// Line is a single disassembled instruction.
type Line struct {
	Addr  uint16
	Bytes []byte
	Instr Instr
	Err   error
}

func (l Line) String() string {
	if l.Err != nil {
		return fmt.Sprintf("%.4x  %-8x  ??", l.Addr, l.Bytes)
	}
	return fmt.Sprintf("%.4x  %-8x  %v", l.Addr, l.Bytes, l.Instr)
}

// Disassemble decodes n consecutive instructions starting at addr.
// Undecodable bytes produce a one-byte Line with Err set.
func (c *CPU) Disassemble(addr uint16, n int) []Line {
	lines := make([]Line, 0, n)
	for i := 0; i < n; i++ {
		in, err := c.Decode(addr)
		size := 1
		if err == nil {
			size = in.Len()
		}
		l := Line{Addr: addr, Instr: in, Err: err}
		for j := 0; j < size; j++ {
			l.Bytes = append(l.Bytes, c.fetch(int(addr)+j))
		}
		lines = append(lines, l)
		addr += uint16(size)
	}
	return lines
}
