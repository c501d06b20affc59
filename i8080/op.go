package i8080

import "fmt"

// Op is an 8080 instruction mnemonic. Instructions that differ only in their
// register, pair or condition operands share an Op.
type Op byte

// All the 8080 operations.
const (
	NOP Op = iota
	LXI
	STAX
	SHLD
	STA
	INX
	INR
	DCR
	MVI
	RLC
	RRC
	RAL
	RAR
	DAA
	CMA
	STC
	CMC
	DAD
	LDAX
	LHLD
	LDA
	DCX
	MOV
	HLT
	ADD
	ADC
	SUB
	SBB
	ANA
	XRA
	ORA
	CMP
	Rcc
	RET
	POP
	Jcc
	JMP
	Ccc
	CALL
	PUSH
	ADI
	ACI
	SUI
	SBI
	ANI
	XRI
	ORI
	CPI
	RST
	OUT
	IN
	XTHL
	PCHL
	XCHG
	SPHL
	DI
	EI
)

var opStrings = [...]string{
	"NOP", "LXI", "STAX", "SHLD", "STA", "INX", "INR", "DCR",
	"MVI", "RLC", "RRC", "RAL", "RAR", "DAA", "CMA", "STC",
	"CMC", "DAD", "LDAX", "LHLD", "LDA", "DCX", "MOV", "HLT",
	"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP",
	"R", "RET", "POP", "J", "JMP", "C", "CALL", "PUSH",
	"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI",
	"RST", "OUT", "IN", "XTHL", "PCHL", "XCHG", "SPHL", "DI",
	"EI",
}

func (o Op) String() string {
	if int(o) < len(opStrings) {
		return opStrings[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Len returns the encoded length of the operation in bytes.
func (o Op) Len() int {
	switch o {
	case MVI, ADI, ACI, SUI, SBI, ANI, XRI, ORI, CPI, OUT, IN:
		return 2
	case LXI, SHLD, STA, LHLD, LDA, Jcc, JMP, Ccc, CALL:
		return 3
	}
	return 1
}

// Reg is an 8-bit register operand, in the order used by the instruction
// encoding. M refers to the memory byte addressed by HL.
type Reg byte

const (
	B Reg = iota
	C
	D
	E
	H
	L
	M
	A
)

func (r Reg) String() string {
	if r <= A {
		return string("BCDEHLMA"[r])
	}
	return fmt.Sprintf("Reg(%d)", r)
}

// Pair is a 16-bit register pair operand.
type Pair byte

const (
	BC Pair = iota
	DE
	HL
	SP
	PSW
)

// String returns the pair's assembler name, which for BC, DE and HL is the
// name of the high register.
func (p Pair) String() string {
	switch p {
	case BC:
		return "B"
	case DE:
		return "D"
	case HL:
		return "H"
	case SP:
		return "SP"
	case PSW:
		return "PSW"
	}
	return fmt.Sprintf("Pair(%d)", p)
}

// Cond is a branch condition, in encoding order.
type Cond byte

const (
	NZ Cond = iota
	Z
	NC
	CY
	PO
	PE
	P
	MI // minus; named MI to avoid clashing with register M
)

var condStrings = [...]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (c Cond) String() string {
	if int(c) < len(condStrings) {
		return condStrings[c]
	}
	return fmt.Sprintf("Cond(%d)", c)
}

// Holds reports whether the condition is satisfied by f.
func (c Cond) Holds(f Flags) bool {
	switch c {
	case NZ:
		return !f.Z
	case Z:
		return f.Z
	case NC:
		return !f.CY
	case CY:
		return f.CY
	case PO:
		return !f.P
	case PE:
		return f.P
	case P:
		return !f.S
	case MI:
		return f.S
	}
	return false
}

// Instr is a decoded 8080 instruction.
type Instr struct {
	Op   Op
	Code byte // The opcode byte the instruction was decoded from.

	Dst, Src Reg  // MOV, MVI, INR, DCR use Dst; MOV and ALU ops use Src.
	Pair     Pair // LXI, INX, DCX, DAD, PUSH, POP, STAX, LDAX.
	Cond     Cond // Rcc, Jcc, Ccc.

	Imm  byte   // 8-bit immediate or port number.
	Addr uint16 // 16-bit immediate or address.
	Vec  byte   // RST vector, 0-7.
}

// Len returns the encoded length of the instruction in bytes.
func (in Instr) Len() int { return in.Op.Len() }

func (in Instr) String() string {
	switch in.Op {
	case MOV:
		return fmt.Sprintf("MOV %v,%v", in.Dst, in.Src)
	case MVI:
		return fmt.Sprintf("MVI %v,%.2x", in.Dst, in.Imm)
	case INR, DCR:
		return fmt.Sprintf("%v %v", in.Op, in.Dst)
	case ADD, ADC, SUB, SBB, ANA, XRA, ORA, CMP:
		return fmt.Sprintf("%v %v", in.Op, in.Src)
	case ADI, ACI, SUI, SBI, ANI, XRI, ORI, CPI, IN, OUT:
		return fmt.Sprintf("%v %.2x", in.Op, in.Imm)
	case LXI:
		return fmt.Sprintf("LXI %v,%.4x", in.Pair, in.Addr)
	case INX, DCX, DAD, PUSH, POP, STAX, LDAX:
		return fmt.Sprintf("%v %v", in.Op, in.Pair)
	case SHLD, STA, LHLD, LDA, JMP, CALL:
		return fmt.Sprintf("%v %.4x", in.Op, in.Addr)
	case Jcc, Ccc:
		return fmt.Sprintf("%v%v %.4x", in.Op, in.Cond, in.Addr)
	case Rcc:
		return fmt.Sprintf("R%v", in.Cond)
	case RST:
		return fmt.Sprintf("RST %d", in.Vec)
	}
	return in.Op.String()
}
