package i8080

import "math/bits"

// Flags holds the 8080 condition bits.
type Flags struct {
	Z  bool // zero
	S  bool // sign
	P  bool // parity (even)
	CY bool // carry
	AC bool // auxiliary carry
}

// Bit positions of the condition bits in the PSW flags byte.
// Bit 1 is always set; bits 3 and 5 are always clear.
const (
	flagCY = 1 << 0
	flagOn = 1 << 1
	flagP  = 1 << 2
	flagAC = 1 << 4
	flagZ  = 1 << 6
	flagS  = 1 << 7
)

// Byte returns the flags packed in PSW layout.
func (f Flags) Byte() byte {
	b := byte(flagOn)
	if f.CY {
		b |= flagCY
	}
	if f.P {
		b |= flagP
	}
	if f.AC {
		b |= flagAC
	}
	if f.Z {
		b |= flagZ
	}
	if f.S {
		b |= flagS
	}
	return b
}

// SetByte unpacks a PSW flags byte.
func (f *Flags) SetByte(b byte) {
	f.CY = b&flagCY != 0
	f.P = b&flagP != 0
	f.AC = b&flagAC != 0
	f.Z = b&flagZ != 0
	f.S = b&flagS != 0
}

// setZSP sets zero, sign and parity from an 8-bit result.
func (f *Flags) setZSP(v byte) {
	f.Z = v == 0
	f.S = v&0x80 != 0
	f.P = Parity(v)
}

func (f Flags) String() string {
	b := []byte(".....")
	for i, v := range []struct {
		set bool
		c   byte
	}{{f.Z, 'z'}, {f.S, 's'}, {f.P, 'p'}, {f.CY, 'c'}, {f.AC, 'a'}} {
		if v.set {
			b[i] = v.c
		}
	}
	return string(b)
}

// Parity reports whether b has an even number of one bits.
func Parity(b byte) bool {
	return bits.OnesCount8(b)%2 == 0
}

func b2i(b bool) byte {
	if b {
		return 1
	}
	return 0
}
