package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nf/n80/i8080"
)

type symbols []symbol

func (s symbols) forAddr(addr uint16) (ss []symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].addr >= addr })
	for ; i < len(s) && s[i].addr == addr; i++ {
		ss = append(ss, s[i])
	}
	return ss
}

func (s symbols) withLabelPrefix(prefix string) (ss []symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.label, prefix) {
			ss = append(ss, sym)
		}
	}
	return ss
}

// resolve returns the symbol for a label or a hexadecimal address.
func (s symbols) resolve(arg string) (symbol, bool) {
	for _, sym := range s {
		if sym.label == arg {
			return sym, true
		}
	}
	addr, ok := parseAddr(arg)
	if !ok {
		return symbol{}, false
	}
	if ss := s.forAddr(addr); len(ss) > 0 {
		return ss[0], true
	}
	return symbol{addr: addr}, true
}

type symbol struct {
	addr  uint16
	label string
}

func (s symbol) String() string {
	if s.label == "" {
		return fmt.Sprintf("%.4x", s.addr)
	}
	return fmt.Sprintf("%s (%.4x)", s.label, s.addr)
}

// parseAddr accepts addresses written as 1a2b, 0x1a2b or 1a2bh.
func parseAddr(s string) (uint16, bool) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.TrimSuffix(s, "h")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err == nil
}

func parseSymbols(symFile string) (symbols, error) {
	f, err := os.Open(symFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSymbols(f)
}

// readSymbols reads a symbol table with one "address label" pair per line.
// Blank lines and text following a semicolon are ignored.
func readSymbols(r io.Reader) (symbols, error) {
	var (
		ss   symbols
		line int
		sc   = bufio.NewScanner(r)
	)
	for sc.Scan() {
		line++
		text, _, _ := strings.Cut(sc.Text(), ";")
		f := strings.Fields(text)
		if len(f) == 0 {
			continue
		}
		if len(f) != 2 {
			return nil, errors.Errorf("line %d: want address and label, got %q", line, text)
		}
		addr, ok := parseAddr(f[0])
		if !ok {
			return nil, errors.Errorf("line %d: invalid address %q", line, f[0])
		}
		ss = append(ss, symbol{addr: addr, label: strings.TrimSuffix(f[1], ":")})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading symbols")
	}
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].addr < ss[j].addr
	})
	return ss, nil
}

// addrForInstr returns the memory address the instruction at PC refers to,
// if any.
func addrForInstr(c *i8080.CPU, in i8080.Instr) (uint16, bool) {
	switch in.Op {
	case i8080.LXI, i8080.SHLD, i8080.STA, i8080.LHLD, i8080.LDA,
		i8080.Jcc, i8080.JMP, i8080.Ccc, i8080.CALL:
		return in.Addr, true
	case i8080.RST:
		return uint16(in.Vec) << 3, true
	case i8080.STAX, i8080.LDAX:
		return c.Pair(in.Pair), true
	case i8080.PCHL:
		return c.Pair(i8080.HL), true
	case i8080.RET, i8080.Rcc:
		return c.Short(c.SP), true
	case i8080.MOV:
		if in.Dst == i8080.M || in.Src == i8080.M {
			return c.Pair(i8080.HL), true
		}
	case i8080.INR, i8080.DCR, i8080.MVI:
		if in.Dst == i8080.M {
			return c.Pair(i8080.HL), true
		}
	case i8080.ADD, i8080.ADC, i8080.SUB, i8080.SBB,
		i8080.ANA, i8080.XRA, i8080.ORA, i8080.CMP:
		if in.Src == i8080.M {
			return c.Pair(i8080.HL), true
		}
	}
	return 0, false
}
