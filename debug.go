package main

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/n80/i8080"
	"github.com/nf/n80/invaders"
)

type debugger struct {
	run *invaders.Runner

	log   *tview.TextView
	watch *tview.TextView
	code  *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	dbg, brk *symbol

	mu      sync.Mutex
	syms    symbols
	watches []watch
}

type watch struct {
	symbol
	short bool
}

func (d *debugger) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugger) setSymbols(s symbols) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syms = s
}

func newDebugger() *debugger {
	d := &debugger{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		code: tview.NewTextView().
			SetWrap(false),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.code.SetBackgroundColor(tcell.ColorDarkSlateGray)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.code, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "d", "debug", "w", "w2", "watch", "watch2":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		d.command(cmd)
	})
	return d
}

func (d *debugger) command(cmd string) {
	if cmd == "exit" {
		d.app.Stop()
		return
	}
	if cmd, arg, ok := strings.Cut(cmd, " "); ok {
		switch cmd {
		case "b", "break", "d", "debug":
			s, ok := d.symbols().resolve(arg)
			if !ok {
				log.Printf("invalid addr %q", arg)
				return
			}
			d.run.Debug(cmd, int(s.addr))
			d.mu.Lock()
			switch cmd[0] {
			case 'b':
				d.brk = &s
			case 'd':
				d.dbg = &s
			}
			d.mu.Unlock()
			log.Printf("set %s %v", cmd, s)
			return
		case "w", "w2", "watch", "watch2":
			s, ok := d.symbols().resolve(arg)
			if !ok {
				log.Printf("invalid address %q", arg)
				return
			}
			d.mu.Lock()
			d.watches = append(d.watches,
				watch{symbol: s, short: strings.HasSuffix(cmd, "2")})
			d.mu.Unlock()
			log.Printf("watching %v", s)
			return
		}
	}
	d.run.Debug(cmd, invaders.NoAddr)
	d.mu.Lock()
	defer d.mu.Unlock()
	switch cmd {
	case "b", "break":
		d.brk = nil
		log.Print("cleared break")
	case "d", "debug":
		d.dbg = nil
		log.Print("cleared debug")
	}
}

func (d *debugger) Run() error { return d.app.Run() }

// StateFunc is called on the emulation goroutine, so it renders everything
// it needs from c before queueing the update.
func (d *debugger) StateFunc(c *i8080.CPU, k invaders.StateKind) {
	var (
		watch = d.watchContent(c)
		code  string
		state string
	)
	if k != invaders.QuietState {
		code = codeListing(d.symbols(), c, 16)
	}
	if k != invaders.ClearState && k != invaders.QuietState {
		state = stateMsg(d.symbols(), c, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case invaders.DebugState, invaders.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case invaders.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case invaders.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case invaders.HaltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != invaders.QuietState {
			d.code.SetText(code)
			d.state.SetText(state)
		}
	})
}

func stateMsg(syms symbols, c *i8080.CPU, k invaders.StateKind) string {
	var (
		pcSym string
		sym   string
		instr = "??"
	)
	if s := syms.forAddr(c.PC); len(s) > 0 {
		pcSym = s[0].String() + " -> "
	}
	if in, err := c.Decode(c.PC); err == nil {
		instr = in.String()
		if addr, ok := addrForInstr(c, in); ok {
			for i, s := range syms.forAddr(addr) {
				if i != 0 {
					sym += " "
				}
				sym += s.String()
			}
		}
	}
	kind := "       "
	switch k {
	case invaders.BreakState:
		kind = "[break]"
	case invaders.DebugState:
		kind = "[debug]"
	case invaders.PauseState:
		kind = "[pause]"
	case invaders.HaltState:
		kind = "[HALT!]"
	}
	return fmt.Sprintf("%.4x %-12s %s %s%s\n%v\nstack: %.4x %.4x %.4x %.4x\n",
		c.PC, instr, kind, pcSym, sym, c,
		c.Short(c.SP), c.Short(c.SP+2), c.Short(c.SP+4), c.Short(c.SP+6))
}

// codeListing disassembles n instructions from PC, labelling known
// addresses.
func codeListing(syms symbols, c *i8080.CPU, n int) string {
	var b strings.Builder
	for i, l := range c.Disassemble(c.PC, n) {
		for _, s := range syms.forAddr(l.Addr) {
			fmt.Fprintf(&b, "%s:\n", s.label)
		}
		marker := "  "
		if i == 0 {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%v\n", marker, l)
	}
	return b.String()
}

func (d *debugger) watchContent(c *i8080.CPU) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if s := d.brk; s != nil {
		fmt.Fprintf(&b, "%s [%.4x] brk!\n", s.label, s.addr)
	}
	if s := d.dbg; s != nil {
		fmt.Fprintf(&b, "%s [%.4x] dbg?\n", s.label, s.addr)
	}
	for _, w := range d.watches {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s [%.4x] ", w.label, w.addr)
		if w.short {
			fmt.Fprintf(&b, "%.4x", c.Short(w.addr))
		} else {
			fmt.Fprintf(&b, "  %.2x", c.Mem[w.addr])
		}
	}
	return b.String()
}
