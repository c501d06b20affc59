package invaders

import (
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"github.com/nf/n80/i8080"
)

// StateKind describes why a StateFunc is being called.
type StateKind int

const (
	ClearState StateKind = iota // A new program was loaded.
	QuietState                  // A frame completed.
	DebugState                  // The debug address was reached.
	BreakState                  // The break address was reached; execution is paused.
	PauseState                  // Execution is paused, or was stepped while paused.
	HaltState                   // The CPU stopped with an error.
)

// StateFunc receives CPU snapshots from the emulation goroutine. It must
// not retain the CPU or modify it.
type StateFunc func(*i8080.CPU, StateKind)

// Display selects how the Runner presents the machine.
type Display int

const (
	NoDisplay   Display = iota
	GUIDisplay          // a shiny window
	TermDisplay         // the controlling terminal, via tcell
)

// NoAddr passed to Debug clears the break or debug address.
const NoAddr = -1

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Display Display
	Scale   int  // GUI window scale factor
	Dev     bool // keep running after the CPU halts and accept Swap
	Config  Config
	Speaker Speaker
	State   StateFunc
}

// Runner drives a Machine at 60 frames per second and connects it to a
// display and a debugger.
type Runner struct {
	opts RunnerOptions

	input Input
	video video

	swap     chan []byte
	swapDone chan bool
	debug    chan debugCmd
	exit     chan bool
	exitOnce sync.Once

	// Owned by the emulation goroutine.
	brk, dbg int
	skip     int
}

type debugCmd struct {
	cmd  string
	addr int
}

var errBreak = errors.New("break")

// NewRunner returns a Runner with the given options.
func NewRunner(o RunnerOptions) *Runner {
	if o.Scale < 1 {
		o.Scale = 2
	}
	return &Runner{
		opts:     o,
		swap:     make(chan []byte),
		swapDone: make(chan bool),
		debug:    make(chan debugCmd),
		exit:     make(chan bool),
		brk:      NoAddr,
		dbg:      NoAddr,
		skip:     NoAddr,
	}
}

// Input returns the Runner's input, for hosts that supply their own
// controls.
func (r *Runner) Input() *Input { return &r.input }

// Swap replaces the running program with rom. It may only be used in
// developer mode, while Run is executing.
func (r *Runner) Swap(rom []byte) {
	if !r.opts.Dev {
		panic("Swap called while not running in dev mode")
	}
	select {
	case r.swap <- rom:
		<-r.swapDone
	case <-r.exit:
	}
}

// Debug sends a debugger command to the emulation goroutine:
//
//	break, b  pause when PC reaches addr (NoAddr clears)
//	debug, d  report state when PC reaches addr (NoAddr clears)
//	step, s   execute one instruction while paused
//	cont, c   resume execution
//	pause, p  pause execution
//	exit      stop the Runner
func (r *Runner) Debug(cmd string, addr int) {
	select {
	case r.debug <- debugCmd{cmd, addr}:
	case <-r.exit:
	}
}

// Quit stops the Runner. It is safe to call more than once.
func (r *Runner) Quit() {
	r.exitOnce.Do(func() { close(r.exit) })
}

// Run executes rom until the Runner is stopped, the display is closed,
// or, outside developer mode, the CPU halts with an error.
func (r *Runner) Run(rom []byte) error {
	m, err := r.newMachine(rom)
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() {
		errc <- r.loop(m)
		r.Quit()
	}()

	var dispErr error
	switch r.opts.Display {
	case GUIDisplay:
		dispErr = newGUI(r).Run()
	case TermDisplay:
		dispErr = newTerm(r).Run()
	}
	if dispErr == nil {
		<-r.exit
	}
	r.Quit()
	if err := <-errc; err != nil {
		return err
	}
	return dispErr
}

func (r *Runner) newMachine(rom []byte) (*Machine, error) {
	m, err := New(rom, r.opts.Config, r.opts.Speaker)
	if err != nil {
		return nil, err
	}
	m.Hook = r.hook
	return m, nil
}

func (r *Runner) loop(m *Machine) error {
	t := time.NewTicker(time.Second / FrameRate)
	defer t.Stop()

	var paused, halted bool
	r.state(m.CPU, ClearState)
	for {
		select {
		case <-r.exit:
			return nil

		case rom := <-r.swap:
			if nm, err := r.newMachine(rom); err != nil {
				log.Printf("swap: %v", err)
			} else {
				m = nm
				paused, halted = false, false
				r.state(m.CPU, ClearState)
			}
			r.swapDone <- true

		case c := <-r.debug:
			switch c.cmd {
			case "b", "break":
				r.brk = c.addr
			case "d", "debug":
				r.dbg = c.addr
			case "s", "step":
				if !paused || halted {
					break
				}
				if err := m.Step(); err != nil {
					halted = true
					log.Printf("halt: %v", err)
					r.state(m.CPU, HaltState)
					break
				}
				r.state(m.CPU, PauseState)
			case "c", "cont":
				if paused {
					paused = false
					r.skip = int(m.CPU.PC)
					r.state(m.CPU, ClearState)
				}
			case "p", "pause":
				paused = true
				r.state(m.CPU, PauseState)
			case "exit":
				return nil
			default:
				log.Printf("unknown command %q", c.cmd)
			}

		case <-t.C:
			if paused || halted {
				continue
			}
			err := m.RunFrame(r.input.Controls())
			if err == errBreak {
				paused = true
				r.state(m.CPU, BreakState)
				continue
			}
			if err != nil {
				r.state(m.CPU, HaltState)
				if !r.opts.Dev {
					return err
				}
				log.Printf("halt: %v", err)
				halted = true
				continue
			}
			r.video.update(m)
			r.state(m.CPU, QuietState)
		}
	}
}

// hook runs before every instruction on the emulation goroutine.
func (r *Runner) hook(c *i8080.CPU) error {
	pc := int(c.PC)
	if skip := r.skip; skip != NoAddr {
		r.skip = NoAddr
		if pc == skip {
			return nil
		}
	}
	if pc == r.brk {
		return errBreak
	}
	if pc == r.dbg {
		r.state(c, DebugState)
	}
	return nil
}

func (r *Runner) state(c *i8080.CPU, k StateKind) {
	if f := r.opts.State; f != nil {
		f(c, k)
	}
}

// video holds the most recent frame for a display goroutine.
type video struct {
	mu  sync.Mutex
	img *image.RGBA
	seq int
}

func (v *video) update(m *Machine) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.img == nil {
		v.img = image.NewRGBA(image.Rect(0, 0, Width, Height))
	}
	m.DrawFrame(v.img)
	v.seq++
}

// copyTo copies the current frame into dst if it is newer than seq,
// and returns the sequence number of the frame dst now holds.
func (v *video) copyTo(dst []byte, seq int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.img == nil || v.seq == seq {
		return seq
	}
	copy(dst, v.img.Pix)
	return v.seq
}
