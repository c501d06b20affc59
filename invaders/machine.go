// Package invaders implements the Taito/Midway Space Invaders arcade
// machine around an Intel 8080.
package invaders

import (
	"image"
	"image/color"

	"github.com/nf/n80/i8080"
)

// Timing of the 8080 in the cabinet.
const (
	ClockHz         = 2_000_000
	FrameRate       = 60
	FrameCycles     = ClockHz / FrameRate
	HalfFrameCycles = FrameCycles / 2
)

// Video memory and the dimensions of the rotated display.
const (
	VRAMStart = 0x2400
	VRAMEnd   = 0x4000

	Width  = 224
	Height = 256
)

// Interrupt vectors raised by the video hardware.
const (
	midFrameVector = 1 // RST 1, when the beam reaches the middle of the screen
	vblankVector   = 2 // RST 2, at the start of vertical blank
)

// Machine is a Space Invaders cabinet.
type Machine struct {
	CPU   *i8080.CPU
	Ports *Ports

	// Hook, if non-nil, is called before each instruction. An error stops
	// the frame; the next call to RunFrame continues where it left off.
	Hook func(*i8080.CPU) error

	cycles   int  // cycles run in the current frame
	midFrame bool // the mid-frame interrupt has been raised
}

// New returns a Machine running the given ROM image, which is loaded at
// address 0.
func New(rom []byte, cfg Config, spk Speaker) (*Machine, error) {
	p, err := NewPorts(cfg, spk)
	if err != nil {
		return nil, err
	}
	return &Machine{CPU: i8080.New(rom), Ports: p}, nil
}

// RunFrame runs the CPU for one video frame: it executes instructions
// until half a frame's worth of cycles have elapsed, raises the mid-frame
// interrupt, runs to the end of the frame and raises the vertical blank
// interrupt. It then latches c into the input ports. Cycles run past the end
// of the frame count towards the next one.
func (m *Machine) RunFrame(c Controls) error {
	if !m.midFrame {
		if err := m.runUntil(HalfFrameCycles); err != nil {
			return err
		}
		m.CPU.Interrupt(midFrameVector)
		m.midFrame = true
	}
	if err := m.runUntil(FrameCycles); err != nil {
		return err
	}
	m.CPU.Interrupt(vblankVector)
	m.midFrame = false
	m.cycles -= FrameCycles
	m.Ports.SetControls(c)
	return nil
}

func (m *Machine) runUntil(budget int) error {
	for m.cycles < budget {
		if m.Hook != nil {
			if err := m.Hook(m.CPU); err != nil {
				return err
			}
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single instruction without calling Hook.
func (m *Machine) Step() error {
	n, err := m.CPU.Step(m.Ports)
	m.cycles += n
	return err
}

// Overlay colours of the cellophane strips on the cabinet's monitor.
var (
	Black = color.RGBA{0x00, 0x00, 0x00, 0xff}
	White = color.RGBA{0xff, 0xff, 0xff, 0xff}
	Green = color.RGBA{0x00, 0xff, 0x00, 0xff}
	Red   = color.RGBA{0xff, 0x00, 0x00, 0xff}
)

func overlay(y int) color.RGBA {
	switch {
	case y > 180:
		return Green
	case y > 33 && y < 50:
		return Red
	default:
		return White
	}
}

// Frame returns the current contents of video memory as an image.
func (m *Machine) Frame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	m.DrawFrame(img)
	return img
}

// DrawFrame renders video memory into img, which must be Width by Height.
// The monitor is mounted rotated, so each byte of video memory is a strip of
// eight vertical pixels, least significant bit lowest, and consecutive
// bytes run up the screen from the bottom left.
func (m *Machine) DrawFrame(img *image.RGBA) {
	vram := m.CPU.Mem[VRAMStart:VRAMEnd]
	const stride = Height / 8
	for x := 0; x < Width; x++ {
		for i := 0; i < stride; i++ {
			b := vram[x*stride+i]
			for bit := 0; bit < 8; bit++ {
				y := Height - 1 - (8*i + bit)
				c := Black
				if b&(1<<bit) != 0 {
					c = overlay(y)
				}
				img.SetRGBA(x, y, c)
			}
		}
	}
}
