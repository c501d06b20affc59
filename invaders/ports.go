package invaders

import (
	"github.com/pkg/errors"
)

// Config holds the cabinet's DIP switch settings.
type Config struct {
	Ships           int  // Ships per game, 3 to 6.
	ExtraShipAt1000 bool // Award the extra ship at 1000 points rather than 1500.
	CoinInfo        bool // Show coin information in the attract screen.
}

// DefaultConfig returns the factory DIP switch settings.
func DefaultConfig() Config {
	return Config{Ships: 3, CoinInfo: true}
}

// Port 2 DIP switch bits.
const (
	dipShips     = 0x03
	dipExtraShip = 0x08
	dipCoinInfo  = 0x80
)

func (c Config) port2() (byte, error) {
	if c.Ships < 3 || c.Ships > 6 {
		return 0, errors.Errorf("ships must be between 3 and 6, got %d", c.Ships)
	}
	v := byte(c.Ships-3) & dipShips
	if c.ExtraShipAt1000 {
		v |= dipExtraShip
	}
	if !c.CoinInfo {
		v |= dipCoinInfo
	}
	return v, nil
}

// Controls is the state of the cabinet's buttons and joysticks
// at the end of a frame.
type Controls struct {
	Coin    bool
	P1Start bool
	P2Start bool
	P1Left  bool
	P1Right bool
	P1Fire  bool
	P2Left  bool
	P2Right bool
	P2Fire  bool
	Tilt    bool
}

// Port 1 and port 2 input bits. Port 1 bit 3 is wired high.
const (
	in1Coin    = 0x01
	in1P2Start = 0x02
	in1P1Start = 0x04
	in1Always  = 0x08
	in1P1Fire  = 0x10
	in1P1Left  = 0x20
	in1P1Right = 0x40

	in2Tilt    = 0x04
	in2P2Fire  = 0x10
	in2P2Left  = 0x20
	in2P2Right = 0x40
)

// port0 is the value read from input port 0, which the game does not use.
const port0 = 0b0111_0000

// Ports implements the Space Invaders I/O port map as an i8080.Device.
type Ports struct {
	in1, in2 byte
	dips     byte

	shift  uint16 // the external shift register
	offset byte   // its read offset, 0-7

	sounds  [2]byte // the last values written to ports 3 and 5
	speaker Speaker
}

// NewPorts returns ports configured by the given DIP switches that send
// sound events to spk. A nil spk discards them.
func NewPorts(cfg Config, spk Speaker) (*Ports, error) {
	dips, err := cfg.port2()
	if err != nil {
		return nil, err
	}
	if spk == nil {
		spk = nopSpeaker{}
	}
	return &Ports{in1: in1Always, in2: dips, dips: dips, speaker: spk}, nil
}

// SetControls latches c into input ports 1 and 2.
func (p *Ports) SetControls(c Controls) {
	v := byte(in1Always)
	set := func(b bool, bit byte) {
		if b {
			v |= bit
		}
	}
	set(c.Coin, in1Coin)
	set(c.P2Start, in1P2Start)
	set(c.P1Start, in1P1Start)
	set(c.P1Fire, in1P1Fire)
	set(c.P1Left, in1P1Left)
	set(c.P1Right, in1P1Right)
	p.in1 = v

	v = p.dips
	set(c.Tilt, in2Tilt)
	set(c.P2Fire, in2P2Fire)
	set(c.P2Left, in2P2Left)
	set(c.P2Right, in2P2Right)
	p.in2 = v
}

func (p *Ports) In(port byte) byte {
	switch port {
	case 0:
		return port0
	case 1:
		return p.in1
	case 2:
		return p.in2
	case 3:
		return byte(p.shift >> (8 - p.offset))
	default:
		return 0
	}
}

func (p *Ports) Out(port, v byte) {
	switch port {
	case 2:
		p.offset = v & 7
	case 3:
		p.sound(0, v)
	case 4:
		p.shift = uint16(v)<<8 | p.shift>>8
	case 5:
		p.sound(1, v)
	case 6:
		// Watchdog.
	}
}

// sound triggers the sounds whose bits rose since the last write to the
// bank, and stops the looping UFO sound when its bit falls.
func (p *Ports) sound(bank int, v byte) {
	rose := v &^ p.sounds[bank]
	fell := p.sounds[bank] &^ v
	p.sounds[bank] = v
	for i, s := range soundBanks[bank] {
		bit := byte(1) << i
		switch {
		case rose&bit != 0 && s.Loops():
			p.speaker.Loop(s)
		case rose&bit != 0:
			p.speaker.Play(s)
		case fell&bit != 0 && s.Loops():
			p.speaker.Stop(s)
		}
	}
}
