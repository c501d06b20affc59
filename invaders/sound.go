package invaders

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Sound is one of the cabinet's discrete sound circuits.
type Sound int

const (
	UFO Sound = iota
	Shot
	PlayerDie
	InvaderDie
	ExtraShip
	Fleet1
	Fleet2
	Fleet3
	Fleet4
	UFOHit

	numSounds
)

// soundBanks maps the bits of output ports 3 and 5 to sounds.
var soundBanks = [2][]Sound{
	{UFO, Shot, PlayerDie, InvaderDie, ExtraShip},
	{Fleet1, Fleet2, Fleet3, Fleet4, UFOHit},
}

// soundNames are also the base names of the sample files.
var soundNames = [numSounds]string{
	UFO:        "ufo",
	Shot:       "shoot",
	PlayerDie:  "player_dies",
	InvaderDie: "invader_dies",
	ExtraShip:  "extra_ship",
	Fleet1:     "fleet1",
	Fleet2:     "fleet2",
	Fleet3:     "fleet3",
	Fleet4:     "fleet4",
	UFOHit:     "ufo_hit",
}

func (s Sound) String() string {
	if s >= 0 && s < numSounds {
		return soundNames[s]
	}
	return fmt.Sprintf("Sound(%d)", int(s))
}

// Loops reports whether the sound repeats for as long as its port bit is set.
func (s Sound) Loops() bool { return s == UFO }

// Speaker plays the cabinet's sounds.
type Speaker interface {
	// Play starts s from its beginning.
	Play(s Sound)
	// Loop plays s repeatedly until Stop is called.
	Loop(s Sound)
	// Stop silences s.
	Stop(s Sound)
}

type nopSpeaker struct{}

func (nopSpeaker) Play(Sound) {}
func (nopSpeaker) Loop(Sound) {}
func (nopSpeaker) Stop(Sound) {}

// mixer sums the active voices into a mono float32 little-endian stream.
type mixer struct {
	mu      sync.Mutex
	samples [numSounds][]float32
	voices  [numSounds]voice
	gain    float32
}

type voice struct {
	pos    int
	active bool
	loop   bool
}

func newMixer() *mixer {
	return &mixer{gain: 0.5}
}

func (m *mixer) Play(s Sound) { m.start(s, false) }
func (m *mixer) Loop(s Sound) { m.start(s, true) }

func (m *mixer) Stop(s Sound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices[s].active = false
}

func (m *mixer) start(s Sound, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples[s]) == 0 {
		return
	}
	m.voices[s] = voice{active: true, loop: loop}
}

// Read implements io.Reader for an oto player. It never returns an error
// and fills p with silence when nothing is playing.
func (m *mixer) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(p) / 4
	for i := 0; i < n; i++ {
		var sum float32
		for s := range m.voices {
			v := &m.voices[s]
			if !v.active {
				continue
			}
			data := m.samples[s]
			sum += data[v.pos]
			if v.pos++; v.pos >= len(data) {
				v.pos = 0
				v.active = v.loop
			}
		}
		sum *= m.gain
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sum))
	}
	return n * 4, nil
}
