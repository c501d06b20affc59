package invaders

import (
	"sync"
	"time"
)

// Button is a cabinet control.
type Button int

const (
	Coin Button = iota
	P1Start
	P2Start
	P1Left
	P1Right
	P1Fire
	P2Left
	P2Right
	P2Fire
	Tilt

	numButtons
)

// Input collects button state from a display's event loop for the
// emulation goroutine.
type Input struct {
	mu   sync.Mutex
	down [numButtons]bool
	// until holds release deadlines for buttons pressed on displays that do
	// not report key releases.
	until [numButtons]time.Time
	now   func() time.Time
}

// Press marks b as held down until Release is called.
func (in *Input) Press(b Button) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.down[b] = true
}

// Release marks b as released.
func (in *Input) Release(b Button) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.down[b] = false
	in.until[b] = time.Time{}
}

// Hold marks b as held down for d.
func (in *Input) Hold(b Button, d time.Duration) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.until[b] = in.time().Add(d)
}

// Controls returns the current state of all buttons.
func (in *Input) Controls() Controls {
	in.mu.Lock()
	defer in.mu.Unlock()
	var (
		now = in.time()
		b   [numButtons]bool
	)
	for i := range b {
		b[i] = in.down[i] || now.Before(in.until[i])
	}
	return Controls{
		Coin:    b[Coin],
		P1Start: b[P1Start],
		P2Start: b[P2Start],
		P1Left:  b[P1Left],
		P1Right: b[P1Right],
		P1Fire:  b[P1Fire],
		P2Left:  b[P2Left],
		P2Right: b[P2Right],
		P2Fire:  b[P2Fire],
		Tilt:    b[Tilt],
	}
}

func (in *Input) time() time.Time {
	if in.now != nil {
		return in.now()
	}
	return time.Now()
}

// runeButtons maps printable keys to buttons. Both displays map the arrow
// keys to player 1's joystick and space to player 1's fire button.
var runeButtons = map[rune]Button{
	'c': Coin,
	'1': P1Start,
	'2': P2Start,
	' ': P1Fire,
	'a': P2Left,
	'd': P2Right,
	'w': P2Fire,
	't': Tilt,
}
