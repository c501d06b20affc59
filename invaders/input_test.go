package invaders

import (
	"testing"
	"time"
)

func TestInput(t *testing.T) {
	now := time.Unix(0, 0)
	in := &Input{now: func() time.Time { return now }}

	in.Press(Coin)
	in.Press(P1Left)
	if c := in.Controls(); !c.Coin || !c.P1Left || c.P1Right {
		t.Errorf("after press: %+v", c)
	}
	in.Release(Coin)
	if c := in.Controls(); c.Coin || !c.P1Left {
		t.Errorf("after release: %+v", c)
	}

	in.Hold(P2Fire, 150*time.Millisecond)
	if c := in.Controls(); !c.P2Fire {
		t.Errorf("held: %+v", c)
	}
	now = now.Add(100 * time.Millisecond)
	in.Hold(P2Fire, 150*time.Millisecond) // key repeat extends the hold
	now = now.Add(100 * time.Millisecond)
	if c := in.Controls(); !c.P2Fire {
		t.Errorf("hold extended: %+v", c)
	}
	now = now.Add(100 * time.Millisecond)
	if c := in.Controls(); c.P2Fire {
		t.Errorf("hold expired: %+v", c)
	}

	in.Hold(Tilt, time.Second)
	in.Release(Tilt)
	if c := in.Controls(); c.Tilt {
		t.Errorf("released hold: %+v", c)
	}
}
