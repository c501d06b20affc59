package invaders

import (
	"image"
	"time"

	"github.com/gdamore/tcell/v2"
	xdraw "golang.org/x/image/draw"
)

// termHold is how long a key press holds a button down. Terminals report
// key repeats but not releases.
const termHold = 150 * time.Millisecond

// term renders frames to the terminal using half-block characters, two
// pixels per cell.
type term struct {
	r   *Runner
	src *image.RGBA
	seq int
}

func newTerm(r *Runner) *term {
	return &term{
		r:   r,
		src: image.NewRGBA(image.Rect(0, 0, Width, Height)),
		seq: -1,
	}
}

func (t *term) Run() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	defer t.r.Quit()
	s.HideCursor()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := s.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-t.r.exit:
				return
			}
		}
	}()

	tick := time.NewTicker(time.Second / 30)
	defer tick.Stop()
	for {
		select {
		case <-t.r.exit:
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				t.seq = -1
				s.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					return nil
				}
				if b, ok := keyButton(ev); ok {
					t.r.input.Hold(b, termHold)
				}
			}
		case <-tick.C:
			seq := t.r.video.copyTo(t.src.Pix, t.seq)
			if seq == t.seq {
				continue
			}
			t.seq = seq
			t.draw(s)
		}
	}
}

func keyButton(ev *tcell.EventKey) (Button, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return P1Left, true
	case tcell.KeyRight:
		return P1Right, true
	case tcell.KeyRune:
		b, ok := runeButtons[ev.Rune()]
		return b, ok
	}
	return 0, false
}

func (t *term) draw(s tcell.Screen) {
	cols, rows := s.Size()
	img := fitCells(t.src, cols, rows)
	s.Clear()
	b := img.Bounds()
	for y := 0; y < b.Dy(); y += 2 {
		for x := 0; x < b.Dx(); x++ {
			top := img.RGBAAt(x, y)
			bot := img.RGBAAt(x, y+1)
			st := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bot.R), int32(bot.G), int32(bot.B)))
			s.SetContent(x, y/2, '▀', nil, st)
		}
	}
	s.Show()
}

// fitCells scales src to the largest size that fits in a cols by rows
// terminal, with each cell holding two vertically stacked pixels, keeping
// its aspect ratio.
func fitCells(src *image.RGBA, cols, rows int) *image.RGBA {
	sb := src.Bounds()
	w, h := cols, rows*2
	if w*sb.Dy() > h*sb.Dx() {
		w = h * sb.Dx() / sb.Dy()
	} else {
		h = w * sb.Dy() / sb.Dx()
	}
	h &^= 1
	if w < 1 || h < 2 {
		return image.NewRGBA(image.Rectangle{})
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}
