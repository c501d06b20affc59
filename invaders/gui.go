package invaders

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
)

type gui struct {
	r *Runner

	buf screen.Buffer
	tex screen.Texture
	seq int
}

func newGUI(r *Runner) *gui {
	return &gui{r: r, seq: -1}
}

var codeButtons = map[key.Code]Button{
	key.CodeC:          Coin,
	key.Code1:          P1Start,
	key.Code2:          P2Start,
	key.CodeLeftArrow:  P1Left,
	key.CodeRightArrow: P1Right,
	key.CodeSpacebar:   P1Fire,
	key.CodeA:          P2Left,
	key.CodeD:          P2Right,
	key.CodeW:          P2Fire,
	key.CodeT:          Tilt,
}

// Run drives the window until it is closed or the Runner exits.
// It must be called from the main goroutine.
func (g *gui) Run() (err error) {
	driver.Main(func(s screen.Screen) {
		scale := g.r.opts.Scale
		w, werr := s.NewWindow(&screen.NewWindowOptions{
			Title:  "n80",
			Width:  Width * scale,
			Height: Height * scale,
		})
		if werr != nil {
			err = werr
			return
		}
		defer w.Release()
		defer g.r.Quit()

		size0 := image.Point{Width, Height}
		if g.buf, err = s.NewBuffer(size0); err != nil {
			return
		}
		defer g.buf.Release()
		if g.tex, err = s.NewTexture(size0); err != nil {
			return
		}
		defer g.tex.Release()

		type update struct{}
		go func() {
			t := time.NewTicker(time.Second / FrameRate)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					w.Send(update{})
				case <-g.r.exit:
					w.Send(update{})
					return
				}
			}
		}()

		var sz size.Event
		for {
			e := w.NextEvent()

			select {
			case <-g.r.exit:
				return
			default:
			}

			switch e := e.(type) {
			case size.Event:
				sz = e
				if sz.WidthPx+sz.HeightPx == 0 {
					return
				}
				g.seq = -1

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					return
				}

			case key.Event:
				if e.Code == key.CodeEscape {
					return
				}
				b, ok := codeButtons[e.Code]
				if !ok {
					break
				}
				switch e.Direction {
				case key.DirPress:
					g.r.input.Press(b)
				case key.DirRelease:
					g.r.input.Release(b)
				}

			case paint.Event:
				g.seq = -1

			case update:
				seq := g.r.video.copyTo(g.buf.RGBA().Pix, g.seq)
				if seq == g.seq {
					break
				}
				g.seq = seq
				g.tex.Upload(image.Point{}, g.buf, g.buf.Bounds())
				w.Scale(sz.Bounds(), g.tex, g.tex.Bounds(), draw.Src, nil)
				w.Publish()

			case mouse.Event:
				// No pointer controls.

			case error:
				log.Print(e)

			default:
				format := "gui: got %#v"
				if _, ok := e.(fmt.Stringer); ok {
					format = "gui: got %v"
				}
				log.Printf(format, e)
			}
		}
	})
	return err
}
