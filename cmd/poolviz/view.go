package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hupe1980/scenecore"
)

var (
	styleBase   = tcell.StyleDefault
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleUsed   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleFree   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	stylePaused = tcell.StyleDefault.Foreground(tcell.ColorYellow).Reverse(true)
)

const (
	glyphUsed = '█'
	glyphFree = '·'
)

type app struct {
	screen tcell.Screen
	load   *workload
	rate   int
	paused bool
	frame  int
}

func newApp(screen tcell.Screen, load *workload, rate int) *app {
	return &app{screen: screen, load: load, rate: max(rate, 1)}
}

// run loops until the user quits. Events are read on a dedicated goroutine.
func (a *app) run(interval time.Duration) error {
	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			// PollEvent returns nil once the screen is finalized.
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			if !a.handle(ev) {
				return a.load.drain()
			}
		case <-ticker.C:
			if !a.paused {
				if err := a.load.step(a.rate); err != nil {
					return err
				}
				a.frame++
			}
		}
		a.draw()
	}
}

// handle applies one event and reports whether to keep running.
func (a *app) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				a.paused = !a.paused
			case '+':
				a.rate *= 2
			case '-':
				a.rate = max(a.rate/2, 1)
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) draw() {
	a.screen.Clear()
	width, height := a.screen.Size()

	title := fmt.Sprintf("poolviz  frame %d  rate %d/frame", a.frame, a.rate)
	drawText(a.screen, 0, 0, styleTitle, title)
	if a.paused {
		drawText(a.screen, len(title)+2, 0, stylePaused, " PAUSED ")
	}

	y := 2
	for _, p := range a.load.w.BlockPools() {
		y = drawPool(a.screen, 0, y, width, p) + 1
	}

	l := a.load
	st := a.load.w.Stats().Tiers
	drawText(a.screen, 0, y, styleBase, fmt.Sprintf("allocs %d  frees %d  failures %d  live %d",
		l.allocs, l.frees, l.failures, len(l.live)))
	drawText(a.screen, 0, y+1, styleDim, fmt.Sprintf("large tier: %d B live", st.Large.InUse))
	drawText(a.screen, 0, height-1, styleDim, "q/Esc quit  space pause  +/- rate")

	a.screen.Show()
}

// drawPool renders p as a grid of cells starting at row y and returns the
// first row below it.
func drawPool(s tcell.Screen, x, y, width int, p scenecore.BlockPoolInfo) int {
	header := fmt.Sprintf("%s  %d B blocks  %d/%d used  %d runs", p.Name, p.BlockSize, p.Used, p.BlockCount, len(p.Runs))
	drawText(s, x, y, styleTitle, header)
	y++

	cols := max(width-x, 1)
	i := 0
	for _, r := range p.Runs {
		style, glyph := styleFree, glyphFree
		if r.Used {
			style, glyph = styleUsed, glyphUsed
		}
		for n := 0; n < r.Length; n++ {
			s.SetContent(x+i%cols, y+i/cols, glyph, nil, style)
			i++
		}
	}
	return y + (i+cols-1)/cols
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
