package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/Ashenafi-pixel/raffle-wheel/spin"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

// canvas is the part of tcell.Screen the view draws on.
type canvas interface {
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Size() (int, int)
}

var segmentColors = []tcell.Color{
	tcell.ColorRed,
	tcell.ColorYellow,
	tcell.ColorGreen,
	tcell.ColorBlue,
	tcell.ColorPurple,
	tcell.ColorTeal,
	tcell.ColorOrange,
	tcell.ColorFuchsia,
	tcell.ColorLime,
}

// Terminal cells are roughly twice as tall as they are wide.
const cellAspect = 2.0

// segmentAt returns the segment drawn at offset (dx, dy) from the wheel centre, or -1
// outside the ring. Angles run clockwise from the pointer at the top.
func segmentAt(dx, dy, radius, rotation float64, n int) int {
	x := dx / cellAspect
	r := math.Hypot(x, dy)
	if r > radius || r < radius*0.3 {
		return -1
	}
	theta := math.Atan2(x, -dy) * 180 / math.Pi
	return wheel.SegmentUnderPointer(rotation-theta, n)
}

type view struct {
	message string
	flash   int // frames left to highlight the result
}

func (v *view) draw(c canvas, tiers []wheel.Tier, snap spin.Snapshot, rotation float64) {
	w, h := c.Size()
	blank(c, w, h)

	n := len(snap.Tier.Prizes)
	panel := 34
	wheelW := max(w-panel, 10)
	cx, cy := wheelW/2, h/2
	radius := math.Min(float64(h-4)/2, float64(wheelW-2)/(2*cellAspect))
	if radius < 3 {
		drawText(c, 0, 0, tcell.StyleDefault, "terminal too small")
		return
	}

	for y := 0; y < h; y++ {
		for x := 0; x < wheelW; x++ {
			i := segmentAt(float64(x-cx), float64(y-cy), radius, rotation, n)
			if i < 0 {
				continue
			}
			c.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(segmentColors[i%len(segmentColors)]))
		}
	}
	top := cy - int(radius) - 1
	c.SetContent(cx, max(top, 0), '▼', nil, tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))

	under := wheel.SegmentUnderPointer(rotation, n)
	x0 := wheelW + 1
	drawText(c, x0, 0, tcell.StyleDefault.Bold(true), fmt.Sprintf("%s  %s", snap.Branch, snap.Tier.Label))
	for i, p := range snap.Tier.Prizes {
		style := tcell.StyleDefault
		if i == under {
			style = style.Reverse(true)
		}
		c.SetContent(x0, 2+i, '█', nil, tcell.StyleDefault.Foreground(segmentColors[i%len(segmentColors)]))
		drawText(c, x0+2, 2+i, style, p.Name)
	}

	y := 3 + n
	switch snap.State {
	case spin.Spinning:
		drawText(c, x0, y, tcell.StyleDefault.Foreground(tcell.ColorYellow), "Spinning...")
	case spin.Settled:
		if snap.Winner != nil {
			style := tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
			if v.flash > 0 && v.flash%2 == 0 {
				style = style.Reverse(true)
			}
			if snap.Winner.Prize.Miss {
				style = tcell.StyleDefault.Foreground(tcell.ColorRed)
			}
			drawText(c, x0, y, style, resultText(snap.Winner.Prize))
		}
		drawText(c, x0, y+1, tcell.StyleDefault, "[r] next participant")
	default:
		drawText(c, x0, y, tcell.StyleDefault, "[space] spin")
	}

	y += 3
	for i, t := range tiers {
		if i >= 9 {
			break
		}
		style := tcell.StyleDefault.Dim(true)
		if t.ID == snap.Tier.ID {
			style = tcell.StyleDefault
		}
		drawText(c, x0, y+i, style, fmt.Sprintf("[%d] %s", i+1, t.Label))
	}
	if v.message != "" {
		drawText(c, 0, h-1, tcell.StyleDefault.Foreground(tcell.ColorRed), v.message)
	}
	if v.flash > 0 {
		v.flash--
	}
}

func resultText(p wheel.Prize) string {
	switch {
	case p.Miss:
		return "Better luck next time!"
	case p.Jackpot:
		return "JACKPOT! " + p.Name
	}
	return "You won: " + p.Name
}

func blank(c canvas, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}
}

func drawText(c canvas, x, y int, style tcell.Style, s string) {
	for _, r := range s {
		c.SetContent(x, y, r, nil, style)
		x++
	}
}
