package wheel

import "math"

// Easing is a CSS-style cubic-bezier timing curve through (0,0), (X1,Y1), (X2,Y2), (1,1).
type Easing struct {
	X1, Y1, X2, Y2 float64
}

// DefaultEasing is the long deceleration used by the shop's wheel.
var DefaultEasing = Easing{X1: 0.12, Y1: 0.8, X2: 0.1, Y2: 1}

// Linear progresses evenly.
var Linear = Easing{X1: 0, Y1: 0, X2: 1, Y2: 1}

func bezier(t, p1, p2 float64) float64 {
	u := 1 - t
	return 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t
}

func bezierSlope(t, p1, p2 float64) float64 {
	u := 1 - t
	return 3*u*u*p1 + 6*u*t*(p2-p1) + 3*t*t*(1-p2)
}

// At maps time progress p in [0, 1] to animation progress.
func (e Easing) At(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	// Solve x(t) = p: Newton first, bisection if the slope flattens.
	t := p
	for i := 0; i < 8; i++ {
		x := bezier(t, e.X1, e.X2) - p
		if math.Abs(x) < 1e-7 {
			return bezier(t, e.Y1, e.Y2)
		}
		d := bezierSlope(t, e.X1, e.X2)
		if math.Abs(d) < 1e-6 {
			break
		}
		t -= x / d
		if t < 0 || t > 1 {
			break
		}
	}
	lo, hi := 0.0, 1.0
	t = p
	for i := 0; i < 64; i++ {
		x := bezier(t, e.X1, e.X2)
		if math.Abs(x-p) < 1e-7 {
			break
		}
		if x < p {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return bezier(t, e.Y1, e.Y2)
}

// Interpolate returns the rotation between from and to at time progress p.
func (e Easing) Interpolate(from, to, p float64) float64 {
	return from + (to-from)*e.At(p)
}
