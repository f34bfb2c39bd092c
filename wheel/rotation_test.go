package wheel

import (
	"errors"
	"math"
	"testing"
)

func TestPlanRotation_Landing(t *testing.T) {
	got, err := PlanRotation(0, 6, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3810 {
		t.Errorf("target %v want 3810", got)
	}
	if m := math.Mod(got, 360); m != 210 {
		t.Errorf("target mod 360 = %v want 210", m)
	}
}

func TestPlanRotation_LandsOnWinner(t *testing.T) {
	currents := []float64{0, 17.5, 359.9, 360, 3810, 12345.6}
	for n := 1; n <= 12; n++ {
		for i := 0; i < n; i++ {
			for _, cur := range currents {
				for _, full := range []int{1, 8, 20} {
					target, err := PlanRotation(cur, n, i, full)
					if err != nil {
						t.Fatal(err)
					}
					if target <= cur {
						t.Fatalf("n=%d i=%d cur=%v: target %v not past current", n, i, cur, target)
					}
					if target-cur < float64(full-1)*360 {
						t.Errorf("n=%d i=%d cur=%v full=%d: only %v degrees of travel", n, i, cur, full, target-cur)
					}
					if got := SegmentUnderPointer(target, n); got != i {
						t.Errorf("n=%d i=%d cur=%v: pointer over segment %d", n, i, cur, got)
					}
					// Midpoint lands exactly on the pointer.
					seg := 360 / float64(n)
					mid := float64(i)*seg + seg/2
					if d := mod360(target + mid); d > 1e-6 && math.Abs(d-360) > 1e-6 {
						t.Errorf("n=%d i=%d cur=%v: midpoint off pointer by %v", n, i, cur, d)
					}
				}
			}
		}
	}
}

func TestPlanRotation_Monotonic(t *testing.T) {
	src := NewSeededSource(42)
	tier := DefaultCatalog().List()[2]
	rotation := 0.0
	for k := 0; k < 500; k++ {
		idx, _, err := tier.Pick(src)
		if err != nil {
			t.Fatal(err)
		}
		target, err := PlanRotation(rotation, len(tier.Prizes), idx, DefaultFullRotations)
		if err != nil {
			t.Fatal(err)
		}
		if target <= rotation {
			t.Fatalf("spin %d: target %v not greater than previous %v", k, target, rotation)
		}
		rotation = target
	}
}

func TestPlanRotation_Errors(t *testing.T) {
	cases := []struct {
		name               string
		cur                float64
		n, idx, fullRounds int
	}{
		{"no segments", 0, 0, 0, 10},
		{"negative segments", 0, -3, 0, 10},
		{"index too large", 0, 6, 6, 10},
		{"negative index", 0, 6, -1, 10},
		{"no rotations", 0, 6, 1, 0},
		{"nan current", math.NaN(), 6, 1, 10},
	}
	for _, c := range cases {
		_, err := PlanRotation(c.cur, c.n, c.idx, c.fullRounds)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected ConfigurationError, got %v", c.name, err)
		}
	}
}

func TestSegmentUnderPointer(t *testing.T) {
	cases := []struct {
		rotation float64
		n        int
		want     int
	}{
		{0, 6, 0},
		{-30, 6, 0},
		{-90, 6, 1},
		{210, 6, 2},
		{3810, 6, 2},
		{180, 1, 0},
		{0, 0, -1},
	}
	for _, c := range cases {
		if got := SegmentUnderPointer(c.rotation, c.n); got != c.want {
			t.Errorf("rotation=%v n=%d: got %d want %d", c.rotation, c.n, got, c.want)
		}
	}
}

func TestEasing(t *testing.T) {
	for _, e := range []Easing{DefaultEasing, Linear} {
		if e.At(0) != 0 || e.At(1) != 1 {
			t.Errorf("%+v: endpoints %v %v", e, e.At(0), e.At(1))
		}
		if e.At(-1) != 0 || e.At(2) != 1 {
			t.Errorf("%+v: not clamped", e)
		}
		prev := 0.0
		for i := 1; i <= 100; i++ {
			v := e.At(float64(i) / 100)
			if v < prev-1e-6 {
				t.Fatalf("%+v: not monotonic at %d: %v < %v", e, i, v, prev)
			}
			prev = v
		}
	}
	if v := Linear.At(0.3); math.Abs(v-0.3) > 1e-5 {
		t.Errorf("linear at 0.3 = %v", v)
	}
	// The deceleration curve covers most of the distance early.
	if v := DefaultEasing.At(0.25); v < 0.6 {
		t.Errorf("default easing at 0.25 = %v, want a fast start", v)
	}
	if got := Linear.Interpolate(100, 200, 0.5); math.Abs(got-150) > 1e-3 {
		t.Errorf("interpolate = %v", got)
	}
}
