package zoetrope

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}
	if !r.Contains(10, 20) {
		t.Error("Contains(10,20) = false, want true (top-left corner)")
	}
	if !r.Contains(60, 45) {
		t.Error("Contains(60,45) = false, want true (interior)")
	}
	if r.Contains(111, 45) {
		t.Error("Contains(111,45) = true, want false (right of rect)")
	}
	if r.Contains(60, 9) {
		t.Error("Contains(60,9) = true, want false (above rect)")
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	c := Rect{X: 20, Y: 20, Width: 5, Height: 5}
	if !a.Intersects(b) {
		t.Error("overlapping rects should intersect")
	}
	if a.Intersects(c) {
		t.Error("disjoint rects should not intersect")
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(-1, 0, 1); got != 0 {
		t.Errorf("clamp(-1,0,1) = %f, want 0", got)
	}
	if got := clamp(2, 0, 1); got != 1 {
		t.Errorf("clamp(2,0,1) = %f, want 1", got)
	}
	if got := clamp(0.5, 0, 1); got != 0.5 {
		t.Errorf("clamp(0.5,0,1) = %f, want 0.5", got)
	}
}

func TestLerp(t *testing.T) {
	if got := lerp(0, 10, 0.5); !approxEqual(got, 5, epsilon) {
		t.Errorf("lerp(0,10,0.5) = %f, want 5", got)
	}
	if got := lerp(3, 3, 0.7); !approxEqual(got, 3, epsilon) {
		t.Errorf("lerp(3,3,0.7) = %f, want 3", got)
	}
	if got := lerp(10, 0, 1); !approxEqual(got, 0, epsilon) {
		t.Errorf("lerp(10,0,1) = %f, want 0", got)
	}
}

func TestColorToRGBAPremultiplies(t *testing.T) {
	c := Color{R: 1, G: 0.5, B: 0, A: 0.5}
	rgba := c.toRGBA()
	if rgba.A != 127 {
		t.Errorf("A = %d, want 127", rgba.A)
	}
	if rgba.R != 127 {
		t.Errorf("R = %d, want 127 (premultiplied)", rgba.R)
	}
	if rgba.B != 0 {
		t.Errorf("B = %d, want 0", rgba.B)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{400, 512},
		{512, 512},
		{513, 1024},
	}
	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
