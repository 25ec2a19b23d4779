package zoetrope

import "fmt"

// EasingFunc maps an interpolation fraction in [0, 1] to an eased fraction.
// The timeline applies the easing named on the upper keyframe of each
// bracketing pair.
//
// These are kept in float64 rather than reusing gween's float32 TweenFuncs:
// camera pose sampling must be bit-exact at keyframe boundaries and at linear
// midpoints, and a round-trip through float32 loses that.
type EasingFunc func(t float64) float64

// The built-in easing catalogue. Standard Penner quad/cubic formulas.
var (
	Linear         EasingFunc = func(t float64) float64 { return t }
	EaseInQuad     EasingFunc = func(t float64) float64 { return t * t }
	EaseOutQuad    EasingFunc = func(t float64) float64 { return t * (2 - t) }
	EaseInOutQuad  EasingFunc = func(t float64) float64 {
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	}
	EaseInCubic  EasingFunc = func(t float64) float64 { return t * t * t }
	EaseOutCubic EasingFunc = func(t float64) float64 {
		u := t - 1
		return u*u*u + 1
	}
	EaseInOutCubic EasingFunc = func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := 2*t - 2
		return u*u*u/2 + 1
	}
)

// easings maps the names accepted in keyframes and tour scripts to their
// functions.
var easings = map[string]EasingFunc{
	"linear":         Linear,
	"easeInQuad":     EaseInQuad,
	"easeOutQuad":    EaseOutQuad,
	"easeInOutQuad":  EaseInOutQuad,
	"easeInCubic":    EaseInCubic,
	"easeOutCubic":   EaseOutCubic,
	"easeInOutCubic": EaseInOutCubic,
}

// EasingByName returns the easing function registered under name.
// The empty string selects Linear.
func EasingByName(name string) (EasingFunc, error) {
	if name == "" {
		return Linear, nil
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("zoetrope: unknown easing %q", name)
	}
	return fn, nil
}
