// Package vis ships the demo scenes bundled with zoetrope: a prime
// factorization path tracer and a wave interference field.
package vis

import (
	"context"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/primefold/zoetrope"
)

// segKind classifies a path segment by where it lies in factor space.
type segKind uint8

const (
	segAxis     segKind = iota // primes: on the first factor axis
	segDiagonal                // squares of primes: on the x=y diagonal
	segDepth                   // on the third factor axis
	segOther
)

var segColors = [4]zoetrope.Color{
	{R: 0.9, G: 0.2, B: 0.2, A: 0.8},
	{R: 0.2, G: 0.8, B: 0.3, A: 0.8},
	{R: 0.25, G: 0.4, B: 1, A: 0.8},
	{R: 1, G: 0.85, B: 0.2, A: 0.8},
}

type foldPoint struct {
	x, y, z float64
	kind    segKind
	corner  bool // endpoint of an integer's segment
}

// PrimeFold traces the trajectory of the integers through prime factor
// space. Each n maps to a coordinate built from the indices of its prime
// factors (sorted descending); the scene animates a head walking the
// interpolated path from 1 to Limit, coloring segments by which axis or
// diagonal they lie on.
type PrimeFold struct {
	// Limit is the largest integer on the path. Defaults to 200.
	Limit int
	// Speed is the head's pace in path points per second. Defaults to 120.
	Speed float64
	// Spacing scales factor indices to world units. Defaults to 24.
	Spacing float64

	path []foldPoint
	head float64
	w, h int
}

const foldSteps = 10 // interpolated points per integer

func (p *PrimeFold) Init(ctx context.Context) error {
	if p.Limit <= 1 {
		p.Limit = 200
	}
	if p.Speed <= 0 {
		p.Speed = 120
	}
	if p.Spacing <= 0 {
		p.Spacing = 24
	}
	p.path = buildFoldPath(p.Limit)
	p.head = 0
	return ctx.Err()
}

func (p *PrimeFold) Update(dt float64) {
	p.head += p.Speed * dt
	if end := float64(len(p.path) - 1); p.head > end {
		p.head = end
	}
}

// project maps a factor-space point to world coordinates with a fixed
// oblique projection for the third axis.
func (p *PrimeFold) project(pt foldPoint) (float64, float64) {
	const zx, zy = -0.5, -0.35
	x := (pt.x + pt.z*zx) * p.Spacing
	y := (-pt.y + pt.z*zy) * p.Spacing
	return x, y
}

func (p *PrimeFold) Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	n := int(p.head)
	if n >= len(p.path) {
		n = len(p.path) - 1
	}
	if n < 1 {
		return
	}

	for i := 1; i <= n; i++ {
		a, b := p.path[i-1], p.path[i]
		x0, y0 := p.project(a)
		x1, y1 := p.project(b)
		sx0, sy0 := view.Apply(x0, y0)
		sx1, sy1 := view.Apply(x1, y1)
		c := segColors[b.kind]
		vector.StrokeLine(dst, float32(sx0), float32(sy0), float32(sx1), float32(sy1),
			2.5, foldRGBA(c), true)
		if b.corner {
			vector.DrawFilledCircle(dst, float32(sx1), float32(sy1), 3,
				foldRGBA(zoetrope.Color{R: 0.4, G: 0.95, B: 1, A: 0.8}), true)
		}
	}

	hx, hy := p.project(p.path[n])
	shx, shy := view.Apply(hx, hy)
	vector.DrawFilledCircle(dst, float32(shx), float32(shy), 6,
		foldRGBA(zoetrope.ColorWhite), true)
}

func (p *PrimeFold) Resize(w, h int) {
	p.w, p.h = w, h
}

func (p *PrimeFold) ApplySettings(settings map[string]any) {
	if v, ok := asFloat(settings["speed"]); ok && v > 0 {
		p.Speed = v
	}
	if v, ok := asFloat(settings["spacing"]); ok && v > 0 {
		p.Spacing = v
	}
	if v, ok := asFloat(settings["limit"]); ok && int(v) > 1 && int(v) != p.Limit {
		p.Limit = int(v)
		p.path = buildFoldPath(p.Limit)
		p.head = 0
	}
}

// Command implements zoetrope.CommandTarget for timeline "scene" events.
func (p *PrimeFold) Command(name string, args map[string]any) error {
	switch name {
	case "restart":
		p.head = 0
		return nil
	case "set_speed":
		v, ok := asFloat(args["value"])
		if !ok || v <= 0 {
			return fmt.Errorf("set_speed: positive value required")
		}
		p.Speed = v
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (p *PrimeFold) Cleanup() {
	p.path = nil
}

// HeadNumber returns the integer whose segment the head is currently
// tracing.
func (p *PrimeFold) HeadNumber() int {
	return 1 + int(p.head)/foldSteps
}

// --- path construction ---

// sievePrimes returns the primes up to n in order.
func sievePrimes(n int) []int {
	if n < 2 {
		return nil
	}
	composite := make([]bool, n+1)
	var primes []int
	for i := 2; i <= n; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for m := i * i; m <= n; m += i {
			composite[m] = true
		}
	}
	return primes
}

// primeFactors returns n's prime factors sorted descending, with
// multiplicity.
func primeFactors(n int, primes []int) []int {
	var factors []int
	d := n
	for _, p := range primes {
		if p*p > d {
			break
		}
		for d%p == 0 {
			factors = append(factors, p)
			d /= p
		}
	}
	if d > 1 {
		factors = append(factors, d)
	}
	// descending
	for i, j := 0, len(factors)-1; i < j; i, j = i+1, j-1 {
		factors[i], factors[j] = factors[j], factors[i]
	}
	return factors
}

// foldCoord maps n's factors to a 3D coordinate: the first three factor
// indices take one axis each, higher factors fold back onto the axes round
// robin.
func foldCoord(factors []int, index map[int]int) (x, y, z float64) {
	for i, f := range factors {
		v := float64(index[f])
		switch {
		case i < 3:
			switch i {
			case 0:
				x = v
			case 1:
				y = v
			case 2:
				z = v
			}
		default:
			switch i % 3 {
			case 0:
				x += v
			case 1:
				y += v
			case 2:
				z += v
			}
		}
	}
	return x, y, z
}

func classify(x, y, z float64) segKind {
	const eps = 0.1
	switch {
	case math.Abs(y) < eps && math.Abs(z) < eps && x > eps:
		return segAxis
	case math.Abs(x-y) < eps && math.Abs(z) < eps && x > eps:
		return segDiagonal
	case math.Abs(x) < eps && math.Abs(y) < eps && z > eps:
		return segDepth
	default:
		return segOther
	}
}

// buildFoldPath produces the interpolated path from 1 to limit.
func buildFoldPath(limit int) []foldPoint {
	primes := sievePrimes(limit)
	index := make(map[int]int, len(primes))
	for i, p := range primes {
		index[p] = i + 1
	}

	path := make([]foldPoint, 1, 1+(limit-1)*foldSteps)
	path[0] = foldPoint{corner: true}
	px, py, pz := 0.0, 0.0, 0.0

	for n := 2; n <= limit; n++ {
		x, y, z := foldCoord(primeFactors(n, primes), index)
		for s := 1; s <= foldSteps; s++ {
			t := float64(s) / foldSteps
			ix := px + (x-px)*t
			iy := py + (y-py)*t
			iz := pz + (z-pz)*t
			path = append(path, foldPoint{
				x: ix, y: iy, z: iz,
				kind:   classify(ix, iy, iz),
				corner: s == foldSteps,
			})
		}
		px, py, pz = x, y, z
	}
	return path
}

// foldRGBA converts to premultiplied 8-bit color for the vector package.
func foldRGBA(c zoetrope.Color) color.RGBA {
	return color.RGBA{
		R: uint8(zclamp(c.R*c.A) * 255),
		G: uint8(zclamp(c.G*c.A) * 255),
		B: uint8(zclamp(c.B*c.A) * 255),
		A: uint8(zclamp(c.A) * 255),
	}
}

func zclamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
