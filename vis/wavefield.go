package vis

import (
	"context"
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// WaveSource is one circular wave emitter in a WaveField.
type WaveSource struct {
	X, Y      float64 // world position
	Frequency float64 // Hz
	Amplitude float64
	Phase     float64 // radians
}

// WaveField renders the interference pattern of traveling circular waves.
// The field is evaluated on a coarse grid into a pixel buffer and the
// buffer is scaled up at draw time, keeping per-frame cost flat regardless
// of window size.
type WaveField struct {
	// Sources seeds the emitters. Empty means two default sources.
	Sources []WaveSource
	// WaveSpeed is the propagation speed in world units per second.
	// Defaults to 120.
	WaveSpeed float64
	// Damping attenuates amplitude with distance. Defaults to 0.004.
	Damping float64
	// Resolution is the grid cell size in pixels. Defaults to 4.
	Resolution int

	t      float64
	w, h   int
	gw, gh int
	pix    []byte
	grid   *ebiten.Image
}

func (f *WaveField) Init(ctx context.Context) error {
	if f.WaveSpeed <= 0 {
		f.WaveSpeed = 120
	}
	if f.Damping <= 0 {
		f.Damping = 0.004
	}
	if f.Resolution <= 0 {
		f.Resolution = 4
	}
	if len(f.Sources) == 0 {
		f.Sources = []WaveSource{
			{X: -140, Y: 0, Frequency: 0.6, Amplitude: 1},
			{X: 140, Y: 0, Frequency: 0.75, Amplitude: 1},
		}
	}
	f.t = 0
	return ctx.Err()
}

func (f *WaveField) Update(dt float64) {
	f.t += dt
}

func (f *WaveField) Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	b := dst.Bounds()
	if b.Dx() != f.w || b.Dy() != f.h || f.grid == nil {
		f.allocGrid(b.Dx(), b.Dy())
	}

	// Sample the field at grid cell centers, in world coordinates.
	inv := view
	inv.Invert()
	res := float64(f.Resolution)
	for gy := 0; gy < f.gh; gy++ {
		sy := (float64(gy) + 0.5) * res
		for gx := 0; gx < f.gw; gx++ {
			sx := (float64(gx) + 0.5) * res
			wx, wy := inv.Apply(sx, sy)
			v := f.sample(wx, wy)
			f.setCell(gx, gy, v)
		}
	}
	f.grid.WritePixels(f.pix)

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(res, res)
	dst.DrawImage(f.grid, &op)
}

// sample evaluates the summed wave displacement at a world point,
// normalized to [-1, 1] by the total source amplitude.
func (f *WaveField) sample(x, y float64) float64 {
	var v, total float64
	for _, s := range f.Sources {
		dx := x - s.X
		dy := y - s.Y
		r := math.Sqrt(dx*dx + dy*dy)
		k := 2 * math.Pi * s.Frequency / f.WaveSpeed
		att := math.Exp(-f.Damping * r)
		v += s.Amplitude * att * math.Sin(k*r-2*math.Pi*s.Frequency*f.t+s.Phase)
		total += s.Amplitude
	}
	if total == 0 {
		return 0
	}
	return v / total
}

// setCell maps displacement to a cold/warm palette: troughs deep blue,
// crests warm orange, zero near black.
func (f *WaveField) setCell(gx, gy int, v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	i := (gy*f.gw + gx) * 4
	mag := math.Abs(v)
	if v >= 0 {
		f.pix[i+0] = uint8(255 * mag)
		f.pix[i+1] = uint8(130 * mag)
		f.pix[i+2] = uint8(30 * mag)
	} else {
		f.pix[i+0] = uint8(25 * mag)
		f.pix[i+1] = uint8(90 * mag)
		f.pix[i+2] = uint8(255 * mag)
	}
	f.pix[i+3] = 255
}

func (f *WaveField) allocGrid(w, h int) {
	f.w, f.h = w, h
	f.gw = (w + f.Resolution - 1) / f.Resolution
	f.gh = (h + f.Resolution - 1) / f.Resolution
	if f.gw < 1 {
		f.gw = 1
	}
	if f.gh < 1 {
		f.gh = 1
	}
	f.pix = make([]byte, f.gw*f.gh*4)
	if f.grid != nil {
		f.grid.Deallocate()
	}
	f.grid = ebiten.NewImage(f.gw, f.gh)
}

func (f *WaveField) Resize(w, h int) {
	// Grid reallocation happens lazily in Draw from the target bounds.
}

func (f *WaveField) ApplySettings(settings map[string]any) {
	if v, ok := asFloat(settings["wave_speed"]); ok && v > 0 {
		f.WaveSpeed = v
	}
	if v, ok := asFloat(settings["damping"]); ok && v > 0 {
		f.Damping = v
	}
}

// Command implements zoetrope.CommandTarget for timeline "scene" events.
func (f *WaveField) Command(name string, args map[string]any) error {
	switch name {
	case "add_source":
		x, _ := asFloat(args["x"])
		y, _ := asFloat(args["y"])
		freq, ok := asFloat(args["frequency"])
		if !ok || freq <= 0 {
			return fmt.Errorf("add_source: positive frequency required")
		}
		amp, ok := asFloat(args["amplitude"])
		if !ok || amp <= 0 {
			amp = 1
		}
		f.Sources = append(f.Sources, WaveSource{X: x, Y: y, Frequency: freq, Amplitude: amp})
		return nil
	case "clear_sources":
		f.Sources = f.Sources[:0]
		return nil
	case "set_frequency":
		idx := 0
		if v, ok := asFloat(args["index"]); ok {
			idx = int(v)
		}
		freq, ok := asFloat(args["value"])
		if !ok || freq <= 0 {
			return fmt.Errorf("set_frequency: positive value required")
		}
		if idx < 0 || idx >= len(f.Sources) {
			return fmt.Errorf("set_frequency: no source %d", idx)
		}
		f.Sources[idx].Frequency = freq
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (f *WaveField) Cleanup() {
	if f.grid != nil {
		f.grid.Deallocate()
		f.grid = nil
	}
	f.pix = nil
}
