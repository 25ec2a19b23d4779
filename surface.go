package zoetrope

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Surface is the layered render target: an ordered set of named layers, one
// camera, and an optional chain of post-processing effects. Scenes and
// overlays register on layers as Drawables; each frame the surface advances
// the camera, lets every layer draw under the camera transform, composites
// the layers in z-order, and runs the effect chain over the result.
//
// The Surface owns the camera; the scene container owns the active-scene
// pointer. Neither is ambient state — both are reached through explicit
// references handed out at construction.
type Surface struct {
	width, height int

	layers  map[string]*Layer
	ordered []*Layer // ascending ZIndex, creation order breaks ties
	nextSeq int

	camera *Camera
	pool   texturePool

	// ClearColor fills the composite target before layers composite.
	ClearColor Color

	effectsByName map[string]Effect
	chain         []Effect // active effects in activation order

	output *ebiten.Image

	now func() time.Time
}

// ErrLayerExists is returned by CreateLayer when the name is taken.
// Re-registering a layer name is rejected, never treated as an update: a
// silent overwrite would orphan every object registered on the old layer.
var ErrLayerExists = errors.New("layer already exists")

// NewSurface creates a surface with the given viewport dimensions.
func NewSurface(width, height int) *Surface {
	s := &Surface{
		width:         width,
		height:        height,
		layers:        make(map[string]*Layer),
		ClearColor:    ColorBlack,
		effectsByName: make(map[string]Effect),
		now:           time.Now,
	}
	s.camera = newCamera(Rect{Width: float64(width), Height: float64(height)})
	return s
}

// Size returns the current viewport dimensions.
func (s *Surface) Size() (w, h int) {
	return s.width, s.height
}

// Camera returns the surface's camera.
func (s *Surface) Camera() *Camera {
	return s.camera
}

// CreateLayer registers a new named layer. Fails if the name already exists.
func (s *Surface) CreateLayer(name string, zIndex int, opts LayerOptions) (*Layer, error) {
	if _, ok := s.layers[name]; ok {
		return nil, fmt.Errorf("zoetrope: layer %q: %w", name, ErrLayerExists)
	}
	opacity := opts.Opacity
	if opacity == 0 {
		opacity = 1.0
	}
	l := &Layer{
		Name:           name,
		ZIndex:         zIndex,
		Visible:        true,
		Opacity:        clamp(opacity, 0, 1),
		Blend:          opts.Blend,
		ClearEachFrame: !opts.KeepContent,
		Screen:         opts.Screen,
		creation:       s.nextSeq,
	}
	s.nextSeq++
	s.layers[name] = l
	s.ordered = append(s.ordered, l)
	s.sortLayers()
	return l, nil
}

// Layer returns the named layer, or nil if it does not exist.
func (s *Surface) Layer(name string) *Layer {
	return s.layers[name]
}

// AddToLayer registers obj on the named layer.
// Unknown layer names are a configuration error.
func (s *Surface) AddToLayer(name string, obj Drawable) error {
	l, ok := s.layers[name]
	if !ok {
		return fmt.Errorf("zoetrope: unknown layer %q", name)
	}
	l.Add(obj)
	return nil
}

// RemoveFromLayer unregisters obj from the named layer. Removing from an
// unknown layer or removing a non-member object is a no-op.
func (s *Surface) RemoveFromLayer(name string, obj Drawable) {
	if l, ok := s.layers[name]; ok {
		l.Remove(obj)
	}
}

// sortLayers re-sorts the composite order: ascending ZIndex, then creation
// order. Layer counts are small; a stable sort per structural change is fine.
func (s *Surface) sortLayers() {
	sort.SliceStable(s.ordered, func(i, j int) bool {
		a, b := s.ordered[i], s.ordered[j]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		return a.creation < b.creation
	})
}

// SetLayerZIndex changes a layer's z-index and re-sorts the composite order.
func (s *Surface) SetLayerZIndex(name string, z int) {
	if l, ok := s.layers[name]; ok && l.ZIndex != z {
		l.ZIndex = z
		s.sortLayers()
	}
}

// --- Effects ---

// RegisterEffect makes an effect available under a name. Registering does not
// activate it; call EnableEffect. Re-registering a name replaces the effect
// (and deactivates it if it was in the chain).
func (s *Surface) RegisterEffect(name string, e Effect) {
	if old, ok := s.effectsByName[name]; ok {
		s.removeFromChain(old)
	}
	s.effectsByName[name] = e
}

// EnableEffect activates a registered effect, appending it to the chain.
// Enabling an already-active effect moves it to the end of the chain; the
// chain order is exactly the activation order.
func (s *Surface) EnableEffect(name string) error {
	e, ok := s.effectsByName[name]
	if !ok {
		return fmt.Errorf("zoetrope: unknown effect %q", name)
	}
	s.removeFromChain(e)
	s.chain = append(s.chain, e)
	return nil
}

// DisableEffect removes a registered effect from the chain. Disabling an
// inactive effect is a no-op.
func (s *Surface) DisableEffect(name string) error {
	e, ok := s.effectsByName[name]
	if !ok {
		return fmt.Errorf("zoetrope: unknown effect %q", name)
	}
	s.removeFromChain(e)
	return nil
}

// EffectChain returns the names of active effects in application order.
func (s *Surface) EffectChain() []string {
	names := make([]string, 0, len(s.chain))
	for _, e := range s.chain {
		for name, re := range s.effectsByName {
			if re == e {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

func (s *Surface) removeFromChain(e Effect) {
	for i, cur := range s.chain {
		if cur == e {
			s.chain = append(s.chain[:i], s.chain[i+1:]...)
			return
		}
	}
}

// --- Rendering ---

// Render produces one composited frame: advances the camera, draws every
// layer in z-order under the camera transform, composites layers onto the
// output respecting opacity and blend mode, and runs the effect chain.
// The returned image is valid until the next Render or Resize call.
func (s *Surface) Render(dt float64) *ebiten.Image {
	now := s.now()
	s.camera.advance(dt, now)

	view := geoM(s.camera.computeViewMatrix())

	s.ensureOutput()

	for _, l := range s.ordered {
		if !l.Visible {
			continue
		}
		l.ensureSurface(s.width, s.height)
		l.draw(view, dt)
	}

	s.output.Fill(s.ClearColor.toRGBA())
	var op ebiten.DrawImageOptions
	for _, l := range s.ordered {
		if !l.Visible || l.surface == nil || l.Opacity <= 0 {
			continue
		}
		op.GeoM.Reset()
		op.ColorScale.Reset()
		op.ColorScale.ScaleAlpha(float32(l.Opacity))
		op.Blend = l.Blend.EbitenBlend()
		s.output.DrawImage(l.surface, &op)
	}

	applyEffects(s.chain, s.output, &s.pool)

	return s.output
}

// Output returns the most recently composited frame, or nil before the first
// Render.
func (s *Surface) Output() *ebiten.Image {
	return s.output
}

// Resize recreates every layer surface and the composite target for the new
// viewport. Layer content is not preserved.
func (s *Surface) Resize(width, height int) {
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.camera.setViewport(Rect{Width: float64(width), Height: float64(height)})
	for _, l := range s.layers {
		if l.surface != nil {
			l.surface.Deallocate()
			l.surface = nil
		}
	}
	if s.output != nil {
		s.output.Deallocate()
		s.output = nil
	}
}

// pool access for the scene container's transition snapshots.
func (s *Surface) texturePool() *texturePool {
	return &s.pool
}

func (s *Surface) ensureOutput() {
	if s.output != nil {
		b := s.output.Bounds()
		if b.Dx() == s.width && b.Dy() == s.height {
			return
		}
		s.output.Deallocate()
	}
	s.output = ebiten.NewImage(s.width, s.height)
}

// geoM converts a column-major [6]float64 affine matrix [a b c d tx ty]
// (x' = a*x + c*y + tx, y' = b*x + d*y + ty) to an ebiten.GeoM.
func geoM(m [6]float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(0, 1, m[2])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 0, m[1])
	g.SetElement(1, 1, m[3])
	g.SetElement(1, 2, m[5])
	return g
}
