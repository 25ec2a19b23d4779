package zoetrope

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Drawable is anything a layer can draw: scenes, scene containers, overlays,
// HUD widgets. Implementations concatenate view into their own GeoM so all
// layer content shares the camera transform.
//
// Drawables must be comparable (in practice: pointer receivers) so layers can
// track membership in O(1).
type Drawable interface {
	Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64)
}

// LayerOptions configures a layer at creation time.
type LayerOptions struct {
	// Opacity in [0, 1] applied when the layer is composited. Zero means 1.0,
	// so the zero value of LayerOptions is a fully opaque layer.
	Opacity float64
	// Blend selects the compositing operation. Defaults to BlendNormal.
	Blend BlendMode
	// KeepContent disables the per-frame clear, letting content accumulate
	// (trail effects). Off by default: layers clear each frame.
	KeepContent bool
	// Screen exempts the layer from the camera transform (HUD, captions).
	Screen bool
}

// Layer is one named draw surface. Layers are composited onto the output in
// ascending ZIndex order, ties broken by creation order. The backing image is
// allocated lazily on first render and recreated (content discarded) whenever
// the surface resizes.
type Layer struct {
	Name    string
	ZIndex  int
	Visible bool
	Opacity float64
	Blend   BlendMode
	// ClearEachFrame controls whether the backing image is cleared before
	// objects draw.
	ClearEachFrame bool
	// Screen layers ignore the camera transform.
	Screen bool

	objects  []Drawable
	index    map[Drawable]int
	dead     int // tombstone count in objects
	surface  *ebiten.Image
	creation int // creation order, breaks ZIndex ties
}

// Add registers an object at the end of the layer's draw order.
// Re-adding a registered object is a no-op.
func (l *Layer) Add(obj Drawable) {
	if obj == nil {
		return
	}
	if _, ok := l.index[obj]; ok {
		return
	}
	if l.index == nil {
		l.index = make(map[Drawable]int)
	}
	l.index[obj] = len(l.objects)
	l.objects = append(l.objects, obj)
}

// Remove unregisters an object. Removing a non-member is a no-op, not an
// error. The slot is tombstoned and compacted lazily, keeping Add/Remove
// O(1) amortized while preserving insertion order.
func (l *Layer) Remove(obj Drawable) {
	i, ok := l.index[obj]
	if !ok {
		return
	}
	delete(l.index, obj)
	l.objects[i] = nil
	l.dead++
	if l.dead > len(l.objects)/2 {
		l.compact()
	}
}

// Len returns the number of registered objects.
func (l *Layer) Len() int {
	return len(l.objects) - l.dead
}

// Contains reports whether obj is registered on this layer.
func (l *Layer) Contains(obj Drawable) bool {
	_, ok := l.index[obj]
	return ok
}

// compact removes tombstones, preserving draw order.
func (l *Layer) compact() {
	live := l.objects[:0]
	for _, obj := range l.objects {
		if obj != nil {
			l.index[obj] = len(live)
			live = append(live, obj)
		}
	}
	for i := len(live); i < len(l.objects); i++ {
		l.objects[i] = nil
	}
	l.objects = live
	l.dead = 0
}

// ensureSurface allocates or reallocates the backing image for the given
// viewport size. Content is not preserved across a resize.
func (l *Layer) ensureSurface(w, h int) {
	if l.surface != nil {
		b := l.surface.Bounds()
		if b.Dx() == w && b.Dy() == h {
			return
		}
		l.surface.Deallocate()
	}
	l.surface = ebiten.NewImage(w, h)
}

// draw renders every registered object into the layer surface.
// A panicking object is logged and skipped; the rest of the layer still
// draws — one broken element must not blank the frame.
func (l *Layer) draw(view ebiten.GeoM, dt float64) {
	if l.ClearEachFrame {
		l.surface.Clear()
	}
	if l.Screen {
		view = ebiten.GeoM{}
	}
	for _, obj := range l.objects {
		if obj == nil {
			continue
		}
		drawObject(l.Name, obj, l.surface, view, dt)
	}
}

// drawObject invokes one Drawable with panic recovery at the dispatch
// boundary.
func drawObject(layerName string, obj Drawable, dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			warnf("draw on layer %q failed (%T): %v", layerName, obj, r)
		}
	}()
	obj.Draw(dst, view, dt)
}
