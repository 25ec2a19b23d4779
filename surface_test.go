package zoetrope

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestCreateLayerRejectsDuplicateName(t *testing.T) {
	s := NewSurface(320, 240)
	if _, err := s.CreateLayer("bg", 0, LayerOptions{}); err != nil {
		t.Fatalf("first CreateLayer: %v", err)
	}
	_, err := s.CreateLayer("bg", 5, LayerOptions{})
	if err == nil {
		t.Fatal("duplicate layer name should be rejected")
	}
	if !errors.Is(err, ErrLayerExists) {
		t.Errorf("error = %v, want ErrLayerExists", err)
	}
	// The original layer is untouched.
	if got := s.Layer("bg").ZIndex; got != 0 {
		t.Errorf("original layer ZIndex = %d, want 0", got)
	}
}

func TestLayersCompositeInZOrder(t *testing.T) {
	s := NewSurface(320, 240)
	mk := func(name string, z int) {
		if _, err := s.CreateLayer(name, z, LayerOptions{}); err != nil {
			t.Fatalf("CreateLayer(%s): %v", name, err)
		}
	}
	mk("mid", 10)
	mk("bottom", 0)
	mk("top", 20)

	want := []string{"bottom", "mid", "top"}
	for i, l := range s.ordered {
		if l.Name != want[i] {
			t.Errorf("ordered[%d] = %s, want %s", i, l.Name, want[i])
		}
	}
}

func TestLayersTieBreakByCreationOrder(t *testing.T) {
	s := NewSurface(320, 240)
	s.CreateLayer("a", 5, LayerOptions{})
	s.CreateLayer("b", 5, LayerOptions{})
	s.CreateLayer("c", 5, LayerOptions{})
	want := []string{"a", "b", "c"}
	for i, l := range s.ordered {
		if l.Name != want[i] {
			t.Errorf("ordered[%d] = %s, want %s", i, l.Name, want[i])
		}
	}
}

func TestSetLayerZIndexReorders(t *testing.T) {
	s := NewSurface(320, 240)
	s.CreateLayer("a", 0, LayerOptions{})
	s.CreateLayer("b", 10, LayerOptions{})
	s.SetLayerZIndex("a", 20)
	if s.ordered[0].Name != "b" || s.ordered[1].Name != "a" {
		t.Errorf("order after z change = [%s %s], want [b a]",
			s.ordered[0].Name, s.ordered[1].Name)
	}
}

func TestAddToUnknownLayerFails(t *testing.T) {
	s := NewSurface(320, 240)
	obj := drawableFunc(func(*ebiten.Image, ebiten.GeoM, float64) {})
	if err := s.AddToLayer("nope", obj); err == nil {
		t.Error("AddToLayer on unknown layer should fail")
	}
	// Removal is forgiving.
	s.RemoveFromLayer("nope", obj)
}

type drawableFunc func(dst *ebiten.Image, view ebiten.GeoM, dt float64)

func (f drawableFunc) Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64) { f(dst, view, dt) }

func TestEffectChainActivationOrder(t *testing.T) {
	s := NewSurface(320, 240)
	s.RegisterEffect("a", &ColorMatrixEffect{})
	s.RegisterEffect("b", &VignetteEffect{})
	s.RegisterEffect("c", &BlurEffect{Radius: 4})

	for _, name := range []string{"a", "b", "c"} {
		if err := s.EnableEffect(name); err != nil {
			t.Fatalf("EnableEffect(%s): %v", name, err)
		}
	}
	if got := s.EffectChain(); !equalStrings(got, []string{"a", "b", "c"}) {
		t.Errorf("chain = %v, want [a b c]", got)
	}

	// Re-enabling moves to the end, it does not duplicate.
	if err := s.EnableEffect("a"); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if got := s.EffectChain(); !equalStrings(got, []string{"b", "c", "a"}) {
		t.Errorf("chain after re-enable = %v, want [b c a]", got)
	}

	if err := s.DisableEffect("c"); err != nil {
		t.Fatalf("DisableEffect: %v", err)
	}
	if got := s.EffectChain(); !equalStrings(got, []string{"b", "a"}) {
		t.Errorf("chain after disable = %v, want [b a]", got)
	}

	// Disabling an inactive effect is a no-op, not an error.
	if err := s.DisableEffect("c"); err != nil {
		t.Errorf("disable inactive: %v", err)
	}
}

func TestEnableUnknownEffectFails(t *testing.T) {
	s := NewSurface(320, 240)
	if err := s.EnableEffect("ghost"); err == nil {
		t.Error("EnableEffect on unregistered name should fail")
	}
	if err := s.DisableEffect("ghost"); err == nil {
		t.Error("DisableEffect on unregistered name should fail")
	}
}

func TestRegisterEffectReplaceDeactivates(t *testing.T) {
	s := NewSurface(320, 240)
	s.RegisterEffect("fx", &VignetteEffect{})
	s.EnableEffect("fx")
	s.RegisterEffect("fx", &ColorMatrixEffect{})
	if got := s.EffectChain(); len(got) != 0 {
		t.Errorf("chain after re-register = %v, want empty", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGeoMConversion(t *testing.T) {
	m := [6]float64{2, 0, 0, 3, 10, 20}
	g := geoM(m)
	gx, gy := g.Apply(1, 1)
	wx, wy := transformPoint(m, 1, 1)
	if !approxEqual(gx, wx, epsilon) || !approxEqual(gy, wy, epsilon) {
		t.Errorf("geoM.Apply(1,1) = (%f,%f), want (%f,%f)", gx, gy, wx, wy)
	}
}

func TestSurfaceResizeUpdatesCameraViewport(t *testing.T) {
	s := NewSurface(320, 240)
	s.Resize(640, 480)
	if w, h := s.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %dx%d, want 640x480", w, h)
	}
	vp := s.Camera().Viewport
	if vp.Width != 640 || vp.Height != 480 {
		t.Errorf("camera viewport = %v, want 640x480", vp)
	}
}
