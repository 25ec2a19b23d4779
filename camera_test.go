package zoetrope

import (
	"math"
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

func testViewport() Rect {
	return Rect{X: 0, Y: 0, Width: 800, Height: 600}
}

func TestCameraDefaults(t *testing.T) {
	cam := newCamera(testViewport())
	if cam.Zoom() != 1.0 {
		t.Errorf("Zoom = %f, want 1.0", cam.Zoom())
	}
	if cam.Viewport.Width != 800 || cam.Viewport.Height != 600 {
		t.Errorf("Viewport = %v, want 800x600", cam.Viewport)
	}
}

func TestCameraIdentityViewMatrix(t *testing.T) {
	cam := newCamera(testViewport())
	// At (0,0), zoom 1, no rotation, world origin maps to viewport center.
	sx, sy := cam.WorldToScreen(0, 0)
	if !approxEqual(sx, 400, epsilon) || !approxEqual(sy, 300, epsilon) {
		t.Errorf("WorldToScreen(0,0) = (%f,%f), want (400,300)", sx, sy)
	}
}

func TestCameraTranslation(t *testing.T) {
	cam := newCamera(testViewport())
	cam.SetPosition(100, 50)
	sx, sy := cam.WorldToScreen(100, 50)
	if !approxEqual(sx, 400, epsilon) || !approxEqual(sy, 300, epsilon) {
		t.Errorf("WorldToScreen(100,50) with cam at (100,50) = (%f,%f), want (400,300)", sx, sy)
	}
}

func TestCameraZoomScalesDistances(t *testing.T) {
	cam := newCamera(testViewport())
	cam.SetZoom(2.0)
	sx1, _ := cam.WorldToScreen(1, 0)
	sx0, _ := cam.WorldToScreen(0, 0)
	if dist := sx1 - sx0; !approxEqual(dist, 2.0, epsilon) {
		t.Errorf("zoom 2x: 1 world unit = %f screen pixels, want 2.0", dist)
	}
}

func TestCameraZoomClamp(t *testing.T) {
	cam := newCamera(testViewport())
	cam.SetZoom(0)
	if cam.Zoom() != MinZoom {
		t.Errorf("SetZoom(0): Zoom = %v, want MinZoom %v", cam.Zoom(), MinZoom)
	}
	cam.SetZoom(-5)
	if cam.Zoom() != MinZoom {
		t.Errorf("SetZoom(-5): Zoom = %v, want MinZoom %v", cam.Zoom(), MinZoom)
	}
	cam.SetZoom(3)
	if cam.Zoom() != 3 {
		t.Errorf("SetZoom(3): Zoom = %v, want 3", cam.Zoom())
	}
}

func TestCameraRotation90(t *testing.T) {
	cam := newCamera(testViewport())
	cam.SetRotation(math.Pi / 2)
	sx, sy := cam.WorldToScreen(1, 0)
	// Rotate(-π/2) maps (1,0)→(0,-1), then translate to the viewport center.
	if !approxEqual(sx, 400, 1e-6) || !approxEqual(sy, 299, 1e-6) {
		t.Errorf("90° rotation: WorldToScreen(1,0) = (%f,%f), want (400,299)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := newCamera(testViewport())
	cam.SetPosition(123, -45)
	cam.SetZoom(1.7)
	cam.SetRotation(0.3)

	wx, wy := 250.0, -80.0
	sx, sy := cam.WorldToScreen(wx, wy)
	gx, gy := cam.ScreenToWorld(sx, sy)
	if !approxEqual(gx, wx, 1e-6) || !approxEqual(gy, wy, 1e-6) {
		t.Errorf("roundtrip (%f,%f) -> (%f,%f)", wx, wy, gx, gy)
	}
}

func TestCameraSetPoseTakesEffectNextCompute(t *testing.T) {
	cam := newCamera(testViewport())
	cam.computeViewMatrix()
	cam.SetPose(Pose{X: 10, Y: 20, Zoom: 2, Rotation: 0})
	sx, sy := cam.WorldToScreen(10, 20)
	if !approxEqual(sx, 400, epsilon) || !approxEqual(sy, 300, epsilon) {
		t.Errorf("pose not applied: WorldToScreen(10,20) = (%f,%f), want (400,300)", sx, sy)
	}
}

type stubTarget struct {
	x, y     float64
	disposed bool
}

func (s *stubTarget) Position() (float64, float64) { return s.x, s.y }
func (s *stubTarget) Disposed() bool               { return s.disposed }

func TestCameraFollowSnapsWithFullLerp(t *testing.T) {
	cam := newCamera(testViewport())
	target := &stubTarget{x: 50, y: -30}
	cam.Follow(target, FollowOptions{Lerp: 1})
	cam.advance(1.0/60, time.Now())
	if !approxEqual(cam.X, 50, epsilon) || !approxEqual(cam.Y, -30, epsilon) {
		t.Errorf("camera = (%f,%f), want (50,-30)", cam.X, cam.Y)
	}
}

func TestCameraFollowLerpsHalfway(t *testing.T) {
	cam := newCamera(testViewport())
	target := &stubTarget{x: 100, y: 0}
	cam.Follow(target, FollowOptions{Lerp: 0.5})
	cam.advance(1.0/60, time.Now())
	if !approxEqual(cam.X, 50, epsilon) {
		t.Errorf("after one frame at lerp 0.5: X = %f, want 50", cam.X)
	}
}

func TestCameraDropsDisposedTarget(t *testing.T) {
	cam := newCamera(testViewport())
	target := &stubTarget{x: 100}
	cam.Follow(target, FollowOptions{Lerp: 1})
	target.disposed = true
	cam.advance(1.0/60, time.Now())
	if cam.Following() {
		t.Error("disposed target should be dropped")
	}
	if cam.X != 0 {
		t.Errorf("camera moved toward disposed target: X = %f", cam.X)
	}
}

func TestCameraScrollToTweensPosition(t *testing.T) {
	cam := newCamera(testViewport())
	cam.ScrollTo(100, -50, 2, ease.Linear)
	now := time.Unix(100, 0)

	cam.advance(1, now)
	if !approxEqual(cam.X, 50, 1e-4) || !approxEqual(cam.Y, -25, 1e-4) {
		t.Errorf("halfway: camera = (%f,%f), want (50,-25)", cam.X, cam.Y)
	}
	if cam.scrollTween == nil {
		t.Fatal("tween cleared before completion")
	}

	cam.advance(1, now)
	if !approxEqual(cam.X, 100, 1e-4) || !approxEqual(cam.Y, -50, 1e-4) {
		t.Errorf("final: camera = (%f,%f), want (100,-50)", cam.X, cam.Y)
	}
	if cam.scrollTween != nil {
		t.Error("tween should be cleared once both axes finish")
	}
}

func TestCameraScrollToLatestWins(t *testing.T) {
	cam := newCamera(testViewport())
	now := time.Unix(100, 0)
	cam.ScrollTo(100, 0, 2, ease.Linear)
	cam.advance(1, now)

	// A second call replaces the tween, starting from the current position.
	cam.ScrollTo(0, 0, 1, ease.Linear)
	cam.advance(0.5, now)
	if !approxEqual(cam.X, 25, 1e-4) {
		t.Errorf("X = %f, want 25 (halfway back from 50)", cam.X)
	}
}

func TestCameraShakeDecaysAndExpires(t *testing.T) {
	cam := newCamera(testViewport())
	start := time.Unix(100, 0)
	cam.Shake(10, time.Second, start)

	cam.advanceShake(start.Add(100 * time.Millisecond))
	x1, y1 := cam.ShakeOffset()
	if x1 == 0 && y1 == 0 {
		t.Error("shake offset should be nonzero mid-shake")
	}
	if math.Abs(x1) > 10 || math.Abs(y1) > 10 {
		t.Errorf("shake offset (%f,%f) exceeds intensity", x1, y1)
	}

	// Past the duration the offset is exactly zero.
	cam.advanceShake(start.Add(time.Second))
	if x, y := cam.ShakeOffset(); x != 0 || y != 0 {
		t.Errorf("expired shake offset = (%f,%f), want (0,0)", x, y)
	}

	// And stays zero on later frames.
	cam.advanceShake(start.Add(2 * time.Second))
	if x, y := cam.ShakeOffset(); x != 0 || y != 0 {
		t.Errorf("offset after expiry = (%f,%f), want (0,0)", x, y)
	}
}

func TestCameraShakeLatestWins(t *testing.T) {
	cam := newCamera(testViewport())
	start := time.Unix(100, 0)
	cam.Shake(10, time.Second, start)

	// Re-arm halfway through with a different intensity and duration.
	rearm := start.Add(500 * time.Millisecond)
	cam.Shake(4, 2*time.Second, rearm)

	// Just before the first shake would have ended, magnitude is bounded by
	// the new intensity, not the old.
	cam.advanceShake(start.Add(990 * time.Millisecond))
	x, y := cam.ShakeOffset()
	if math.Abs(x) > 4 || math.Abs(y) > 4 {
		t.Errorf("offset (%f,%f) exceeds re-armed intensity 4", x, y)
	}

	// The old expiry no longer applies.
	cam.advanceShake(start.Add(1500 * time.Millisecond))
	if x, y := cam.ShakeOffset(); x == 0 && y == 0 {
		t.Error("shake expired at old deadline despite re-arm")
	}
}

func TestInvertAffineIdentity(t *testing.T) {
	m := [6]float64{2, 0, 0, 2, 10, -4}
	inv := invertAffine(m)
	x, y := transformPoint(m, 3, 7)
	gx, gy := transformPoint(inv, x, y)
	if !approxEqual(gx, 3, epsilon) || !approxEqual(gy, 7, epsilon) {
		t.Errorf("inverse roundtrip = (%f,%f), want (3,7)", gx, gy)
	}
}
