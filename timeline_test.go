package zoetrope

import (
	"math"
	"testing"
	"time"
)

func newTestTimeline() (*Timeline, *Surface) {
	surface := NewSurface(800, 600)
	container := NewContainer(surface)
	captions := NewCaptions()
	return NewTimeline(surface, container, captions), surface
}

func TestSampleCameraExactAtKeyframes(t *testing.T) {
	tl, _ := newTestTimeline()
	err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, X: 10, Y: 20, Zoom: 1, Rotation: 0.5},
		{Time: 2, X: 30, Y: -40, Zoom: 2, Rotation: 1.5, Easing: "easeInOutCubic"},
	})
	if err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}

	// At a keyframe time the pose equals the keyframe exactly, regardless of
	// easing — no interpolation artifacts.
	p := tl.SampleCameraAt(0)
	if p.X != 10 || p.Y != 20 || p.Zoom != 1 || p.Rotation != 0.5 {
		t.Errorf("pose at t=0: %+v, want exact first keyframe", p)
	}
	p = tl.SampleCameraAt(2)
	if p.X != 30 || p.Y != -40 || p.Zoom != 2 || p.Rotation != 1.5 {
		t.Errorf("pose at t=2: %+v, want exact second keyframe", p)
	}
}

func TestSampleCameraLinearMidpoint(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, X: 0, Y: 0, Zoom: 1},
		{Time: 4, X: 100, Y: -60, Zoom: 3},
	}); err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}
	p := tl.SampleCameraAt(2)
	if p.X != 50 || p.Y != -30 || p.Zoom != 2 {
		t.Errorf("linear midpoint = %+v, want X=50 Y=-30 Zoom=2", p)
	}
}

func TestSampleCameraUpperKeyframeEasing(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, X: 0, Zoom: 1},
		{Time: 1, X: 100, Zoom: 1, Easing: "easeInQuad"},
	}); err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}
	// easeInQuad(0.5) = 0.25
	p := tl.SampleCameraAt(0.5)
	if !approxEqual(p.X, 25, epsilon) {
		t.Errorf("eased X = %v, want 25", p.X)
	}
}

func TestSampleCameraClampsOutsideRange(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 1, X: 5, Zoom: 1},
		{Time: 2, X: 9, Zoom: 2},
	}); err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}
	if p := tl.SampleCameraAt(0); p.X != 5 || p.Zoom != 1 {
		t.Errorf("before first keyframe: %+v, want first keyframe pose", p)
	}
	if p := tl.SampleCameraAt(10); p.X != 9 || p.Zoom != 2 {
		t.Errorf("after last keyframe: %+v, want last keyframe pose", p)
	}
}

func TestSampleCameraEmptyTrackKeepsPose(t *testing.T) {
	tl, surface := newTestTimeline()
	surface.Camera().SetPose(Pose{X: 7, Y: 8, Zoom: 1.5, Rotation: 0.2})
	p := tl.SampleCameraAt(3)
	if p.X != 7 || p.Y != 8 || p.Zoom != 1.5 || p.Rotation != 0.2 {
		t.Errorf("empty track sample = %+v, want current camera pose", p)
	}
}

func TestRotationShortestPath(t *testing.T) {
	deg := func(d float64) float64 { return d * math.Pi / 180 }
	tl, _ := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, Zoom: 1, Rotation: deg(350)},
		{Time: 1, Zoom: 1, Rotation: deg(10)},
	}); err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}
	// 350°→10° goes through 0° (i.e. 360°), not backward through 180°.
	p := tl.SampleCameraAt(0.5)
	if !approxEqual(p.Rotation, deg(360), 1e-9) {
		t.Errorf("midpoint rotation = %v rad (%.1f°), want 360°",
			p.Rotation, p.Rotation*180/math.Pi)
	}
}

func TestShortestAngle(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, math.Pi / 2, math.Pi / 2},
		{math.Pi / 2, 0, -math.Pi / 2},
		{0, math.Pi, math.Pi},
		{0.1, 2*math.Pi - 0.1, -0.2},
		{2*math.Pi - 0.1, 0.1, 0.2},
	}
	for _, tt := range tests {
		if got := shortestAngle(tt.a, tt.b); !approxEqual(got, tt.want, 1e-9) {
			t.Errorf("shortestAngle(%v,%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKeyframeValidation(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, X: math.NaN(), Zoom: 1},
	}); err == nil {
		t.Error("NaN keyframe should be rejected")
	}
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 1, Zoom: 1},
		{Time: 1, Zoom: 2},
	}); err == nil {
		t.Error("duplicate keyframe times should be rejected")
	}
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, Zoom: 1, Easing: "wibble"},
	}); err == nil {
		t.Error("unknown easing should be rejected")
	}
	if len(tl.keyframes) != 0 {
		t.Error("rejected track must not be installed")
	}
}

func TestEventsDispatchExactlyOnce(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetEvents([]Event{
		{Time: 0.100, Cmd: CmdShowText, Text: "a"},
		{Time: 0.200, Cmd: CmdShowText, Text: "b"},
		{Time: 0.300, Cmd: CmdShowText, Text: "c"},
	}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}

	var seen []string
	// Observe deliveries through the caption overlay.
	captionsOf := func() string { return tl.captions.Text() }

	for _, now := range []float64{0.050, 0.150, 0.250, 0.350} {
		before := captionsOf()
		tl.Tick(now)
		if after := captionsOf(); after != before {
			seen = append(seen, after)
		}
	}
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Errorf("deliveries = %v, want [a b c]", seen)
	}

	// Re-ticking past delivered times must not redeliver.
	tl.captions.Show("sentinel")
	tl.Tick(0.400)
	if got := captionsOf(); got != "sentinel" {
		t.Errorf("event redelivered: captions = %q", got)
	}
}

func TestEventsShareTimePreserveOrder(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetEvents([]Event{
		{Time: 1, Cmd: CmdShowText, Text: "first"},
		{Time: 1, Cmd: CmdShowText, Text: "second"},
	}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}
	tl.Tick(1)
	if got := tl.captions.Text(); got != "second" {
		t.Errorf("last delivery = %q, want \"second\" (insertion order)", got)
	}
}

func TestEventAtExactTickBoundary(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetEvents([]Event{
		{Time: 2, Cmd: CmdShowText, Text: "edge"},
	}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}
	// (lastProcessed, now] is inclusive on the right: an event exactly at the
	// tick time fires on that tick.
	tl.Tick(2)
	if tl.captions.Text() != "edge" {
		t.Error("event at exact tick boundary not delivered")
	}
	if !tl.captions.Visible() {
		t.Error("caption should be visible after show_text")
	}
}

func TestSetEventsRejectsNaN(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetEvents([]Event{{Time: math.NaN(), Cmd: CmdHideText}}); err == nil {
		t.Error("NaN event time should be rejected")
	}
}

func TestSetEventsResetsCursor(t *testing.T) {
	tl, _ := newTestTimeline()
	if err := tl.SetEvents([]Event{{Time: 1, Cmd: CmdShowText, Text: "x"}}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}
	tl.Tick(5)
	if tl.captions.Text() != "x" {
		t.Fatal("first run did not deliver")
	}

	// Installing a new list restarts delivery from the beginning.
	if err := tl.SetEvents([]Event{{Time: 1, Cmd: CmdShowText, Text: "y"}}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}
	tl.Tick(5)
	if tl.captions.Text() != "y" {
		t.Error("cursor not reset by SetEvents")
	}
}

func TestTickMovesCameraFromKeyframes(t *testing.T) {
	tl, surface := newTestTimeline()
	if err := tl.SetCameraKeyframes([]Keyframe{
		{Time: 0, X: 0, Zoom: 1},
		{Time: 10, X: 100, Zoom: 1},
	}); err != nil {
		t.Fatalf("SetCameraKeyframes: %v", err)
	}
	tl.Tick(5)
	if got := surface.Camera().X; got != 50 {
		t.Errorf("camera X after tick = %v, want 50", got)
	}
}

func TestScrollToEventPansCamera(t *testing.T) {
	tl, surface := newTestTimeline()
	if err := tl.SetEvents([]Event{
		{Time: 0, Cmd: CmdScrollTo, X: 80, Y: -60, Duration: 1},
	}); err != nil {
		t.Fatalf("SetEvents: %v", err)
	}
	tl.Tick(0)

	cam := surface.Camera()
	if cam.scrollTween == nil {
		t.Fatal("scroll_to event did not start a pan")
	}

	now := time.Unix(100, 0)
	// InOutQuad reaches exactly half the change at the halfway point.
	cam.advance(0.5, now)
	if !approxEqual(cam.X, 40, 1e-3) || !approxEqual(cam.Y, -30, 1e-3) {
		t.Errorf("halfway: camera = (%f,%f), want (40,-30)", cam.X, cam.Y)
	}
	cam.advance(0.5, now)
	if !approxEqual(cam.X, 80, 1e-3) || !approxEqual(cam.Y, -60, 1e-3) {
		t.Errorf("final: camera = (%f,%f), want (80,-60)", cam.X, cam.Y)
	}
}

func TestParseCommand(t *testing.T) {
	for name, want := range commandNames {
		got, err := ParseCommand(name)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCommand(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseCommand("explode"); err == nil {
		t.Error("unknown command should be rejected")
	}
}
