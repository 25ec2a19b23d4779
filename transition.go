package zoetrope

import (
	"fmt"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// TransitionKind selects the blend strategy used while switching scenes.
type TransitionKind uint8

const (
	TransitionFade       TransitionKind = iota // outgoing fades out as incoming fades in
	TransitionSlideLeft                        // incoming slides in from the right
	TransitionSlideRight                       // incoming slides in from the left
	TransitionSlideUp                          // incoming slides in from the bottom
	TransitionSlideDown                        // incoming slides in from the top
	TransitionZoomIn                           // outgoing scales up 1→2 while fading out
	TransitionZoomOut                          // incoming scales down 2→1 while fading in
	TransitionCrossfade                        // incoming blended additively over opaque outgoing
)

// transitionKindNames maps tour-script names to kinds.
var transitionKindNames = map[string]TransitionKind{
	"fade":        TransitionFade,
	"slide_left":  TransitionSlideLeft,
	"slide_right": TransitionSlideRight,
	"slide_up":    TransitionSlideUp,
	"slide_down":  TransitionSlideDown,
	"zoom_in":     TransitionZoomIn,
	"zoom_out":    TransitionZoomOut,
	"crossfade":   TransitionCrossfade,
}

// ParseTransitionKind resolves a tour-script transition name.
// The empty string selects TransitionFade.
func ParseTransitionKind(name string) (TransitionKind, error) {
	if name == "" {
		return TransitionFade, nil
	}
	k, ok := transitionKindNames[name]
	if !ok {
		return 0, fmt.Errorf("zoetrope: unknown transition %q", name)
	}
	return k, nil
}

// String returns the tour-script name of the kind.
func (k TransitionKind) String() string {
	for name, kind := range transitionKindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("TransitionKind(%d)", uint8(k))
}

// transition is the state carried while the container is in the
// Transitioning state. It exists if and only if a transition is running.
type transition struct {
	kind     TransitionKind
	start    time.Time
	duration time.Duration

	// Pooled backing images (power-of-two) and their viewport-sized views.
	outBack, inBack    *ebiten.Image
	outgoing, incoming *ebiten.Image

	progress  float64
	completed bool

	imgOp ebiten.DrawImageOptions
}

func newTransition(kind TransitionKind, duration time.Duration, now time.Time, outBack, inBack *ebiten.Image, w, h int) *transition {
	t := &transition{
		kind:     kind,
		start:    now,
		duration: duration,
		outBack:  outBack,
		inBack:   inBack,
	}
	if outBack != nil {
		t.outgoing = outBack.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image)
	}
	if inBack != nil {
		t.incoming = inBack.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image)
	}
	return t
}

// update advances progress from the wall clock. Progress is monotonically
// non-decreasing and clamped to [0, 1]. Returns true exactly once, on the
// frame progress first reaches 1 — overshooting frames after that return
// false.
func (t *transition) update(now time.Time) bool {
	if t.completed {
		return false
	}
	p := clamp(float64(now.Sub(t.start))/float64(t.duration), 0, 1)
	if p > t.progress {
		t.progress = p
	}
	if t.progress >= 1 {
		t.completed = true
		return true
	}
	return false
}

// snapshotParams describes how one transition snapshot is drawn.
type snapshotParams struct {
	dx, dy float64
	scale  float64
	alpha  float64
	blend  BlendMode
	under  bool // drawn before the other snapshot
}

// transitionParams computes draw parameters for the outgoing and incoming
// snapshots at the given progress. Pure function of (kind, progress, w, h);
// the visual contracts for every kind live here.
func transitionParams(kind TransitionKind, progress float64, w, h float64) (out, in snapshotParams) {
	out = snapshotParams{scale: 1, alpha: 1, under: true}
	in = snapshotParams{scale: 1, alpha: 1}

	switch kind {
	case TransitionFade:
		out.alpha = 1 - progress
		in.alpha = progress
	case TransitionSlideLeft:
		out.dx = -progress * w
		in.dx = (1 - progress) * w
	case TransitionSlideRight:
		out.dx = progress * w
		in.dx = -(1 - progress) * w
	case TransitionSlideUp:
		out.dy = -progress * h
		in.dy = (1 - progress) * h
	case TransitionSlideDown:
		out.dy = progress * h
		in.dy = -(1 - progress) * h
	case TransitionZoomIn:
		// Incoming underneath at native scale; outgoing zooms 1→2 and fades.
		in.under, out.under = true, false
		out.scale = 1 + progress
		out.alpha = 1 - progress
	case TransitionZoomOut:
		// Outgoing underneath fading out; incoming scales 2→1 fading in.
		in.scale = 2 - progress
		in.alpha = progress
		out.alpha = 1 - progress
	case TransitionCrossfade:
		in.alpha = progress
		in.blend = BlendAdd
	default:
		out.alpha = 1 - progress
		in.alpha = progress
	}
	return out, in
}

// draw composites both snapshots onto dst according to the kind and current
// progress. Scaling is about the snapshot center.
func (t *transition) draw(dst *ebiten.Image) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	out, in := transitionParams(t.kind, t.progress, w, h)

	first, second := out, in
	firstImg, secondImg := t.outgoing, t.incoming
	if in.under {
		first, second = in, out
		firstImg, secondImg = t.incoming, t.outgoing
	}
	t.drawSnapshot(dst, firstImg, first, w, h)
	t.drawSnapshot(dst, secondImg, second, w, h)
}

func (t *transition) drawSnapshot(dst *ebiten.Image, img *ebiten.Image, p snapshotParams, w, h float64) {
	if img == nil || p.alpha <= 0 {
		return
	}
	op := &t.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	if p.scale != 1 {
		op.GeoM.Translate(-w/2, -h/2)
		op.GeoM.Scale(p.scale, p.scale)
		op.GeoM.Translate(w/2, h/2)
	}
	op.GeoM.Translate(p.dx, p.dy)
	op.ColorScale.ScaleAlpha(float32(p.alpha))
	op.Blend = p.blend.EbitenBlend()
	dst.DrawImage(img, op)
}
