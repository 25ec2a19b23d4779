package zoetrope

import (
	"math"
	"math/rand"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// MinZoom is the floor applied to every zoom write. A zero or negative zoom
// would produce a degenerate (or mirrored) view transform.
const MinZoom = 0.01

// FollowTarget is anything the camera can track. Implementors that also
// provide a `Disposed() bool` method are dropped automatically once disposed,
// so a released scene object never pins the camera.
type FollowTarget interface {
	Position() (x, y float64)
}

// disposable is the optional liveness check on a FollowTarget.
type disposable interface {
	Disposed() bool
}

// FollowOptions controls camera target following.
type FollowOptions struct {
	OffsetX, OffsetY float64
	// Lerp is the per-frame exponential smoothing factor in (0, 1].
	// 1.0 snaps immediately; lower values give smoother following.
	Lerp float64
	// Zoom, when > 0, is a zoom level the camera eases toward while following.
	Zoom float64
	// ZoomLerp is the smoothing factor for Zoom. Defaults to Lerp when zero.
	ZoomLerp float64
}

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera controls the view every layer is drawn under: position, zoom,
// rotation, shake, and target following. The Surface owns its Camera; nothing
// else mutates camera state (timeline writes go through SetPose).
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Rotation is the camera rotation in radians (clockwise).
	Rotation float64

	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	zoom float64

	followTarget FollowTarget
	followOpts   FollowOptions

	// Shake state. The offset decays linearly to zero over the shake
	// duration and is latest-call-wins.
	shakeIntensity float64
	shakeStart     time.Time
	shakeDuration  time.Duration
	shakeX, shakeY float64
	rng            *rand.Rand

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	scrollTween *scrollAnim
}

// newCamera creates a Camera with default values and the given viewport.
func newCamera(viewport Rect) *Camera {
	return &Camera{
		zoom:     1.0,
		Viewport: viewport,
		dirty:    true,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Zoom returns the current zoom level. Always >= MinZoom.
func (c *Camera) Zoom() float64 {
	return c.zoom
}

// SetZoom sets the zoom level, clamped to MinZoom. Takes effect on the next
// render, never retroactively.
func (c *Camera) SetZoom(z float64) {
	if z < MinZoom {
		z = MinZoom
	}
	if z != c.zoom {
		c.zoom = z
		c.dirty = true
	}
}

// SetPosition sets the world-space position the camera centers on.
func (c *Camera) SetPosition(x, y float64) {
	if x != c.X || y != c.Y {
		c.X, c.Y = x, y
		c.dirty = true
	}
}

// SetRotation sets the camera rotation in radians.
func (c *Camera) SetRotation(r float64) {
	if r != c.Rotation {
		c.Rotation = r
		c.dirty = true
	}
}

// SetPose applies a sampled timeline pose in one call.
func (c *Camera) SetPose(p Pose) {
	c.SetPosition(p.X, p.Y)
	c.SetZoom(p.Zoom)
	c.SetRotation(p.Rotation)
}

// Pose returns the camera's current pose.
func (c *Camera) Pose() Pose {
	return Pose{X: c.X, Y: c.Y, Zoom: c.zoom, Rotation: c.Rotation}
}

// Follow makes the camera track a target with the given options.
// Passing nil stops tracking.
func (c *Camera) Follow(target FollowTarget, opts FollowOptions) {
	if opts.Lerp <= 0 || opts.Lerp > 1 {
		opts.Lerp = 1.0
	}
	if opts.ZoomLerp == 0 {
		opts.ZoomLerp = opts.Lerp
	}
	c.followTarget = target
	c.followOpts = opts
}

// Unfollow stops tracking the current target.
func (c *Camera) Unfollow() {
	c.followTarget = nil
}

// Following reports whether a live follow target is set.
func (c *Camera) Following() bool {
	return c.followTarget != nil
}

// ScrollTo animates the camera to the given world position over duration
// seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// Shake re-arms the camera shake: the offset starts at intensity pixels and
// decays linearly to zero over the given duration. A call while already
// shaking replaces the previous shake entirely (latest call wins).
func (c *Camera) Shake(intensity float64, duration time.Duration, now time.Time) {
	c.shakeIntensity = intensity
	c.shakeStart = now
	c.shakeDuration = duration
}

// ShakeOffset returns the current shake displacement. Zero once expired.
func (c *Camera) ShakeOffset() (x, y float64) {
	return c.shakeX, c.shakeY
}

// advance steps follow smoothing, scroll tweens, and shake decay.
// Called once per frame by the Surface before drawing.
func (c *Camera) advance(dt float64, now time.Time) {
	prevX, prevY := c.X, c.Y
	prevZoom, prevRot := c.zoom, c.Rotation

	if c.followTarget != nil {
		if d, ok := c.followTarget.(disposable); ok && d.Disposed() {
			c.followTarget = nil
		} else {
			tx, ty := c.followTarget.Position()
			tx += c.followOpts.OffsetX
			ty += c.followOpts.OffsetY
			c.X += (tx - c.X) * c.followOpts.Lerp
			c.Y += (ty - c.Y) * c.followOpts.Lerp
			if c.followOpts.Zoom > 0 {
				z := c.zoom + (c.followOpts.Zoom-c.zoom)*c.followOpts.ZoomLerp
				c.SetZoom(z)
			}
		}
	}

	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(float32(dt))
			c.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(float32(dt))
			c.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	c.advanceShake(now)

	if c.X != prevX || c.Y != prevY || c.zoom != prevZoom || c.Rotation != prevRot {
		c.dirty = true
	}
}

// advanceShake updates the shake displacement for this frame.
func (c *Camera) advanceShake(now time.Time) {
	if c.shakeIntensity <= 0 || c.shakeDuration <= 0 {
		return
	}
	elapsed := now.Sub(c.shakeStart)
	if elapsed >= c.shakeDuration {
		c.shakeIntensity = 0
		c.shakeDuration = 0
		if c.shakeX != 0 || c.shakeY != 0 {
			c.shakeX, c.shakeY = 0, 0
			c.dirty = true
		}
		return
	}
	remaining := 1 - float64(elapsed)/float64(c.shakeDuration)
	mag := c.shakeIntensity * remaining
	c.shakeX = (c.rng.Float64()*2 - 1) * mag
	c.shakeY = (c.rng.Float64()*2 - 1) * mag
	c.dirty = true
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom) * Rotate(-rotation) * Translate(-X-sx, -Y-sy)
// where cx, cy = viewport center and (sx, sy) is the shake offset.
func (c *Camera) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2

	cos := math.Cos(-c.Rotation)
	sin := math.Sin(-c.Rotation)
	z := c.zoom
	px := c.X + c.shakeX
	py := c.Y + c.shakeY

	a := z * cos
	b := -z * sin
	cc := z * sin
	d := z * cos
	tx := cx + z*(-cos*px+sin*py)
	ty := cy + z*(-sin*px-cos*py)

	c.viewMatrix = [6]float64{a, cc, b, d, tx, ty}
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	c.computeViewMatrix()
	return transformPoint(c.viewMatrix, wx, wy)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.computeViewMatrix()
	return transformPoint(c.invViewMatrix, sx, sy)
}

// markDirty forces a recomputation of the view matrix.
func (c *Camera) markDirty() {
	c.dirty = true
}

// setViewport updates the viewport rectangle, typically after a resize.
func (c *Camera) setViewport(vp Rect) {
	c.Viewport = vp
	c.dirty = true
}

// --- Affine helpers ---

// Affine matrices are stored column-major as [a, b, c, d, tx, ty]:
//
//	[a c tx]
//	[b d ty]

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// invertAffine returns the inverse of an affine matrix. A singular matrix
// (impossible with zoom clamped above zero) returns identity.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return [6]float64{1, 0, 0, 1, 0, 0}
	}
	inv := 1 / det
	a := m[3] * inv
	b := -m[1] * inv
	cc := -m[2] * inv
	d := m[0] * inv
	tx := -(a*m[4] + cc*m[5])
	ty := -(b*m[4] + d*m[5])
	return [6]float64{a, b, cc, d, tx, ty}
}
