package zoetrope

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Effect is a post-processing pass applied to the fully composited frame.
// Effects run in activation order; disabling and re-enabling an effect moves
// it to the end of the chain.
type Effect interface {
	// Apply renders src into dst with the effect.
	Apply(src, dst *ebiten.Image)
	// Padding returns extra pixels the effect needs around the source
	// (e.g. blur radius). Zero for full-frame effects that stay in bounds.
	Padding() int
}

// --- Kage shader sources ---
// All shaders use //kage:unit pixels as required by Ebitengine.
// Ebitengine uses premultiplied alpha; shaders un-premultiply before
// processing and re-premultiply output where needed.

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	// Un-premultiply alpha.
	if c.a > 0 {
		c.rgb /= c.a
	}
	// Apply 4x5 color matrix (row-major, offset in elements 4,9,14,19).
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	// Clamp and re-premultiply.
	r = clamp(r, 0, 1)
	g = clamp(g, 0, 1)
	b = clamp(b, 0, 1)
	a = clamp(a, 0, 1)
	return vec4(r*a, g*a, b*a, a)
}
`

const vignetteShaderSrc = `//kage:unit pixels
package main

var Strength float
var Softness float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	origin, size := imageSrcRegionOnTexture()
	uv := (src - origin) / size
	d := distance(uv, vec2(0.5, 0.5)) * 1.41421356
	v := 1.0 - Strength*smoothstep(1.0-Softness, 1.0, d)
	return vec4(c.rgb*v, c.a)
}
`

// --- Lazy shader compilation (no sync.Once — the frame loop is single-threaded) ---

var (
	colorMatrixShader *ebiten.Shader
	vignetteShader    *ebiten.Shader
)

func ensureColorMatrixShader() *ebiten.Shader {
	if colorMatrixShader == nil {
		s, err := ebiten.NewShader([]byte(colorMatrixShaderSrc))
		if err != nil {
			panic("zoetrope: failed to compile color matrix shader: " + err.Error())
		}
		colorMatrixShader = s
	}
	return colorMatrixShader
}

func ensureVignetteShader() *ebiten.Shader {
	if vignetteShader == nil {
		s, err := ebiten.NewShader([]byte(vignetteShaderSrc))
		if err != nil {
			panic("zoetrope: failed to compile vignette shader: " + err.Error())
		}
		vignetteShader = s
	}
	return vignetteShader
}

// --- ColorMatrixEffect ---

// ColorMatrixEffect applies a 4x5 color matrix transformation using a Kage
// shader. The matrix is stored in row-major order:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...].
type ColorMatrixEffect struct {
	Matrix      [20]float64
	uniforms    map[string]any
	matrixF32   [20]float32 // persistent buffer to avoid per-frame slice escape
	matrixSlice []float32   // persistent slice header pointing into matrixF32
	shaderOp    ebiten.DrawRectShaderOptions
}

// NewColorMatrixEffect creates a color matrix effect initialized to the identity.
func NewColorMatrixEffect() *ColorMatrixEffect {
	e := &ColorMatrixEffect{
		uniforms: make(map[string]any, 1),
	}
	e.matrixSlice = e.matrixF32[:]
	e.uniforms["Matrix"] = e.matrixSlice
	e.Matrix[0] = 1  // R_r
	e.Matrix[6] = 1  // G_g
	e.Matrix[12] = 1 // B_b
	e.Matrix[18] = 1 // A_a
	return e
}

// SetBrightness sets the matrix to adjust brightness by the given offset [-1, 1].
func (e *ColorMatrixEffect) SetBrightness(b float64) {
	e.Matrix = [20]float64{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	}
}

// SetContrast sets the matrix to adjust contrast. c=1 is normal, 0=gray, >1 is higher.
func (e *ColorMatrixEffect) SetContrast(c float64) {
	t := (1.0 - c) / 2.0
	e.Matrix = [20]float64{
		c, 0, 0, 0, t,
		0, c, 0, 0, t,
		0, 0, c, 0, t,
		0, 0, 0, 1, 0,
	}
}

// SetSaturation sets the matrix to adjust saturation. s=1 is normal, 0=grayscale.
func (e *ColorMatrixEffect) SetSaturation(s float64) {
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	e.Matrix = [20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Apply renders the color matrix transformation from src into dst.
func (e *ColorMatrixEffect) Apply(src, dst *ebiten.Image) {
	shader := ensureColorMatrixShader()
	if e.uniforms == nil {
		e.matrixSlice = e.matrixF32[:]
		e.uniforms = map[string]any{"Matrix": e.matrixSlice}
	}
	for i, v := range e.Matrix {
		e.matrixF32[i] = float32(v)
	}
	bounds := src.Bounds()
	e.shaderOp.Images[0] = src
	e.shaderOp.Uniforms = e.uniforms
	dst.DrawRectShader(bounds.Dx(), bounds.Dy(), shader, &e.shaderOp)
}

// Padding returns 0; color matrix transforms don't expand the image bounds.
func (e *ColorMatrixEffect) Padding() int { return 0 }

// --- BlurEffect ---

// BlurEffect applies a Kawase iterative blur using downscale/upscale passes.
// No Kage shader needed — bilinear filtering during DrawImage does the work.
type BlurEffect struct {
	Radius int
	temps  []*ebiten.Image
	imgOp  ebiten.DrawImageOptions
}

// NewBlurEffect creates a blur effect with the given radius (in pixels).
func NewBlurEffect(radius int) *BlurEffect {
	if radius < 0 {
		radius = 0
	}
	return &BlurEffect{Radius: radius}
}

// Apply renders a Kawase blur from src into dst using iterative downscale/upscale.
func (e *BlurEffect) Apply(src, dst *ebiten.Image) {
	if e.Radius <= 0 {
		e.imgOp.GeoM.Reset()
		e.imgOp.ColorScale.Reset()
		e.imgOp.Filter = ebiten.FilterNearest
		dst.DrawImage(src, &e.imgOp)
		return
	}

	passes := int(math.Ceil(math.Log2(float64(e.Radius))))
	if passes < 1 {
		passes = 1
	}

	srcBounds := src.Bounds()
	w, h := srcBounds.Dx(), srcBounds.Dy()

	needed := passes
	for len(e.temps) < needed {
		e.temps = append(e.temps, nil)
	}
	for i := needed; i < len(e.temps); i++ {
		if e.temps[i] != nil {
			e.temps[i].Deallocate()
			e.temps[i] = nil
		}
	}
	e.temps = e.temps[:needed]

	op := &e.imgOp

	// Downscale passes: each half-size.
	current := src
	for i := 0; i < passes; i++ {
		w = max(w/2, 1)
		h = max(h/2, 1)
		if e.temps[i] == nil || e.temps[i].Bounds().Dx() != w || e.temps[i].Bounds().Dy() != h {
			if e.temps[i] != nil {
				e.temps[i].Deallocate()
			}
			e.temps[i] = ebiten.NewImage(w, h)
		} else {
			e.temps[i].Clear()
		}
		op.GeoM.Reset()
		op.ColorScale.Reset()
		sw := float64(current.Bounds().Dx())
		sh := float64(current.Bounds().Dy())
		op.GeoM.Scale(float64(w)/sw, float64(h)/sh)
		op.Filter = ebiten.FilterLinear
		e.temps[i].DrawImage(current, op)
		current = e.temps[i]
	}

	// Upscale passes: draw each back up.
	for i := passes - 2; i >= 0; i-- {
		e.temps[i].Clear()
		op.GeoM.Reset()
		op.ColorScale.Reset()
		sw := float64(current.Bounds().Dx())
		sh := float64(current.Bounds().Dy())
		tw := float64(e.temps[i].Bounds().Dx())
		th := float64(e.temps[i].Bounds().Dy())
		op.GeoM.Scale(tw/sw, th/sh)
		op.Filter = ebiten.FilterLinear
		e.temps[i].DrawImage(current, op)
		current = e.temps[i]
	}

	op.GeoM.Reset()
	op.ColorScale.Reset()
	sw := float64(current.Bounds().Dx())
	sh := float64(current.Bounds().Dy())
	tw := float64(dst.Bounds().Dx())
	th := float64(dst.Bounds().Dy())
	op.GeoM.Scale(tw/sw, th/sh)
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(current, op)
}

// Padding returns the blur radius.
func (e *BlurEffect) Padding() int { return e.Radius }

// --- VignetteEffect ---

// VignetteEffect darkens the frame toward its corners via a Kage shader.
type VignetteEffect struct {
	// Strength in [0, 1]: how dark the corners get.
	Strength float64
	// Softness in (0, 1]: width of the falloff band.
	Softness float64
	uniforms map[string]any
	shaderOp ebiten.DrawRectShaderOptions
}

// NewVignetteEffect creates a vignette with the given strength and softness.
func NewVignetteEffect(strength, softness float64) *VignetteEffect {
	if softness <= 0 {
		softness = 0.5
	}
	return &VignetteEffect{
		Strength: clamp(strength, 0, 1),
		Softness: clamp(softness, 0, 1),
		uniforms: make(map[string]any, 2),
	}
}

// Apply darkens src toward the corners, writing into dst.
func (e *VignetteEffect) Apply(src, dst *ebiten.Image) {
	shader := ensureVignetteShader()
	if e.uniforms == nil {
		e.uniforms = make(map[string]any, 2)
	}
	bounds := src.Bounds()
	// Scalar float32 boxing is unavoidable with Ebitengine's uniform API.
	e.uniforms["Strength"] = float32(e.Strength)
	e.uniforms["Softness"] = float32(e.Softness)
	e.shaderOp.Images[0] = src
	e.shaderOp.Uniforms = e.uniforms
	dst.DrawRectShader(bounds.Dx(), bounds.Dy(), shader, &e.shaderOp)
}

// Padding returns 0; vignetting stays in bounds.
func (e *VignetteEffect) Padding() int { return 0 }

// --- CustomShaderEffect ---

// CustomShaderEffect wraps a user-provided Kage shader, exposing Ebitengine's
// shader system directly. Images[0] is auto-filled with the composited frame;
// the user may set Images[1] and Images[2] for additional textures.
type CustomShaderEffect struct {
	Shader   *ebiten.Shader
	Uniforms map[string]any
	Images   [3]*ebiten.Image
	padding  int
	shaderOp ebiten.DrawRectShaderOptions
}

// NewCustomShaderEffect creates a custom shader effect with the given shader
// and padding.
func NewCustomShaderEffect(shader *ebiten.Shader, padding int) *CustomShaderEffect {
	return &CustomShaderEffect{
		Shader:   shader,
		Uniforms: make(map[string]any),
		padding:  padding,
	}
}

// Apply runs the user-provided Kage shader with src as Images[0].
func (e *CustomShaderEffect) Apply(src, dst *ebiten.Image) {
	bounds := src.Bounds()
	e.shaderOp.Images[0] = src
	e.shaderOp.Images[1] = e.Images[1]
	e.shaderOp.Images[2] = e.Images[2]
	e.shaderOp.Uniforms = e.Uniforms
	dst.DrawRectShader(bounds.Dx(), bounds.Dy(), e.Shader, &e.shaderOp)
}

// Padding returns the padding value set at construction time.
func (e *CustomShaderEffect) Padding() int { return e.padding }

// --- Chain application ---

// applyEffects runs an effect chain over frame in place, ping-ponging through
// frame-sized views of pooled scratch images. The pooled backings are
// power-of-two sized; effects only ever see frame-sized source and
// destination regions, so region-relative shaders (vignette) and
// bounds-driven scaling (blur) stay anchored to the viewport.
func applyEffects(effects []Effect, frame *ebiten.Image, pool *texturePool) {
	if len(effects) == 0 {
		return
	}

	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rect := image.Rect(0, 0, w, h)

	var backs [2]*ebiten.Image
	var views [2]*ebiten.Image

	current := frame
	slot := 0
	for _, e := range effects {
		if backs[slot] == nil {
			backs[slot] = pool.Acquire(w, h)
			views[slot] = backs[slot].SubImage(rect).(*ebiten.Image)
		} else {
			views[slot].Clear()
		}
		e.Apply(current, views[slot])
		current = views[slot]
		slot = 1 - slot
	}

	frame.Clear()
	var op ebiten.DrawImageOptions
	op.Blend = BlendNone.EbitenBlend()
	frame.DrawImage(current, &op)

	pool.Release(backs[0])
	pool.Release(backs[1])
}
