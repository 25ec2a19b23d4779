package zoetrope

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Captions is the overlay the timeline's show_text/hide_text events drive.
// It registers on a screen-space layer above everything else and draws a
// dimmed text box in the lower-left corner of the frame.
type Captions struct {
	text    string
	visible bool

	box *ebiten.Image // re-rendered when the text changes
}

// NewCaptions creates an empty, hidden caption overlay.
func NewCaptions() *Captions {
	return &Captions{}
}

// Show displays text, replacing any current caption.
func (c *Captions) Show(text string) {
	if text != c.text {
		c.text = text
		c.renderBox()
	}
	c.visible = true
}

// Hide hides the caption. The text is kept so a later Show of the same
// string doesn't re-render.
func (c *Captions) Hide() {
	c.visible = false
}

// Visible reports whether a caption is currently shown.
func (c *Captions) Visible() bool {
	return c.visible
}

// Text returns the current caption text (shown or not).
func (c *Captions) Text() string {
	return c.text
}

// renderBox rasterizes the caption into an offscreen box sized to the text.
func (c *Captions) renderBox() {
	if c.box != nil {
		c.box.Deallocate()
		c.box = nil
	}
	if c.text == "" {
		return
	}
	lines := strings.Split(c.text, "\n")
	longest := 0
	for _, l := range lines {
		if len(l) > longest {
			longest = len(l)
		}
	}
	// ebitenutil's debug font is a fixed 6x16 cell grid.
	w := longest*6 + 16
	h := len(lines)*16 + 8
	c.box = ebiten.NewImage(w, h)
	c.box.Fill(color.RGBA{0, 0, 0, 160})
	ebitenutil.DebugPrintAt(c.box, c.text, 8, 4)
}

// Draw places the caption box near the bottom-left of the frame.
// Implements Drawable; captions live on a screen layer, so view is identity.
func (c *Captions) Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	if !c.visible || c.box == nil {
		return
	}
	b := dst.Bounds()
	var op ebiten.DrawImageOptions
	op.GeoM = view
	op.GeoM.Translate(16, float64(b.Dy()-c.box.Bounds().Dy()-16))
	dst.DrawImage(c.box, &op)
}
