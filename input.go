package zoetrope

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MouseButton identifies a mouse button in a Snapshot.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
	mouseButtonCount
)

// KeyModifiers is a bitmask of held modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Snapshot is the per-frame input state. The app polls it once at the start
// of each Update and hands it to scenes read-only; scenes never poll the
// backend themselves, so every consumer in a frame sees the same state.
type Snapshot struct {
	// CursorX/CursorY is the pointer position in screen coordinates.
	CursorX, CursorY float64
	// WorldX/WorldY is the pointer position through the camera's inverse
	// view transform.
	WorldX, WorldY float64
	// WheelX/WheelY is this frame's scroll delta.
	WheelX, WheelY float64
	Modifiers      KeyModifiers

	buttons     [mouseButtonCount]bool
	justDown    [mouseButtonCount]bool
	justUp      [mouseButtonCount]bool
	pressedKeys []ebiten.Key
	justKeys    []ebiten.Key
}

// ButtonDown reports whether the button is currently held.
func (s *Snapshot) ButtonDown(b MouseButton) bool {
	if b >= mouseButtonCount {
		return false
	}
	return s.buttons[b]
}

// ButtonJustPressed reports whether the button went down this frame.
func (s *Snapshot) ButtonJustPressed(b MouseButton) bool {
	if b >= mouseButtonCount {
		return false
	}
	return s.justDown[b]
}

// ButtonJustReleased reports whether the button went up this frame.
func (s *Snapshot) ButtonJustReleased(b MouseButton) bool {
	if b >= mouseButtonCount {
		return false
	}
	return s.justUp[b]
}

// KeyDown reports whether the key is currently held.
func (s *Snapshot) KeyDown(k ebiten.Key) bool {
	for _, pk := range s.pressedKeys {
		if pk == k {
			return true
		}
	}
	return false
}

// KeyJustPressed reports whether the key went down this frame.
func (s *Snapshot) KeyJustPressed(k ebiten.Key) bool {
	for _, jk := range s.justKeys {
		if jk == k {
			return true
		}
	}
	return false
}

// poll refreshes the snapshot from the input backend. cam may be nil, in
// which case world coordinates equal screen coordinates.
func (s *Snapshot) poll(cam *Camera) {
	mx, my := ebiten.CursorPosition()
	s.CursorX, s.CursorY = float64(mx), float64(my)
	if cam != nil {
		s.WorldX, s.WorldY = cam.ScreenToWorld(s.CursorX, s.CursorY)
	} else {
		s.WorldX, s.WorldY = s.CursorX, s.CursorY
	}
	s.WheelX, s.WheelY = ebiten.Wheel()
	s.Modifiers = readModifiers()

	for b, eb := range [mouseButtonCount]ebiten.MouseButton{
		ebiten.MouseButtonLeft,
		ebiten.MouseButtonRight,
		ebiten.MouseButtonMiddle,
	} {
		s.buttons[b] = ebiten.IsMouseButtonPressed(eb)
		s.justDown[b] = inpututil.IsMouseButtonJustPressed(eb)
		s.justUp[b] = inpututil.IsMouseButtonJustReleased(eb)
	}

	s.pressedKeys = inpututil.AppendPressedKeys(s.pressedKeys[:0])
	s.justKeys = inpututil.AppendJustPressedKeys(s.justKeys[:0])
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) || ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) || ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) || ebiten.IsKeyPressed(ebiten.KeyMetaLeft) || ebiten.IsKeyPressed(ebiten.KeyMetaRight) {
		mods |= ModMeta
	}
	return mods
}
