package zoetrope

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tanema/gween/ease"
)

// Pose is a camera pose sampled from the keyframe track.
type Pose struct {
	X, Y, Zoom, Rotation float64
}

// Keyframe pins the camera pose at a point on the timeline. Time is in
// seconds relative to the start of the sequence entry (or of a manual run).
type Keyframe struct {
	Time     float64
	X, Y     float64
	Zoom     float64
	Rotation float64
	// Easing names the function applied to the interpolation fraction when
	// this keyframe is the upper end of the bracketing pair. Empty = linear.
	Easing string

	fn EasingFunc // resolved at insertion
}

// Command is the typed timeline event vocabulary. Events carry a Command
// instead of a method name string, so an unknown command is rejected when the
// event list is built, not silently dropped at dispatch time.
type Command uint8

const (
	CmdShowText      Command = iota // show Text on the caption overlay
	CmdHideText                     // hide the caption overlay
	CmdEnableEffect                 // enable the post-processing effect named Effect
	CmdDisableEffect                // disable the post-processing effect named Effect
	CmdCameraShake                  // shake the camera: Intensity px over Duration s
	CmdScrollTo                     // pan the camera to (X, Y) over Duration s
	CmdScene                        // forward Name/Args to the active scene's CommandTarget
	CmdPause                        // suspend sequence playback for Duration s
)

// commandNames maps tour-script command names to Commands.
var commandNames = map[string]Command{
	"show_text":      CmdShowText,
	"hide_text":      CmdHideText,
	"enable_effect":  CmdEnableEffect,
	"disable_effect": CmdDisableEffect,
	"camera_shake":   CmdCameraShake,
	"scroll_to":      CmdScrollTo,
	"scene":          CmdScene,
	"pause":          CmdPause,
}

// ParseCommand resolves a tour-script command name.
func ParseCommand(name string) (Command, error) {
	c, ok := commandNames[name]
	if !ok {
		return 0, fmt.Errorf("zoetrope: unknown command %q", name)
	}
	return c, nil
}

// String returns the tour-script name of the command.
func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// Event is one scripted timeline action. Which fields are meaningful depends
// on Cmd; see the Command constants.
type Event struct {
	Time float64
	Cmd  Command

	Text      string         // CmdShowText
	Effect    string         // CmdEnableEffect, CmdDisableEffect
	Name      string         // CmdScene
	Args      map[string]any // CmdScene
	Intensity float64        // CmdCameraShake
	X, Y      float64        // CmdScrollTo
	Duration  float64        // CmdCameraShake, CmdScrollTo, CmdPause (seconds)
}

// Timeline advances a cursor once per frame, interpolates the camera pose
// between keyframes, and dispatches due events to the surface, the caption
// overlay, or the active scene. It also drives automated multi-scene
// sequences (tours).
type Timeline struct {
	surface   *Surface
	container *Container
	captions  *Captions

	keyframes []Keyframe
	events    []Event

	lastProcessed float64
	dueBuf        []Event

	seq *sequenceRun

	now func() time.Time
}

// NewTimeline creates a timeline driving the given surface and container.
// captions may be nil when no caption overlay is wired.
func NewTimeline(surface *Surface, container *Container, captions *Captions) *Timeline {
	return &Timeline{
		surface:       surface,
		container:     container,
		captions:      captions,
		lastProcessed: math.Inf(-1),
		now:           time.Now,
	}
}

// SetCameraKeyframes replaces the keyframe track wholesale. The list is
// defensively sorted ascending by time; NaN fields, duplicate times, and
// unknown easing names are rejected.
func (t *Timeline) SetCameraKeyframes(list []Keyframe) error {
	kfs := make([]Keyframe, len(list))
	copy(kfs, list)
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].Time < kfs[j].Time })

	for i := range kfs {
		k := &kfs[i]
		if hasNaN(k.Time, k.X, k.Y, k.Zoom, k.Rotation) {
			return fmt.Errorf("zoetrope: keyframe %d has NaN fields", i)
		}
		if i > 0 && kfs[i-1].Time == k.Time {
			return fmt.Errorf("zoetrope: duplicate keyframe time %v", k.Time)
		}
		fn, err := EasingByName(k.Easing)
		if err != nil {
			return err
		}
		k.fn = fn
	}
	t.keyframes = kfs
	return nil
}

// SetEvents replaces the event list wholesale and resets the delivery
// cursor. The list is defensively sorted ascending by time; ordering of
// events sharing a time is preserved.
func (t *Timeline) SetEvents(list []Event) error {
	evs := make([]Event, len(list))
	copy(evs, list)
	for i := range evs {
		if math.IsNaN(evs[i].Time) {
			return fmt.Errorf("zoetrope: event %d has NaN time", i)
		}
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Time < evs[j].Time })
	t.events = evs
	t.lastProcessed = math.Inf(-1)
	return nil
}

// SampleCameraAt returns the camera pose at time tRel. Outside the keyframe
// range the boundary keyframe is returned verbatim; inside, x/y/zoom are
// linearly interpolated and rotation follows the shortest angular path, with
// the upper keyframe's easing applied to the interpolation fraction.
func (t *Timeline) SampleCameraAt(tRel float64) Pose {
	kfs := t.keyframes
	if len(kfs) == 0 {
		return t.surface.Camera().Pose()
	}
	if tRel <= kfs[0].Time {
		return kfs[0].pose()
	}
	last := kfs[len(kfs)-1]
	if tRel >= last.Time {
		return last.pose()
	}

	// First keyframe strictly after tRel; its predecessor brackets from below.
	hi := sort.Search(len(kfs), func(i int) bool { return kfs[i].Time > tRel })
	lo := hi - 1
	k0, k1 := kfs[lo], kfs[hi]

	frac := (tRel - k0.Time) / (k1.Time - k0.Time)
	eased := k1.fn(frac)

	return Pose{
		X:        lerp(k0.X, k1.X, eased),
		Y:        lerp(k0.Y, k1.Y, eased),
		Zoom:     lerp(k0.Zoom, k1.Zoom, eased),
		Rotation: k0.Rotation + shortestAngle(k0.Rotation, k1.Rotation)*eased,
	}
}

func (k Keyframe) pose() Pose {
	return Pose{X: k.X, Y: k.Y, Zoom: k.Zoom, Rotation: k.Rotation}
}

// shortestAngle returns the signed delta from a to b along the shortest
// angular path, in (-π, π]. Interpolating 350°→10° passes through 0°,
// never through 180°.
func shortestAngle(a, b float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Tick advances the cursor to now (seconds relative to sequence start):
// dispatches every event whose time falls in (lastProcessed, now] in
// ascending order, then updates the camera pose, then moves the cursor.
//
// The due set is snapshotted before any dispatch, so an event handler that
// changes the scene mid-tick cannot cause events to be redelivered to the
// wrong scene within the same tick.
func (t *Timeline) Tick(now float64) {
	due := t.dueBuf[:0]
	for _, ev := range t.events {
		if ev.Time > now {
			break
		}
		if ev.Time > t.lastProcessed {
			due = append(due, ev)
		}
	}
	t.dueBuf = due

	for _, ev := range due {
		t.dispatch(ev)
	}

	if len(t.keyframes) > 0 {
		t.surface.Camera().SetPose(t.SampleCameraAt(now))
	}
	t.lastProcessed = now
}

// LastProcessed returns the delivery cursor (for diagnostics).
func (t *Timeline) LastProcessed() float64 {
	return t.lastProcessed
}

// dispatch routes one due event to its target. Failures are logged, never
// thrown across the frame loop.
func (t *Timeline) dispatch(ev Event) {
	switch ev.Cmd {
	case CmdShowText:
		if t.captions != nil {
			t.captions.Show(ev.Text)
		}
	case CmdHideText:
		if t.captions != nil {
			t.captions.Hide()
		}
	case CmdEnableEffect:
		if err := t.surface.EnableEffect(ev.Effect); err != nil {
			warnf("timeline event at %gs: %v", ev.Time, err)
		}
	case CmdDisableEffect:
		if err := t.surface.DisableEffect(ev.Effect); err != nil {
			warnf("timeline event at %gs: %v", ev.Time, err)
		}
	case CmdCameraShake:
		t.surface.Camera().Shake(ev.Intensity, secondsToDuration(ev.Duration), t.now())
	case CmdScrollTo:
		// Scripted pans use a fixed smooth curve; a keyframe track on the
		// same entry overrides the pan pose every tick.
		t.surface.Camera().ScrollTo(ev.X, ev.Y, float32(ev.Duration), ease.InOutQuad)
	case CmdScene:
		t.container.Command(ev.Name, ev.Args)
	case CmdPause:
		if t.seq == nil {
			warnf("timeline pause at %gs ignored: no sequence running", ev.Time)
			return
		}
		t.seq.pause(t.now(), secondsToDuration(ev.Duration))
	default:
		warnf("timeline event at %gs: unknown command %d", ev.Time, ev.Cmd)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func hasNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
