package zoetrope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Scene is the unit the container cycles through: a self-contained animated
// simulation. The container is the only caller of the lifecycle methods and
// guarantees their order: Init (awaited) → Update/Draw cycles → Cleanup.
// A scene revisited after Cleanup gets a fresh Init before it can activate
// again.
//
// Init may be slow (asset generation, sieves, lookup tables); the container
// runs it off the frame loop and the scene only becomes eligible for
// activation once it returns. Cleanup must be idempotent and release every
// externally registered listener and timer.
type Scene interface {
	Init(ctx context.Context) error
	Update(dt float64)
	Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64)
	Resize(w, h int)
	ApplySettings(settings map[string]any)
	Cleanup()
}

// CommandTarget is the optional capability for scenes that accept timeline
// scene commands. Scenes without it have CmdScene events skipped with a
// logged warning.
type CommandTarget interface {
	Command(name string, args map[string]any) error
}

// Lifecycle errors.
var (
	ErrUnknownScene     = errors.New("unknown scene")
	ErrSceneNotReady    = errors.New("scene init has not completed")
	ErrSceneFailed      = errors.New("scene init failed")
	ErrTransitionActive = errors.New("transition already in progress")
)

// sceneEntry tracks one registered scene and its readiness.
type sceneEntry struct {
	id      string
	scene   Scene
	ready   bool
	initErr error
	readyCh chan error
	cleaned bool
	initCtx context.Context
}

// ChangeOptions configures a scene change.
type ChangeOptions struct {
	// Kind selects the blend strategy. Defaults to TransitionFade.
	Kind TransitionKind
	// Duration of the transition. Defaults to DefaultTransitionDuration.
	Duration time.Duration
}

// DefaultTransitionDuration is used when ChangeOptions.Duration is zero.
const DefaultTransitionDuration = 800 * time.Millisecond

// Container owns the scene registry, the active scene, and the transition
// state machine: Idle(active) → Transitioning(outgoing, incoming) →
// Idle(incoming). It implements Drawable so it registers on a surface layer
// like any other render object; when idle the active scene draws directly
// with no snapshot indirection.
type Container struct {
	surface *Surface

	scenes  map[string]*sceneEntry
	pending []*sceneEntry

	active   *sceneEntry
	outgoing *sceneEntry
	trans    *transition

	changed  subscriberList
	complete subscriberList

	now func() time.Time
}

// NewContainer creates a scene container rendering through the given surface.
func NewContainer(surface *Surface) *Container {
	return &Container{
		surface: surface,
		scenes:  make(map[string]*sceneEntry),
		now:     time.Now,
	}
}

// Register adds a scene under an id and starts its Init off the frame loop.
// The scene cannot become active until Init returns nil. Registering an id
// twice is a configuration error.
func (c *Container) Register(ctx context.Context, id string, scene Scene) error {
	if _, ok := c.scenes[id]; ok {
		return fmt.Errorf("zoetrope: scene %q already registered", id)
	}
	e := &sceneEntry{id: id, scene: scene, initCtx: ctx}
	c.scenes[id] = e
	c.startInit(e)
	return nil
}

// startInit launches (or relaunches) a scene's Init off the frame loop and
// queues the entry for readiness polling.
func (c *Container) startInit(e *sceneEntry) {
	e.ready = false
	e.initErr = nil
	e.cleaned = false
	e.readyCh = make(chan error, 1)
	c.pending = append(c.pending, e)
	go func() {
		e.readyCh <- e.scene.Init(e.initCtx)
	}()
}

// Ready reports whether the scene has completed Init successfully.
func (c *Container) Ready(id string) bool {
	e, ok := c.scenes[id]
	return ok && e.ready && e.initErr == nil
}

// ActiveID returns the id of the active scene, or "" if none.
func (c *Container) ActiveID() string {
	if c.active == nil {
		return ""
	}
	return c.active.id
}

// Transitioning reports whether a scene transition is in progress.
func (c *Container) Transitioning() bool {
	return c.trans != nil
}

// OnSceneChanged subscribes to scene activations. The callback fires when a
// scene becomes active (immediately for the first activation, at transition
// start otherwise).
func (c *Container) OnSceneChanged(fn func(id string)) Subscription {
	return c.changed.add(fn)
}

// OnTransitionComplete subscribes to transition completions. Fires exactly
// once per transition.
func (c *Container) OnTransitionComplete(fn func(id string)) Subscription {
	return c.complete.add(fn)
}

// Update polls init results, advances the active scene(s), and steps the
// transition state machine. Called once per frame before rendering.
func (c *Container) Update(dt float64) {
	c.pollPending()

	if c.active != nil {
		updateScene(c.active, dt)
	}
	if c.trans != nil && c.outgoing != nil && c.outgoing != c.active {
		// The outgoing scene keeps animating; Draw refreshes its snapshot
		// every frame until the transition completes.
		updateScene(c.outgoing, dt)
	}

	if c.trans != nil && c.trans.update(c.now()) {
		c.finishTransition()
	}
}

// pollPending collects completed Init calls without blocking the frame.
func (c *Container) pollPending() {
	remaining := c.pending[:0]
	for _, e := range c.pending {
		select {
		case err := <-e.readyCh:
			e.ready = true
			e.initErr = err
			if err != nil {
				warnf("scene %q init failed: %v", e.id, err)
			}
		default:
			remaining = append(remaining, e)
		}
	}
	c.pending = remaining
}

// updateScene runs one scene Update with panic recovery at the dispatch
// boundary.
func updateScene(e *sceneEntry, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			warnf("scene %q update failed: %v", e.id, r)
		}
	}()
	e.scene.Update(dt)
}

// ChangeScene switches the active scene. The very first activation is
// immediate; later changes snapshot the outgoing scene and enter the
// transitioning state. The target must have completed Init. Revisiting a
// scene that was torn down after a previous visit re-runs its Init; the
// change reports ErrSceneNotReady until that completes, so callers retry.
func (c *Container) ChangeScene(id string, opts ChangeOptions) error {
	e, ok := c.scenes[id]
	if !ok {
		return fmt.Errorf("zoetrope: %w: %q", ErrUnknownScene, id)
	}
	c.pollPending()
	if e.cleaned {
		c.startInit(e)
	}
	if !e.ready {
		return fmt.Errorf("zoetrope: %w: %q", ErrSceneNotReady, id)
	}
	if e.initErr != nil {
		return fmt.Errorf("zoetrope: %w: %q: %v", ErrSceneFailed, id, e.initErr)
	}
	if c.trans != nil {
		return fmt.Errorf("zoetrope: %w", ErrTransitionActive)
	}
	if c.active == e {
		return nil
	}

	if opts.Duration <= 0 {
		opts.Duration = DefaultTransitionDuration
	}

	w, h := c.surface.Size()
	e.scene.Resize(w, h)

	if c.active == nil {
		c.active = e
		c.changed.emit(id)
		return nil
	}

	// Seed the outgoing snapshot so the transition has valid content before
	// the first Draw; both snapshots are refreshed every frame after that.
	pool := c.surface.texturePool()
	t := newTransition(opts.Kind, opts.Duration, c.now(), pool.Acquire(w, h), pool.Acquire(w, h), w, h)
	c.drawSceneInto(c.active, t.outgoing)

	c.outgoing = c.active
	c.active = e
	c.trans = t
	c.changed.emit(id)
	return nil
}

// finishTransition releases both snapshots, tears down the outgoing scene,
// and returns to Idle(incoming). Runs exactly once per transition.
func (c *Container) finishTransition() {
	t := c.trans
	c.trans = nil

	pool := c.surface.texturePool()
	pool.Release(t.outBack)
	pool.Release(t.inBack)
	t.outBack, t.inBack = nil, nil
	t.outgoing, t.incoming = nil, nil

	if c.outgoing != nil {
		cleanupScene(c.outgoing)
		c.outgoing = nil
	}
	c.complete.emit(c.active.id)
}

// cleanupScene calls Scene.Cleanup once, with panic recovery.
func cleanupScene(e *sceneEntry) {
	if e.cleaned {
		return
	}
	e.cleaned = true
	defer func() {
		if r := recover(); r != nil {
			warnf("scene %q cleanup failed: %v", e.id, r)
		}
	}()
	e.scene.Cleanup()
}

// ApplySettings forwards a settings patch to the active scene.
func (c *Container) ApplySettings(settings map[string]any) {
	if c.active != nil {
		c.active.scene.ApplySettings(settings)
	}
}

// Command forwards a typed timeline command to the active scene, if it has
// the CommandTarget capability. Unsupported commands are skipped with a
// logged warning, never thrown across the frame loop.
func (c *Container) Command(name string, args map[string]any) {
	if c.active == nil {
		warnf("scene command %q dropped: no active scene", name)
		return
	}
	target, ok := c.active.scene.(CommandTarget)
	if !ok {
		warnf("scene command %q skipped: scene %q accepts no commands", name, c.active.id)
		return
	}
	if err := target.Command(name, args); err != nil {
		warnf("scene command %q on %q: %v", name, c.active.id, err)
	}
}

// ResizeScenes forwards a viewport resize to the active (and outgoing)
// scenes.
func (c *Container) ResizeScenes(w, h int) {
	if c.active != nil {
		c.active.scene.Resize(w, h)
	}
	if c.outgoing != nil && c.outgoing != c.active {
		c.outgoing.scene.Resize(w, h)
	}
}

// Draw renders the container's current visual state: the active scene
// directly when idle, or the blended snapshots while transitioning.
// Implements Drawable.
func (c *Container) Draw(dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	if c.trans == nil {
		if c.active != nil {
			c.active.scene.Draw(dst, view, dt)
		}
		return
	}

	// Both scenes render into their snapshots under the camera transform
	// every frame, then the snapshots blend onto the live surface.
	if c.outgoing != nil {
		c.trans.outgoing.Clear()
		sceneDraw(c.outgoing, c.trans.outgoing, view, dt)
	}
	c.trans.incoming.Clear()
	sceneDraw(c.active, c.trans.incoming, view, dt)
	c.trans.draw(dst)
}

// drawSceneInto renders a scene once into an offscreen target using the
// current camera transform.
func (c *Container) drawSceneInto(e *sceneEntry, target *ebiten.Image) {
	view := geoM(c.surface.Camera().computeViewMatrix())
	sceneDraw(e, target, view, 0)
}

// sceneDraw invokes Scene.Draw with panic recovery.
func sceneDraw(e *sceneEntry, dst *ebiten.Image, view ebiten.GeoM, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			warnf("scene %q draw failed: %v", e.id, r)
		}
	}()
	e.scene.Draw(dst, view, dt)
}
