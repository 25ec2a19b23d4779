package zoetrope

import (
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxFrameDelta caps the wall-clock dt handed to scenes so a stalled frame
// (window drag, debugger pause) doesn't make animations jump.
const maxFrameDelta = 100 * time.Millisecond

const (
	// LayerScenes hosts the scene container at z 0.
	LayerScenes = "scenes"
	// LayerCaptions hosts the caption overlay above everything, in screen
	// space so the camera never moves it.
	LayerCaptions = "captions"
)

// AppConfig configures a zoetrope application window and pipeline.
type AppConfig struct {
	Title  string
	Width  int
	Height int
	// WindowWidth/WindowHeight size the OS window. Zero means the surface
	// size.
	WindowWidth  int
	WindowHeight int
	Resizable    bool
	ClearColor   Color
	// Recorder, when set, is sampled each composited frame while capturing.
	Recorder *Recorder
	// QuitOnEscape stops the app when Escape is pressed.
	QuitOnEscape bool
	// Debug logs per-frame timing to stderr once a second.
	Debug bool
}

// App wires a Surface, Container, Timeline and Captions into an ebiten.Game.
// Construct one with NewApp, register scenes on its Container, then call Run.
type App struct {
	surface   *Surface
	container *Container
	captions  *Captions
	timeline  *Timeline
	recorder  *Recorder

	input      Snapshot
	lastUpdate time.Time
	dt         float64
	stopped    bool

	debug     bool
	stats     frameStats
	lastStats time.Time

	quitOnEscape bool
	frameBuf     *image.RGBA

	cfg AppConfig
}

// NewApp builds the standard pipeline: a surface with a world-space scene
// layer and a screen-space caption layer, a scene container on the former
// and a timeline driving all of it.
func NewApp(cfg AppConfig) *App {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}

	surface := NewSurface(cfg.Width, cfg.Height)
	surface.ClearColor = cfg.ClearColor
	container := NewContainer(surface)
	captions := NewCaptions()
	timeline := NewTimeline(surface, container, captions)

	// Layer creation on a fresh surface cannot collide.
	sceneLayer, _ := surface.CreateLayer(LayerScenes, 0, LayerOptions{Opacity: 1})
	capLayer, _ := surface.CreateLayer(LayerCaptions, 100, LayerOptions{Opacity: 1, Screen: true})
	sceneLayer.Add(container)
	capLayer.Add(captions)

	return &App{
		surface:      surface,
		container:    container,
		captions:     captions,
		timeline:     timeline,
		recorder:     cfg.Recorder,
		quitOnEscape: cfg.QuitOnEscape,
		debug:        cfg.Debug,
		cfg:          cfg,
	}
}

// Surface returns the app's rendering surface.
func (a *App) Surface() *Surface { return a.surface }

// Container returns the scene container.
func (a *App) Container() *Container { return a.container }

// Timeline returns the timeline driving camera keyframes, events and
// sequences.
func (a *App) Timeline() *Timeline { return a.timeline }

// Captions returns the caption overlay.
func (a *App) Captions() *Captions { return a.captions }

// Recorder returns the recorder, or nil when none was configured.
func (a *App) Recorder() *Recorder { return a.recorder }

// Input returns the current frame's input snapshot. The snapshot is
// refreshed once per Update; treat it as read-only.
func (a *App) Input() *Snapshot { return &a.input }

// Stop requests shutdown. Safe to call from inside a frame callback: the
// current frame finishes and the next Update terminates the loop. In-flight
// transitions and recordings are not cancelled; stop the recorder first if
// its artifact matters.
func (a *App) Stop() {
	a.stopped = true
}

// Update advances the pipeline by one frame.
func (a *App) Update() error {
	if a.stopped {
		return ebiten.Termination
	}

	now := time.Now()
	if a.lastUpdate.IsZero() {
		a.lastUpdate = now
	}
	delta := now.Sub(a.lastUpdate)
	if delta > maxFrameDelta {
		delta = maxFrameDelta
	}
	a.lastUpdate = now
	a.dt = delta.Seconds()

	a.input.poll(a.surface.Camera())
	if a.quitOnEscape && a.input.KeyJustPressed(ebiten.KeyEscape) {
		a.stopped = true
	}

	a.container.Update(a.dt)
	a.timeline.Advance()

	if a.debug {
		a.stats.updateTime = time.Since(now)
	}
	return nil
}

// Draw composites the surface and blits it to the screen, sampling the
// recorder when capturing.
func (a *App) Draw(screen *ebiten.Image) {
	start := time.Now()
	out := a.surface.Render(a.dt)
	screen.DrawImage(out, nil)

	if a.recorder != nil && a.recorder.Capturing() {
		a.recorder.SampleFrame(a.readFrame(out))
	}

	if a.debug {
		a.stats.renderTime = time.Since(start)
		a.stats.layerCount = len(a.surface.ordered)
		a.stats.frameCount++
		if time.Since(a.lastStats) >= time.Second {
			logStats(a.stats)
			a.lastStats = time.Now()
		}
	}
}

// readFrame copies the composited output into a reusable RGBA buffer.
func (a *App) readFrame(out *ebiten.Image) *image.RGBA {
	b := out.Bounds()
	w, h := b.Dx(), b.Dy()
	if a.frameBuf == nil || a.frameBuf.Bounds().Dx() != w || a.frameBuf.Bounds().Dy() != h {
		a.frameBuf = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	out.ReadPixels(a.frameBuf.Pix)
	return a.frameBuf
}

// Layout reports the logical screen size and propagates window resizes to
// the surface and every registered scene.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := a.surface.Size()
	if a.cfg.Resizable && outsideWidth > 0 && outsideHeight > 0 &&
		(outsideWidth != w || outsideHeight != h) {
		a.surface.Resize(outsideWidth, outsideHeight)
		a.container.ResizeScenes(outsideWidth, outsideHeight)
		return outsideWidth, outsideHeight
	}
	return w, h
}

// Run opens the window and drives the app until Stop or window close.
func (a *App) Run() error {
	ww, wh := a.cfg.WindowWidth, a.cfg.WindowHeight
	if ww <= 0 || wh <= 0 {
		ww, wh = a.surface.Size()
	}
	ebiten.SetWindowSize(ww, wh)
	if a.cfg.Title != "" {
		ebiten.SetWindowTitle(a.cfg.Title)
	}
	if a.cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	err := ebiten.RunGame(a)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// Run builds an app from the config, hands it to setup for scene
// registration, and blocks until the app stops.
func Run(cfg AppConfig, setup func(app *App) error) error {
	app := NewApp(cfg)
	if setup != nil {
		if err := setup(app); err != nil {
			return err
		}
	}
	return app.Run()
}
