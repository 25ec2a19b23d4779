package zoetrope

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// RecordState tracks the recording session lifecycle.
type RecordState uint8

const (
	RecIdle RecordState = iota
	RecCapturing
	RecFinalizing
)

// Result is the artifact contract crossing out of the recorder: exactly one
// is produced per session, on the native and the fallback path alike.
type Result struct {
	// Path is the encoded artifact (native path) or the frame directory
	// (fallback path).
	Path string
	// Frames lists the individual frame files on the fallback path.
	Frames []string
	// URL is the file:// form of Path.
	URL             string
	DurationSeconds float64
	FrameCount      int
	MimeType        string
}

// CaptureSink is a native stream-capture backend. The recorder prefers a
// sink when one is available and falls back to in-memory frame sampling
// otherwise.
type CaptureSink interface {
	// Available reports whether the sink can run on this system.
	Available() bool
	// Begin opens the sink for frames of the given size at the given rate.
	Begin(w, h, frameRate int) error
	// WriteFrame submits one RGBA frame.
	WriteFrame(frame *image.RGBA) error
	// Finish flushes and closes the sink, returning the artifact path and
	// its MIME type.
	Finish(ctx context.Context) (path, mimeType string, err error)
}

// --- FFmpeg sink ---

// FFmpegSink encodes the sampled frames by piping raw RGBA to an ffmpeg
// process.
type FFmpegSink struct {
	// OutPath is the output file. Its extension selects the container.
	OutPath string
	// Encoder is the ffmpeg video encoder name. Defaults to libx264.
	Encoder string
	// Quality is encoder-specific (CRF for libx264). Defaults to 23.
	Quality int

	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// Available reports whether an ffmpeg binary is on PATH.
func (s *FFmpegSink) Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Begin starts the ffmpeg process reading raw RGBA frames from stdin.
func (s *FFmpegSink) Begin(w, h, frameRate int) error {
	if s.Encoder == "" {
		s.Encoder = "libx264"
	}
	if s.Quality == 0 {
		s.Quality = 23
	}
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", frameRate),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", s.Encoder,
	}
	switch s.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", s.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", s.Quality))
	default:
		args = append(args, "-crf", fmt.Sprintf("%d", s.Quality), "-preset", "medium")
	}
	args = append(args, s.OutPath)

	cmd := exec.Command("ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

// WriteFrame pipes one frame's pixels to ffmpeg. The frame must be tightly
// packed (stride == width*4), which the recorder guarantees.
func (s *FFmpegSink) WriteFrame(frame *image.RGBA) error {
	_, err := s.stdin.Write(frame.Pix)
	return err
}

// Finish closes stdin and waits for ffmpeg to flush the container. On
// context cancellation the process is killed.
func (s *FFmpegSink) Finish(ctx context.Context) (string, string, error) {
	if s.cmd == nil {
		return "", "", fmt.Errorf("ffmpeg sink not started")
	}
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		s.cmd = nil
		if err != nil {
			return "", "", fmt.Errorf("ffmpeg wait: %w", err)
		}
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-done
		s.cmd = nil
		return "", "", ctx.Err()
	}
	return s.OutPath, mimeForPath(s.OutPath), nil
}

func mimeForPath(path string) string {
	switch filepath.Ext(path) {
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}

// --- Recorder ---

// RecordOptions configures one recording session.
type RecordOptions struct {
	// FrameRate in frames per second. Defaults to 30. Both capture paths
	// sample the composited surface every 1000/FrameRate ms.
	FrameRate int
	// Width/Height downscale frames before capture. Zero keeps source size.
	Width, Height int
	// Dir receives fallback frame files. Defaults to a fresh temp dir.
	Dir string
	// ForceFallback skips the native sink even when available.
	ForceFallback bool
}

// Recorder wraps a capture sink and produces exactly one Result per session.
// It starts and stops in lockstep with the sequencing engine (the caller
// arms it around StartSequence) and samples the composited surface once per
// frame while capturing.
type Recorder struct {
	sink CaptureSink

	state    RecordState
	opts     RecordOptions
	interval time.Duration

	native      bool
	sinkStarted bool

	startTime  time.Time
	nextSample time.Time

	frames       []*image.RGBA
	maxFrames    int
	budgetWarned bool
	frameCount   int
	w, h         int

	scratch *image.RGBA // downscale buffer

	now          func() time.Time
	availableMem func() (uint64, error)
}

// NewRecorder creates a recorder. sink may be nil to force the
// frame-sampling fallback.
func NewRecorder(sink CaptureSink) *Recorder {
	return &Recorder{
		sink: sink,
		now:  time.Now,
		availableMem: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
	}
}

// State returns the current session state.
func (r *Recorder) State() RecordState {
	return r.state
}

// Start arms a recording session. Returns false — with the previous session
// untouched — when a session is already active. The capture path is chosen
// here: native when a sink is available and not bypassed, frame-sampling
// fallback otherwise.
func (r *Recorder) Start(opts RecordOptions) bool {
	if r.state != RecIdle {
		return false
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	r.opts = opts
	r.interval = time.Second / time.Duration(opts.FrameRate)
	r.native = !opts.ForceFallback && r.sink != nil && r.sink.Available()
	r.sinkStarted = false
	r.frames = nil
	r.frameCount = 0
	r.maxFrames = 0
	r.budgetWarned = false
	r.startTime = time.Time{}
	r.nextSample = time.Time{}
	r.state = RecCapturing
	if !r.native && r.sink != nil && !opts.ForceFallback {
		logf("native capture sink unavailable, using frame-sampling fallback")
	}
	return true
}

// Capturing reports whether frames are currently being sampled.
func (r *Recorder) Capturing() bool {
	return r.state == RecCapturing
}

// SampleFrame offers one composited frame to the recorder. Frames arrive
// every paint cycle; the recorder keeps those due under the configured
// frame rate. The frame is copied — callers may reuse the buffer.
func (r *Recorder) SampleFrame(frame *image.RGBA) {
	if r.state != RecCapturing || frame == nil {
		return
	}
	now := r.now()

	if r.startTime.IsZero() {
		if err := r.beginCapture(frame, now); err != nil {
			warnf("recording: %v; switching to fallback", err)
			r.native = false
			r.initFallback(frame)
		}
	}

	if now.Before(r.nextSample) {
		return
	}
	r.nextSample = r.nextSample.Add(r.interval)
	if r.nextSample.Before(now) {
		// Frame-rate collapse: resynchronize instead of bursting.
		r.nextSample = now.Add(r.interval)
	}

	out := r.fitFrame(frame)

	if r.native {
		if err := r.sink.WriteFrame(out); err != nil {
			warnf("recording: write frame: %v", err)
			return
		}
		r.frameCount++
		return
	}

	if len(r.frames) >= r.maxFrames {
		if !r.budgetWarned {
			warnf("recording: frame buffer budget (%d frames) exhausted, dropping further frames", r.maxFrames)
			r.budgetWarned = true
		}
		return
	}
	r.frames = append(r.frames, cloneRGBA(out))
	r.frameCount++
}

// beginCapture latches session geometry and opens the sink on the first
// sampled frame.
func (r *Recorder) beginCapture(frame *image.RGBA, now time.Time) error {
	r.startTime = now
	r.nextSample = now
	r.w, r.h = r.targetSize(frame)
	if r.native {
		if err := r.sink.Begin(r.w, r.h, r.opts.FrameRate); err != nil {
			return err
		}
		r.sinkStarted = true
		return nil
	}
	r.initFallback(frame)
	return nil
}

// initFallback budgets the in-memory frame buffer against available memory,
// capping it at half of what's free. A failed probe falls back to a fixed
// one-minute budget.
func (r *Recorder) initFallback(frame *image.RGBA) {
	r.w, r.h = r.targetSize(frame)
	bytesPerFrame := uint64(r.w * r.h * 4)
	avail, err := r.availableMem()
	if err != nil || avail == 0 {
		r.maxFrames = r.opts.FrameRate * 60
		return
	}
	budget := int(avail / 2 / bytesPerFrame)
	if budget < r.opts.FrameRate {
		budget = r.opts.FrameRate
	}
	r.maxFrames = budget
}

func (r *Recorder) targetSize(frame *image.RGBA) (int, int) {
	if r.opts.Width > 0 && r.opts.Height > 0 {
		return r.opts.Width, r.opts.Height
	}
	b := frame.Bounds()
	return b.Dx(), b.Dy()
}

// fitFrame downscales the frame to the session size when requested.
func (r *Recorder) fitFrame(frame *image.RGBA) *image.RGBA {
	b := frame.Bounds()
	if b.Dx() == r.w && b.Dy() == r.h {
		return frame
	}
	if r.scratch == nil || r.scratch.Bounds().Dx() != r.w || r.scratch.Bounds().Dy() != r.h {
		r.scratch = image.NewRGBA(image.Rect(0, 0, r.w, r.h))
	}
	xdraw.ApproxBiLinear.Scale(r.scratch, r.scratch.Bounds(), frame, b, xdraw.Src, nil)
	return r.scratch
}

// Stop finalizes the session and produces the Result. Stopping while idle is
// a no-op returning an empty Result. On the native path the Result resolves
// only after the sink's own flush completes; on the fallback path the frames
// are encoded to sequentially numbered PNG files.
func (r *Recorder) Stop(ctx context.Context) (*Result, error) {
	if r.state == RecIdle {
		return &Result{}, nil
	}
	r.state = RecFinalizing
	defer func() {
		r.state = RecIdle
		r.frames = nil
	}()

	res := &Result{
		FrameCount: r.frameCount,
	}
	if !r.startTime.IsZero() {
		res.DurationSeconds = r.now().Sub(r.startTime).Seconds()
	}

	if r.native && r.sinkStarted {
		path, mime, err := r.sink.Finish(ctx)
		if err != nil {
			return res, fmt.Errorf("zoetrope: finalize recording: %w", err)
		}
		res.Path = path
		res.MimeType = mime
		res.URL = fileURL(path)
		return res, nil
	}

	dir := r.opts.Dir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "zoetrope_rec_")
		if err != nil {
			return res, fmt.Errorf("zoetrope: finalize recording: %w", err)
		}
	}
	paths, err := writeFrameFiles(ctx, dir, r.frames)
	if err != nil {
		return res, fmt.Errorf("zoetrope: finalize recording: %w", err)
	}
	res.Path = dir
	res.Frames = paths
	res.MimeType = "image/png"
	res.URL = fileURL(dir)
	return res, nil
}

// writeFrameFiles encodes frames to PNG in parallel, bounded by CPU count.
func writeFrameFiles(ctx context.Context, dir string, frames []*image.RGBA) ([]string, error) {
	paths := make([]string, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, frame := range frames {
		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
		paths[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writePNG(path, frame)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writePNG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
