package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/primefold/zoetrope"
	"github.com/primefold/zoetrope/vis"
)

var (
	recordPath string
	frameRate  int
	windowSize string
	dumpFrames bool
	debugStats bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zoetour",
		Short: "scripted visualization tours",
	}

	runCmd := &cobra.Command{
		Use:   "run [tour.yaml]",
		Short: "play a tour script",
		Args:  cobra.ExactArgs(1),
		RunE:  runTour,
	}
	runCmd.Flags().StringVar(&recordPath, "record", "", "record the tour to a video file")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "recording frame rate")
	runCmd.Flags().StringVar(&windowSize, "size", "1280x720", "window size WxH")
	runCmd.Flags().BoolVar(&dumpFrames, "frames", false, "record as a PNG frame sequence instead of video")
	runCmd.Flags().BoolVar(&debugStats, "debug", false, "log frame timing to stderr")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list registered scenes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range sceneIDs() {
				fmt.Println(id)
			}
		},
	}

	rootCmd.AddCommand(runCmd, scenesCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// builtinScenes maps tour scene IDs to constructors. Each invocation gets a
// fresh instance so replays start from scratch.
var builtinScenes = map[string]func() zoetrope.Scene{
	"primefold": func() zoetrope.Scene { return &vis.PrimeFold{} },
	"wavefield": func() zoetrope.Scene { return &vis.WaveField{} },
}

func sceneIDs() []string {
	ids := make([]string, 0, len(builtinScenes))
	for id := range builtinScenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return width, height, nil
}

func runTour(cmd *cobra.Command, args []string) error {
	tour, err := zoetrope.LoadTour(args[0])
	if err != nil {
		return err
	}
	width, height, err := parseSize(windowSize)
	if err != nil {
		return err
	}

	var recorder *zoetrope.Recorder
	if recordPath != "" || dumpFrames {
		recorder = zoetrope.NewRecorder(&zoetrope.FFmpegSink{OutPath: recordPath})
	}

	title := tour.Title
	if title == "" {
		title = "zoetour"
	}

	return zoetrope.Run(zoetrope.AppConfig{
		Title:        title,
		Width:        width,
		Height:       height,
		Recorder:     recorder,
		QuitOnEscape: true,
		Debug:        debugStats,
	}, func(app *zoetrope.App) error {
		ctx := context.Background()
		for id, newScene := range builtinScenes {
			if err := app.Container().Register(ctx, id, newScene()); err != nil {
				return err
			}
		}

		if recorder != nil {
			ok := recorder.Start(zoetrope.RecordOptions{
				FrameRate:     frameRate,
				ForceFallback: dumpFrames,
			})
			if !ok {
				return fmt.Errorf("recorder failed to start")
			}
		}

		started := app.Timeline().StartSequence(tour.Entries,
			func(idx, total int) {
				fmt.Fprintf(os.Stderr, "entry %d/%d\n", idx+1, total)
			},
			func(elapsed float64, entries []zoetrope.SequenceEntry) {
				fmt.Fprintf(os.Stderr, "tour finished: %d entries in %.1fs\n", len(entries), elapsed)
				if recorder != nil {
					finishRecording(recorder)
				}
				app.Stop()
			})
		if !started {
			return fmt.Errorf("tour could not start")
		}
		return nil
	})
}

func finishRecording(recorder *zoetrope.Recorder) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := recorder.Stop(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recording failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "recorded %d frames (%.1fs) -> %s\n",
		res.FrameCount, res.DurationSeconds, res.Path)
}
