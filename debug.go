package zoetrope

import (
	"fmt"
	"os"
	"time"
)

// frameStats holds per-frame timing metrics. Only populated when the App's
// debug mode is on.
type frameStats struct {
	updateTime time.Duration
	renderTime time.Duration
	layerCount int
	frameCount uint64
}

// logStats prints timing stats to stderr.
func logStats(stats frameStats) {
	_, _ = fmt.Fprintf(os.Stderr,
		"[zoetrope] frame %d | update: %v | render: %v | layers: %d\n",
		stats.frameCount, stats.updateTime, stats.renderTime, stats.layerCount)
}

// warnf logs a warning to stderr. Runtime draw/update/dispatch failures are
// reported here and never abort the frame.
func warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[zoetrope] warning: "+format+"\n", args...)
}

// logf logs an informational message to stderr.
func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[zoetrope] "+format+"\n", args...)
}
