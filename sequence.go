package zoetrope

import (
	"errors"
	"time"
)

// SequenceEntry is one stop on an automated multi-scene tour: switch to a
// scene, play its camera track and events for Duration, then move on.
// Transition names the blend used when switching to this entry's scene.
type SequenceEntry struct {
	SceneID            string
	Duration           time.Duration
	Transition         TransitionKind
	TransitionDuration time.Duration
	Keyframes          []Keyframe
	Events             []Event
}

// sequenceRun is the live state of a running tour.
type sequenceRun struct {
	entries []SequenceEntry
	idx     int  // -1 before the first entry activates
	waiting bool // scene switch not yet accepted; the entry clock is held

	startedAt  time.Time
	entryStart time.Time
	pauseUntil time.Time
	pausedHere time.Duration // accumulated pause time within the current entry

	onProgress func(idx, total int)
	onComplete func(elapsedSeconds float64, entries []SequenceEntry)
}

// pause suspends playback. Paused spans don't count toward entry durations
// or event times.
func (r *sequenceRun) pause(now time.Time, d time.Duration) {
	if d <= 0 {
		return
	}
	r.pauseUntil = now.Add(d)
	r.pausedHere += d
}

// StartSequence begins an automated tour. Returns false — without starting
// anything — when a sequence is already running or the list is empty.
// onProgress fires as each entry activates; onComplete fires exactly once,
// with the total elapsed seconds, when the last entry's duration elapses.
// Either callback may be nil.
func (t *Timeline) StartSequence(entries []SequenceEntry, onProgress func(idx, total int), onComplete func(elapsedSeconds float64, entries []SequenceEntry)) bool {
	if t.seq != nil || len(entries) == 0 {
		return false
	}
	t.seq = &sequenceRun{
		entries:    entries,
		idx:        -1,
		startedAt:  t.now(),
		onProgress: onProgress,
		onComplete: onComplete,
	}
	return true
}

// SequenceRunning reports whether a tour is in progress.
func (t *Timeline) SequenceRunning() bool {
	return t.seq != nil
}

// StopSequence abandons a running tour without firing onComplete.
// Stopping when idle is a no-op.
func (t *Timeline) StopSequence() {
	t.seq = nil
}

// Advance drives the running sequence (if any) from the wall clock. Called
// once per frame by the App; manual timeline users call Tick directly
// instead.
func (t *Timeline) Advance() {
	r := t.seq
	if r == nil {
		return
	}
	now := t.now()
	if now.Before(r.pauseUntil) {
		return
	}

	if r.idx < 0 {
		t.activateEntry(r, 0, now)
	} else if r.waiting {
		t.tryActivate(r, now)
	}
	if r.waiting {
		return
	}

	entry := r.entries[r.idx]
	tRel := now.Sub(r.entryStart).Seconds() - r.pausedHere.Seconds()
	t.Tick(tRel)

	// Re-check: a dispatched pause takes effect immediately.
	if t.seq == nil || now.Before(r.pauseUntil) {
		return
	}

	if tRel >= entry.Duration.Seconds() {
		next := r.idx + 1
		if next >= len(r.entries) {
			t.seq = nil
			if r.onComplete != nil {
				r.onComplete(now.Sub(r.startedAt).Seconds(), r.entries)
			}
			return
		}
		t.activateEntry(r, next, now)
	}
}

// activateEntry selects the entry and attempts its scene switch.
func (t *Timeline) activateEntry(r *sequenceRun, idx int, now time.Time) {
	r.idx = idx
	r.waiting = true
	t.tryActivate(r, now)
}

// tryActivate attempts the pending entry's scene switch. While the container
// cannot accept it yet — the scene may still be initializing, or a previous
// transition may still be running — the entry clock is held and the switch is
// retried on the next Advance. Once accepted, the entry's keyframes and
// events install and its clock starts.
func (t *Timeline) tryActivate(r *sequenceRun, now time.Time) {
	entry := r.entries[r.idx]
	if t.container.ActiveID() != entry.SceneID {
		err := t.container.ChangeScene(entry.SceneID, ChangeOptions{
			Kind:     entry.Transition,
			Duration: entry.TransitionDuration,
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrSceneNotReady), errors.Is(err, ErrTransitionActive):
			return
		default:
			// Unknown or failed scenes never become activatable; play the
			// entry over whatever is active rather than stalling the tour.
			warnf("sequence entry %d: %v", r.idx, err)
		}
	}

	r.waiting = false
	r.entryStart = now
	r.pausedHere = 0
	if err := t.SetCameraKeyframes(entry.Keyframes); err != nil {
		warnf("sequence entry %d keyframes: %v", r.idx, err)
	}
	if err := t.SetEvents(entry.Events); err != nil {
		warnf("sequence entry %d events: %v", r.idx, err)
	}
	if r.onProgress != nil {
		r.onProgress(r.idx, len(r.entries))
	}
}
