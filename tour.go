package zoetrope

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tour is a scripted multi-scene run loaded from YAML. Entries play in
// order through Timeline.StartSequence.
type Tour struct {
	Title   string
	Entries []SequenceEntry
}

// tourFile is the on-disk YAML shape.
type tourFile struct {
	Title   string      `yaml:"title"`
	Entries []tourEntry `yaml:"entries"`
}

type tourEntry struct {
	Scene        string         `yaml:"scene"`
	DurationMS   int            `yaml:"duration_ms"`
	Transition   string         `yaml:"transition"`
	TransitionMS int            `yaml:"transition_ms"`
	Keyframes    []tourKeyframe `yaml:"keyframes"`
	Events       []tourEvent    `yaml:"events"`
}

type tourKeyframe struct {
	T        float64 `yaml:"t"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Zoom     float64 `yaml:"zoom"`
	Rotation float64 `yaml:"rotation"`
	Easing   string  `yaml:"easing"`
}

type tourEvent struct {
	T         float64        `yaml:"t"`
	Command   string         `yaml:"command"`
	Text      string         `yaml:"text"`
	Effect    string         `yaml:"effect"`
	Name      string         `yaml:"name"`
	Args      map[string]any `yaml:"args"`
	Intensity float64        `yaml:"intensity"`
	X         float64        `yaml:"x"`
	Y         float64        `yaml:"y"`
	Duration  float64        `yaml:"duration"`
}

// LoadTour reads and validates a tour script from path.
func LoadTour(path string) (*Tour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTour(data)
}

// ParseTour decodes and validates a tour script. Every transition kind,
// command name and easing name is resolved here so a bad script fails at
// load time rather than mid-playback.
func ParseTour(data []byte) (*Tour, error) {
	var f tourFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("zoetrope: parse tour: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("zoetrope: tour has no entries")
	}

	tour := &Tour{Title: f.Title, Entries: make([]SequenceEntry, 0, len(f.Entries))}
	for i, e := range f.Entries {
		entry, err := e.toSequenceEntry()
		if err != nil {
			return nil, fmt.Errorf("zoetrope: tour entry %d: %w", i, err)
		}
		tour.Entries = append(tour.Entries, entry)
	}
	return tour, nil
}

func (e tourEntry) toSequenceEntry() (SequenceEntry, error) {
	var out SequenceEntry
	if e.Scene == "" {
		return out, fmt.Errorf("missing scene")
	}
	if e.DurationMS <= 0 {
		return out, fmt.Errorf("scene %q: duration_ms must be positive", e.Scene)
	}
	kind, err := ParseTransitionKind(e.Transition)
	if err != nil {
		return out, fmt.Errorf("scene %q: %w", e.Scene, err)
	}

	out.SceneID = e.Scene
	out.Duration = time.Duration(e.DurationMS) * time.Millisecond
	out.Transition = kind
	out.TransitionDuration = time.Duration(e.TransitionMS) * time.Millisecond

	for j, k := range e.Keyframes {
		if _, err := EasingByName(k.Easing); err != nil {
			return out, fmt.Errorf("keyframe %d: %w", j, err)
		}
		if k.T < 0 {
			return out, fmt.Errorf("keyframe %d: negative time %g", j, k.T)
		}
		zoom := k.Zoom
		if zoom == 0 {
			zoom = 1
		}
		out.Keyframes = append(out.Keyframes, Keyframe{
			Time:     k.T,
			X:        k.X,
			Y:        k.Y,
			Zoom:     zoom,
			Rotation: k.Rotation,
			Easing:   k.Easing,
		})
	}

	for j, ev := range e.Events {
		cmd, err := ParseCommand(ev.Command)
		if err != nil {
			return out, fmt.Errorf("event %d: %w", j, err)
		}
		if ev.T < 0 {
			return out, fmt.Errorf("event %d: negative time %g", j, ev.T)
		}
		switch cmd {
		case CmdShowText:
			if ev.Text == "" {
				return out, fmt.Errorf("event %d: show_text without text", j)
			}
		case CmdEnableEffect, CmdDisableEffect:
			if ev.Effect == "" {
				return out, fmt.Errorf("event %d: %s without effect", j, cmd)
			}
		case CmdScene:
			if ev.Name == "" {
				return out, fmt.Errorf("event %d: scene command without name", j)
			}
		case CmdCameraShake:
			if ev.Intensity <= 0 || ev.Duration <= 0 {
				return out, fmt.Errorf("event %d: camera_shake needs positive intensity and duration", j)
			}
		case CmdScrollTo:
			if ev.Duration <= 0 {
				return out, fmt.Errorf("event %d: scroll_to needs positive duration", j)
			}
		case CmdPause:
			if ev.Duration <= 0 {
				return out, fmt.Errorf("event %d: pause needs positive duration", j)
			}
		}
		out.Events = append(out.Events, Event{
			Time:      ev.T,
			Cmd:       cmd,
			Text:      ev.Text,
			Effect:    ev.Effect,
			Name:      ev.Name,
			Args:      ev.Args,
			Intensity: ev.Intensity,
			X:         ev.X,
			Y:         ev.Y,
			Duration:  ev.Duration,
		})
	}
	return out, nil
}
