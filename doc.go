// Package zoetrope is a scene-oriented visualization framework for
// [Ebitengine].
//
// Zoetrope provides the scene lifecycle, animated scene transitions,
// layered rendering with post-processing effects, a camera with keyframed
// pose tracks, a scripted timeline and sequencing engine, and a recording
// coordinator that captures composited frames to video or image sequences.
//
// # Quick start
//
// The simplest way to get started is [Run], which builds the standard
// pipeline (surface, scene container, timeline, caption overlay) and opens
// a window:
//
//	zoetrope.Run(zoetrope.AppConfig{
//		Title: "Tour", Width: 1280, Height: 720,
//	}, func(app *zoetrope.App) error {
//		if err := app.Container().Register(ctx, "spiral", &SpiralScene{}); err != nil {
//			return err
//		}
//		return app.Container().ChangeScene("spiral", zoetrope.ChangeOptions{})
//	})
//
// For full control, implement [ebiten.Game] yourself and drive a
// [Surface], [Container] and [Timeline] directly; [App] shows the wiring.
//
// # Scenes and transitions
//
// A visualization is a set of [Scene] implementations registered with a
// [Container]. Scenes initialize asynchronously; [Container.ChangeScene]
// refuses to activate a scene whose Init has not finished. Scene switches
// play an animated [TransitionKind] (fade, slides, zooms, crossfade)
// compositing snapshots of the outgoing and incoming scenes.
//
// # Timeline and tours
//
// A [Timeline] interpolates the camera pose between [Keyframe] entries and
// dispatches typed [Event] commands (captions, effect toggles, camera
// shake, scene commands) as its cursor passes their times.
// [Timeline.StartSequence] chains entries into an automated multi-scene
// tour; [LoadTour] reads one from a YAML script.
//
// # Recording
//
// A [Recorder] samples the composited surface in lockstep with a running
// sequence, piping frames to ffmpeg through [FFmpegSink] or falling back to
// an in-memory frame buffer finalized as a PNG sequence.
//
// [Ebitengine]: https://ebitengine.org
package zoetrope
