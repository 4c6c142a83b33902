// Package clip implements low-latency playback of short looping animations
// and video clips inside a message feed.
//
// # Core Components
//
// The playback core consists of four cooperating pieces:
//
//   - [FrameBuffer]: a lock-free triple buffer handing decoded frames from
//     one producer goroutine to any number of non-blocking consumers. The
//     hand-off is encoded in a single atomic step counter; once a slot is
//     exposed through [FrameBuffer.FrameToShow] its contents stay immutable
//     until the consumer advances.
//
//   - [Reader]: one playback session. It owns a FrameBuffer, drives an
//     opaque decode [Engine] through an init/steady/terminal state machine,
//     and tracks timing, pause, and loop state.
//
//   - [Manager]: a scheduler multiplexing many sessions over a single
//     worker goroutine. Each tick it steps the sessions that are due,
//     reduces the decode outcome into a registry action, and reschedules
//     at the earliest pending frame deadline. Run several Managers for
//     true parallelism or priority isolation.
//
//   - Notifications: decode outcomes (repaint needed, copy frame, error,
//     finished) reach the owner through a per-session callback invoked on
//     the worker goroutine in decode-completion order.
//
// # Basic Usage
//
// Create an engine for the clip bytes, wrap it in a Reader, and register
// the Reader with a Manager:
//
//	engine, err := decode.NewGIF(data)
//	if err != nil { ... }
//
//	notify, events := clip.ChannelCallback(16)
//	reader := clip.NewReader(engine, notify, clip.WithAutoplay())
//
//	manager.Append(reader, int64(len(data)))
//	reader.Start(factor, width, height, outerW, outerH, clip.RoundSmall)
//
// The paint path samples the latest frame without blocking:
//
//	img := reader.Current(factor, width, height, outerW, outerH, clip.RoundSmall, nowMs)
//
// When the owner is done, reader.Stop() removes the session from its
// Manager; the Manager acknowledges removal before the Reader may be
// released. Sessions that reach [StateError] or [StateFinished] are final;
// start a new session to play the clip again.
package clip
