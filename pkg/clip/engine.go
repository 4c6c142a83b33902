package clip

import (
	"errors"
	"image"
)

// Sentinel results for [Engine.ReadNextFrame].
var (
	// ErrFinished reports that the stream has no more frames.
	ErrFinished = errors.New("clip: stream finished")

	// ErrNotReady reports that no frame could be produced before the
	// deadline; the caller should retry on a later tick.
	ErrNotReady = errors.New("clip: frame not ready")
)

// DecodedFrame is one frame produced by an engine.
type DecodedFrame struct {
	// Image is the decoded frame at native size.
	Image image.Image

	// PositionMs is the frame's presentation position within the
	// stream, never exceeding the stream duration.
	PositionMs int64
}

// Engine is the opaque decode/demux collaborator behind a session.
// A Manager worker goroutine is the only caller of its methods after the
// session is registered; implementations need not be safe for concurrent
// use. Retrieval of the source bytes happens before an Engine is built
// and is not this package's concern.
type Engine interface {
	// Dimensions reports the native frame size. Valid after the first
	// successful ReadNextFrame.
	Dimensions() (width, height int)

	// SetRequest supplies the geometry request frames will be rendered
	// for. Engines that pre-scale may use it; others can ignore it.
	SetRequest(req FrameRequest)

	// ReadNextFrame decodes the next frame, spending at most until
	// deadlineMs in the session timebase. It returns ErrFinished at end
	// of stream, ErrNotReady when the deadline ran out, and any other
	// error for a malformed or unsupported stream.
	ReadNextFrame(deadlineMs int64) (DecodedFrame, error)

	// DurationMs reports the total stream duration, or 0 if unknown.
	DurationMs() int64

	// HasAudio reports whether the stream carries an audio track.
	HasAudio() bool

	// SeekTo repositions the stream so the next ReadNextFrame produces
	// the frame at or after positionMs.
	SeekTo(positionMs int64) error

	// Close releases decoder resources. The session owner calls it
	// after its Manager acknowledged removal.
	Close() error
}
