package clip

import (
	"fmt"
	"image"
	"sync/atomic"
)

// RoundRadius selects the corner rounding applied to the render-ready copy.
type RoundRadius int

const (
	// RoundNone leaves the frame rectangular.
	RoundNone RoundRadius = iota
	// RoundSmall rounds corners by 4 logical pixels.
	RoundSmall
	// RoundLarge rounds corners by 8 logical pixels.
	RoundLarge
	// RoundEllipse clips the frame to an ellipse.
	RoundEllipse
)

// String returns a human-readable label for the rounding style.
func (r RoundRadius) String() string {
	switch r {
	case RoundNone:
		return "None"
	case RoundSmall:
		return "Small"
	case RoundLarge:
		return "Large"
	case RoundEllipse:
		return "Ellipse"
	default:
		return fmt.Sprintf("RoundRadius(%d)", int(r))
	}
}

// FrameRequest describes the geometry of the render-ready frame copy:
// the target frame size, the outer bounding box it is centered in, and
// the corner rounding style. Factor is the device pixel ratio; a request
// is valid once a positive factor is set.
type FrameRequest struct {
	Factor int
	FrameW int
	FrameH int
	OuterW int
	OuterH int
	Radius RoundRadius
}

// Valid reports whether a geometry request has been supplied.
func (r FrameRequest) Valid() bool { return r.Factor > 0 }

// Equal reports whether two requests describe the same geometry.
func (r FrameRequest) Equal(other FrameRequest) bool { return r == other }

// Frame is one slot of a session's triple buffer: the decoded image, a
// render-ready copy sized per the last geometry request, and the
// presentation position within the stream.
type Frame struct {
	// Original is the decoded frame as produced by the engine.
	Original image.Image

	// Prepared is the render-ready copy matching Request, built lazily
	// on the paint path and rebuilt when the request changes.
	Prepared *image.RGBA

	// Request is the geometry the Prepared copy was built for.
	Request FrameRequest

	// PositionMs is the presentation position within the stream.
	// Counted so that it never exceeds the total duration.
	PositionMs int64

	displayed atomic.Bool
}

// Displayed reports whether the paint path has shown this frame.
func (f *Frame) Displayed() bool { return f.displayed.Load() }

func (f *Frame) markDisplayed() { f.displayed.Store(true) }
