// Package decode provides a reference clip.Engine over animated GIF
// streams, plus attribute probing for owners deciding whether to start
// a playback session at all. Real video engines plug in behind the same
// interface; nothing in the core depends on this package.
package decode

import (
	"bytes"
	"fmt"
	"image"
	gifcodec "image/gif"

	"golang.org/x/image/draw"

	"github.com/go-drift/clip/pkg/clip"
)

// gifDelayUnitMs converts GIF delay units (hundredths of a second).
const gifDelayUnitMs = 10

// Attributes describe a clip source before a session is created.
type Attributes struct {
	Width      int
	Height     int
	Animated   bool
	DurationMs int64
	FrameCount int
	// Cover is the first frame, usable as a static preview.
	Cover image.Image
}

// ReadAttributes probes GIF data without creating an engine.
func ReadAttributes(data []byte) (Attributes, error) {
	g, err := gifcodec.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return Attributes{}, fmt.Errorf("decode: probing gif: %w", err)
	}
	if len(g.Image) == 0 {
		return Attributes{}, fmt.Errorf("decode: gif has no frames")
	}
	attrs := Attributes{
		Width:      logicalWidth(g),
		Height:     logicalHeight(g),
		Animated:   len(g.Image) > 1,
		FrameCount: len(g.Image),
	}
	for _, d := range g.Delay {
		attrs.DurationMs += int64(d) * gifDelayUnitMs
	}
	cover := image.NewRGBA(image.Rect(0, 0, attrs.Width, attrs.Height))
	draw.Draw(cover, g.Image[0].Bounds(), g.Image[0], g.Image[0].Bounds().Min, draw.Over)
	attrs.Cover = cover
	return attrs, nil
}

// GIF is a clip.Engine decoding animated GIF data held in memory.
// All frames are demuxed up front; each ReadNextFrame composites one
// frame over the running canvas, honoring per-frame disposal. Not safe
// for concurrent use; a Manager worker is the only intended caller.
type GIF struct {
	g          *gifcodec.GIF
	width      int
	height     int
	durationMs int64
	// positions[i] is the presentation position of frame i.
	positions []int64

	next    int
	canvas  *image.RGBA
	prev    *image.RGBA
	request clip.FrameRequest
}

// NewGIF builds an engine from GIF bytes.
func NewGIF(data []byte) (*GIF, error) {
	g, err := gifcodec.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: parsing gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("decode: gif has no frames")
	}
	e := &GIF{
		g:         g,
		width:     logicalWidth(g),
		height:    logicalHeight(g),
		positions: make([]int64, len(g.Image)),
	}
	var pos int64
	for i := range g.Image {
		e.positions[i] = pos
		if i < len(g.Delay) {
			pos += int64(g.Delay[i]) * gifDelayUnitMs
		}
	}
	e.durationMs = pos
	e.canvas = image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	return e, nil
}

// Dimensions reports the logical screen size of the GIF.
func (e *GIF) Dimensions() (int, int) { return e.width, e.height }

// SetRequest records the geometry request. The core prepares the
// render copy itself; the engine keeps decoding at native size.
func (e *GIF) SetRequest(req clip.FrameRequest) { e.request = req }

// DurationMs reports the total animation length.
func (e *GIF) DurationMs() int64 { return e.durationMs }

// HasAudio reports false; GIF streams carry no audio.
func (e *GIF) HasAudio() bool { return false }

// ReadNextFrame composites and returns the next frame. The in-memory
// decoder never misses a deadline, so ErrNotReady is never returned.
func (e *GIF) ReadNextFrame(deadlineMs int64) (clip.DecodedFrame, error) {
	if e.next >= len(e.g.Image) {
		return clip.DecodedFrame{}, clip.ErrFinished
	}
	i := e.next
	src := e.g.Image[i]

	disposal := byte(gifcodec.DisposalNone)
	if i < len(e.g.Disposal) {
		disposal = e.g.Disposal[i]
	}
	if disposal == gifcodec.DisposalPrevious {
		e.prev = cloneRGBA(e.canvas)
	}

	draw.Draw(e.canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
	out := cloneRGBA(e.canvas)

	switch disposal {
	case gifcodec.DisposalBackground:
		clearRect(e.canvas, src.Bounds())
	case gifcodec.DisposalPrevious:
		if e.prev != nil {
			e.canvas = e.prev
			e.prev = nil
		}
	}

	e.next = i + 1
	return clip.DecodedFrame{Image: out, PositionMs: e.positions[i]}, nil
}

// SeekTo repositions so the next frame is the one presented at or after
// positionMs. Seeking replays composition from the start, which is
// cheap at sticker and preview sizes.
func (e *GIF) SeekTo(positionMs int64) error {
	e.next = 0
	e.prev = nil
	e.canvas = image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	if positionMs <= 0 {
		return nil
	}
	for e.next < len(e.positions) && e.positions[e.next] < positionMs {
		if _, err := e.ReadNextFrame(0); err != nil {
			return fmt.Errorf("decode: seeking to %dms: %w", positionMs, err)
		}
	}
	return nil
}

// Close releases nothing; the engine holds only Go memory.
func (e *GIF) Close() error {
	e.g = nil
	e.canvas = nil
	e.prev = nil
	return nil
}

func logicalWidth(g *gifcodec.GIF) int {
	if g.Config.Width > 0 {
		return g.Config.Width
	}
	return g.Image[0].Bounds().Dx()
}

func logicalHeight(g *gifcodec.GIF) int {
	if g.Config.Height > 0 {
		return g.Config.Height
	}
	return g.Image[0].Bounds().Dy()
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := range row {
			row[i] = 0
		}
	}
}
