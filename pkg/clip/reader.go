package clip

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	cliperrors "github.com/go-drift/clip/pkg/errors"
)

// State tags a session's position in its lifecycle.
type State int

const (
	// StateWaitingForDimensions: the engine has not reported the native
	// frame size yet.
	StateWaitingForDimensions State = iota
	// StateWaitingForRequest: the native size is known; the owner has
	// not supplied a geometry request yet.
	StateWaitingForRequest
	// StateWaitingForFirstFrame: the request was accepted; the first
	// frame at that geometry is not published yet.
	StateWaitingForFirstFrame
	// StateReading: steady playback.
	StateReading
	// StateError: terminal; the stream is malformed or unsupported.
	StateError
	// StateFinished: terminal; the stream ended.
	StateFinished
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateWaitingForDimensions:
		return "WaitingForDimensions"
	case StateWaitingForRequest:
		return "WaitingForRequest"
	case StateWaitingForFirstFrame:
		return "WaitingForFirstFrame"
	case StateReading:
		return "Reading"
	case StateError:
		return "Error"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	terminalNone int32 = iota
	terminalError
	terminalFinished
)

// defaultUpdateDelayMs is the wake interval used when no frame deadline
// is pending: waiting for a geometry request, or for the owner to paint
// a published frame.
const defaultUpdateDelayMs = 100

// Reader is one playback session for a single media clip.
//
// A Reader is owned jointly by the creating owner (which holds the
// handle and paints from it) and by the Manager it is registered with
// (which drives decoding on its worker goroutine). The owner must keep
// the Reader alive until its Manager no longer carries it: Stop marks
// the session for removal and the registry entry is gone once
// [Manager.Carries] reports false (or the error/finished notification
// arrived). Terminal states are final; to play the clip again, create a
// new Reader.
//
// Methods split into two groups. Consumer-facing calls (Current, Ready,
// Started, State, position queries, PauseResumeVideo) never block and
// tolerate a stale but internally consistent frame; all of them may be
// called from any goroutine at arbitrary rate, except that Current and
// FrameOriginal belong to a single paint goroutine at a time (they
// rebuild the render-ready copy in place). The unexported process step
// is called only by the Manager worker.
type Reader struct {
	engine   Engine
	callback Callback
	buffer   *FrameBuffer

	playID   uuid.UUID
	autoplay bool
	seekMs   int64

	manager atomic.Pointer[Manager]

	terminal atomic.Int32
	width    atomic.Int32
	height   atomic.Int32

	// durationMs and hasAudio are written by the worker before the
	// step counter leaves waitingForDimensionsStep; readers observe
	// them only after loading the counter.
	durationMs int64
	hasAudio   bool

	positionMs atomic.Int64

	request       atomic.Pointer[FrameRequest]
	videoPaused   atomic.Bool
	autoPausedGif atomic.Bool

	// Worker-only fields below; never touched from consumer calls.
	pendingPublish bool  // write slot decoded but not yet published
	pendingDueMs   int64 // when the pending frame should show
	baselineMs     int64 // wall-clock origin of stream position 0
	framesRead     int64
}

// ReaderOption configures a Reader at construction.
type ReaderOption func(*Reader)

// WithAutoplay makes the session loop: on Finished it seeks back to the
// start instead of terminating.
func WithAutoplay() ReaderOption {
	return func(r *Reader) { r.autoplay = true }
}

// WithSeek starts playback at the given stream position instead of 0.
func WithSeek(positionMs int64) ReaderOption {
	return func(r *Reader) { r.seekMs = positionMs }
}

// NewReader creates a session around an engine. The callback receives
// this session's notifications from the Manager worker goroutine, in
// decode-completion order, and must not block. A nil callback is valid
// for owners that only poll.
func NewReader(engine Engine, callback Callback, opts ...ReaderOption) *Reader {
	r := &Reader{
		engine:   engine,
		callback: callback,
		buffer:   newFrameBuffer(),
		playID:   uuid.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlayID identifies this playback for external correlation.
func (r *Reader) PlayID() uuid.UUID { return r.playID }

// Autoplay reports whether the session loops.
func (r *Reader) Autoplay() bool { return r.autoplay }

// SeekPositionMs reports the position playback was started from.
func (r *Reader) SeekPositionMs() int64 { return r.seekMs }

// State reports the session's lifecycle state.
func (r *Reader) State() State {
	switch r.terminal.Load() {
	case terminalError:
		return StateError
	case terminalFinished:
		return StateFinished
	}
	switch r.buffer.loadStep() {
	case waitingForDimensionsStep:
		return StateWaitingForDimensions
	case waitingForRequestStep:
		return StateWaitingForRequest
	case waitingForFirstFrameStep:
		return StateWaitingForFirstFrame
	default:
		return StateReading
	}
}

// Started reports whether a geometry request was accepted.
func (r *Reader) Started() bool {
	step := r.buffer.loadStep()
	return step == waitingForFirstFrameStep || step >= 0
}

// Ready reports whether the native dimensions are known.
func (r *Reader) Ready() bool {
	return r.buffer.loadStep() != waitingForDimensionsStep
}

// Width reports the native frame width, or 0 before Ready.
func (r *Reader) Width() int { return int(r.width.Load()) }

// Height reports the native frame height, or 0 before Ready.
func (r *Reader) Height() int { return int(r.height.Load()) }

// HasAudio reports whether the clip carries audio. Valid after Ready.
func (r *Reader) HasAudio() bool {
	if !r.Ready() {
		return false
	}
	return r.hasAudio
}

// DurationMs reports the clip duration. Valid after Ready.
func (r *Reader) DurationMs() int64 {
	if !r.Ready() {
		return 0
	}
	return r.durationMs
}

// PositionMs reports the presentation position of the last shown frame.
func (r *Reader) PositionMs() int64 { return r.positionMs.Load() }

// VideoPaused reports whether audio-carrying playback is paused.
func (r *Reader) VideoPaused() bool { return r.videoPaused.Load() }

// PauseResumeVideo toggles the pause flag for clips with audio. The
// flag is independent from the frame pipeline: it never synchronizes
// with the producer or consumers, it only changes what the next decode
// step does. Clips without audio ignore it.
func (r *Reader) PauseResumeVideo() {
	if !r.HasAudio() {
		return
	}
	paused := !r.videoPaused.Load()
	r.videoPaused.Store(paused)
	if m := r.manager.Load(); m != nil {
		m.Update(r)
	}
}

// AutoPausedGif reports whether the owner auto-paused an animation
// (typically because its widget scrolled offscreen).
func (r *Reader) AutoPausedGif() bool { return r.autoPausedGif.Load() }

// SetAutoPausedGif records the owner's auto-pause decision.
func (r *Reader) SetAutoPausedGif(paused bool) { r.autoPausedGif.Store(paused) }

// Start supplies the geometry request: target frame size, outer
// bounding box, and rounding style, in device pixels at the owner's
// pixel factor. It posts the request to the session's Manager and
// returns immediately; the first frame arrives asynchronously with a
// copy-frame notification. Calling Start again with new geometry is
// allowed; the paint path re-renders at the newest request.
func (r *Reader) Start(factor, frameW, frameH, outerW, outerH int, radius RoundRadius) {
	req := FrameRequest{
		Factor: factor,
		FrameW: frameW,
		FrameH: frameH,
		OuterW: outerW,
		OuterH: outerH,
		Radius: radius,
	}
	r.request.Store(&req)
	if m := r.manager.Load(); m != nil {
		m.Start(r)
	}
}

// Stop marks the session for removal from its Manager. It returns
// immediately; removal is acknowledged when Carries reports false. An
// in-flight decode step may still complete, but its result is
// discarded. Stopping an unregistered session is a no-op.
func (r *Reader) Stop() {
	if m := r.manager.Load(); m != nil {
		m.Stop(r)
	}
}

// Current returns the renderable image for the paint path, or nil if no
// frame is ready. It never blocks: it samples the most recently
// published frame, rebuilding the render-ready copy only when the
// geometry request changed, marks the frame displayed, and acknowledges
// it so the decode worker may proceed.
func (r *Reader) Current(factor, frameW, frameH, outerW, outerH int, radius RoundRadius, nowMs int64) image.Image {
	frame, _ := r.buffer.FrameToShow()
	if frame == nil || frame.Original == nil {
		return nil
	}
	req := FrameRequest{
		Factor: factor,
		FrameW: frameW,
		FrameH: frameH,
		OuterW: outerW,
		OuterH: outerH,
		Radius: radius,
	}
	if frame.Prepared == nil || !frame.Request.Equal(req) {
		frame.Prepared = prepareFrame(frame.Original, req)
		frame.Request = req
	}
	img := frame.Prepared
	r.positionMs.Store(frame.PositionMs)
	frame.markDisplayed()
	if r.buffer.consumerTurn() {
		r.buffer.AdvanceShow()
		if m := r.manager.Load(); m != nil {
			m.Update(r)
		}
	}
	return img
}

// FrameOriginal returns a detached copy of the undecorated decoded
// frame, or nil if none is ready.
func (r *Reader) FrameOriginal() image.Image {
	frame, _ := r.buffer.FrameToShow()
	if frame == nil || frame.Original == nil {
		return nil
	}
	b := frame.Original.Bounds()
	dst := image.NewRGBA(b)
	draw.Copy(dst, b.Min, frame.Original, b, draw.Src, nil)
	return dst
}

// CurrentDisplayed reports whether the shown frame reached the screen.
// True when no frame is ready, so owners treat a fresh session as
// having nothing outstanding to paint.
func (r *Reader) CurrentDisplayed() bool {
	frame, _ := r.buffer.FrameToShow()
	if frame == nil {
		return true
	}
	return frame.Displayed()
}

// notify delivers an event through the session callback, if any.
func (r *Reader) notify(workerIndex int, kind NotificationKind) {
	if r.callback == nil {
		return
	}
	r.callback(Notification{Reader: r, WorkerIndex: workerIndex, Kind: kind})
}

// setTerminal records a final state. Further decode steps become no-ops
// and buffered frames stay drainable by the paint path.
func (r *Reader) setTerminal(t int32) {
	r.terminal.CompareAndSwap(terminalNone, t)
}

// nextWakeMs computes the next time the scheduler should step this
// session: the pending frame deadline when one exists, otherwise a
// steady poll interval.
func (r *Reader) nextWakeMs(ms int64) int64 {
	if r.pendingPublish && r.pendingDueMs > ms {
		return r.pendingDueMs
	}
	return ms + defaultUpdateDelayMs
}

// clampPosition keeps presentation positions within the duration, so a
// position can be counted from the end without ever exceeding it.
func (r *Reader) clampPosition(positionMs int64) int64 {
	if r.durationMs > 0 && positionMs > r.durationMs {
		return r.durationMs
	}
	if positionMs < 0 {
		return 0
	}
	return positionMs
}

// process runs one decode step at ms. Called only from the Manager
// worker goroutine; everything it publishes crosses to consumers
// through the buffer's step counter.
func (r *Reader) process(ms int64) ProcessResult {
	switch r.terminal.Load() {
	case terminalError:
		return ResultError
	case terminalFinished:
		return ResultFinished
	}

	step := r.buffer.loadStep()
	switch step {
	case waitingForDimensionsStep:
		return r.processDimensions(ms)
	case waitingForRequestStep:
		return r.processRequest(ms)
	case waitingForFirstFrameStep:
		return r.processFirstFrame(ms)
	default:
		return r.processRead(ms)
	}
}

// processDimensions decodes the first image to learn the native size.
func (r *Reader) processDimensions(ms int64) ProcessResult {
	frame, _ := r.buffer.FrameToWrite()
	decoded, err := r.engine.ReadNextFrame(ms + defaultUpdateDelayMs)
	if err == ErrNotReady {
		return ResultWait
	}
	if err != nil {
		return r.fail("clip.Reader.processDimensions", err)
	}
	w, h := r.engine.Dimensions()
	if w <= 0 || h <= 0 {
		return r.fail("clip.Reader.processDimensions", fmt.Errorf("engine reported %dx%d frame", w, h))
	}
	r.durationMs = r.engine.DurationMs()
	r.hasAudio = r.engine.HasAudio()
	r.width.Store(int32(w))
	r.height.Store(int32(h))
	frame.Original = decoded.Image
	// The cover presents at the configured start position. Written here,
	// before the publish below, because the slot is shared with the
	// paint path from the moment it becomes visible.
	frame.PositionMs = r.clampPosition(r.seekMs)
	r.buffer.AdvanceWrite() // -3 -> -2: size and cover become visible
	return ResultStarted
}

// processRequest waits for the owner's geometry request and accepts it.
func (r *Reader) processRequest(ms int64) ProcessResult {
	req := r.request.Load()
	if req == nil || !req.Valid() {
		return ResultWait
	}
	r.engine.SetRequest(*req)
	if r.seekMs > 0 {
		if err := r.engine.SeekTo(r.seekMs); err != nil {
			return r.fail("clip.Reader.processRequest", err)
		}
	}
	r.buffer.AdvanceShow() // -2 -> -1: request accepted
	return r.processFirstFrame(ms)
}

// processFirstFrame publishes the cover as the first shown frame. The
// cover slot is never touched once visible, not even by this step: its
// position was fixed before the -3 -> -2 publish, and when playback
// starts from a seek position the next steady step decodes the seeked
// frame into a fresh slot.
func (r *Reader) processFirstFrame(ms int64) ProcessResult {
	r.baselineMs = ms - r.clampPosition(r.seekMs)
	r.framesRead = 1
	r.buffer.AdvanceWrite() // -1 -> 0: first frame visible
	return ResultCopyFrame
}

// processRead is the steady-state step: decode ahead when the write
// slot is free, publish when the decoded frame's deadline arrives.
func (r *Reader) processRead(ms int64) ProcessResult {
	if r.hasAudio && r.videoPaused.Load() {
		return ResultPaused
	}

	if r.pendingPublish {
		if ms < r.pendingDueMs {
			return ResultWait
		}
		r.pendingPublish = false
		r.buffer.AdvanceWrite()
		return ResultRepaint
	}

	frame, _ := r.buffer.FrameToWrite()
	if frame == nil {
		// A published frame is still awaiting acknowledgement from the
		// paint path; there is no slot to decode into.
		if shown, _ := r.buffer.FrameToShow(); shown != nil && !shown.Displayed() {
			return ResultRepaint
		}
		return ResultWait
	}

	decoded, err := r.engine.ReadNextFrame(ms + defaultUpdateDelayMs)
	switch {
	case err == ErrNotReady:
		return ResultWait
	case err == ErrFinished:
		if !r.autoplay {
			r.setTerminal(terminalFinished)
			return ResultFinished
		}
		// Loop: restart at position 0 and keep reading. The baseline
		// shifts by one full pass so the restarted frame 0 lands one
		// frame interval after the final frame, not immediately.
		if serr := r.engine.SeekTo(0); serr != nil {
			return r.fail("clip.Reader.processRead", serr)
		}
		decoded, err = r.engine.ReadNextFrame(ms + defaultUpdateDelayMs)
		if err == ErrNotReady {
			return ResultWait
		}
		if err != nil {
			return r.fail("clip.Reader.processRead", err)
		}
		if r.durationMs > 0 {
			r.baselineMs += r.durationMs
		} else {
			r.baselineMs = ms
		}
	case err != nil:
		return r.fail("clip.Reader.processRead", err)
	}

	frame.Original = decoded.Image
	frame.PositionMs = r.clampPosition(decoded.PositionMs)
	frame.displayed.Store(false)
	r.framesRead++

	r.pendingDueMs = r.baselineMs + frame.PositionMs
	if r.pendingDueMs <= ms {
		r.buffer.AdvanceWrite()
		return ResultRepaint
	}
	r.pendingPublish = true
	return ResultWait
}

// fail records a terminal decode error and reports it through the
// error handler. Broken streams are never retried: presenting a broken
// stream is worse than stopping.
func (r *Reader) fail(op string, err error) ProcessResult {
	r.setTerminal(terminalError)
	cliperrors.Report(&cliperrors.ClipError{
		Op:   op,
		Kind: cliperrors.KindDecode,
		Err:  err,
	})
	return ResultError
}
