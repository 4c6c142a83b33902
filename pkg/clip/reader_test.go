package clip

import (
	"errors"
	"fmt"
	"image"
	"testing"
)

// scriptEngine is a deterministic in-memory Engine for tests. Frame i
// is a solid image whose red channel is i+1, presented at positions[i].
type scriptEngine struct {
	w, h      int
	positions []int64
	duration  int64
	audio     bool

	next    int
	calls   int
	failAt  int // fail the Nth ReadNextFrame call, 0 = never
	seeks   []int64
	request FrameRequest
	closed  bool
}

func (e *scriptEngine) Dimensions() (int, int) { return e.w, e.h }

func (e *scriptEngine) SetRequest(req FrameRequest) { e.request = req }

func (e *scriptEngine) DurationMs() int64 { return e.duration }

func (e *scriptEngine) HasAudio() bool { return e.audio }

func (e *scriptEngine) Close() error { e.closed = true; return nil }

func (e *scriptEngine) ReadNextFrame(deadlineMs int64) (DecodedFrame, error) {
	e.calls++
	if e.failAt > 0 && e.calls == e.failAt {
		return DecodedFrame{}, errors.New("scripted decode failure")
	}
	if e.next >= len(e.positions) {
		return DecodedFrame{}, ErrFinished
	}
	i := e.next
	e.next = i + 1
	img := image.NewRGBA(image.Rect(0, 0, e.w, e.h))
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p] = byte(i + 1)
		img.Pix[p+3] = 0xff
	}
	return DecodedFrame{Image: img, PositionMs: e.positions[i]}, nil
}

func (e *scriptEngine) SeekTo(positionMs int64) error {
	e.seeks = append(e.seeks, positionMs)
	e.next = 0
	for e.next < len(e.positions) && e.positions[e.next] < positionMs {
		e.next++
	}
	return nil
}

func threeFrameEngine() *scriptEngine {
	return &scriptEngine{w: 8, h: 8, positions: []int64{0, 100, 200}, duration: 300}
}

func startReading(t *testing.T, r *Reader, ms int64) {
	t.Helper()
	if got := r.process(ms); got != ResultStarted {
		t.Fatalf("dimensions step = %v, want %v", got, ResultStarted)
	}
	r.Start(1, 8, 8, 8, 8, RoundNone)
	if got := r.process(ms); got != ResultCopyFrame {
		t.Fatalf("request step = %v, want %v", got, ResultCopyFrame)
	}
}

func TestReader_InitStateMachine(t *testing.T) {
	engine := threeFrameEngine()
	r := NewReader(engine, nil)

	if got := r.State(); got != StateWaitingForDimensions {
		t.Fatalf("initial state = %v, want %v", got, StateWaitingForDimensions)
	}
	if r.Ready() || r.Started() {
		t.Fatal("fresh session reports Ready or Started")
	}

	if got := r.process(0); got != ResultStarted {
		t.Fatalf("process = %v, want %v", got, ResultStarted)
	}
	if got := r.State(); got != StateWaitingForRequest {
		t.Fatalf("state = %v, want %v", got, StateWaitingForRequest)
	}
	if !r.Ready() {
		t.Fatal("Ready is false after dimensions step")
	}
	if r.Width() != 8 || r.Height() != 8 {
		t.Fatalf("dimensions = %dx%d, want 8x8", r.Width(), r.Height())
	}
	if r.DurationMs() != 300 {
		t.Fatalf("DurationMs = %d, want 300", r.DurationMs())
	}

	// No request yet: the worker just waits.
	if got := r.process(0); got != ResultWait {
		t.Fatalf("process without request = %v, want %v", got, ResultWait)
	}

	r.Start(1, 8, 8, 8, 8, RoundNone)
	if got := r.process(0); got != ResultCopyFrame {
		t.Fatalf("process with request = %v, want %v", got, ResultCopyFrame)
	}
	if got := r.State(); got != StateReading {
		t.Fatalf("state = %v, want %v", got, StateReading)
	}
	if !r.Started() {
		t.Fatal("Started is false after first frame")
	}
	if engine.request.FrameW != 8 {
		t.Fatalf("engine did not receive the geometry request: %+v", engine.request)
	}
}

// presented samples the paint path and reports the red channel of the
// shown frame, which encodes the frame number.
func presented(t *testing.T, r *Reader, ms int64) int {
	t.Helper()
	img := r.Current(1, 8, 8, 8, 8, RoundNone, ms)
	if img == nil {
		t.Fatalf("Current(%d) = nil", ms)
	}
	rgba := img.(*image.RGBA)
	return int(rgba.Pix[0])
}

// A 3-frame looping clip with positions {0,100,200} driven at ticks
// 0,100,200,300 presents frame0, frame1, frame2, frame0.
func TestReader_LoopingPlaybackSequence(t *testing.T) {
	engine := threeFrameEngine()
	r := NewReader(engine, nil, WithAutoplay())
	startReading(t, r, 0)

	if got := presented(t, r, 0); got != 1 {
		t.Fatalf("t=0: presented frame %d, want 1", got)
	}

	// Decode-ahead of frame 1; due at t=100.
	if got := r.process(0); got != ResultWait {
		t.Fatalf("t=0 decode-ahead = %v, want %v", got, ResultWait)
	}
	if got := r.process(100); got != ResultRepaint {
		t.Fatalf("t=100 publish = %v, want %v", got, ResultRepaint)
	}
	if got := presented(t, r, 100); got != 2 {
		t.Fatalf("t=100: presented frame %d, want 2", got)
	}
	if got := r.PositionMs(); got != 100 {
		t.Fatalf("t=100: position = %d, want 100", got)
	}

	if got := r.process(100); got != ResultWait {
		t.Fatalf("t=100 decode-ahead = %v, want %v", got, ResultWait)
	}
	if got := r.process(200); got != ResultRepaint {
		t.Fatalf("t=200 publish = %v, want %v", got, ResultRepaint)
	}
	if got := presented(t, r, 200); got != 3 {
		t.Fatalf("t=200: presented frame %d, want 3", got)
	}

	// End of stream: the looping session seeks back and schedules
	// frame 0 one duration later instead of finishing.
	if got := r.process(200); got != ResultWait {
		t.Fatalf("t=200 loop restart = %v, want %v", got, ResultWait)
	}
	if len(engine.seeks) != 1 || engine.seeks[0] != 0 {
		t.Fatalf("loop restart seeks = %v, want [0]", engine.seeks)
	}
	if got := r.process(300); got != ResultRepaint {
		t.Fatalf("t=300 publish = %v, want %v", got, ResultRepaint)
	}
	if got := presented(t, r, 300); got != 1 {
		t.Fatalf("t=300: presented frame %d, want 1 (loop restart)", got)
	}
	if got := r.State(); got != StateReading {
		t.Fatalf("looping session state = %v, want %v", got, StateReading)
	}
}

func TestReader_NonLoopingFinishes(t *testing.T) {
	engine := &scriptEngine{w: 8, h: 8, positions: []int64{0}, duration: 100}
	r := NewReader(engine, nil)
	startReading(t, r, 0)
	presented(t, r, 0)

	if got := r.process(0); got != ResultFinished {
		t.Fatalf("process after last frame = %v, want %v", got, ResultFinished)
	}
	if got := r.State(); got != StateFinished {
		t.Fatalf("state = %v, want %v", got, StateFinished)
	}
	// Terminal states reject further work but buffered frames drain.
	if got := r.process(100); got != ResultFinished {
		t.Fatalf("process in terminal state = %v, want %v", got, ResultFinished)
	}
	if img := r.Current(1, 8, 8, 8, 8, RoundNone, 100); img == nil {
		t.Fatal("buffered frame not drainable after Finished")
	}
}

func TestReader_DecodeErrorIsTerminal(t *testing.T) {
	defer silenceErrorHandler()()

	engine := threeFrameEngine()
	engine.failAt = 2 // first call learns dimensions; second fails
	r := NewReader(engine, nil)
	startReading(t, r, 0)

	if got := r.process(0); got != ResultError {
		t.Fatalf("failing decode step = %v, want %v", got, ResultError)
	}
	if got := r.State(); got != StateError {
		t.Fatalf("state = %v, want %v", got, StateError)
	}
	// Never retried: the engine sees no further reads.
	calls := engine.calls
	for i := 0; i < 3; i++ {
		if got := r.process(int64(100 * i)); got != ResultError {
			t.Fatalf("process in error state = %v, want %v", got, ResultError)
		}
	}
	if engine.calls != calls {
		t.Fatalf("engine read %d more times after terminal error", engine.calls-calls)
	}
}

func TestReader_PauseOnlyWithAudio(t *testing.T) {
	silent := threeFrameEngine()
	r := NewReader(silent, nil)
	startReading(t, r, 0)
	r.PauseResumeVideo()
	if r.VideoPaused() {
		t.Fatal("audio-less session accepted pause")
	}

	voiced := threeFrameEngine()
	voiced.audio = true
	r = NewReader(voiced, nil)
	startReading(t, r, 0)
	r.PauseResumeVideo()
	if !r.VideoPaused() {
		t.Fatal("pause flag not set")
	}
	if got := r.process(0); got != ResultPaused {
		t.Fatalf("paused process = %v, want %v", got, ResultPaused)
	}
	r.PauseResumeVideo()
	if r.VideoPaused() {
		t.Fatal("pause flag not cleared")
	}
	if got := r.process(0); got == ResultPaused {
		t.Fatal("resumed session still reports Paused")
	}
}

func TestReader_PositionClampedToDuration(t *testing.T) {
	engine := &scriptEngine{w: 8, h: 8, positions: []int64{0, 450}, duration: 300}
	r := NewReader(engine, nil)
	startReading(t, r, 0)
	presented(t, r, 0)

	r.process(0)   // decode-ahead of the overlong frame
	r.process(500) // publish
	presented(t, r, 500)
	if got := r.PositionMs(); got != 300 {
		t.Fatalf("position = %d, want clamp at duration 300", got)
	}
}

// Owners may paint the cover the moment it is visible, while the worker
// is still accepting the geometry request. The cover slot must not be
// written after its publish; run with -race to check the claim.
func TestReader_PaintDuringRequestAcceptance(t *testing.T) {
	engine := &scriptEngine{w: 8, h: 8, positions: []int64{0, 100}, duration: 200}
	r := NewReader(engine, nil, WithSeek(100))
	if got := r.process(0); got != ResultStarted {
		t.Fatalf("dimensions step = %v, want %v", got, ResultStarted)
	}
	r.Start(1, 8, 8, 8, 8, RoundNone)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if r.Current(1, 8, 8, 8, 8, RoundNone, 0) == nil {
				t.Error("cover vanished during startup")
				return
			}
			_ = r.PositionMs()
		}
	}()

	if got := r.process(0); got != ResultCopyFrame {
		t.Fatalf("request step = %v, want %v", got, ResultCopyFrame)
	}
	<-done
	if got := r.PositionMs(); got != 100 {
		t.Fatalf("cover position = %d, want the seek position 100", got)
	}
}

func TestReader_SeekStart(t *testing.T) {
	engine := threeFrameEngine()
	r := NewReader(engine, nil, WithSeek(100))
	startReading(t, r, 1000)

	if len(engine.seeks) != 1 || engine.seeks[0] != 100 {
		t.Fatalf("seeks = %v, want [100]", engine.seeks)
	}
	if got := r.SeekPositionMs(); got != 100 {
		t.Fatalf("SeekPositionMs = %d, want 100", got)
	}
	// The cover shows at the seek position; the seeked frame follows
	// immediately, being already due.
	presented(t, r, 1000)
	if got := r.PositionMs(); got != 100 {
		t.Fatalf("cover position = %d, want 100", got)
	}
	if got := r.process(1000); got != ResultRepaint {
		t.Fatalf("seeked frame publish = %v, want %v", got, ResultRepaint)
	}
	if got := presented(t, r, 1000); got != 2 {
		t.Fatalf("presented frame %d, want 2 (frame at 100ms)", got)
	}
}

func TestReader_CurrentRerendersOnGeometryChange(t *testing.T) {
	engine := threeFrameEngine()
	r := NewReader(engine, nil)
	startReading(t, r, 0)

	small := r.Current(1, 8, 8, 8, 8, RoundNone, 0)
	if got := small.Bounds(); got.Dx() != 8 || got.Dy() != 8 {
		t.Fatalf("bounds = %v, want 8x8", got)
	}
	big := r.Current(1, 16, 16, 20, 20, RoundSmall, 0)
	if got := big.Bounds(); got.Dx() != 20 || got.Dy() != 20 {
		t.Fatalf("bounds = %v, want outer 20x20", got)
	}
}

func TestReader_FrameOriginalDetaches(t *testing.T) {
	engine := threeFrameEngine()
	r := NewReader(engine, nil)

	if img := r.FrameOriginal(); img != nil {
		t.Fatal("FrameOriginal before first frame should be nil")
	}
	startReading(t, r, 0)

	img := r.FrameOriginal()
	if img == nil {
		t.Fatal("FrameOriginal = nil after first frame")
	}
	// Mutating the copy must not touch the buffered frame.
	img.(*image.RGBA).Pix[0] = 0xEE
	if got := presented(t, r, 0); got != 1 {
		t.Fatalf("buffered frame changed through FrameOriginal copy: %d", got)
	}
}

func ExampleReader() {
	engine := &scriptEngine{w: 8, h: 8, positions: []int64{0, 100}, duration: 200}

	notify, events := ChannelCallback(16)
	reader := NewReader(engine, notify, WithAutoplay())

	manager := NewManager()
	defer manager.Finish()

	manager.Append(reader, 1024)
	reader.Start(1, 8, 8, 8, 8, RoundSmall)

	n := <-events
	fmt.Println(n.Kind == NotificationRepaint || n.Kind == NotificationCopyFrame)
	reader.Stop()
	// Output: true
}
