package clip

import "sync/atomic"

// Initialization sentinels for the buffer step counter. Steady-state
// values are 0..5.
const (
	// waitingForDimensionsStep: before the engine decoded the first
	// image and reported the native frame size.
	waitingForDimensionsStep = -3
	// waitingForRequestStep: before the owner supplied a geometry
	// request for the known native size.
	waitingForRequestStep = -2
	// waitingForFirstFrameStep: before the first frame at the requested
	// geometry was published.
	waitingForFirstFrameStep = -1
)

// FrameBuffer is the triple-buffered hand-off between one producer (the
// decode worker) and any number of non-blocking consumers (paint calls).
//
// The whole protocol lives in one atomic step word. It holds either an
// initialization sentinel or a steady step 0..5, with
//
//	show index  = ((step+1)/2) % 3
//	write index = ((step+3)/2) % 3
//
// The producer fills the write slot completely, then publishes with a
// single compare-and-swap of the step; consumers load the step before
// touching slot contents, so every write happens before it can be
// observed. The two indexes differ at every steady step, so the producer
// never touches the slot most recently exposed to a consumer.
//
// Even steps belong to the producer: the write slot is free and
// AdvanceWrite publishes it, which also rotates the show index onto the
// slot just written. Odd steps belong to the consumer: a published frame
// is awaiting display, FrameToWrite reports no slot (this caps producer
// get-ahead and provides flow control), and AdvanceShow acknowledges the
// frame, handing the turn back to the producer.
//
// Full truth table, enumerated for every reachable step:
//
//	step  FrameToShow  FrameToWrite  AdvanceShow  AdvanceWrite
//	 -3   nil          slot 0        no-op        -> -2
//	 -2   slot 0       nil           -> -1        no-op
//	 -1   slot 0       slot 0        no-op        -> 0
//	  0   slot 0       slot 1        no-op        -> 1
//	  1   slot 1       nil           -> 2         no-op
//	  2   slot 1       slot 2        no-op        -> 3
//	  3   slot 2       nil           -> 4         no-op
//	  4   slot 2       slot 0        no-op        -> 5
//	  5   slot 0       nil           -> 0         no-op
type FrameBuffer struct {
	step   atomic.Int64
	frames [3]Frame
}

// newFrameBuffer returns a buffer waiting for the first decoded image.
func newFrameBuffer() *FrameBuffer {
	b := &FrameBuffer{}
	b.step.Store(waitingForDimensionsStep)
	return b
}

func showIndex(step int64) int  { return int((step + 1) / 2 % 3) }
func writeIndex(step int64) int { return int((step + 3) / 2 % 3) }

// FrameToShow returns the slot the consumer should currently display and
// its index, or nil if no frame is ready yet. The returned slot's
// contents stay immutable until the producer's turn comes back, which
// requires the consumer to call AdvanceShow.
func (b *FrameBuffer) FrameToShow() (*Frame, int) {
	step := b.step.Load()
	switch {
	case step == waitingForDimensionsStep:
		return nil, 0
	case step < 0:
		// The first decoded image doubles as the cover.
		return &b.frames[0], 0
	default:
		i := showIndex(step)
		return &b.frames[i], i
	}
}

// FrameToWrite returns the next writable slot and its index, or nil
// while the producer is blocked: a geometry request is outstanding, or a
// published frame has not been acknowledged by a consumer yet.
func (b *FrameBuffer) FrameToWrite() (*Frame, int) {
	step := b.step.Load()
	switch {
	case step == waitingForRequestStep:
		return nil, 0
	case step < 0:
		return &b.frames[0], 0
	case step%2 != 0:
		return nil, 0
	default:
		i := writeIndex(step)
		return &b.frames[i], i
	}
}

// AdvanceShow acknowledges the currently shown frame. During
// initialization it accepts the pending geometry request; in steady
// state it acts only when a published frame is waiting. Mis-phased
// calls are no-ops.
func (b *FrameBuffer) AdvanceShow() {
	for {
		step := b.step.Load()
		var next int64
		switch {
		case step == waitingForRequestStep:
			next = waitingForFirstFrameStep
		case step >= 0 && step%2 != 0:
			next = (step + 1) % 6
		default:
			return
		}
		if b.step.CompareAndSwap(step, next) {
			return
		}
	}
}

// AdvanceWrite publishes the slot the producer just filled, rotating the
// show index onto it. During initialization it moves the buffer through
// the sentinel phases. Mis-phased calls are no-ops.
func (b *FrameBuffer) AdvanceWrite() {
	for {
		step := b.step.Load()
		var next int64
		switch {
		case step == waitingForDimensionsStep:
			next = waitingForRequestStep
		case step == waitingForFirstFrameStep:
			next = 0
		case step >= 0 && step%2 == 0:
			next = step + 1
		default:
			return
		}
		if b.step.CompareAndSwap(step, next) {
			return
		}
	}
}

// consumerTurn reports whether a published frame is awaiting an
// AdvanceShow acknowledgement.
func (b *FrameBuffer) consumerTurn() bool {
	step := b.step.Load()
	return step >= 0 && step%2 != 0
}

// loadStep exposes the raw counter for state derivation.
func (b *FrameBuffer) loadStep() int64 { return b.step.Load() }
