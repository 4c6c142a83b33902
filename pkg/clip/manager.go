package clip

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	cliperrors "github.com/go-drift/clip/pkg/errors"
)

// totalLoad is the process-wide aggregate of outstanding decode cost
// across every Manager, maintained with relaxed, best-effort
// consistency. Owners use it as an admission heuristic when deciding
// whether to start new sessions; it is never a hard limit and an
// already-started session is never dropped because of it.
var totalLoad atomic.Int64

// LoadLevel reports the aggregate outstanding decode cost across all
// Managers in the process.
func LoadLevel() int64 { return totalLoad.Load() }

// managerIndexes hands out worker identifiers for notifications.
var managerIndexes atomic.Int32

// wakeHalted marks a registry entry whose session is paused: the entry
// stays (the owner still holds the handle) but the worker stops driving
// it until an update is posted.
const wakeHalted int64 = -1

// entry is the registry record for one session: the coalescing counter
// for pending scheduler operations and the scheduled wake time. Both
// are touched from owner goroutines and the worker, never under the
// registry lock for longer than a map access.
type entry struct {
	cost   int64
	ops    atomic.Int32
	stop   atomic.Bool
	wakeMs atomic.Int64
}

// Manager multiplexes playback sessions over one worker goroutine.
//
// Sessions are registered with Append and driven cooperatively: each
// tick the worker steps every live session whose wake deadline passed,
// reduces the outcome into a registry action, and re-arms a timer at
// the earliest pending deadline, so an idle Manager never busy-polls.
// True decode parallelism comes from running several Manager instances
// (for example one per priority class).
//
// Append, Start, Update, and Stop are callable from any goroutine,
// return immediately, and are idempotent: multiple pending calls for
// the same session coalesce into a single effective operation before
// the next tick. Operations on sessions this Manager does not carry are
// no-ops, since races between owner-side release and worker-side
// removal are expected.
type Manager struct {
	index int
	log   zerolog.Logger

	mu      sync.RWMutex
	readers map[*Reader]*entry

	load atomic.Int64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	tickFloor time.Duration

	finishOnce sync.Once
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithLogger attaches a structured logger for session lifecycle events.
// The default logger discards everything.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithTickFloor sets the minimum interval between worker ticks,
// bounding wake-up rate when frame deadlines cluster tightly.
func WithTickFloor(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.tickFloor = d
		}
	}
}

// NewManager creates a scheduler and starts its worker goroutine.
// Call Finish to stop it.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		index:     int(managerIndexes.Add(1)),
		log:       zerolog.Nop(),
		readers:   make(map[*Reader]*entry),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		tickFloor: time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Index identifies this Manager in notifications.
func (m *Manager) Index() int { return m.index }

// ManagerLoadLevel reports this Manager's share of the outstanding
// decode cost.
func (m *Manager) ManagerLoadLevel() int64 { return m.load.Load() }

// Append registers a session with the given decode cost (owners
// typically pass the source byte size). Appending a session this
// Manager already carries coalesces into an update. The session is
// owned jointly by the caller and this Manager from here on: the
// caller must not release it until removal is acknowledged.
func (m *Manager) Append(r *Reader, cost int64) {
	if r == nil {
		return
	}
	m.mu.Lock()
	e, ok := m.readers[r]
	if !ok {
		e = &entry{cost: cost}
		m.readers[r] = e
		m.load.Add(cost)
		totalLoad.Add(cost)
		r.manager.Store(m)
		m.log.Debug().
			Int("worker", m.index).
			Str("play_id", r.playID.String()).
			Int64("cost", cost).
			Msg("session appended")
	}
	e.ops.Add(1)
	m.mu.Unlock()
	m.signal()
}

// Start posts the session's pending geometry request to the worker.
func (m *Manager) Start(r *Reader) { m.post(r) }

// Update asks the worker to re-step the session on the next tick, used
// after pause toggles, geometry changes, and paint-path frame
// acknowledgements.
func (m *Manager) Update(r *Reader) { m.post(r) }

// Stop marks a session for removal. The in-flight decode step, if any,
// still completes but its result is discarded once the entry is gone.
// Stopping an unknown or already-removed session is a no-op.
func (m *Manager) Stop(r *Reader) {
	if r == nil {
		return
	}
	m.mu.RLock()
	e := m.readers[r]
	m.mu.RUnlock()
	if e == nil {
		return
	}
	e.stop.Store(true)
	m.signal()
}

// Carries reports whether this Manager currently owns the session.
// Owners check it before issuing cross-thread operations and to observe
// removal acknowledgement after Stop.
func (m *Manager) Carries(r *Reader) bool {
	m.mu.RLock()
	_, ok := m.readers[r]
	m.mu.RUnlock()
	return ok
}

// Finish stops the worker and evicts every session, releasing their
// load. Idempotent. Registered sessions receive no further
// notifications after Finish returns.
func (m *Manager) Finish() {
	m.finishOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()

	m.mu.Lock()
	for r, e := range m.readers {
		m.releaseLoad(e)
		r.manager.CompareAndSwap(m, nil)
		delete(m.readers, r)
	}
	m.mu.Unlock()
}

// post coalesces a start/update request for the session.
func (m *Manager) post(r *Reader) {
	if r == nil {
		return
	}
	m.mu.RLock()
	e := m.readers[r]
	m.mu.RUnlock()
	if e == nil {
		return
	}
	e.ops.Add(1)
	m.signal()
}

// signal wakes the worker without blocking; a pending wake absorbs
// further signals.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run is the worker loop: wait for a wake or the earliest deadline,
// then step whatever is due.
func (m *Manager) run() {
	defer m.wg.Done()
	defer cliperrors.Recover("clip.Manager.run")

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		case <-timer.C:
		}

		nextMs := m.processAll(nowMs())

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if nextMs > 0 {
			delay := time.Duration(nextMs-nowMs()) * time.Millisecond
			if delay < m.tickFloor {
				delay = m.tickFloor
			}
			timer.Reset(delay)
		} else {
			timer.Reset(time.Hour)
		}
	}
}

// processAll steps every due session once and returns the earliest
// pending wake deadline, or 0 when nothing is scheduled. Decode work
// never runs under the registry lock.
func (m *Manager) processAll(ms int64) int64 {
	type pending struct {
		r *Reader
		e *entry
	}

	m.mu.RLock()
	snapshot := make([]pending, 0, len(m.readers))
	for r, e := range m.readers {
		snapshot = append(snapshot, pending{r, e})
	}
	m.mu.RUnlock()

	var nextMs int64
	for _, p := range snapshot {
		if p.e.stop.Load() {
			m.remove(p.r, "stopped")
			continue
		}

		posted := p.e.ops.Swap(0) > 0
		wake := p.e.wakeMs.Load()
		if !posted {
			if wake == wakeHalted {
				continue
			}
			if wake > ms {
				nextMs = minWake(nextMs, wake)
				continue
			}
		}

		result := p.r.process(ms)
		action, wakeMs, kind := handleResult(p.r, result, ms)

		// An owner may have stopped the session while its step ran;
		// validity is decided by registry membership, never by buffer
		// state, so the stale result is simply discarded.
		if p.e.stop.Load() || !m.Carries(p.r) {
			m.remove(p.r, "stopped")
			continue
		}

		switch action {
		case actionRemove:
			m.remove(p.r, result.String())
			if kind != noNotification {
				p.r.notify(m.index, kind)
			}
		case actionStop:
			p.e.wakeMs.Store(wakeHalted)
		default:
			p.e.wakeMs.Store(wakeMs)
			nextMs = minWake(nextMs, wakeMs)
			if kind != noNotification {
				p.r.notify(m.index, kind)
			}
		}
	}
	return nextMs
}

// remove evicts a session and releases its load. Safe to call for
// sessions already gone.
func (m *Manager) remove(r *Reader, reason string) {
	m.mu.Lock()
	e, ok := m.readers[r]
	if ok {
		delete(m.readers, r)
		m.releaseLoad(e)
		r.manager.CompareAndSwap(m, nil)
	}
	m.mu.Unlock()
	if ok {
		m.log.Debug().
			Int("worker", m.index).
			Str("play_id", r.playID.String()).
			Str("reason", reason).
			Int64("frames_read", r.framesRead).
			Msg("session removed")
	}
}

// releaseLoad subtracts an entry's cost, clamping both counters at
// zero: the load level is a heuristic and must never go negative.
func (m *Manager) releaseLoad(e *entry) {
	if m.load.Add(-e.cost) < 0 {
		m.load.Store(0)
	}
	if totalLoad.Add(-e.cost) < 0 {
		totalLoad.Store(0)
	}
}

func minWake(current, candidate int64) int64 {
	if candidate <= 0 {
		return current
	}
	if current == 0 || candidate < current {
		return candidate
	}
	return current
}
