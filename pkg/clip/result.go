package clip

import "fmt"

// ProcessResult is the outcome of one decode step, consumed by the
// scheduler to choose the next registry action.
type ProcessResult int

const (
	// ResultError: the stream is malformed or unsupported; terminal.
	ResultError ProcessResult = iota
	// ResultStarted: the native dimensions became known; the owner
	// should supply a geometry request.
	ResultStarted
	// ResultFinished: the stream ended and the session does not loop;
	// terminal.
	ResultFinished
	// ResultPaused: playback is paused; stop driving the session until
	// the owner posts an update.
	ResultPaused
	// ResultRepaint: a newer frame is showing; the owner should paint.
	ResultRepaint
	// ResultCopyFrame: the first frame at the requested geometry was
	// published.
	ResultCopyFrame
	// ResultWait: nothing to do until the next frame deadline. The
	// dominant outcome during steady playback.
	ResultWait
)

// String returns a human-readable label for the process result.
func (r ProcessResult) String() string {
	switch r {
	case ResultError:
		return "Error"
	case ResultStarted:
		return "Started"
	case ResultFinished:
		return "Finished"
	case ResultPaused:
		return "Paused"
	case ResultRepaint:
		return "Repaint"
	case ResultCopyFrame:
		return "CopyFrame"
	case ResultWait:
		return "Wait"
	default:
		return fmt.Sprintf("ProcessResult(%d)", int(r))
	}
}

// resultAction is the registry action a decode outcome reduces to.
type resultAction int

const (
	// actionRemove evicts the registry entry, allowing teardown.
	actionRemove resultAction = iota
	// actionStop halts driving without removing the entry.
	actionStop
	// actionContinue reschedules the session at a wake deadline.
	actionContinue
)

// noNotification marks outcomes that deliver no event.
const noNotification NotificationKind = -1

// handleResult is the stateless reduction of a decode outcome into a
// registry action and an optional notification. The Wait path allocates
// nothing. wakeMs is meaningful only for actionContinue.
func handleResult(r *Reader, result ProcessResult, ms int64) (action resultAction, wakeMs int64, kind NotificationKind) {
	switch result {
	case ResultError:
		return actionRemove, 0, NotificationError
	case ResultFinished:
		return actionRemove, 0, NotificationFinished
	case ResultPaused:
		return actionStop, 0, noNotification
	case ResultStarted:
		return actionContinue, ms + defaultUpdateDelayMs, NotificationRepaint
	case ResultCopyFrame:
		return actionContinue, r.nextWakeMs(ms), NotificationCopyFrame
	case ResultRepaint:
		return actionContinue, r.nextWakeMs(ms), NotificationRepaint
	default: // ResultWait
		return actionContinue, r.nextWakeMs(ms), noNotification
	}
}
