package clip

import "fmt"

// NotificationKind tags an asynchronous playback event.
type NotificationKind int

const (
	// NotificationRepaint asks the owner to repaint: a newer frame is
	// showing, or the session state changed in a way the owner should
	// observe (dimensions became known, playback started).
	NotificationRepaint NotificationKind = iota

	// NotificationCopyFrame reports that the first frame at the
	// requested geometry was published and can be copied for display.
	NotificationCopyFrame

	// NotificationError reports that the session reached StateError.
	NotificationError

	// NotificationFinished reports that the session reached
	// StateFinished.
	NotificationFinished
)

// String returns a human-readable label for the notification kind.
func (k NotificationKind) String() string {
	switch k {
	case NotificationRepaint:
		return "Repaint"
	case NotificationCopyFrame:
		return "CopyFrame"
	case NotificationError:
		return "Error"
	case NotificationFinished:
		return "Finished"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification is one asynchronous playback event. Notifications for one
// Reader are delivered in the order their decode steps completed; no
// ordering is guaranteed across different Readers.
type Notification struct {
	// Reader identifies the session the event belongs to.
	Reader *Reader

	// WorkerIndex identifies the Manager instance that produced the
	// event.
	WorkerIndex int

	// Kind tags the event.
	Kind NotificationKind
}

// Callback receives notifications on the Manager worker goroutine. It
// must not block; hand the event to the owner's event loop and return.
type Callback func(Notification)

// ChannelCallback returns a Callback that forwards notifications into
// the returned buffered channel, for owners that consume events from a
// select loop. When the buffer is full, repaint and copy-frame events
// are dropped (they are coalescable: the next paint samples the latest
// frame anyway) while error and finished events overwrite the oldest
// queued event so terminal outcomes are never lost.
func ChannelCallback(buffer int) (Callback, <-chan Notification) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)
	cb := func(n Notification) {
		if n.Kind != NotificationError && n.Kind != NotificationFinished {
			select {
			case ch <- n:
			default:
			}
			return
		}
		// Terminal events displace the oldest queued event. The send is
		// always attempted before draining, so a full buffer loses
		// exactly one event per displacement, never two.
		for {
			select {
			case ch <- n:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
	return cb, ch
}
