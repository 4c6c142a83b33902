// Package errors provides structured error handling for the clip
// playback core.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindDecode indicates a malformed or unsupported stream. Decode
	// errors are terminal for their session and never retried.
	KindDecode
	// KindEngine indicates a decode engine misbehaved outside of
	// stream content: bad dimensions, failed seek.
	KindEngine
	// KindLifecycle indicates an operation referenced an unknown or
	// already-removed session.
	KindLifecycle
	// KindConfig indicates an invalid configuration.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindEngine:
		return "engine"
	case KindLifecycle:
		return "lifecycle"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// ClipError represents a structured error in the playback core.
type ClipError struct {
	// Op is the operation that failed (e.g., "clip.Reader.processRead").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *ClipError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *ClipError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "clip.Manager.run").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the playback core.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *ClipError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
