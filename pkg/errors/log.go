package errors

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// LogHandler is an ErrorHandler that logs errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// HandleError logs a ClipError to stderr.
func (h *LogHandler) HandleError(err *ClipError) {
	if err == nil {
		return
	}
	if h.Verbose {
		fmt.Fprintf(os.Stderr, "[clip error] %s [%s]: %v\n", err.Op, err.Kind, err.Err)
	} else {
		fmt.Fprintf(os.Stderr, "[clip error] %s: %v\n", err.Op, err.Err)
	}
}

// HandlePanic logs a PanicError to stderr.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Op != "" {
		fmt.Fprintf(os.Stderr, "[clip panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(os.Stderr, "[clip panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", err.StackTrace)
	}
}

// ZerologHandler is an ErrorHandler that forwards errors to a zerolog
// logger, for applications that already route structured logs.
type ZerologHandler struct {
	Logger zerolog.Logger
}

// HandleError logs a ClipError as a structured event.
func (h *ZerologHandler) HandleError(err *ClipError) {
	if err == nil {
		return
	}
	h.Logger.Error().
		Str("op", err.Op).
		Str("kind", err.Kind.String()).
		Err(err.Err).
		Msg("clip error")
}

// HandlePanic logs a PanicError as a structured event.
func (h *ZerologHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	h.Logger.Error().
		Str("op", err.Op).
		Str("stack", err.StackTrace).
		Interface("value", err.Value).
		Msg("clip panic")
}
