package util

import (
	"fmt"
	"log/slog"
	"runtime"
)

// CohortError is a custom error type for adding context and stack traces.
type CohortError struct {
	OriginalErr error
	Message     string
	Stack       string
	Attrs       []slog.Attr
}

// Error returns the error message.
func (e *CohortError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CohortError) Unwrap() error {
	return e.OriginalErr
}

const maxStackLength = 8192 // Max length of stack trace to capture

// NewError creates a new CohortError without an original error.
func NewError(message string, attrs ...slog.Attr) *CohortError {
	return newCohortError(nil, message, attrs...)
}

// WrapError creates a new CohortError, wrapping an existing error.
func WrapError(err error, message string, attrs ...slog.Attr) *CohortError {
	if err == nil {
		return newCohortError(nil, message, attrs...)
	}
	return newCohortError(err, message, attrs...)
}

func newCohortError(originalErr error, message string, attrs ...slog.Attr) *CohortError {
	buf := make([]byte, maxStackLength)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// If the original error is already a CohortError, prepend the message and
	// combine attributes, but keep the stack captured at the first wrap site.
	if ce, ok := originalErr.(*CohortError); ok {
		combinedAttrs := append(ce.Attrs, attrs...)

		newMessage := message
		if ce.Message != "" {
			newMessage = fmt.Sprintf("%s: %s", message, ce.Message)
		}

		return &CohortError{
			OriginalErr: ce.OriginalErr, // Keep the root cause
			Message:     newMessage,
			Stack:       ce.Stack,
			Attrs:       combinedAttrs,
		}
	}

	return &CohortError{
		OriginalErr: originalErr,
		Message:     message,
		Stack:       stack,
		Attrs:       attrs,
	}
}

// LogError logs a CohortError with its structured context and stack trace.
// If the error is not a CohortError, it logs it as a standard error message.
func LogError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}

	var ce *CohortError
	if asCe, ok := err.(*CohortError); ok {
		ce = asCe
	} else if asWrapper, ok := err.(interface{ Unwrap() error }); ok {
		unwrapped := asWrapper.Unwrap()
		if unwrapCe, okUnwrap := unwrapped.(*CohortError); okUnwrap {
			ce = unwrapCe
		}
	}

	if ce != nil {
		logAttrs := []any{
			slog.String("error_message", ce.Message),
		}
		if ce.OriginalErr != nil {
			logAttrs = append(logAttrs, slog.String("original_error", ce.OriginalErr.Error()))
		}
		logAttrs = append(logAttrs, slog.String("stack_trace", ce.Stack))

		for _, attr := range ce.Attrs {
			logAttrs = append(logAttrs, attr)
		}
		logger.Error("An error occurred", logAttrs...)
	} else {
		logger.Error("An error occurred", slog.String("error", err.Error()))
	}
}
