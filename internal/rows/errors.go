package rows

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrTimeout reports a create/update request that exceeded its bound.
	ErrTimeout = errors.New("Timeout")
	// ErrBusy is returned when a validation run is already in progress.
	ErrBusy = errors.New("validation already running")
	// ErrOutOfRange is returned for positions outside the collection.
	ErrOutOfRange = errors.New("row position out of range")
	// ErrClosed is returned once the table has been torn down.
	ErrClosed = errors.New("table closed")
	// ErrUnknownRow is returned when a uid does not resolve to a row.
	ErrUnknownRow = errors.New("unknown row")
)

const fallbackFailureMessage = "request failed"

// classify maps a request error to the message kept in a FailureRecord.
// parent is the caller's context; a deadline hit only on the per-request
// guard is a timeout, not a cancellation.
func classify(parent context.Context, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrTimeout) {
		return ErrTimeout.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return ErrTimeout.Error()
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fallbackFailureMessage
	}
	return msg
}
