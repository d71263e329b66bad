package domain

import (
	"errors"
	"fmt"
)

// RawPage is one month's bulk export, decoded to UTF-8 text. Charset records
// the encoding the transport declared, mainly for diagnostics.
type RawPage struct {
	Text    string
	Charset string
}

// ErrEndOfData reports that the source has no page at or before the requested
// month. It is the canonical termination signal for backward walks, not a
// fault.
var ErrEndOfData = errors.New("no data at or before requested month")

// TransientError is a retryable fetch failure: a timeout, a transport error,
// or an unexpected HTTP status. ErrEndOfData is never wrapped in one.
type TransientError struct {
	Status int // HTTP status code, 0 when no response was received
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient fetch failure: status %d", e.Status)
	}
	return fmt.Sprintf("transient fetch failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
