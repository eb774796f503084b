package replay

import (
	"errors"
	"fmt"
)

// StreamErrorKind classifies replay stream decoding errors.
type StreamErrorKind int

const (
	// StreamErrorFormat indicates an unrecognized leading byte. The
	// buffer is neither a raw event stream nor an enveloped file.
	StreamErrorFormat StreamErrorKind = iota
	// StreamErrorTruncated indicates the buffer ends inside a region
	// that must be fully present (the envelope or the message-sizes
	// event payload).
	StreamErrorTruncated
	// StreamErrorMissingEntry indicates an event code encountered
	// during the walk that has no size table entry. The stream is
	// malformed or the table is incomplete; there is no safe step to
	// take past the unknown record.
	StreamErrorMissingEntry
)

// StreamError represents a replay stream decoding error.
type StreamError struct {
	Kind StreamErrorKind
	Msg  string
	Err  error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsStreamError returns true if err is a replay stream decoding error.
// All stream errors are malformed-input conditions: fatal to the
// recording operation, surfaced before any engine spawn.
func IsStreamError(err error) bool {
	var streamErr *StreamError
	return errors.As(err, &streamErr)
}
