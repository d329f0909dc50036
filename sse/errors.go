package sse

import (
	"errors"
	"fmt"

	"github.com/ronit111/documind/types"
)

// DecodeErrorKind classifies stream decoding errors.
type DecodeErrorKind int

const (
	// DecodeErrorMalformedPayload indicates a data line that is not valid JSON.
	DecodeErrorMalformedPayload DecodeErrorKind = iota
	// DecodeErrorInvalidPayload indicates valid JSON lacking the fields its event requires.
	DecodeErrorInvalidPayload
	// DecodeErrorUnknownEvent indicates a data line under an unrecognized event name.
	DecodeErrorUnknownEvent
	// DecodeErrorLineTooLarge indicates a line exceeding MaxLineSize.
	DecodeErrorLineTooLarge
)

// String returns the metric label for the kind.
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorMalformedPayload:
		return "malformed_payload"
	case DecodeErrorInvalidPayload:
		return "invalid_payload"
	case DecodeErrorUnknownEvent:
		return "unknown_event"
	case DecodeErrorLineTooLarge:
		return "line_too_large"
	default:
		return "unknown"
	}
}

// DecodeError represents a stream decoding error.
type DecodeError struct {
	Kind  DecodeErrorKind
	Event types.EventType
	Msg   string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if decoding cannot continue.
// Only an oversized line is fatal; every other kind drops one record.
func (e *DecodeError) IsFatal() bool {
	return e.Kind == DecodeErrorLineTooLarge
}

// IsFatalDecodeError returns true if the error is a fatal decode error.
func IsFatalDecodeError(err error) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.IsFatal()
	}
	return false
}
