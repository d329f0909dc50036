// Package sse decodes the chat event stream into typed stream events.
//
// The stream is line oriented. A record is an `event: <name>` line followed
// by one or more `data: <json>` lines and closed by a blank line. Every
// complete data line under a recognized name yields one event.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"github.com/ronit111/documind/types"
)

// MaxLineSize is the longest line the decoder buffers (4 MiB).
const MaxLineSize = 4 * 1024 * 1024

const initialBufferSize = 64 * 1024

// DropFunc observes records the decoder drops.
type DropFunc func(*DecodeError)

// Option configures a Decoder.
type Option func(*Decoder)

// WithDropHook registers fn to observe dropped records.
func WithDropHook(fn DropFunc) Option {
	return func(d *Decoder) {
		d.onDrop = fn
	}
}

// Decoder reads stream events from a byte stream.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	scanner *bufio.Scanner
	event   types.EventType
	onDrop  DropFunc
	err     error
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), MaxLineSize)
	scanner.Split(scanCompleteLines)

	d := &Decoder{scanner: scanner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// scanCompleteLines splits on \n, trimming a trailing \r.
// A final line with no terminator is consumed without being returned.
func scanCompleteLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// Next returns the next event in arrival order.
//
// Errors:
//   - io.EOF: the stream ended (trailing partial lines are discarded)
//   - *DecodeError with Kind=DecodeErrorLineTooLarge: fatal
//   - any read error from the underlying reader
//
// Once Next returns an error it returns the same error on every later call.
func (d *Decoder) Next() (types.StreamEvent, error) {
	if d.err != nil {
		return nil, d.err
	}

	for d.scanner.Scan() {
		if ev := d.processLine(d.scanner.Bytes()); ev != nil {
			return ev, nil
		}
	}

	d.err = io.EOF
	if err := d.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			d.err = &DecodeError{
				Kind:  DecodeErrorLineTooLarge,
				Event: d.event,
				Msg:   "line exceeds maximum size",
				Err:   err,
			}
		} else {
			d.err = err
		}
	}
	return nil, d.err
}

// Events returns the remaining events as a single-use sequence.
// A non-EOF error is yielded once as the final element.
func (d *Decoder) Events() iter.Seq2[types.StreamEvent, error] {
	return func(yield func(types.StreamEvent, error) bool) {
		for {
			ev, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

func (d *Decoder) processLine(line []byte) types.StreamEvent {
	if len(line) == 0 {
		d.event = ""
		return nil
	}
	if line[0] == ':' {
		return nil
	}

	field, value, _ := bytes.Cut(line, []byte{':'})
	value = bytes.TrimPrefix(value, []byte{' '})

	switch string(field) {
	case "event":
		d.event = types.EventType(value)
		return nil
	case "data":
		return d.decodeData(value)
	default:
		return nil
	}
}

func (d *Decoder) decodeData(data []byte) types.StreamEvent {
	switch d.event {
	case types.EventTypeToken:
		var payload types.TokenPayload
		if !d.unmarshal(data, &payload) {
			return nil
		}
		if payload.Token == nil {
			d.drop(DecodeErrorInvalidPayload, "token record missing string field token", nil)
			return nil
		}
		return types.TokenEvent{Text: *payload.Token}

	case types.EventTypeSources:
		var payload types.SourcesPayload
		if !d.unmarshal(data, &payload) {
			return nil
		}
		if payload.Sources == nil {
			d.drop(DecodeErrorInvalidPayload, "sources record missing array field sources", nil)
			return nil
		}
		return types.SourcesEvent{Sources: payload.Sources}

	case types.EventTypeDone:
		if len(bytes.TrimSpace(data)) > 0 {
			var payload map[string]any
			if !d.unmarshal(data, &payload) {
				return nil
			}
		}
		return types.DoneEvent{}

	case types.EventTypeError:
		var payload types.ErrorPayload
		if !d.unmarshal(data, &payload) {
			return nil
		}
		if payload.Detail == nil {
			d.drop(DecodeErrorInvalidPayload, "error record missing string field detail", nil)
			return nil
		}
		return types.ErrorEvent{Detail: *payload.Detail}

	default:
		d.drop(DecodeErrorUnknownEvent, "unrecognized event "+quote(d.event), nil)
		return nil
	}
}

// unmarshal decodes data into v, reporting failures as dropped records.
// A JSON value of the wrong shape for v counts as an invalid payload.
func (d *Decoder) unmarshal(data []byte, v any) bool {
	err := json.Unmarshal(data, v)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		d.drop(DecodeErrorInvalidPayload, "payload has wrong shape", err)
	} else {
		d.drop(DecodeErrorMalformedPayload, "payload is not valid JSON", err)
	}
	return false
}

func (d *Decoder) drop(kind DecodeErrorKind, msg string, err error) {
	if d.onDrop == nil {
		return
	}
	d.onDrop(&DecodeError{Kind: kind, Event: d.event, Msg: msg, Err: err})
}

func quote(e types.EventType) string {
	if e == "" {
		return "(none)"
	}
	return `"` + string(e) + `"`
}
