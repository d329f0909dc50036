package types

// EventType is the name carried on the `event:` line of a chat stream record.
type EventType string

// Recognized chat stream event names.
const (
	EventTypeToken   EventType = "token"
	EventTypeSources EventType = "sources"
	EventTypeDone    EventType = "done"
	EventTypeError   EventType = "error"
)

// IsKnown returns true if the decoder understands this event name.
func (e EventType) IsKnown() bool {
	switch e {
	case EventTypeToken, EventTypeSources, EventTypeDone, EventTypeError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if this event settles the streaming message.
func (e EventType) IsTerminal() bool {
	return e == EventTypeDone || e == EventTypeError
}

// StreamEvent is one decoded chat stream event.
// The set of implementations is closed: TokenEvent, SourcesEvent,
// DoneEvent and ErrorEvent.
type StreamEvent interface {
	// Type returns the event discriminator.
	Type() EventType
	streamEvent()
}

// TokenEvent carries the next piece of answer text.
type TokenEvent struct {
	Text string
}

// SourcesEvent carries the retrieved passages backing the answer.
type SourcesEvent struct {
	Sources []SourceChunk
}

// DoneEvent marks the normal end of a turn.
type DoneEvent struct{}

// ErrorEvent marks the abnormal end of a turn.
type ErrorEvent struct {
	Detail string
}

// Type implements StreamEvent.
func (TokenEvent) Type() EventType { return EventTypeToken }

// Type implements StreamEvent.
func (SourcesEvent) Type() EventType { return EventTypeSources }

// Type implements StreamEvent.
func (DoneEvent) Type() EventType { return EventTypeDone }

// Type implements StreamEvent.
func (ErrorEvent) Type() EventType { return EventTypeError }

func (TokenEvent) streamEvent()   {}
func (SourcesEvent) streamEvent() {}
func (DoneEvent) streamEvent()    {}
func (ErrorEvent) streamEvent()   {}

// IsTerminalEvent returns true if ev settles the streaming message.
func IsTerminalEvent(ev StreamEvent) bool {
	return ev != nil && ev.Type().IsTerminal()
}

// Wire payloads of the chat stream, one per event name.

// TokenPayload is the data of a token record.
type TokenPayload struct {
	Token *string `json:"token"`
}

// SourcesPayload is the data of a sources record.
type SourcesPayload struct {
	Sources []SourceChunk `json:"sources"`
}

// ErrorPayload is the data of an error record.
type ErrorPayload struct {
	Detail *string `json:"detail"`
}
