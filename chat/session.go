package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
	"github.com/ronit111/documind/sse"
	"github.com/ronit111/documind/types"
)

// Archive stores settled turns.
type Archive interface {
	AppendTurn(ctx context.Context, turn types.TranscriptTurn) error
}

// TurnError reports a turn settled by an error event.
// Detail is the text shown after "Error: " in the assistant message.
type TurnError struct {
	Detail string
	// Err is the local cause, nil when the server sent the error event.
	Err error
}

func (e *TurnError) Error() string {
	return "chat turn failed: " + e.Detail
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Session runs chat turns against a server and keeps the conversation.
// Ask must not be called concurrently.
type Session struct {
	id       string
	conv     *Conversation
	streamer Streamer
	logger   *log.Logger
	metrics  *metrics.Collector
	archive  Archive
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) SessionOption {
	return func(s *Session) { s.metrics = c }
}

// WithArchive enables writing settled turns to a.
func WithArchive(a Archive) SessionOption {
	return func(s *Session) { s.archive = a }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// NewSession creates a session with an empty conversation.
func NewSession(streamer Streamer, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.New().String(),
		conv:     NewConversation(),
		streamer: streamer,
		logger:   log.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Conversation returns the session's conversation.
func (s *Session) Conversation() *Conversation {
	return s.conv
}

// ActiveTurn is a turn between Begin and Finish.
type ActiveTurn struct {
	Turn
	started       time.Time
	droppedBefore int64
	errorDetail   string
}

// Begin submits question to the conversation and starts a turn.
func (s *Session) Begin(question string) (*ActiveTurn, error) {
	turn, err := s.conv.Submit(question)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTurnStarted()
	return &ActiveTurn{
		Turn:          turn,
		started:       s.now(),
		droppedBefore: s.metrics.Snapshot().RecordsDropped,
	}, nil
}

// Apply reduces ev into the turn's assistant message. It reports whether
// the message changed.
func (s *Session) Apply(t *ActiveTurn, ev types.StreamEvent) bool {
	if !s.conv.Apply(t.AssistantID, ev) {
		return false
	}
	switch e := ev.(type) {
	case types.TokenEvent:
		s.metrics.IncTokens()
	case types.ErrorEvent:
		t.errorDetail = e.Detail
	}
	return true
}

// Finish settles the turn after the relay returned cause. It returns the
// assistant message, a *TurnError when the turn failed, and the transcript
// entry to hand to Record.
func (s *Session) Finish(t *ActiveTurn, cause error) (types.ConversationMessage, types.TranscriptTurn, error) {
	msg, _ := s.conv.Message(t.AssistantID)
	settled := s.now()
	fields := map[string]any{
		"turn_id":     t.AssistantID,
		"duration_ms": settled.Sub(t.started).Milliseconds(),
	}
	if dropped := s.metrics.Snapshot().RecordsDropped - t.droppedBefore; dropped > 0 {
		fields["dropped_records"] = dropped
		s.logger.Warn("stream records dropped during turn", fields)
	}

	outcome := types.TurnDone
	var turnErr error
	if cause != nil || t.errorDetail != "" {
		outcome = types.TurnError
		turnErr = &TurnError{Detail: t.errorDetail, Err: cause}
		s.metrics.IncTurnFailed()
		fields["detail"] = t.errorDetail
		s.logger.Warn("chat turn failed", fields)
	} else {
		s.metrics.IncTurnCompleted()
		s.logger.Debug("chat turn completed", fields)
	}

	transcript := types.TranscriptTurn{
		SessionID: s.id,
		TurnID:    t.AssistantID,
		Question:  t.Request.Question,
		Answer:    msg.Content,
		Sources:   msg.Sources,
		Outcome:   outcome,
		StartedAt: t.started.UTC(),
		SettledAt: settled.UTC(),
	}
	return msg, transcript, turnErr
}

// Ask submits question and streams the answer into the conversation.
//
// observe, if non-nil, receives the assistant message after every event
// that changed it. Ask returns the settled assistant message; the error is
// a *TurnError when the turn ended with an error event, or the Submit error
// when the question was not accepted.
func (s *Session) Ask(ctx context.Context, question string, observe func(types.ConversationMessage)) (types.ConversationMessage, error) {
	t, err := s.Begin(question)
	if err != nil {
		return types.ConversationMessage{}, err
	}

	cause := Relay(ctx, s.streamer, t.Request, func(ev types.StreamEvent) {
		if !s.Apply(t, ev) || observe == nil {
			return
		}
		if msg, ok := s.conv.Message(t.AssistantID); ok {
			observe(msg)
		}
	})

	msg, transcript, turnErr := s.Finish(t, cause)
	s.Record(ctx, transcript)
	return msg, turnErr
}

// Streamer returns the session's stream opener.
func (s *Session) Streamer() Streamer {
	return s.streamer
}

// Record archives a settled turn. Archive failures are logged and counted,
// never returned. Safe to call from another goroutine than the one that
// owns the conversation.
func (s *Session) Record(ctx context.Context, turn types.TranscriptTurn) {
	if s.archive == nil {
		return
	}
	// A canceled turn is still archived.
	ctx = context.WithoutCancel(ctx)
	if err := s.archive.AppendTurn(ctx, turn); err != nil {
		s.metrics.IncArchiveWriteFailure()
		s.logger.Error("failed to archive turn", map[string]any{
			"turn_id": turn.TurnID,
			"error":   err.Error(),
		})
		return
	}
	s.metrics.IncArchiveWriteSuccess()
}

// DropRecorder returns a decoder drop hook that counts dropped records
// in c and logs each one at debug.
func DropRecorder(logger *log.Logger, c *metrics.Collector) sse.DropFunc {
	if logger == nil {
		logger = log.Nop()
	}
	return func(e *sse.DecodeError) {
		c.IncRecordDropped(e.Kind.String())
		logger.Debug("dropped stream record", map[string]any{
			"kind":  e.Kind.String(),
			"event": string(e.Event),
			"error": e.Error(),
		})
	}
}

// FormatSources renders sources as a numbered list for plain output.
func FormatSources(sources []types.SourceChunk) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s", i+1, src.DocumentName)
		if src.SectionRef != nil && *src.SectionRef != "" {
			fmt.Fprintf(&b, " (%s)", *src.SectionRef)
		}
		fmt.Fprintf(&b, " relevance %.0f%%\n", src.RelevanceScore*100)
	}
	return b.String()
}
