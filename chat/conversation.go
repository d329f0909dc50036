// Package chat holds conversation state and drives chat turns over an event stream.
package chat

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ronit111/documind/types"
)

// ErrTurnInFlight is returned by Submit while a turn is still streaming.
var ErrTurnInFlight = errors.New("a response is still streaming")

// ErrEmptyQuestion is returned by Submit for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// errorPrefix is prepended to the detail of an error event.
const errorPrefix = "Error: "

// Turn identifies the messages created by one accepted submission.
type Turn struct {
	UserID      string
	AssistantID string
	// Request is what to send to the server: the question plus every
	// settled message that preceded it.
	Request types.ChatRequest
}

// Conversation is the ordered message list of one chat.
//
// At most one message streams at a time, and only that message changes.
// A Conversation is not safe for concurrent use; it is owned by the
// goroutine that applies events.
type Conversation struct {
	messages  []types.ConversationMessage
	streaming int
	newID     func() string
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		streaming: -1,
		newID:     func() string { return uuid.New().String() },
	}
}

// Submit starts a turn for question.
// It appends the user message and an empty streaming assistant message
// together, and returns ErrTurnInFlight without changes if a turn is
// already streaming.
func (c *Conversation) Submit(question string) (Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Turn{}, ErrEmptyQuestion
	}
	if c.streaming >= 0 {
		return Turn{}, ErrTurnInFlight
	}

	turn := Turn{
		UserID:      c.newID(),
		AssistantID: c.newID(),
		Request: types.ChatRequest{
			Question:    question,
			ChatHistory: c.History(),
		},
	}

	c.messages = append(c.messages,
		types.ConversationMessage{ID: turn.UserID, Role: types.RoleUser, Content: question},
		types.ConversationMessage{ID: turn.AssistantID, Role: types.RoleAssistant, Streaming: true},
	)
	c.streaming = len(c.messages) - 1
	return turn, nil
}

// Apply applies ev to the message with the given id.
// It returns false, changing nothing, unless id names the streaming message.
func (c *Conversation) Apply(id string, ev types.StreamEvent) bool {
	if c.streaming < 0 || c.messages[c.streaming].ID != id {
		return false
	}
	msg := &c.messages[c.streaming]

	switch e := ev.(type) {
	case types.TokenEvent:
		msg.Content += e.Text
	case types.SourcesEvent:
		msg.Sources = e.Sources
	case types.ErrorEvent:
		msg.Content = errorPrefix + e.Detail
		c.settle()
	case types.DoneEvent:
		c.settle()
	default:
		return false
	}
	return true
}

func (c *Conversation) settle() {
	c.messages[c.streaming].Streaming = false
	c.streaming = -1
}

// Streaming reports whether a turn is in flight.
func (c *Conversation) Streaming() bool {
	return c.streaming >= 0
}

// StreamingID returns the id of the streaming message, or "".
func (c *Conversation) StreamingID() string {
	if c.streaming < 0 {
		return ""
	}
	return c.messages[c.streaming].ID
}

// Messages returns a copy of the conversation in order.
func (c *Conversation) Messages() []types.ConversationMessage {
	return slices.Clone(c.messages)
}

// Message returns the message with the given id.
func (c *Conversation) Message(id string) (types.ConversationMessage, bool) {
	for _, m := range c.messages {
		if m.ID == id {
			return m, true
		}
	}
	return types.ConversationMessage{}, false
}

// History returns the settled messages as server chat history.
func (c *Conversation) History() []types.HistoryMessage {
	history := make([]types.HistoryMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Streaming {
			continue
		}
		history = append(history, types.HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return history
}

// Clear removes every message. A turn still streaming is abandoned and
// later events for it are ignored.
func (c *Conversation) Clear() {
	c.messages = nil
	c.streaming = -1
}

// Seed appends settled messages from a previous conversation. It fails
// with ErrTurnInFlight while a turn streams.
func (c *Conversation) Seed(history []types.HistoryMessage) error {
	if c.streaming >= 0 {
		return ErrTurnInFlight
	}
	for _, h := range history {
		if h.Role != types.RoleUser && h.Role != types.RoleAssistant {
			return fmt.Errorf("seed history: unknown role %q", h.Role)
		}
	}
	for _, h := range history {
		c.messages = append(c.messages, types.ConversationMessage{ID: c.newID(), Role: h.Role, Content: h.Content})
	}
	return nil
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsErrorContent reports whether content was produced by an error event.
func IsErrorContent(content string) bool {
	return strings.HasPrefix(content, errorPrefix)
}
