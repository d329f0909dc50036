package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ronit111/documind/types"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func newTestConversation() *Conversation {
	c := NewConversation()
	c.newID = sequentialIDs()
	return c
}

func TestConversation_SubmitAppendsPair(t *testing.T) {
	c := newTestConversation()

	turn, err := c.Submit("  What is the PTO policy?  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != turn.UserID || msgs[0].Role != types.RoleUser || msgs[0].Content != "What is the PTO policy?" {
		t.Errorf("unexpected user message %+v", msgs[0])
	}
	if msgs[1].ID != turn.AssistantID || msgs[1].Role != types.RoleAssistant || !msgs[1].Streaming || msgs[1].Content != "" {
		t.Errorf("unexpected assistant message %+v", msgs[1])
	}
	if turn.Request.Question != "What is the PTO policy?" {
		t.Errorf("request question = %q", turn.Request.Question)
	}
	if len(turn.Request.ChatHistory) != 0 {
		t.Errorf("expected empty history, got %v", turn.Request.ChatHistory)
	}
	if !c.Streaming() || c.StreamingID() != turn.AssistantID {
		t.Error("expected conversation to be streaming the assistant message")
	}
}

func TestConversation_SubmitRejectedWhileStreaming(t *testing.T) {
	c := newTestConversation()
	if _, err := c.Submit("first"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := c.Submit("second")
	if !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("rejected submit changed the conversation: %d messages", c.Len())
	}
}

func TestConversation_SubmitEmpty(t *testing.T) {
	c := newTestConversation()
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := c.Submit(q); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("Submit(%q) = %v, want ErrEmptyQuestion", q, err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("expected no messages, got %d", c.Len())
	}
}

func TestConversation_TokensConcatenateInOrder(t *testing.T) {
	tokens := []string{"The ", "answer", " is", " ", "42", "."}
	c := newTestConversation()
	turn, _ := c.Submit("q")

	for _, tok := range tokens {
		if !c.Apply(turn.AssistantID, types.TokenEvent{Text: tok}) {
			t.Fatalf("token %q not applied", tok)
		}
	}

	msg, _ := c.Message(turn.AssistantID)
	if msg.Content != "The answer is 42." {
		t.Errorf("content = %q", msg.Content)
	}
	if !msg.Streaming {
		t.Error("tokens must not settle the message")
	}
}

func TestConversation_SourcesReplace(t *testing.T) {
	c := newTestConversation()
	turn, _ := c.Submit("q")

	first := []types.SourceChunk{{DocumentID: "d1"}, {DocumentID: "d2"}}
	second := []types.SourceChunk{{DocumentID: "d3"}}
	c.Apply(turn.AssistantID, types.SourcesEvent{Sources: first})
	c.Apply(turn.AssistantID, types.SourcesEvent{Sources: second})

	msg, _ := c.Message(turn.AssistantID)
	if len(msg.Sources) != 1 || msg.Sources[0].DocumentID != "d3" {
		t.Errorf("expected sources replaced by second event, got %+v", msg.Sources)
	}
}

func TestConversation_EventsAfterTerminalIgnored(t *testing.T) {
	tests := []struct {
		name        string
		terminal    types.StreamEvent
		wantContent string
	}{
		{"done", types.DoneEvent{}, "partial"},
		{"error", types.ErrorEvent{Detail: "LLM unavailable"}, "Error: LLM unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConversation()
			turn, _ := c.Submit("q")
			c.Apply(turn.AssistantID, types.TokenEvent{Text: "partial"})

			if !c.Apply(turn.AssistantID, tt.terminal) {
				t.Fatal("terminal event not applied")
			}

			late := []types.StreamEvent{
				types.TokenEvent{Text: " more"},
				types.SourcesEvent{Sources: []types.SourceChunk{{DocumentID: "d9"}}},
				types.ErrorEvent{Detail: "late"},
				types.DoneEvent{},
			}
			for _, ev := range late {
				if c.Apply(turn.AssistantID, ev) {
					t.Errorf("late %T was applied", ev)
				}
			}

			msg, _ := c.Message(turn.AssistantID)
			if msg.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", msg.Content, tt.wantContent)
			}
			if msg.Streaming {
				t.Error("streaming must stay false")
			}
			if len(msg.Sources) != 0 {
				t.Errorf("late sources applied: %+v", msg.Sources)
			}
			if c.Streaming() {
				t.Error("conversation still streaming")
			}
		})
	}
}

func TestConversation_ApplyWrongMessageIgnored(t *testing.T) {
	c := newTestConversation()
	turn, _ := c.Submit("q")

	if c.Apply(turn.UserID, types.TokenEvent{Text: "x"}) {
		t.Error("event for the user message was applied")
	}
	if c.Apply("unknown", types.DoneEvent{}) {
		t.Error("event for an unknown id was applied")
	}
	if !c.Streaming() {
		t.Error("ignored events must not settle the turn")
	}
}

func TestConversation_HistoryExcludesStreaming(t *testing.T) {
	c := newTestConversation()
	first, _ := c.Submit("first question")
	c.Apply(first.AssistantID, types.TokenEvent{Text: "first answer"})
	c.Apply(first.AssistantID, types.DoneEvent{})

	second, err := c.Submit("second question")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := []types.HistoryMessage{
		{Role: types.RoleUser, Content: "first question"},
		{Role: types.RoleAssistant, Content: "first answer"},
	}
	if len(second.Request.ChatHistory) != len(want) {
		t.Fatalf("history = %+v, want %+v", second.Request.ChatHistory, want)
	}
	for i := range want {
		if second.Request.ChatHistory[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, second.Request.ChatHistory[i], want[i])
		}
	}

	// Streaming placeholder is excluded; the pending user question is not.
	if got := len(c.History()); got != 3 {
		t.Errorf("History() length = %d, want 3", got)
	}
}

func TestConversation_AtMostOneStreaming(t *testing.T) {
	c := newTestConversation()
	for i := range 5 {
		turn, err := c.Submit(fmt.Sprintf("q%d", i))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		streaming := 0
		for _, m := range c.Messages() {
			if m.Streaming {
				streaming++
			}
		}
		if streaming != 1 {
			t.Fatalf("after submit %d: %d streaming messages", i, streaming)
		}
		c.Apply(turn.AssistantID, types.DoneEvent{})
	}
}

func TestConversation_ClearAbandonsTurn(t *testing.T) {
	c := newTestConversation()
	turn, _ := c.Submit("q")
	c.Clear()

	if c.Len() != 0 || c.Streaming() {
		t.Fatal("clear did not reset the conversation")
	}
	if c.Apply(turn.AssistantID, types.TokenEvent{Text: "x"}) {
		t.Error("event for a cleared turn was applied")
	}
	if _, err := c.Submit("again"); err != nil {
		t.Errorf("submit after clear: %v", err)
	}
}

func TestConversation_MessagesIsCopy(t *testing.T) {
	c := newTestConversation()
	turn, _ := c.Submit("q")

	msgs := c.Messages()
	msgs[1].Content = "tampered"

	msg, _ := c.Message(turn.AssistantID)
	if msg.Content != "" {
		t.Error("Messages() exposed internal state")
	}
}

func TestConversation_SeedFeedsHistory(t *testing.T) {
	c := newTestConversation()
	err := c.Seed([]types.HistoryMessage{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	turn, err := c.Submit("next")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(turn.Request.ChatHistory) != 2 || turn.Request.ChatHistory[1].Content != "hello" {
		t.Errorf("history = %+v", turn.Request.ChatHistory)
	}

	if err := c.Seed(nil); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight while streaming, got %v", err)
	}
}

func TestConversation_SeedRejectsUnknownRole(t *testing.T) {
	c := newTestConversation()
	if err := c.Seed([]types.HistoryMessage{{Role: "system", Content: "x"}}); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if c.Len() != 0 {
		t.Errorf("rejected seed must not change the conversation, len=%d", c.Len())
	}
}
