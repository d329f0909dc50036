package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ronit111/documind/api"
	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
	"github.com/ronit111/documind/sse"
	"github.com/ronit111/documind/types"
)

const ptoResponse = "event: token\ndata: {\"token\": \"PT\"}\n\n" +
	"event: token\ndata: {\"token\": \"O policy is 15 days.\"}\n\n" +
	"event: sources\ndata: {\"sources\": [{\"document_id\": \"d1\", \"document_name\": \"handbook.pdf\", " +
	"\"content\": \"...\", \"page_or_section\": null, \"chunk_index\": 0, \"relevance_score\": 0.91}]}\n\n" +
	"event: done\ndata: {}\n\n"

type memoryArchive struct {
	turns []types.TranscriptTurn
	err   error
}

func (a *memoryArchive) AppendTurn(_ context.Context, turn types.TranscriptTurn) error {
	if a.err != nil {
		return a.err
	}
	a.turns = append(a.turns, turn)
	return nil
}

func newStreamServer(t *testing.T, body string) *api.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)

	client, err := api.New(ts.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSession_PTOEndToEnd(t *testing.T) {
	client := newStreamServer(t, ptoResponse)
	collector := metrics.NewCollector("sess", "", "none")
	archive := &memoryArchive{}
	s := NewSession(APIStreamer(client), WithMetrics(collector), WithArchive(archive), WithSessionID("sess"))

	var observed []string
	msg, err := s.Ask(t.Context(), "What is the PTO policy?", func(m types.ConversationMessage) {
		observed = append(observed, m.Content)
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if msg.Content != "PTO policy is 15 days." {
		t.Errorf("content = %q", msg.Content)
	}
	if len(msg.Sources) != 1 {
		t.Errorf("sources length = %d, want 1", len(msg.Sources))
	}
	if msg.Streaming {
		t.Error("message still streaming")
	}
	if len(observed) != 4 || observed[0] != "PT" {
		t.Errorf("observed = %q", observed)
	}

	snap := collector.Snapshot()
	if snap.TurnsStarted != 1 || snap.TurnsCompleted != 1 || snap.TokensReceived != 2 {
		t.Errorf("unexpected metrics %+v", snap)
	}

	if len(archive.turns) != 1 {
		t.Fatalf("expected 1 archived turn, got %d", len(archive.turns))
	}
	turn := archive.turns[0]
	if turn.SessionID != "sess" || turn.Outcome != types.TurnDone || turn.Answer != msg.Content {
		t.Errorf("unexpected archived turn %+v", turn)
	}
}

func TestSession_ServerErrorEvent(t *testing.T) {
	client := newStreamServer(t, "event: token\ndata: {\"token\": \"x\"}\n\nevent: error\ndata: {\"detail\": \"LLM unavailable\"}\n\n")
	collector := metrics.NewCollector("sess", "", "none")
	s := NewSession(APIStreamer(client), WithMetrics(collector))

	msg, err := s.Ask(t.Context(), "q", nil)

	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected TurnError, got %v", err)
	}
	if turnErr.Detail != "LLM unavailable" || turnErr.Err != nil {
		t.Errorf("unexpected turn error %+v", turnErr)
	}
	if msg.Content != "Error: LLM unavailable" || !IsErrorContent(msg.Content) {
		t.Errorf("content = %q", msg.Content)
	}
	if collector.Snapshot().TurnsFailed != 1 {
		t.Error("expected failed turn counted")
	}
}

func TestSession_TruncatedStream(t *testing.T) {
	client := newStreamServer(t, "event: token\ndata: {\"token\": \"half\"}\n\nevent: token\ndata: {\"tok")
	s := NewSession(APIStreamer(client))

	msg, err := s.Ask(t.Context(), "q", nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF cause, got %v", err)
	}
	if msg.Content != "Error: "+DetailIncomplete {
		t.Errorf("content = %q", msg.Content)
	}
	if s.Conversation().Streaming() {
		t.Error("conversation left streaming")
	}

	// The next question is accepted and carries the settled history.
	if _, err := s.Conversation().Submit("again"); err != nil {
		t.Errorf("submit after failed turn: %v", err)
	}
}

func TestSession_DropsCountedNotSurfaced(t *testing.T) {
	body := "event: token\ndata: {\"token\": \"ok\"}\n\n" +
		"event: token\ndata: {broken\n\n" +
		"event: mystery\ndata: {}\n\n" +
		"event: done\ndata: {}\n\n"

	var logs bytes.Buffer
	logger := log.NewLogger("sess", log.Options{Level: "debug"}).WithOutput(&logs)
	collector := metrics.NewCollector("sess", "", "none")
	client := newStreamServer(t, body)
	streamer := APIStreamer(client, sse.WithDropHook(DropRecorder(logger, collector)))
	s := NewSession(streamer, WithMetrics(collector), WithLogger(logger))

	msg, err := s.Ask(t.Context(), "q", nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if msg.Content != "ok" {
		t.Errorf("content = %q", msg.Content)
	}

	snap := collector.Snapshot()
	if snap.RecordsDropped != 2 {
		t.Errorf("RecordsDropped = %d, want 2", snap.RecordsDropped)
	}
	if snap.DroppedByKind["malformed_payload"] != 1 || snap.DroppedByKind["unknown_event"] != 1 {
		t.Errorf("DroppedByKind = %v", snap.DroppedByKind)
	}
	if !strings.Contains(logs.String(), "stream records dropped during turn") {
		t.Errorf("expected per-turn drop warning, logs: %s", logs.String())
	}
}

func TestSession_ArchiveFailureDoesNotFailTurn(t *testing.T) {
	client := newStreamServer(t, "event: done\ndata: {}\n\n")
	collector := metrics.NewCollector("sess", "", "fs")
	s := NewSession(APIStreamer(client), WithMetrics(collector), WithArchive(&memoryArchive{err: errors.New("disk full")}))

	if _, err := s.Ask(t.Context(), "q", nil); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if collector.Snapshot().ArchiveWriteFailure != 1 {
		t.Error("expected archive failure counted")
	}
}

func TestSession_RejectsWhileStreaming(t *testing.T) {
	s := NewSession(streamerOf(&fakeStream{end: io.EOF}))
	if _, err := s.Conversation().Submit("pending"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := s.Ask(t.Context(), "second", nil)
	if !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}
}

func TestFormatSources(t *testing.T) {
	page := "p. 4"
	out := FormatSources([]types.SourceChunk{
		{DocumentName: "handbook.pdf", SectionRef: &page, RelevanceScore: 0.91},
		{DocumentName: "notes.md", RelevanceScore: 0.5},
	})
	want := "[1] handbook.pdf (p. 4) relevance 91%\n[2] notes.md relevance 50%\n"
	if out != want {
		t.Errorf("FormatSources = %q, want %q", out, want)
	}
}

func TestSession_PhasedTurn(t *testing.T) {
	archive := &memoryArchive{}
	collector := metrics.NewCollector("sess", "", "memory")
	s := NewSession(nil, WithSessionID("sess-phased"), WithMetrics(collector), WithArchive(archive))

	active, err := s.Begin("  What changed?  ")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if active.Request.Question != "What changed?" {
		t.Errorf("question = %q", active.Request.Question)
	}

	if !s.Apply(active, types.TokenEvent{Text: "Nothing"}) {
		t.Error("token should change the message")
	}
	if !s.Apply(active, types.DoneEvent{}) {
		t.Error("done should settle the message")
	}
	if s.Apply(active, types.TokenEvent{Text: " late"}) {
		t.Error("events after done must be ignored")
	}

	msg, transcript, err := s.Finish(active, nil)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if msg.Content != "Nothing" || msg.Streaming {
		t.Errorf("unexpected message %+v", msg)
	}
	if transcript.SessionID != "sess-phased" || transcript.Answer != "Nothing" || transcript.Outcome != types.TurnDone {
		t.Errorf("unexpected transcript %+v", transcript)
	}

	s.Record(t.Context(), transcript)
	if len(archive.turns) != 1 {
		t.Fatalf("archived %d turns, want 1", len(archive.turns))
	}
	snap := collector.Snapshot()
	if snap.TurnsStarted != 1 || snap.TurnsCompleted != 1 || snap.TokensReceived != 1 {
		t.Errorf("unexpected metrics %+v", snap)
	}
}
