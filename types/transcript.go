package types

import "time"

// TurnOutcome is how a chat turn settled.
type TurnOutcome string

// Turn outcome constants.
const (
	TurnDone  TurnOutcome = "done"
	TurnError TurnOutcome = "error"
)

// TranscriptTurn is one settled turn as written to the transcript archive.
type TranscriptTurn struct {
	SessionID string        `json:"session_id" yaml:"session_id"`
	TurnID    string        `json:"turn_id" yaml:"turn_id"`
	Question  string        `json:"question" yaml:"question"`
	Answer    string        `json:"answer" yaml:"answer"`
	Sources   []SourceChunk `json:"sources,omitempty" yaml:"sources,omitempty"`
	Outcome   TurnOutcome   `json:"outcome" yaml:"outcome"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	SettledAt time.Time     `json:"settled_at" yaml:"settled_at"`
}
