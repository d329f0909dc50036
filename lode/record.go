package lode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ronit111/documind/types"
)

// RecordKindTurn marks a transcript turn record.
const RecordKindTurn = "turn"

// Partition keys of the transcript dataset, in layout order.
var partitionKeys = []string{"day", "session_id"}

// TurnRecord is the stored form of a transcript turn.
type TurnRecord struct {
	RecordKind      string              `json:"record_kind"`
	ContractVersion string              `json:"contract_version"`
	TurnID          string              `json:"turn_id"`
	Question        string              `json:"question"`
	Answer          string              `json:"answer"`
	Outcome         string              `json:"outcome"`
	Sources         []types.SourceChunk `json:"sources"`
	StartedAt       string              `json:"started_at"`
	SettledAt       string              `json:"settled_at"`

	// Partition keys
	Day       string `json:"day"`
	SessionID string `json:"session_id"`
}

// newTurnRecord converts a turn to its record map. The day partition is the
// UTC date the turn started.
func newTurnRecord(turn types.TranscriptTurn) (map[string]any, error) {
	rec := TurnRecord{
		RecordKind:      RecordKindTurn,
		ContractVersion: types.EventContractVersion,
		TurnID:          turn.TurnID,
		Question:        turn.Question,
		Answer:          turn.Answer,
		Outcome:         string(turn.Outcome),
		Sources:         turn.Sources,
		StartedAt:       turn.StartedAt.UTC().Format(time.RFC3339Nano),
		SettledAt:       turn.SettledAt.UTC().Format(time.RFC3339Nano),
		Day:             turn.StartedAt.UTC().Format(time.DateOnly),
		SessionID:       turn.SessionID,
	}
	if rec.Sources == nil {
		rec.Sources = []types.SourceChunk{}
	}
	return toMap(rec)
}

// parseTurnRecord converts a decoded record back to a turn.
// ok is false for records of another kind.
func parseTurnRecord(v any) (turn types.TranscriptTurn, ok bool, err error) {
	m, isMap := v.(map[string]any)
	if !isMap || m["record_kind"] != RecordKindTurn {
		return types.TranscriptTurn{}, false, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return types.TranscriptTurn{}, false, err
	}
	var rec TurnRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.TranscriptTurn{}, false, fmt.Errorf("decode turn record: %w", err)
	}

	turn = types.TranscriptTurn{
		SessionID: rec.SessionID,
		TurnID:    rec.TurnID,
		Question:  rec.Question,
		Answer:    rec.Answer,
		Sources:   rec.Sources,
		Outcome:   types.TurnOutcome(rec.Outcome),
	}
	if turn.StartedAt, err = time.Parse(time.RFC3339Nano, rec.StartedAt); err != nil {
		return types.TranscriptTurn{}, false, fmt.Errorf("decode started_at: %w", err)
	}
	if turn.SettledAt, err = time.Parse(time.RFC3339Nano, rec.SettledAt); err != nil {
		return types.TranscriptTurn{}, false, fmt.Errorf("decode settled_at: %w", err)
	}
	return turn, true, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
