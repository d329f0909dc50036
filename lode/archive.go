package lode

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/ronit111/documind/types"
)

// DefaultDataset is the default dataset id.
const DefaultDataset = "documind"

// ErrNoTurns is returned by History when no turn matches.
var ErrNoTurns = errors.New("no archived turns found")

// Archive appends settled chat turns to a Lode dataset partitioned by
// day and session id, one JSONL record per turn. Safe for concurrent use.
type Archive struct {
	dataset lode.Dataset
	name    string
	backend string

	mu sync.Mutex // serializes writes
}

// New creates an archive over the store produced by factory.
// Use lode.NewMemoryFactory() in tests.
func New(dataset string, factory lode.StoreFactory) (*Archive, error) {
	return newArchive(dataset, "custom", factory)
}

// NewFS creates an archive rooted at a local directory.
func NewFS(dataset, root string) (*Archive, error) {
	return newArchive(dataset, "fs", lode.NewFSFactory(root))
}

func newArchive(dataset, backend string, factory lode.StoreFactory) (*Archive, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return &Archive{dataset: ds, name: dataset, backend: backend}, nil
}

// Backend names the storage backend: fs, s3 or custom.
func (a *Archive) Backend() string {
	return a.backend
}

// AppendTurn writes one turn record.
func (a *Archive) AppendTurn(ctx context.Context, turn types.TranscriptTurn) error {
	if turn.SessionID == "" {
		return errors.New("archive turn: missing session id")
	}
	rec, err := newTurnRecord(turn)
	if err != nil {
		return fmt.Errorf("archive turn: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.dataset.Write(ctx, []any{rec}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, a.partitionPath(rec))
	}
	return nil
}

// History returns archived turns oldest first. An empty sessionID returns
// turns of every session; limit > 0 keeps only the most recent turns.
func (a *Archive) History(ctx context.Context, sessionID string, limit int) ([]types.TranscriptTurn, error) {
	snapshots, err := a.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, a.name+"/snapshots")
	}

	var turns []types.TranscriptTurn
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		if !snapshotMatches(snap, "session_id", sessionID) {
			continue
		}
		data, err := a.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", a.name, snap.ID))
		}
		for _, item := range data {
			turn, ok, err := parseTurnRecord(item)
			if err != nil {
				return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", a.name, snap.ID))
			}
			// manifest paths are a coarse filter; the record field decides
			if !ok || (sessionID != "" && turn.SessionID != sessionID) {
				continue
			}
			key := turn.SessionID + "/" + turn.TurnID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			turns = append(turns, turn)
		}
	}
	if len(turns) == 0 {
		return nil, ErrNoTurns
	}

	slices.SortStableFunc(turns, func(x, y types.TranscriptTurn) int {
		return x.StartedAt.Compare(y.StartedAt)
	})
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// Close releases archive resources.
func (a *Archive) Close() error {
	return nil
}

func (a *Archive) partitionPath(rec map[string]any) string {
	parts := []string{a.name}
	for _, k := range partitionKeys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, rec[k]))
	}
	return path.Join(parts...)
}

// snapshotMatches reports whether any file of snap lies under the exact
// key=value partition segment. An empty value matches everything.
func snapshotMatches(snap *lode.Snapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		if slices.Contains(strings.Split(f.Path, "/"), segment) {
			return true
		}
	}
	return false
}
