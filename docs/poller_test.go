package docs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ronit111/documind/metrics"
	"github.com/ronit111/documind/types"
)

const testInterval = 10 * time.Millisecond

// scriptedSource returns statuses[i] for the i-th query and repeats the
// last one afterwards. A status of "" fails the query.
type scriptedSource struct {
	mu       sync.Mutex
	statuses []types.DocumentStatus
	queries  atomic.Int64
	inFlight atomic.Int64
	overlap  atomic.Bool
}

func (s *scriptedSource) GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	n := int(s.queries.Add(1))
	s.mu.Lock()
	status := s.statuses[min(n, len(s.statuses))-1]
	s.mu.Unlock()

	if status == "" {
		return nil, errors.New("connection refused")
	}
	return &types.DocumentRecord{ID: id, Filename: id + ".pdf", Status: status}, nil
}

func TestPoller_ReadyOnSecondQuery(t *testing.T) {
	src := &scriptedSource{statuses: []types.DocumentStatus{types.DocumentProcessing, types.DocumentReady}}
	cache := NewCache(time.Minute)
	p := NewPoller(src, WithInterval(testInterval), WithCache(cache))

	rec, err := p.Poll(t.Context(), "d1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if rec.Status != types.DocumentReady {
		t.Errorf("status = %s, want ready", rec.Status)
	}
	if got := src.queries.Load(); got != 2 {
		t.Fatalf("queries = %d, want 2", got)
	}

	time.Sleep(5 * testInterval)
	if got := src.queries.Load(); got != 2 {
		t.Errorf("queries after settle = %d, want 2", got)
	}

	cached, ok := cache.Get("d1")
	if !ok || cached.Status != types.DocumentReady {
		t.Errorf("cache = %+v, %v", cached, ok)
	}
}

func TestPoller_WaitsOneIntervalBeforeFirstQuery(t *testing.T) {
	src := &scriptedSource{statuses: []types.DocumentStatus{types.DocumentReady}}
	p := NewPoller(src, WithInterval(50*time.Millisecond))

	start := time.Now()
	if _, err := p.Poll(t.Context(), "d1"); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("first query after %v, want at least one interval", elapsed)
	}
}

func TestPoller_FailuresAreTransient(t *testing.T) {
	src := &scriptedSource{statuses: []types.DocumentStatus{"", types.DocumentProcessing, "", types.DocumentFailed}}
	collector := metrics.NewCollector("sess", "", "none")
	p := NewPoller(src, WithInterval(testInterval), WithMetrics(collector))

	rec, err := p.Poll(t.Context(), "d1")
	if err != nil {
		t.Fatalf("poll surfaced an error: %v", err)
	}
	if rec.Status != types.DocumentFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}

	snap := collector.Snapshot()
	if snap.PollQueries != 4 || snap.PollFailures != 2 {
		t.Errorf("queries=%d failures=%d, want 4 and 2", snap.PollQueries, snap.PollFailures)
	}
	if src.overlap.Load() {
		t.Error("queries overlapped")
	}
}

func TestPoller_CancelStopsQueries(t *testing.T) {
	src := &scriptedSource{statuses: []types.DocumentStatus{types.DocumentProcessing}}
	p := NewPoller(src, WithInterval(testInterval))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(ctx, "d1")
		done <- err
	}()

	time.Sleep(3*testInterval + testInterval/2)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	after := src.queries.Load()
	if after == 0 {
		t.Fatal("expected some queries before cancel")
	}
	time.Sleep(5 * testInterval)
	if got := src.queries.Load(); got != after {
		t.Errorf("queries continued after cancel: %d -> %d", after, got)
	}
}

// cancelingSource cancels the poll while answering its first query.
type cancelingSource struct {
	cancel  context.CancelFunc
	queries atomic.Int64
}

func (s *cancelingSource) GetDocument(_ context.Context, id string) (*types.DocumentRecord, error) {
	s.queries.Add(1)
	s.cancel()
	return &types.DocumentRecord{ID: id, Status: types.DocumentProcessing}, nil
}

func TestPoller_NoQueryAfterCancelWithElapsedTimer(t *testing.T) {
	for i := range 200 {
		ctx, cancel := context.WithCancel(t.Context())
		src := &cancelingSource{cancel: cancel}
		p := NewPoller(src, WithInterval(time.Nanosecond))

		_, err := p.Poll(ctx, "d1")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run %d: expected context.Canceled, got %v", i, err)
		}
		if got := src.queries.Load(); got != 1 {
			t.Fatalf("run %d: queries = %d, want 1", i, got)
		}
	}
}

func TestPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(&scriptedSource{})
	if p.Interval() != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.Interval(), DefaultInterval)
	}
	if DefaultInterval != 3*time.Second {
		t.Errorf("DefaultInterval = %v, want 3s", DefaultInterval)
	}
}
