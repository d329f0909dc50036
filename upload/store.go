package upload

import (
	"sync"

	"github.com/ronit111/documind/types"
)

// Store holds upload tasks keyed by task id.
//
// Updates are copy-on-write: Update hands the caller a copy of the current
// task and stores the returned value, so a callback for one task can never
// write another task's state. Terminal tasks are frozen and progress never
// decreases.
type Store struct {
	mu    sync.Mutex
	tasks map[string]types.UploadTask
	order []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]types.UploadTask)}
}

// Add records a new task. A task whose id is already present is ignored.
func (s *Store) Add(task types.UploadTask) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return false
	}
	task.Progress = clampProgress(task.Progress)
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
	return true
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (types.UploadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	return task, ok
}

// Update replaces task id with fn applied to a copy of it.
// It returns the stored task and whether anything changed. Unknown and
// terminal tasks are left as they are.
func (s *Store) Update(id string, fn func(types.UploadTask) types.UploadTask) (types.UploadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok || current.Status.IsTerminal() {
		return current, false
	}

	next := fn(current)
	next.ID = current.ID
	next.Progress = max(current.Progress, clampProgress(next.Progress))
	if sameTask(current, next) {
		return current, false
	}
	s.tasks[id] = next
	return next, true
}

// Snapshot returns every task in submission order.
func (s *Store) Snapshot() []types.UploadTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.UploadTask, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func sameTask(a, b types.UploadTask) bool {
	return a.Progress == b.Progress &&
		a.Status == b.Status &&
		a.ErrorMessage == b.ErrorMessage &&
		a.DocumentID == b.DocumentID
}

func clampProgress(p int) int {
	return max(0, min(100, p))
}
