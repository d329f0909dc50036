package docs

import (
	"context"
	"errors"
	"sync"

	"github.com/ronit111/documind/types"
)

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// SettledFunc receives the record of a document that left the transient states.
type SettledFunc func(types.DocumentRecord)

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Watcher runs at most one poller per document and tears them down on
// request. Safe for concurrent use.
type Watcher struct {
	poller *Poller
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]*watch
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher whose pollers stop when parent is done.
func NewWatcher(parent context.Context, poller *Poller) *Watcher {
	ctx, cancel := context.WithCancel(parent)
	return &Watcher{
		poller: poller,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]*watch),
	}
}

// Watch starts polling document id if status is transient and no poller
// for id is running. onSettled is called once, from the poller goroutine,
// with the settled record. It returns true if a poller was started.
func (w *Watcher) Watch(id string, status types.DocumentStatus, onSettled SettledFunc) (bool, error) {
	if !status.IsTransient() {
		return false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, ErrWatcherClosed
	}
	if _, running := w.active[id]; running {
		return false, nil
	}

	ctx, cancel := context.WithCancel(w.ctx)
	wt := &watch{cancel: cancel, done: make(chan struct{})}
	w.active[id] = wt
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer close(wt.done)
		defer cancel()

		rec, err := w.poller.Poll(ctx, id)

		w.mu.Lock()
		if w.active[id] == wt {
			delete(w.active, id)
		}
		w.mu.Unlock()

		if err == nil && onSettled != nil {
			onSettled(rec)
		}
	}()
	return true, nil
}

// Stop cancels the poller for id and waits for it to exit.
func (w *Watcher) Stop(id string) {
	w.mu.Lock()
	wt, ok := w.active[id]
	if ok {
		delete(w.active, id)
	}
	w.mu.Unlock()

	if !ok {
		return
	}
	wt.cancel()
	<-wt.done
}

// Active returns the number of running pollers.
func (w *Watcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// Wait blocks until every poller has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Close cancels every poller and waits for them to exit.
// No query is issued after Close returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	return nil
}
