// Package docs tracks server document state: status polling and a local record cache.
package docs

import (
	"context"
	"time"

	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
	"github.com/ronit111/documind/types"
)

// DefaultInterval is the time between status queries.
const DefaultInterval = 3 * time.Second

// StatusSource returns the current record of a document.
type StatusSource interface {
	GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between queries.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCache writes every queried record to c.
func WithCache(c *Cache) Option {
	return func(p *Poller) { p.cache = c }
}

// WithLogger sets the poller logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Poller) { p.metrics = c }
}

// Poller queries a document's status until it settles.
// One Poller may serve any number of concurrent Poll calls.
type Poller struct {
	source   StatusSource
	interval time.Duration
	cache    *Cache
	logger   *log.Logger
	metrics  *metrics.Collector
}

// NewPoller creates a poller reading from source.
func NewPoller(source StatusSource, opts ...Option) *Poller {
	p := &Poller{
		source:   source,
		interval: DefaultInterval,
		logger:   log.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the time between queries.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Poll waits one interval, queries document id, and repeats until its
// status leaves {uploading, processing}. It returns the settled record.
//
// The next query is scheduled only after the previous one returns, so one
// query at most is in flight. Failed queries are retried at the next
// interval and never returned. Poll returns ctx.Err() once ctx is done and
// issues no query after that.
func (p *Poller) Poll(ctx context.Context, id string) (types.DocumentRecord, error) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return types.DocumentRecord{}, ctx.Err()
		case <-timer.C:
		}
		// Both cases can be ready at once; cancellation wins.
		if err := ctx.Err(); err != nil {
			return types.DocumentRecord{}, err
		}

		p.metrics.IncPollQuery()
		rec, err := p.source.GetDocument(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return types.DocumentRecord{}, ctx.Err()
			}
			p.metrics.IncPollFailure()
			p.logger.Debug("status query failed", map[string]any{
				"document_id": id,
				"attempt":     attempt,
				"error":       err.Error(),
			})
		} else {
			if p.cache != nil {
				p.cache.Put(*rec)
			}
			if !rec.Status.IsTransient() {
				p.logger.Debug("document settled", map[string]any{
					"document_id": id,
					"status":      string(rec.Status),
					"queries":     attempt,
				})
				return *rec, nil
			}
		}

		timer.Reset(p.interval)
	}
}
