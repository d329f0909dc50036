package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
)

// DefaultPublishTimeout bounds one Notify call per adapter, retries included.
const DefaultPublishTimeout = 30 * time.Second

// Notifier publishes every event to each configured adapter.
// A Notifier with no adapters does nothing. Safe for concurrent use when the
// adapters are.
type Notifier struct {
	adapters []namedAdapter
	logger   *log.Logger
	metrics  *metrics.Collector
	timeout  time.Duration
}

type namedAdapter struct {
	name    string
	adapter Adapter
}

// NewNotifier creates a notifier that logs to logger and counts into c.
func NewNotifier(logger *log.Logger, c *metrics.Collector) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{logger: logger, metrics: c, timeout: DefaultPublishTimeout}
}

// Add registers an adapter under name.
func (n *Notifier) Add(name string, a Adapter) {
	n.adapters = append(n.adapters, namedAdapter{name: name, adapter: a})
}

// Len returns the number of adapters.
func (n *Notifier) Len() int {
	return len(n.adapters)
}

// Notify publishes event to every adapter. Failures are logged and counted;
// they are not returned.
func (n *Notifier) Notify(ctx context.Context, event *Event) {
	for _, na := range n.adapters {
		publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
		err := na.adapter.Publish(publishCtx, event)
		cancel()

		fields := map[string]any{
			"adapter":     na.name,
			"event_type":  string(event.EventType),
			"document_id": event.DocumentID,
		}
		if err != nil {
			n.metrics.IncPublishFailure()
			fields["error"] = err.Error()
			n.logger.Warn("failed to publish notification", fields)
			continue
		}
		n.metrics.IncPublishSuccess()
		n.logger.Debug("published notification", fields)
	}
}

// Close closes every adapter.
func (n *Notifier) Close() error {
	var errs []error
	for _, na := range n.adapters {
		if err := na.adapter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
