// Package metrics provides per-session client metrics.
//
// The Collector accumulates counters for one CLI session. It is a leaf package
// with no internal dependencies; callers hold a *Collector and may pass nil to
// disable collection.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Chat
	TurnsStarted   int64 `json:"turns_started"`
	TurnsCompleted int64 `json:"turns_completed"`
	TurnsFailed    int64 `json:"turns_failed"`
	TokensReceived int64 `json:"tokens_received"`

	// Stream decoding
	RecordsDropped int64            `json:"records_dropped"`
	DroppedByKind  map[string]int64 `json:"dropped_by_kind"`

	// Uploads
	UploadsSubmitted int64 `json:"uploads_submitted"`
	UploadsRejected  int64 `json:"uploads_rejected"`
	UploadsSucceeded int64 `json:"uploads_succeeded"`
	UploadsFailed    int64 `json:"uploads_failed"`

	// Status polling
	PollQueries  int64 `json:"poll_queries"`
	PollFailures int64 `json:"poll_failures"`

	// Notifications and archive
	PublishSuccess      int64 `json:"publish_success"`
	PublishFailure      int64 `json:"publish_failure"`
	ArchiveWriteSuccess int64 `json:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure"`

	// Dimensions (informational, set at construction)
	SessionID      string `json:"session_id"`
	APIURL         string `json:"api_url"`
	ArchiveBackend string `json:"archive_backend"`
}

// Collector accumulates metrics during a session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	turnsStarted   int64
	turnsCompleted int64
	turnsFailed    int64
	tokensReceived int64

	recordsDropped int64
	droppedByKind  map[string]int64

	uploadsSubmitted int64
	uploadsRejected  int64
	uploadsSucceeded int64
	uploadsFailed    int64

	pollQueries  int64
	pollFailures int64

	publishSuccess      int64
	publishFailure      int64
	archiveWriteSuccess int64
	archiveWriteFailure int64

	sessionID      string
	apiURL         string
	archiveBackend string
}

// NewCollector creates a Collector with dimension labels.
// archiveBackend is "none" when the transcript archive is disabled.
func NewCollector(sessionID, apiURL, archiveBackend string) *Collector {
	return &Collector{
		droppedByKind:  make(map[string]int64),
		sessionID:      sessionID,
		apiURL:         apiURL,
		archiveBackend: archiveBackend,
	}
}

func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Chat ---

// IncTurnStarted records a submitted question.
func (c *Collector) IncTurnStarted() {
	if c == nil {
		return
	}
	c.add(&c.turnsStarted, 1)
}

// IncTurnCompleted records a turn settled by a done event.
func (c *Collector) IncTurnCompleted() {
	if c == nil {
		return
	}
	c.add(&c.turnsCompleted, 1)
}

// IncTurnFailed records a turn settled by an error event.
func (c *Collector) IncTurnFailed() {
	if c == nil {
		return
	}
	c.add(&c.turnsFailed, 1)
}

// IncTokens records a received token event.
func (c *Collector) IncTokens() {
	if c == nil {
		return
	}
	c.add(&c.tokensReceived, 1)
}

// IncRecordDropped records a stream record dropped by the decoder.
// kind is the decode error kind label.
func (c *Collector) IncRecordDropped(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsDropped++
	c.droppedByKind[kind]++
	c.mu.Unlock()
}

// --- Uploads ---

// IncUploadSubmitted records a file handed to the orchestrator.
func (c *Collector) IncUploadSubmitted() {
	if c == nil {
		return
	}
	c.add(&c.uploadsSubmitted, 1)
}

// IncUploadRejected records a file that failed validation.
func (c *Collector) IncUploadRejected() {
	if c == nil {
		return
	}
	c.add(&c.uploadsRejected, 1)
}

// IncUploadSucceeded records a completed transfer.
func (c *Collector) IncUploadSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.uploadsSucceeded, 1)
}

// IncUploadFailed records a failed transfer.
func (c *Collector) IncUploadFailed() {
	if c == nil {
		return
	}
	c.add(&c.uploadsFailed, 1)
}

// --- Polling ---

// IncPollQuery records a status query.
func (c *Collector) IncPollQuery() {
	if c == nil {
		return
	}
	c.add(&c.pollQueries, 1)
}

// IncPollFailure records a failed status query.
func (c *Collector) IncPollFailure() {
	if c == nil {
		return
	}
	c.add(&c.pollFailures, 1)
}

// --- Notifications / Archive ---

// IncPublishSuccess records a delivered notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.add(&c.publishSuccess, 1)
}

// IncPublishFailure records a notification that exhausted its retries.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailure, 1)
}

// IncArchiveWriteSuccess records a transcript record written.
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.archiveWriteSuccess, 1)
}

// IncArchiveWriteFailure records a failed transcript write.
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.archiveWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be updated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TurnsStarted:        c.turnsStarted,
		TurnsCompleted:      c.turnsCompleted,
		TurnsFailed:         c.turnsFailed,
		TokensReceived:      c.tokensReceived,
		RecordsDropped:      c.recordsDropped,
		DroppedByKind:       maps.Clone(c.droppedByKind),
		UploadsSubmitted:    c.uploadsSubmitted,
		UploadsRejected:     c.uploadsRejected,
		UploadsSucceeded:    c.uploadsSucceeded,
		UploadsFailed:       c.uploadsFailed,
		PollQueries:         c.pollQueries,
		PollFailures:        c.pollFailures,
		PublishSuccess:      c.publishSuccess,
		PublishFailure:      c.publishFailure,
		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,
		SessionID:           c.sessionID,
		APIURL:              c.apiURL,
		ArchiveBackend:      c.archiveBackend,
	}
}

// Fields returns the non-zero counters as log fields.
func (s Snapshot) Fields() map[string]any {
	fields := map[string]any{"session_id": s.SessionID}
	counters := map[string]int64{
		"turns_started":         s.TurnsStarted,
		"turns_completed":       s.TurnsCompleted,
		"turns_failed":          s.TurnsFailed,
		"tokens_received":       s.TokensReceived,
		"records_dropped":       s.RecordsDropped,
		"uploads_submitted":     s.UploadsSubmitted,
		"uploads_rejected":      s.UploadsRejected,
		"uploads_succeeded":     s.UploadsSucceeded,
		"uploads_failed":        s.UploadsFailed,
		"poll_queries":          s.PollQueries,
		"poll_failures":         s.PollFailures,
		"publish_success":       s.PublishSuccess,
		"publish_failure":       s.PublishFailure,
		"archive_write_success": s.ArchiveWriteSuccess,
		"archive_write_failure": s.ArchiveWriteFailure,
	}
	for k, v := range counters {
		if v != 0 {
			fields[k] = v
		}
	}
	if len(s.DroppedByKind) > 0 {
		fields["dropped_by_kind"] = s.DroppedByKind
	}
	return fields
}
