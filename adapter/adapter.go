// Package adapter defines the notification boundary for downstream systems.
//
// Adapters publish upload and document lifecycle notifications. Publishing is
// best effort: failures are logged and counted by the Notifier and never fail
// the upload or poll that produced the event.
package adapter

import (
	"context"
	"time"

	"github.com/ronit111/documind/types"
)

// EventType discriminates notification events.
type EventType string

// Notification event types.
const (
	// EventUploadCompleted is published once per task that reaches done.
	EventUploadCompleted EventType = "upload_completed"
	// EventDocumentSettled is published when a polled document leaves the transient states.
	EventDocumentSettled EventType = "document_settled"
)

// Event is the payload published to downstream systems.
type Event struct {
	ContractVersion string    `json:"contract_version" msgpack:"contract_version"`
	EventType       EventType `json:"event_type" msgpack:"event_type"`
	SessionID       string    `json:"session_id" msgpack:"session_id"`
	TaskID          string    `json:"task_id,omitempty" msgpack:"task_id,omitempty"`
	DocumentID      string    `json:"document_id" msgpack:"document_id"`
	Filename        string    `json:"filename" msgpack:"filename"`
	Status          string    `json:"status" msgpack:"status"`               // done, ready, failed
	ErrorMessage    string    `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty" msgpack:"size_bytes,omitempty"`
	ChunkCount      int       `json:"chunk_count,omitempty" msgpack:"chunk_count,omitempty"`
	Timestamp       string    `json:"timestamp" msgpack:"timestamp"` // RFC 3339
}

// UploadCompleted builds the event for a finished upload task.
func UploadCompleted(sessionID string, task types.UploadTask, at time.Time) *Event {
	return &Event{
		ContractVersion: types.EventContractVersion,
		EventType:       EventUploadCompleted,
		SessionID:       sessionID,
		TaskID:          task.ID,
		DocumentID:      task.DocumentID,
		Filename:        task.File.Name,
		Status:          string(task.Status),
		SizeBytes:       task.File.Size,
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
}

// DocumentSettled builds the event for a document that finished processing.
func DocumentSettled(sessionID string, rec types.DocumentRecord, at time.Time) *Event {
	ev := &Event{
		ContractVersion: types.EventContractVersion,
		EventType:       EventDocumentSettled,
		SessionID:       sessionID,
		DocumentID:      rec.ID,
		Filename:        rec.Filename,
		Status:          string(rec.Status),
		SizeBytes:       rec.SizeBytes,
		ChunkCount:      rec.ChunkCount,
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
	if rec.ErrorMessage != nil {
		ev.ErrorMessage = *rec.ErrorMessage
	}
	return ev
}

// Adapter publishes notification events to a downstream system.
type Adapter interface {
	// Publish sends an event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *Event) error

	// Close releases adapter resources.
	Close() error
}
