package types

import (
	"fmt"
	"strings"
	"time"
)

// DocumentStatus is the server-side lifecycle state of a document.
type DocumentStatus string

// Document status constants.
const (
	DocumentUploading  DocumentStatus = "uploading"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

// IsTransient returns true for states expected to change without user action.
func (s DocumentStatus) IsTransient() bool {
	return s == DocumentUploading || s == DocumentProcessing
}

// Timestamp is a server timestamp.
// The server emits ISO 8601 values that may lack a zone offset; those
// are interpreted as UTC.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order when parsing.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO 8601 strings.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON emits RFC 3339 in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// String formats the timestamp for table output.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// DocumentRecord is the client's cached copy of a server document.
type DocumentRecord struct {
	ID           string         `json:"id" yaml:"id"`
	Filename     string         `json:"filename" yaml:"filename"`
	SizeBytes    int64          `json:"file_size" yaml:"file_size"`
	Status       DocumentStatus `json:"status" yaml:"status"`
	ChunkCount   int            `json:"chunk_count" yaml:"chunk_count"`
	ErrorMessage *string        `json:"error_message" yaml:"error_message,omitempty"`
	CreatedAt    Timestamp      `json:"created_at" yaml:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at" yaml:"updated_at"`
}

// DocumentList is the body of GET /documents.
type DocumentList struct {
	Documents []DocumentRecord `json:"documents"`
	Total     int              `json:"total"`
}

// UploadResponse is the body of POST /documents/upload.
type UploadResponse struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Status    DocumentStatus `json:"status"`
	CreatedAt Timestamp      `json:"created_at"`
}

// DeleteResponse is the body of DELETE /documents/{id}.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	DocumentsCount int    `json:"documents_count"`
	VectorCount    int    `json:"vector_count"`
}

// ErrorEnvelope is the body of a non-2xx REST response.
type ErrorEnvelope struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}
