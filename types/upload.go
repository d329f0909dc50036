package types

import "io"

// UploadStatus is the client-side state of one file transfer.
type UploadStatus string

// Upload status constants.
const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadDone      UploadStatus = "done"
	UploadError     UploadStatus = "error"
)

// IsTerminal returns true once the transfer can no longer change.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadDone || s == UploadError
}

// FileRef describes a candidate file for upload.
// Name, MediaType and Size are what the validator inspects; Open is only
// called once a transfer starts. SniffedType, when set, is the type detected
// from the content and is only used to reject mismatches.
type FileRef struct {
	Name        string `json:"name" yaml:"name"`
	MediaType   string `json:"media_type" yaml:"media_type"`
	SniffedType string `json:"sniffed_type,omitempty" yaml:"sniffed_type,omitempty"`
	Size        int64  `json:"size" yaml:"size"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`

	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
}

// UploadTask tracks one submitted file.
// Tasks are addressed by ID, assigned at submission.
type UploadTask struct {
	ID           string       `json:"id" yaml:"id"`
	File         FileRef      `json:"file" yaml:"file"`
	Progress     int          `json:"progress" yaml:"progress"`
	Status       UploadStatus `json:"status" yaml:"status"`
	ErrorMessage string       `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	DocumentID   string       `json:"document_id,omitempty" yaml:"document_id,omitempty"`
}
