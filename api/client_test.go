package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ronit111/documind/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL + "/api")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"localhost:8000", "ftp://host/api", "://bad"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/health" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"status": "healthy", "documents_count": 3, "vector_count": 120}`)
	}))

	h, err := c.Health(t.Context())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Status != "healthy" || h.DocumentsCount != 3 || h.VectorCount != 120 {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestListDocuments(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"documents": [
			{"id": "d1", "filename": "a.pdf", "file_size": 10, "status": "ready", "chunk_count": 4,
			 "error_message": null, "created_at": "2026-01-02T03:04:05", "updated_at": "2026-01-02T03:04:06"}
		], "total": 1}`)
	}))

	list, err := c.ListDocuments(t.Context())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 || len(list.Documents) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Documents[0].Status != types.DocumentReady || list.Documents[0].ChunkCount != 4 {
		t.Errorf("unexpected document %+v", list.Documents[0])
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/missing" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail": "Document not found", "status_code": 404}`)
	}))

	_, err := c.GetDocument(t.Context(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.Detail != "Document not found" {
		t.Errorf("unexpected error %v", err)
	}
	if got := Message(err); got != "Document not found" {
		t.Errorf("Message = %q", got)
	}
}

func TestDeleteDocument(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		_, _ = io.WriteString(w, `{"success": true, "message": "Document deleted"}`)
	}))

	resp, err := c.DeleteDocument(t.Context(), "d1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !resp.Success || resp.Message != "Document deleted" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServerError_FallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream down</html>")
	}))

	_, err := c.Health(t.Context())
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.StatusCode != http.StatusBadGateway || serverErr.Detail != "Bad Gateway" {
		t.Errorf("unexpected error %+v", serverErr)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("502 must not match ErrNotFound")
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url + "/api")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Health(t.Context())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Op != "health" {
		t.Errorf("Op = %q, want health", transportErr.Op)
	}
	if !strings.HasPrefix(Message(err), "Network error") {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(ts.URL+"/api", WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Health(t.Context())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if Message(err) != "request timed out" {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestUploadDocument(t *testing.T) {
	content := strings.Repeat("hello world\n", 5000)

	var gotName, gotType, gotContent string
	var gotLength int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/documents/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotLength = r.ContentLength

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			t.Errorf("next part: %v", err)
			return
		}
		if part.FormName() != UploadField {
			t.Errorf("form field = %q, want %q", part.FormName(), UploadField)
		}
		gotName = part.FileName()
		gotType = part.Header.Get("Content-Type")
		data, _ := io.ReadAll(part)
		gotContent = string(data)
		if _, err := mr.NextPart(); err != io.EOF {
			t.Errorf("expected single part, got %v", err)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "doc-1", "filename": gotName, "status": "processing", "created_at": "2026-01-02T03:04:05",
		})
	}))

	file := types.FileRef{
		Name:      `notes "v2".txt`,
		MediaType: "text/plain",
		Size:      int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}

	var mu sync.Mutex
	var progress []int
	resp, err := c.UploadDocument(t.Context(), file, func(p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if resp.ID != "doc-1" || resp.Status != types.DocumentProcessing {
		t.Errorf("unexpected response %+v", resp)
	}
	if gotName != file.Name {
		t.Errorf("filename = %q, want %q", gotName, file.Name)
	}
	if gotType != "text/plain" {
		t.Errorf("part content type = %q", gotType)
	}
	if gotContent != content {
		t.Errorf("content mismatch: got %d bytes, want %d", len(gotContent), len(content))
	}
	if gotLength <= int64(len(content)) {
		t.Errorf("content length %d should include multipart framing", gotLength)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("expected progress ending at 100, got %v", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}
}

func TestUploadDocument_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail": "Unsupported file type: .exe", "status_code": 400}`)
	}))

	file := types.FileRef{
		Name: "a.txt",
		Size: 3,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("abc")), nil },
	}
	_, err := c.UploadDocument(t.Context(), file, nil)
	if Message(err) != "Unsupported file type: .exe" {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestUploadDocument_NoSource(t *testing.T) {
	c, _ := New("http://localhost:1/api")
	_, err := c.UploadDocument(t.Context(), types.FileRef{Name: "x.txt"}, nil)
	if err == nil {
		t.Fatal("expected error without content source")
	}
}
