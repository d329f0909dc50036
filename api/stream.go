package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ronit111/documind/iox"
	"github.com/ronit111/documind/sse"
	"github.com/ronit111/documind/types"
)

// ChatStream is an open chat response.
// The caller must Close it; Close is safe to call more than once.
type ChatStream struct {
	body      io.ReadCloser
	decoder   *sse.Decoder
	closeOnce sync.Once
	closeErr  error
}

// StreamChat calls POST /chat and returns the decoded event stream.
// A non-2xx reply is returned as *ServerError with the body already closed.
func (c *Client) StreamChat(ctx context.Context, request types.ChatRequest, opts ...sse.Option) (*ChatStream, error) {
	const op = "chat"

	if request.ChatHistory == nil {
		request.ChatHistory = []types.HistoryMessage{}
	}
	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer iox.DiscardClose(resp.Body)
		return nil, readServerError(resp)
	}

	return &ChatStream{
		body:    resp.Body,
		decoder: sse.NewDecoder(resp.Body, opts...),
	}, nil
}

// Next returns the next event, io.EOF at end of stream, a fatal
// *sse.DecodeError, or a *TransportError when the body cannot be read.
func (s *ChatStream) Next() (types.StreamEvent, error) {
	ev, err := s.decoder.Next()
	if err == nil || errors.Is(err, io.EOF) {
		return ev, err
	}
	var decodeErr *sse.DecodeError
	if errors.As(err, &decodeErr) {
		return nil, err
	}
	return nil, &TransportError{Op: "read chat stream", Err: err}
}

// Close releases the underlying connection.
func (s *ChatStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
