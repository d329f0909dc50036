package chat

import (
	"context"
	"errors"
	"io"

	"github.com/ronit111/documind/api"
	"github.com/ronit111/documind/iox"
	"github.com/ronit111/documind/sse"
	"github.com/ronit111/documind/types"
)

// DetailIncomplete is the error detail for a stream that ended without
// a done or error event.
const DetailIncomplete = "stream ended before completion"

// Stream is an open chat response.
type Stream interface {
	// Next returns the next event or io.EOF at end of stream.
	Next() (types.StreamEvent, error)
	Close() error
}

// Streamer opens chat responses.
type Streamer interface {
	OpenStream(ctx context.Context, req types.ChatRequest) (Stream, error)
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, req types.ChatRequest) (Stream, error)

// OpenStream implements Streamer.
func (f StreamerFunc) OpenStream(ctx context.Context, req types.ChatRequest) (Stream, error) {
	return f(ctx, req)
}

// APIStreamer opens streams with client, passing opts to the decoder.
func APIStreamer(client *api.Client, opts ...sse.Option) Streamer {
	return StreamerFunc(func(ctx context.Context, req types.ChatRequest) (Stream, error) {
		stream, err := client.StreamChat(ctx, req, opts...)
		if err != nil {
			return nil, err
		}
		return stream, nil
	})
}

// Relay streams the response to req and hands each event to fn in arrival order.
//
// Exactly one terminal event reaches fn. When the server does not send one,
// because the request failed, the stream broke, ctx was canceled, or the
// stream simply ended, Relay synthesizes an ErrorEvent and returns the cause.
// The stream is closed before Relay returns.
func Relay(ctx context.Context, s Streamer, req types.ChatRequest, fn func(types.StreamEvent)) error {
	if err := ctx.Err(); err != nil {
		fn(types.ErrorEvent{Detail: api.Message(err)})
		return err
	}

	stream, err := s.OpenStream(ctx, req)
	if err != nil {
		fn(types.ErrorEvent{Detail: failureDetail(ctx, err)})
		return err
	}
	defer iox.DiscardClose(stream)

	for {
		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			fn(types.ErrorEvent{Detail: failureDetail(ctx, err)})
			return err
		}

		fn(ev)
		if types.IsTerminalEvent(ev) {
			return nil
		}
	}
}

func failureDetail(ctx context.Context, err error) string {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return api.Message(ctxErr)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return DetailIncomplete
	}
	return api.Message(err)
}
