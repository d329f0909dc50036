package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/chat"
	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/cli/tui"
	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/sse"
	"github.com/ronit111/documind/types"
)

// ChatCommand returns the chat command.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask a question about the indexed documents",
		ArgsUsage: "[question]",
		Flags: []cli.Flag{
			TUIFlag,
			&cli.StringFlag{
				Name:  "history",
				Usage: "JSON file of prior {role, content} messages to continue from",
			},
		},
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	interactive := c.Bool("tui")
	if interactive && question != "" {
		return cli.Exit("--tui does not take a question argument", exitValidation)
	}
	if !interactive && strings.TrimSpace(question) == "" {
		return cli.Exit("chat requires a question (or --tui)", exitValidation)
	}

	var history []types.HistoryMessage
	if path := c.String("history"); path != "" {
		h, err := readHistory(path)
		if err != nil {
			return validationFailed(err)
		}
		history = h
	}

	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	ctx, stop := signalContext(c.Context)
	defer stop()

	opts := []chat.SessionOption{
		chat.WithLogger(d.logger),
		chat.WithMetrics(d.metrics),
		chat.WithSessionID(d.sessionID),
	}
	archive, err := d.openArchive(ctx)
	if err != nil {
		return err
	}
	if archive != nil {
		opts = append(opts, chat.WithArchive(archive))
	}
	streamer := chat.APIStreamer(d.client, sse.WithDropHook(chat.DropRecorder(d.logger, d.metrics)))
	session := chat.NewSession(streamer, opts...)
	if err := session.Conversation().Seed(history); err != nil {
		return validationFailed(err)
	}

	if interactive {
		var opts []tui.ChatOption
		if hint := emptyIndexHint(ctx, d.client, d.logger); hint != "" {
			opts = append(opts, tui.WithHint(hint))
		}
		if err := tui.RunChat(ctx, session, opts...); err != nil {
			return cli.Exit(fmt.Sprintf("tui error: %v", err), exitRequest)
		}
		return nil
	}
	return askOnce(ctx, d.renderer, session, question)
}

// EmptyIndexHint is shown when the server has no documents indexed.
const EmptyIndexHint = "No documents indexed yet. Upload documents to get started."

type healthChecker interface {
	Health(ctx context.Context) (*types.HealthResponse, error)
}

// emptyIndexHint returns EmptyIndexHint when the server reports no
// documents. A failed health check is not fatal to chat.
func emptyIndexHint(ctx context.Context, hc healthChecker, logger *log.Logger) string {
	resp, err := hc.Health(ctx)
	if err != nil {
		logger.Debug("health check before chat failed", map[string]any{"error": err.Error()})
		return ""
	}
	if resp.DocumentsCount == 0 {
		return EmptyIndexHint
	}
	return ""
}

// askOnce streams one answer. Table output streams tokens as they arrive;
// json and yaml render the settled message.
func askOnce(ctx context.Context, r *render.Renderer, session *chat.Session, question string) error {
	var observe func(types.ConversationMessage)
	streamed := 0
	if r.Format() == render.FormatTable {
		observe = func(msg types.ConversationMessage) {
			if chat.IsErrorContent(msg.Content) || len(msg.Content) <= streamed {
				return
			}
			_, _ = io.WriteString(r.Writer(), msg.Content[streamed:])
			streamed = len(msg.Content)
		}
	}

	msg, err := session.Ask(ctx, question, observe)
	if errors.Is(err, chat.ErrEmptyQuestion) {
		return cli.Exit(err.Error(), exitValidation)
	}
	var turnErr *chat.TurnError
	if errors.As(err, &turnErr) {
		if streamed > 0 {
			fmt.Fprintln(r.Writer())
		}
		return cli.Exit(msg.Content, exitRequest)
	}
	if err != nil {
		return cli.Exit(err.Error(), exitRequest)
	}

	if r.Format() != render.FormatTable {
		return r.Render(msg)
	}
	fmt.Fprintln(r.Writer())
	if len(msg.Sources) > 0 {
		fmt.Fprintln(r.Writer())
		fmt.Fprint(r.Writer(), chat.FormatSources(msg.Sources))
	}
	return nil
}

// readHistory loads prior messages from a JSON array of
// {"role": "user"|"assistant", "content": "..."}.
func readHistory(path string) ([]types.HistoryMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read history file: %w", err)
	}
	var history []types.HistoryMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("invalid history file %s: %w", path, err)
	}
	return history, nil
}
