package cmd

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/adapter"
	"github.com/ronit111/documind/api"
	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/docs"
	"github.com/ronit111/documind/types"
)

// DocsCommand returns the docs command with subcommands.
func DocsCommand() *cli.Command {
	return &cli.Command{
		Name:  "docs",
		Usage: "List, inspect, delete and watch documents",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List documents, newest first",
				Action: docsListAction,
			},
			{
				Name:      "get",
				Usage:     "Show one document",
				ArgsUsage: "<id>",
				Action:    docsGetAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its indexed chunks",
				ArgsUsage: "<id>",
				Action:    docsDeleteAction,
			},
			{
				Name:      "watch",
				Usage:     "Poll processing documents until they are ready or failed",
				ArgsUsage: "[id...]",
				Action:    docsWatchAction,
			},
		},
	}
}

func docsListAction(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	list, err := d.client.ListDocuments(c.Context)
	if err != nil {
		return requestFailed("list documents", err)
	}
	d.cache.Replace(list.Documents)
	return d.renderer.Render(render.Documents(d.cache.List()))
}

func docsGetAction(c *cli.Context) error {
	id, err := singleID(c)
	if err != nil {
		return err
	}
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	rec, err := d.client.GetDocument(c.Context, id)
	if errors.Is(err, api.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("document not found: %s", id), exitRequest)
	}
	if err != nil {
		return requestFailed("get document", err)
	}
	return d.renderer.Render(rec)
}

func docsDeleteAction(c *cli.Context) error {
	id, err := singleID(c)
	if err != nil {
		return err
	}
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	resp, err := d.client.DeleteDocument(c.Context, id)
	if err != nil {
		return requestFailed("delete document", err)
	}
	d.cache.Delete(id)
	return d.renderer.Render(resp)
}

// docsWatchAction polls every transient document (or the given ids) until
// each settles, then renders the settled records.
func docsWatchAction(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	notifier, err := d.openNotifier()
	if err != nil {
		return err
	}

	list, err := d.client.ListDocuments(c.Context)
	if err != nil {
		return requestFailed("list documents", err)
	}
	d.cache.Replace(list.Documents)

	wanted := c.Args().Slice()
	var targets []types.DocumentRecord
	for _, rec := range list.Documents {
		if len(wanted) > 0 && !slices.Contains(wanted, rec.ID) {
			continue
		}
		targets = append(targets, rec)
	}
	for _, id := range wanted {
		if _, ok := d.cache.Get(id); !ok {
			return cli.Exit(fmt.Sprintf("document not found: %s", id), exitRequest)
		}
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	watcher := docs.NewWatcher(ctx, d.newPoller())
	defer func() { _ = watcher.Close() }()

	var (
		mu      sync.Mutex
		settled []types.DocumentRecord
	)
	for _, rec := range targets {
		started, err := watcher.Watch(rec.ID, rec.Status, func(final types.DocumentRecord) {
			notifier.Notify(ctx, adapter.DocumentSettled(d.sessionID, final, time.Now()))
			fmt.Fprintf(c.App.ErrWriter, "%s %s: %s\n", final.ID, final.Filename, final.Status)
			mu.Lock()
			settled = append(settled, final)
			mu.Unlock()
		})
		if err != nil {
			return cli.Exit(err.Error(), exitRequest)
		}
		if started {
			fmt.Fprintf(c.App.ErrWriter, "watching %s %s (%s)\n", rec.ID, rec.Filename, rec.Status)
		}
	}
	watcher.Wait()

	if ctx.Err() != nil && c.Context.Err() == nil {
		fmt.Fprintln(c.App.ErrWriter, "interrupted")
	}
	slices.SortFunc(settled, func(a, b types.DocumentRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt.Time)
	})
	return d.renderer.Render(render.Documents(settled))
}

func singleID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s requires exactly one document id", c.Command.FullName()), exitValidation)
	}
	return c.Args().First(), nil
}
