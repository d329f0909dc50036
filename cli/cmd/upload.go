package cmd

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/adapter"
	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/cli/tui"
	"github.com/ronit111/documind/docs"
	"github.com/ronit111/documind/types"
	"github.com/ronit111/documind/upload"
)

// UploadResult is the output of the upload command.
type UploadResult struct {
	Tasks     []types.UploadTask     `json:"tasks"`
	Summary   upload.Summary         `json:"summary"`
	Documents []types.DocumentRecord `json:"documents,omitempty"`
}

// UploadCommand returns the upload command.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Validate and upload documents for indexing",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Maximum concurrent transfers (0 = unbounded, default from config)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Poll uploaded documents until they are ready or failed",
			},
			TUIFlag,
		},
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("upload requires at least one file", exitValidation)
	}
	if c.Int("parallel") < 0 {
		return cli.Exit("--parallel must be >= 0", exitValidation)
	}
	files, err := upload.FilesFromPaths(c.Args().Slice())
	if err != nil {
		return validationFailed(err)
	}

	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	notifier, err := d.openNotifier()
	if err != nil {
		return err
	}

	parallel := d.cfg.Upload.Parallel
	if c.IsSet("parallel") {
		parallel = c.Int("parallel")
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	var watcher *docs.Watcher
	var (
		mu      sync.Mutex
		settled []types.DocumentRecord
	)
	if c.Bool("watch") {
		watcher = docs.NewWatcher(ctx, d.newPoller())
		defer func() { _ = watcher.Close() }()
	}

	// onCompleted runs on the transfer goroutine of each successful task.
	onCompleted := func(task types.UploadTask) {
		notifier.Notify(ctx, adapter.UploadCompleted(d.sessionID, task, time.Now()))
		if watcher == nil {
			return
		}
		_, err := watcher.Watch(task.DocumentID, types.DocumentProcessing, func(rec types.DocumentRecord) {
			notifier.Notify(ctx, adapter.DocumentSettled(d.sessionID, rec, time.Now()))
			mu.Lock()
			settled = append(settled, rec)
			mu.Unlock()
		})
		if err != nil {
			d.logger.Sugar().Warnf("not watching document %s: %v", task.DocumentID, err)
		}
	}

	var onUpdate func(types.UploadTask)
	orch := upload.NewOrchestrator(d.client, upload.Config{Parallel: parallel},
		upload.WithCompletion(onCompleted),
		upload.WithUpdates(func(task types.UploadTask) {
			if onUpdate != nil {
				onUpdate(task)
			}
		}),
		upload.WithLogger(d.logger),
		upload.WithMetrics(d.metrics),
	)

	batchDone := make(chan upload.Summary, 1)
	run := func() upload.Summary {
		orch.SubmitBatch(ctx, files)
		orch.Wait()
		summary := orch.Summary()
		batchDone <- summary
		return summary
	}

	if c.Bool("tui") {
		_, err := tui.RunUploads(ctx, func(fn func(types.UploadTask)) upload.Summary {
			onUpdate = fn
			return run()
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("tui error: %v", err), exitRequest)
		}
	} else {
		run()
	}
	// the view may quit before the batch settles
	summary := <-batchDone

	if watcher != nil {
		watcher.Wait()
	}

	tasks := orch.Store().Snapshot()
	mu.Lock()
	docsSettled := slices.Clone(settled)
	mu.Unlock()

	if err := renderUploads(d.renderer, tasks, summary, docsSettled); err != nil {
		return err
	}
	return uploadExit(summary)
}

func renderUploads(r *render.Renderer, tasks []types.UploadTask, summary upload.Summary, settled []types.DocumentRecord) error {
	if r.Format() != render.FormatTable {
		return r.Render(UploadResult{Tasks: tasks, Summary: summary, Documents: settled})
	}
	if err := r.Render(render.Tasks(tasks)); err != nil {
		return err
	}
	if len(settled) == 0 {
		return nil
	}
	fmt.Fprintln(r.Writer())
	return r.Render(render.Documents(settled))
}

// uploadExit maps the batch outcome to an exit code: failed transfers are
// request errors, rejected files alone are validation errors.
func uploadExit(s upload.Summary) error {
	switch {
	case s.Failed > 0:
		return cli.Exit(fmt.Sprintf("%d of %d uploads failed", s.Failed, s.Total), exitRequest)
	case s.Rejected > 0:
		return cli.Exit(fmt.Sprintf("%d of %d files rejected", s.Rejected, s.Total), exitValidation)
	default:
		return nil
	}
}
