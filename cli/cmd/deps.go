package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/adapter"
	"github.com/ronit111/documind/adapter/redis"
	"github.com/ronit111/documind/adapter/webhook"
	"github.com/ronit111/documind/api"
	"github.com/ronit111/documind/cli/config"
	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/docs"
	"github.com/ronit111/documind/lode"
	"github.com/ronit111/documind/log"
	"github.com/ronit111/documind/metrics"
)

// deps holds what a command needs, built from config and global flags.
type deps struct {
	cfg       *config.Config
	sessionID string
	logger    *log.Logger
	metrics   *metrics.Collector
	client    *api.Client
	renderer  *render.Renderer
	cache     *docs.Cache

	notifier *adapter.Notifier
	archive  *lode.Archive
	stats    bool
}

// setup resolves configuration (defaults < file < environment < flags),
// validates it and builds the shared dependencies.
func setup(c *cli.Context) (*deps, error) {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}
	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.Bool("debug") {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitValidation)
	}

	client, err := api.New(cfg.APIURL, api.WithTimeout(cfg.Timeout.Duration))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}

	sessionID := uuid.NewString()
	logger := log.NewLogger(sessionID, log.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}).With("command", c.Command.FullName())

	return &deps{
		cfg:       cfg,
		sessionID: sessionID,
		logger:    logger,
		metrics:   metrics.NewCollector(sessionID, cfg.APIURL, cfg.Archive.Backend),
		client:    client,
		renderer:  r,
		cache:     docs.NewCache(docs.DefaultCacheTTL),
		stats:     c.Bool("stats"),
	}, nil
}

// openNotifier builds the configured notification adapter. With no adapter
// configured the notifier does nothing.
func (d *deps) openNotifier() (*adapter.Notifier, error) {
	if d.notifier != nil {
		return d.notifier, nil
	}
	n := adapter.NewNotifier(d.logger, d.metrics)
	ac := d.cfg.Adapter

	retries := func(def int) int {
		if ac.Retries != nil {
			return *ac.Retries
		}
		return def
	}

	switch ac.Type {
	case "":
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:      ac.URL,
			Headers:  ac.Headers,
			Timeout:  ac.Timeout.Duration,
			Retries:  retries(webhook.DefaultRetries),
			Encoding: adapter.Encoding(ac.Encoding),
		})
		if err != nil {
			return nil, cli.Exit(err.Error(), exitConfig)
		}
		n.Add("webhook", a)
	case "redis":
		a, err := redis.New(redis.Config{
			URL:      ac.URL,
			Channel:  ac.Channel,
			Timeout:  ac.Timeout.Duration,
			Retries:  retries(redis.DefaultRetries),
			Encoding: adapter.Encoding(ac.Encoding),
		})
		if err != nil {
			return nil, cli.Exit(err.Error(), exitConfig)
		}
		n.Add("redis", a)
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown adapter type: %s", ac.Type), exitConfig)
	}

	d.notifier = n
	return n, nil
}

// openArchive opens the configured transcript archive. It returns nil
// when archiving is disabled.
func (d *deps) openArchive(ctx context.Context) (*lode.Archive, error) {
	if d.archive != nil {
		return d.archive, nil
	}
	ac := d.cfg.Archive

	var (
		a   *lode.Archive
		err error
	)
	switch ac.Backend {
	case "":
		return nil, nil
	case "fs":
		a, err = lode.NewFS(ac.Dataset, ac.Path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(ac.Path)
		a, err = lode.NewS3(ctx, ac.Dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       ac.Region,
			Endpoint:     ac.Endpoint,
			UsePathStyle: ac.S3PathStyle,
		})
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown archive backend: %s (must be fs or s3)", ac.Backend), exitConfig)
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to open archive: %v", err), exitConfig)
	}

	d.archive = a
	return a, nil
}

// newPoller builds a status poller sharing the command's cache.
func (d *deps) newPoller() *docs.Poller {
	return docs.NewPoller(d.client,
		docs.WithInterval(d.cfg.Poll.Interval.Duration),
		docs.WithCache(d.cache),
		docs.WithLogger(d.logger),
		docs.WithMetrics(d.metrics),
	)
}

// close logs the session metrics and releases adapters and the archive.
func (d *deps) close(c *cli.Context) {
	snap := d.metrics.Snapshot()
	d.logger.Debug("session metrics", snap.Fields())
	if d.stats {
		r := render.New(d.renderer.Format(), c.Bool("no-color"), c.App.ErrWriter)
		_ = r.Render(snap)
	}

	var errs []error
	if d.notifier != nil {
		errs = append(errs, d.notifier.Close())
	}
	if d.archive != nil {
		errs = append(errs, d.archive.Close())
	}
	if err := errors.Join(errs...); err != nil {
		d.logger.Warn("failed to release resources", map[string]any{"error": err.Error()})
	}
	_ = d.logger.Sync()
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// requestFailed maps a client error to exit code 1 with the user-facing message.
func requestFailed(op string, err error) error {
	return cli.Exit(fmt.Sprintf("%s failed: %s", op, api.Message(err)), exitRequest)
}

// validationFailed maps bad user input to exit code 2.
func validationFailed(err error) error {
	return cli.Exit(err.Error(), exitValidation)
}
