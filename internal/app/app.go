// Package app wires one cross-post run: it resolves the configuration
// cascade, opens the journal and the API client, then runs the coordinator
// and the dispatcher side by side until the queue is drained.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xpost/internal/config"
	"xpost/internal/coordinator"
	"xpost/internal/discuit"
	"xpost/internal/dispatch"
	"xpost/internal/post"
	"xpost/internal/prompt"
	"xpost/internal/storage"
	logx "xpost/pkg/logx"
)

// ErrNoTerminal is returned for -i when there is nothing to prompt on.
var ErrNoTerminal = errors.New("interactive mode needs a terminal")

// Client is everything a run needs from the content API.
type Client interface {
	coordinator.Client
	dispatch.Creator
}

// Options are the process inputs of a run. Zero values fall back to the
// real process environment.
type Options struct {
	Args      []string
	LookupEnv func(string) (string, bool)
	// Usage receives flag errors and -h output.
	Usage io.Writer

	// Prompter answers missing fields. Nil disables prompting.
	Prompter *prompt.Prompter

	// Log replaces the logger built from the settings.
	Log logx.Logger

	NewClient func(s config.Settings, log logx.Logger) (Client, error)
}

// Result describes a finished run.
type Result struct {
	RunID   string
	Report  coordinator.Report
	Summary dispatch.Summary
}

// Run performs one cross-post run.
//
// Configuration, login and journal errors are returned. Per-destination
// failures are only reported in the Result and the logs.
func Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Usage == nil {
		opts.Usage = os.Stderr
	}
	if opts.NewClient == nil {
		opts.NewClient = newDiscuitClient
	}

	args, err := config.FromArgs(opts.Args, opts.Usage)
	if err != nil {
		return res, err
	}
	env, err := config.FromEnv(opts.LookupEnv)
	if err != nil {
		return res, err
	}
	file, found, err := config.LoadFile(args.ConfigPath)
	if err != nil {
		return res, fmt.Errorf("config: %w", err)
	}
	fileSettings, err := file.Settings()
	if err != nil {
		return res, fmt.Errorf("config %s: %w", args.ConfigPath, err)
	}
	settings, err := config.ResolveSettings(args.Settings, fileSettings)
	if err != nil {
		return res, err
	}
	overflow, err := dispatch.ParseOverflow(settings.Overflow)
	if err != nil {
		return res, fmt.Errorf("dispatch.overflow: %w", err)
	}

	log := opts.Log
	if log.IsZero() {
		if !logx.ValidLevel(settings.LogLevel) {
			return res, fmt.Errorf("logging.level: invalid level %q", settings.LogLevel)
		}
		logs, l := logx.New(logx.Config{
			Level:   settings.LogLevel,
			Console: settings.LogConsole,
			File:    logx.FileConfig{Enabled: settings.LogFile != "", Path: settings.LogFile},
		})
		defer logs.Close()
		log = l
	}
	res.RunID = uuid.NewString()
	log = log.With(logx.String("run_id", res.RunID))
	applog := log.With(logx.String("comp", "app"))
	if !found {
		applog.Debug("config file not found, skipping", logx.String("path", args.ConfigPath))
	}

	sources := []config.Source{
		{Name: "flags", Config: args.Post},
		{Name: "env", Config: env},
		{Name: "file:" + args.ConfigPath, Config: file.Partial()},
		{Name: "defaults", Config: config.Defaults()},
	}
	merged, prov, err := resolvePost(ctx, sources, args, opts.Prompter)
	if err != nil {
		return res, err
	}
	for _, f := range config.Fields {
		if src, ok := prov[f]; ok {
			applog.Debug("config field resolved", logx.String("field", f), logx.String("source", src))
		}
	}
	resolved, err := config.Validate(merged)
	if err != nil {
		return res, err
	}

	store, err := storage.Open(storage.Config{Driver: settings.JournalDriver, Path: settings.JournalPath}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return res, fmt.Errorf("journal: %w", err)
	}
	var rec *journal
	if store != nil {
		defer store.Close()
		rec = &journal{store: store, runID: res.RunID}
		applog.Info("journal enabled", logx.String("driver", settings.JournalDriver), logx.String("path", settings.JournalPath))
	}

	client, err := opts.NewClient(settings, log.With(logx.String("comp", "discuit")))
	if err != nil {
		return res, err
	}

	queue := dispatch.NewQueue(dispatch.QueueConfig{
		Capacity: settings.Capacity,
		Overflow: overflow,
		OnDrop: func(item post.WorkItem, reason dispatch.DropReason) {
			applog.Warn("work item dropped", logx.String("destination", item.DestinationName()), logx.String("reason", string(reason)))
			if rec != nil {
				rec.dropped(item, reason)
			}
		},
	})
	dcfg := dispatch.Config{Pace: settings.Pace}
	if rec != nil {
		dcfg.Recorder = rec
	}
	coord := coordinator.New(coordinator.Config{
		Post:   resolved,
		Client: client,
		Queue:  queue,
		Log:    log.With(logx.String("comp", "coordinator")),
	})
	disp := dispatch.New(dcfg, queue, client, log.With(logx.String("comp", "dispatcher")))

	applog.Info("run started",
		logx.String("kind", string(resolved.Kind)),
		logx.Int("destinations", len(resolved.Destinations)),
		logx.Bool("strict", resolved.Strict),
		logx.Duration("pace", settings.Pace),
		logx.String("overflow", overflow.String()),
	)
	start := time.Now()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		res.Report, err = coord.Run(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		res.Summary, err = disp.Run(ctx)
		return err
	})
	err = g.Wait()

	applog.Info("run finished",
		logx.Int("queued", len(res.Report.Queued)),
		logx.Int("sent", res.Summary.Sent),
		logx.Int("failed", res.Summary.Failed),
		logx.Int("abandoned", res.Summary.Abandoned),
		logx.Int("not_found", len(res.Report.NotFound)),
		logx.Int("rejected", len(res.Report.Rejected)),
		logx.Duration("dur", time.Since(start)),
	)
	return res, err
}

// resolvePost merges the post sources, asking for fields first when asked to
// (-i) or when some are missing and a prompter is available.
func resolvePost(ctx context.Context, sources []config.Source, args config.Args, p *prompt.Prompter) (config.PartialConfig, config.Provenance, error) {
	merged, prov := config.MergeSources(sources...)

	var ask []string
	switch {
	case args.Interactive:
		if p == nil {
			return merged, prov, ErrNoTerminal
		}
		ask = config.Fields
	case !args.NoPrompt && p != nil:
		ask = config.MissingFields(merged)
	}
	if len(ask) == 0 {
		return merged, prov, nil
	}

	answers, err := p.Fill(ctx, ask, merged)
	if err != nil {
		return merged, prov, fmt.Errorf("prompt: %w", err)
	}
	merged, prov = config.MergeSources(append([]config.Source{{Name: "prompt", Config: answers}}, sources...)...)
	return merged, prov, nil
}

func newDiscuitClient(s config.Settings, log logx.Logger) (Client, error) {
	return discuit.New(discuit.Config{
		BaseURL:    s.APIBaseURL,
		Timeout:    s.APITimeout,
		RatePerSec: s.APIRatePerSec,
	}, log)
}
