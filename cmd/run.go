package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/spf13/cobra"

	"github.com/spiffcs/boardsync/config"
	"github.com/spiffcs/boardsync/internal/activity"
	"github.com/spiffcs/boardsync/internal/ghclient"
	"github.com/spiffcs/boardsync/internal/history"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/output"
	"github.com/spiffcs/boardsync/internal/report"
	"github.com/spiffcs/boardsync/internal/service"
	"github.com/spiffcs/boardsync/internal/tui"
)

// tuiEventBuffer sizes the progress channel; events beyond it are dropped.
const tuiEventBuffer = 256

// syncClient is what a run needs from GitHub.
type syncClient interface {
	ghclient.API
	AuthenticatedUser(ctx context.Context) (string, error)
	RateLimitStatus() ghclient.RateLimitStatus
}

// newSyncClient and openHistory are replaced in tests.
var (
	newSyncClient = func(cfg *config.Config) (syncClient, error) {
		c, err := newClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	openHistory = history.NewStore
)

// syncEnv bundles what one synchronization pass needs.
type syncEnv struct {
	cfg    *config.Config
	opts   *Options
	labels []service.Label
	events chan tui.Event // nil without the TUI
}

// syncRuntime owns the TUI goroutine of a single run.
type syncRuntime struct {
	useTUI  bool
	events  chan tui.Event
	tuiDone chan error
}

// start launches the TUI. Quitting it calls interrupt.
func (rt *syncRuntime) start(labels []service.Label, interrupt context.CancelFunc) {
	if !rt.useTUI {
		return
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}

	rt.events = make(chan tui.Event, tuiEventBuffer)
	rt.tuiDone = make(chan error, 1)
	go func() {
		err := tui.Run(rt.events, tui.WithTasks(tui.LabelTasks(names)))
		if errors.Is(err, tui.ErrInterrupted) {
			interrupt()
		} else if err != nil {
			log.Warn("progress display failed", "error", err)
		}
		rt.tuiDone <- err
	}()
}

// finish closes the event channel and waits for the TUI to exit.
func (rt *syncRuntime) finish() error {
	if rt.events == nil {
		return nil
	}
	close(rt.events)
	return <-rt.tuiDone
}

// NewCmdRun creates the run command.
func NewCmdRun(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one synchronization pass (same as root boardsync)",
		Long: `Processes each configured label in order: finds its open issues, adds
them to the project board, and for labels with compute_activity writes the
activity fields of every enrolled issue.

Failures of single labels, issues or fields do not stop the run. They are
listed in the report and make the command exit non-zero.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// addRunFlags adds the run flags, including the TUI toggle, to a command.
func addRunFlags(cmd *cobra.Command, opts *Options) {
	addSyncFlags(cmd, opts)

	// Tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress (default: auto-detect)")
	cmd.Flags().Lookup("tui").NoOptDefVal = "true"
}

// addSyncFlags adds the flags shared by run and schedule.
func addSyncFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	cmd.Flags().StringArrayVarP(&opts.Labels, "label", "l", nil, "Only sync this configured label (repeatable)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Compute everything but write nothing to the board")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent annotation workers per label (default from config)")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "text", "Log format (text, json)")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record this run in the history file")
}

func runSync(cmd *cobra.Command, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	labels, err := selectLabels(cfg.Labels, opts.Labels)
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts, cfg)
	if err != nil {
		return err
	}

	rt := &syncRuntime{useTUI: shouldUseTUI(opts, format)}

	// Suppress logs during TUI to avoid interleaving with display
	if rt.useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.InitializeWithFormat(opts.Verbosity, os.Stderr, opts.LogFormat)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	rt.start(labels, cancel)

	run, err := syncOnce(ctx, syncEnv{cfg: cfg, opts: opts, labels: labels, events: rt.events})
	if tuiErr := rt.finish(); errors.Is(tuiErr, tui.ErrInterrupted) && err != nil {
		err = tuiErr
	}

	if run != nil {
		if ferr := output.NewFormatter(format).FormatRun(run, cmd.OutOrStdout()); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}
	if run.Failed() {
		return fmt.Errorf("run completed with %d failure(s)", len(run.Failures()))
	}
	return nil
}

// syncOnce authenticates, runs every label and records the run. The run is
// returned whenever it started, even when err is set.
func syncOnce(ctx context.Context, env syncEnv) (*report.Run, error) {
	cfg := env.cfg

	matcher, err := activity.MatcherFor(cfg.AuthorMatch)
	if err != nil {
		return nil, err
	}
	client, err := newSyncClient(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.GetTimeouts().Run
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tui.SendTaskEvent(env.events, tui.TaskAuth, tui.StatusRunning)
	user, err := client.AuthenticatedUser(ctx)
	if err != nil {
		tui.SendTaskEvent(env.events, tui.TaskAuth, tui.StatusError, tui.WithError(err))
		return nil, err
	}
	tui.SendTaskEvent(env.events, tui.TaskAuth, tui.StatusComplete, tui.WithMessage(user))
	log.Info("authenticated", "user", user)

	onProgress := logProgress
	if env.events != nil {
		onProgress = tui.ProgressReporter(env.events)
	}

	svc := service.New(client, service.Options{
		Repo:        cfg.Repo,
		ProjectID:   cfg.ProjectID,
		Fields:      cfg.FieldBindings(),
		Dedupe:      cfg.Dedupe(),
		DryRun:      env.opts.DryRun,
		Workers:     cfg.GetWorkers(),
		AuthorMatch: matcher,
		OnProgress:  onProgress,
	})

	stopWatch := watchRateLimit(ctx, env.events, client)
	run, err := svc.Run(ctx, env.labels)
	stopWatch()

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("run exceeded timeouts.run (%s): %w", timeout, err)
	}
	if run != nil && !env.opts.NoHistory {
		recordHistory(run)
	}
	return run, err
}

// loadConfig loads the configuration, applies flag overrides and validates
// it before any network call.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Workers != 0 {
		w := opts.Workers
		cfg.Workers = &w
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectLabels returns the configured labels, restricted to only when it is
// non-empty. Naming a label that is not configured is an error.
func selectLabels(configured []config.LabelConfig, only []string) ([]service.Label, error) {
	var labels []service.Label
	for _, l := range configured {
		if len(only) > 0 && !slices.Contains(only, l.Name) {
			continue
		}
		labels = append(labels, service.Label{Name: l.Name, ComputeActivity: l.ComputeActivity})
	}

	for _, name := range only {
		if !slices.ContainsFunc(configured, func(l config.LabelConfig) bool { return l.Name == name }) {
			return nil, &config.ConfigurationError{Field: "label", Message: fmt.Sprintf("%q is not a configured label", name)}
		}
	}
	return labels, nil
}

func resolveFormat(opts *Options, cfg *config.Config) (output.Format, error) {
	if opts.Format != "" {
		return output.ParseFormat(opts.Format)
	}
	return output.ParseFormat(cfg.DefaultFormat)
}

// newClient builds the GitHub client from the resolved settings.
func newClient(cfg *config.Config) (*ghclient.Client, error) {
	p := cfg.GetPacing()
	r := cfg.GetRetry()
	t := cfg.GetTimeouts()
	return ghclient.NewClient(cfg.GetGitHubToken(),
		ghclient.WithPacing(p.Interval, p.Burst),
		ghclient.WithMaxRateLimitWait(p.MaxRateLimitWait),
		ghclient.WithRetry(r.Attempts, r.Backoff),
		ghclient.WithRequestTimeout(t.Request),
	)
}

// watchRateLimit feeds the client's quota to the TUI until the returned
// function is called.
func watchRateLimit(ctx context.Context, events chan tui.Event, client syncClient) func() {
	if events == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tui.WatchRateLimit(ctx, events, func() tui.RateLimitEvent {
			s := client.RateLimitStatus()
			return tui.RateLimitEvent{Resource: s.Resource, Limited: s.Limited, Remaining: s.Remaining, ResetAt: s.ResetAt}
		})
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// logProgress renders pipeline progress on the log output when the TUI is off.
func logProgress(p service.Progress) {
	switch p.Stage {
	case service.StageEnroll, service.StageAnnotate:
		if p.Total > 0 && p.Completed > 0 {
			log.Progress("%s: %s %d/%d...", p.Label, p.Stage, p.Completed, p.Total)
		}
	case service.StageDone:
		log.ProgressDone()
	}
}

// recordHistory appends run to the history file. Failing to record is not
// a run failure.
func recordHistory(run *report.Run) {
	store, err := openHistory()
	if err != nil {
		log.Warn("could not open run history", "error", err)
		return
	}
	if err := store.Append(run); err != nil {
		log.Warn("could not record run", "error", err, "path", store.Path())
	}
}
