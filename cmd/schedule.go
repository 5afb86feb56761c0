package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/output"
)

// NewCmdSchedule creates the schedule command.
func NewCmdSchedule(opts *Options) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run synchronization passes on a cron schedule",
		Long: `Runs a synchronization pass on the configured cron schedule (default
hourly) until interrupted. A pass still running when the next one is due
causes that tick to be skipped. Configuration is reloaded before every pass.

The schedule uses standard five-field cron syntax or descriptors such as
@hourly and @every 30m.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, opts, runNow)
		},
	}

	addSyncFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Cron, "cron", "", "Cron schedule (overrides the config schedule)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Also run once immediately")

	return cmd
}

func runSchedule(cmd *cobra.Command, opts *Options, runNow bool) error {
	// The scheduler is long-running; log at info or above.
	log.InitializeWithFormat(max(opts.Verbosity, log.LevelInfo), os.Stderr, opts.LogFormat)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	spec := cfg.GetSchedule()
	if opts.Cron != "" {
		spec = opts.Cron
	}
	if _, err := resolveFormat(opts, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	job := scheduledJob{ctx: ctx, opts: opts, out: cmd.OutOrStdout()}
	id, err := c.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	log.Info("scheduler started", "schedule", spec, "next", c.Entry(id).Next)
	if runNow {
		// Wrapped so it shares SkipIfStillRunning with scheduled ticks.
		go c.Entry(id).WrappedJob.Run()
	}

	<-ctx.Done()
	log.Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// scheduledJob runs one pass per tick.
type scheduledJob struct {
	ctx  context.Context
	opts *Options
	out  io.Writer
}

func (j scheduledJob) Run() {
	if j.ctx.Err() != nil {
		return
	}

	cfg, err := loadConfig(j.opts)
	if err != nil {
		log.Error("skipping scheduled run", "error", err)
		return
	}
	labels, err := selectLabels(cfg.Labels, j.opts.Labels)
	if err != nil {
		log.Error("skipping scheduled run", "error", err)
		return
	}
	format, err := resolveFormat(j.opts, cfg)
	if err != nil {
		log.Error("skipping scheduled run", "error", err)
		return
	}

	run, err := syncOnce(j.ctx, syncEnv{cfg: cfg, opts: j.opts, labels: labels})
	if run != nil {
		if ferr := output.NewFormatter(format).FormatRun(run, j.out); ferr != nil {
			log.Warn("could not print run report", "error", ferr)
		}
		if run.Failed() {
			log.Warn("scheduled run completed with failures", "run_id", run.ID, "failures", len(run.Failures()))
		}
	}
	if err != nil {
		log.Error("scheduled run failed", "error", err)
	}
}

// cronLogger adapts the package logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
