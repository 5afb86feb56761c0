package cmd

// Options holds the shared command-line options for the boardsync CLI.
type Options struct {
	Format    string
	Labels    []string // restrict the run to these configured labels
	DryRun    bool
	Workers   int // 0 = use config
	Verbosity int
	LogFormat string
	NoHistory bool
	TUI       *bool // nil = auto-detect, true = force TUI, false = disable TUI

	// Cron overrides the configured schedule for the schedule command.
	Cron string
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{LogFormat: "text"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (table, json, markdown).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithLabels restricts a run to the named labels.
func WithLabels(labels ...string) Option {
	return func(o *Options) {
		o.Labels = labels
	}
}

// WithDryRun computes everything but writes nothing to the board.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithWorkers sets the number of concurrent annotation workers.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		o.Workers = workers
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}
