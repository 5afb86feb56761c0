// Package constants provides a centralized location for the defaults and
// limits used throughout the boardsync application.
package constants

import "time"

// Pacing and rate limiting defaults
const (
	// DefaultPacingInterval is the minimum spacing between outbound calls.
	// GitHub's secondary limits trip well before the primary quota when
	// mutations arrive back to back.
	DefaultPacingInterval = 2 * time.Second

	// DefaultPacingBurst is the number of calls allowed without waiting.
	DefaultPacingBurst = 1

	// DefaultMaxRateLimitWait is the longest the client sleeps for a rate
	// limit reset before failing the call with ErrRateLimited.
	DefaultMaxRateLimitWait = 2 * time.Minute

	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged.
	RateLimitLowWatermark = 100
)

// Transport defaults
const (
	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultRunTimeout bounds a whole synchronization pass.
	DefaultRunTimeout = 30 * time.Minute

	// DefaultRetryAttempts is the total number of attempts per call.
	DefaultRetryAttempts = 3

	// DefaultRetryBackoff is the base delay, doubled on every attempt.
	DefaultRetryBackoff = 300 * time.Millisecond
)

// Page sizes
const (
	// SearchPageSize is both the page size and the hard cap for discovery.
	SearchPageSize = 100

	// TimelinePageSize is the page size used when walking issue timelines.
	TimelinePageSize = 100

	// ProjectItemsPageSize is the page size for the board dedupe scan.
	ProjectItemsPageSize = 100
)

// Run defaults
const (
	// DefaultWorkers is the number of issues annotated concurrently per label.
	DefaultWorkers = 1

	// MaxWorkers caps the --workers flag.
	MaxWorkers = 16

	// DefaultSchedule is the cron expression used by `boardsync schedule`.
	DefaultSchedule = "0 * * * *"

	// HistoryMaxRecords is the number of run reports kept on disk.
	HistoryMaxRecords = 500
)

// TUI and display constants
const (
	// TUIUpdateInterval is the minimum time between TUI progress updates.
	TUIUpdateInterval = 50 * time.Millisecond

	// TruncationSuffixWidth is the width of the "..." suffix when truncating strings.
	TruncationSuffixWidth = 3
)
