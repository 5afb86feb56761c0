// Package service runs the label pipeline: discover issues, enroll them on
// the project board, then annotate them with activity fields.
package service

import (
	"context"
	"time"

	"github.com/spiffcs/boardsync/internal/activity"
	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/ghclient"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
	"github.com/spiffcs/boardsync/internal/report"
)

// Label is one configured label and whether its issues are annotated.
type Label struct {
	Name            string
	ComputeActivity bool
}

// Stage is a step of a label's pipeline.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageEnroll   Stage = "enroll"
	StageAnnotate Stage = "annotate"
	StageDone     Stage = "done"
)

// Progress describes pipeline progress for one label.
type Progress struct {
	Label     string
	Stage     Stage
	Completed int
	Total     int
	Failures  int
}

// ProgressFunc is called as a label's pipeline advances. It may be called
// from several goroutines while issues are annotated concurrently.
type ProgressFunc func(Progress)

// Options configures a Service.
type Options struct {
	Repo      string
	ProjectID string

	// Fields binds each signal to a project field. Unbound signals are
	// computed but never written.
	Fields map[model.Signal]model.FieldBinding

	// Dedupe checks the board for existing items before adding.
	Dedupe bool
	DryRun bool

	// Workers bounds concurrent annotation within a label.
	Workers int

	AuthorMatch activity.AuthorMatcher
	Now         func() time.Time
	OnProgress  ProgressFunc
}

// Service drives synchronization runs against a GitHub API.
type Service struct {
	gh   ghclient.API
	opts Options

	// boardItems maps content node id to an item on the board. It holds the
	// items added during the run and, with dedupe on, the items found by the
	// pre-check, so an issue is enrolled at most once per run.
	boardItems  map[string]model.BoardItem
	boardLoaded bool
}

// New creates a Service.
func New(gh ghclient.API, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = constants.DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AuthorMatch == nil {
		opts.AuthorMatch = activity.MatchDisplayName
	}
	return &Service{gh: gh, opts: opts}
}

// Run processes labels sequentially in the given order. A failing label
// does not stop the remaining ones; every failure lands in the report and
// report.Run.Err joins them. Run only returns an error when ctx ends.
func (s *Service) Run(ctx context.Context, labels []Label) (*report.Run, error) {
	run := report.NewRun(s.opts.Repo, s.opts.ProjectID, s.opts.DryRun, s.opts.Now())
	s.boardItems = make(map[string]model.BoardItem)
	s.boardLoaded = false

	log.Info("starting run", "run_id", run.ID, "repo", s.opts.Repo, "labels", len(labels), "dry_run", s.opts.DryRun)

	for _, l := range labels {
		if err := ctx.Err(); err != nil {
			run.FinishedAt = s.opts.Now()
			return run, err
		}
		s.syncLabel(ctx, run.Label(l.Name), l)
	}

	run.FinishedAt = s.opts.Now()
	log.Info("run complete", "run_id", run.ID, "failures", len(run.Failures()), "duration", run.Duration().Round(time.Millisecond))
	return run, ctx.Err()
}

// syncLabel runs discovery, enrollment and, when requested, annotation.
func (s *Service) syncLabel(ctx context.Context, lr *report.Label, l Label) {
	lr.ComputeActivity = l.ComputeActivity
	defer func() {
		s.progress(Progress{Label: l.Name, Stage: StageDone, Completed: lr.Annotated, Total: lr.Discovered, Failures: len(lr.Failures)})
	}()

	s.progress(Progress{Label: l.Name, Stage: StageDiscover})
	issues, err := s.discover(ctx, l.Name)
	if err != nil {
		log.Error("discovery failed", "label", l.Name, "error", err)
		lr.AddFailure(failureOf(err))
		return
	}
	lr.Discovered = len(issues)
	log.Info("discovered issues", "label", l.Name, "count", len(issues))

	if len(issues) == 0 {
		return
	}

	s.progress(Progress{Label: l.Name, Stage: StageEnroll, Total: len(issues)})
	items := s.enroll(ctx, lr, l.Name, issues)

	if !l.ComputeActivity || len(items) == 0 {
		return
	}

	s.progress(Progress{Label: l.Name, Stage: StageAnnotate, Total: len(items)})
	s.annotate(ctx, lr, l.Name, issues, items)
}

func (s *Service) progress(p Progress) {
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(p)
	}
}
