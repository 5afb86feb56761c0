package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/boardsync/internal/activity"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
	"github.com/spiffcs/boardsync/internal/report"
)

// annotateResult is the outcome for one issue. Each worker owns its result,
// so failures stay attributable without shared state.
type annotateResult struct {
	annotated bool
	written   int
	errs      []error
}

// annotate computes and writes the activity fields of every enrolled issue.
// Only items whose issue is in the same discovery batch are annotated.
func (s *Service) annotate(ctx context.Context, lr *report.Label, label string, issues []model.Issue, items []model.BoardItem) {
	byNumber := model.IssuesByNumber(issues)

	results := make([]annotateResult, len(items))
	var completed atomic.Int32

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, item := range items {
		i, item := i, item
		issue, ok := byNumber[item.IssueNumber]
		if !ok {
			log.Warn("board item has no discovered issue; skipping", "label", label, "issue", item.IssueNumber)
			continue
		}

		g.Go(func() error {
			if ctx.Err() == nil {
				results[i] = s.annotateIssue(ctx, label, issue, item)
			}
			s.progress(Progress{Label: label, Stage: StageAnnotate, Completed: int(completed.Add(1)), Total: len(items)})
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.annotated {
			lr.Annotated++
		}
		lr.FieldsWritten += r.written
		for _, err := range r.errs {
			lr.AddFailure(failureOf(err))
		}
	}
}

// annotateIssue fetches the timeline of one issue, computes its signals and
// writes each present, bound signal. A failed write does not stop the
// remaining writes or undo earlier ones.
func (s *Service) annotateIssue(ctx context.Context, label string, issue model.Issue, item model.BoardItem) annotateResult {
	var r annotateResult

	events, err := s.gh.Timeline(ctx, issue.TimelineURL)
	if err != nil {
		err = &TimelineFetchError{Label: label, Issue: issue.Number, Err: err}
		log.Error("timeline fetch failed", "label", label, "issue", issue.Number, "error", err)
		r.errs = append(r.errs, err)
		return r
	}

	act := activity.Compute(issue, events, s.opts.Now(), s.opts.AuthorMatch)
	r.annotated = true

	for _, m := range act.Measurements() {
		binding, ok := s.opts.Fields[m.Signal]
		if !ok || !binding.Bound() {
			log.Trace("signal not bound to a field", "label", label, "issue", issue.Number, "field", m.Signal)
			continue
		}

		u := model.FieldUpdate{
			ProjectID: s.opts.ProjectID,
			ItemID:    item.ItemID,
			FieldID:   binding.ID,
			Value:     valueFor(binding.Kind, m),
		}

		if s.opts.DryRun {
			log.Info("dry run: would update field", "label", label, "issue", issue.Number, "field", m.Signal, "value", u.Value.String())
			r.written++
			continue
		}

		if err := s.gh.UpdateField(ctx, u); err != nil {
			err = &FieldUpdateError{Label: label, Issue: issue.Number, Field: string(m.Signal), Err: err}
			log.Error("field update failed", "label", label, "issue", issue.Number, "field", m.Signal, "error", err)
			r.errs = append(r.errs, err)
			continue
		}
		log.Debug("updated field", "label", label, "issue", issue.Number, "field", m.Signal, "value", u.Value.String())
		r.written++
	}
	return r
}

// valueFor renders a measurement for the field's kind. Date fields receive
// the timestamp the signal was measured from.
func valueFor(kind model.FieldKind, m activity.Measurement) model.FieldValue {
	if kind == model.FieldKindDate {
		return model.DateValue(m.At)
	}
	return model.NumberValue(float64(m.Days))
}
