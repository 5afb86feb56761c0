package service

import (
	"context"
	"fmt"

	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
	"github.com/spiffcs/boardsync/internal/report"
)

// enroll adds each issue to the board, one write per issue, and returns the
// items in issue order. Issues whose add failed are absent from the result.
func (s *Service) enroll(ctx context.Context, lr *report.Label, label string, issues []model.Issue) []model.BoardItem {
	if err := s.loadBoard(ctx); err != nil {
		// Without the pre-check a re-run could create duplicates, so the
		// label is not enrolled at all.
		err = &EnrollmentError{Label: label, Err: err}
		log.Error("board pre-check failed", "label", label, "error", err)
		lr.AddFailure(failureOf(err))
		return nil
	}

	items := make([]model.BoardItem, 0, len(issues))
	for i, issue := range issues {
		if ctx.Err() != nil {
			break
		}

		item, err := s.enrollIssue(ctx, label, issue)
		switch {
		case err != nil:
			log.Error("enrollment failed", "label", label, "issue", issue.Number, "error", err)
			lr.AddFailure(failureOf(err))
		case item.Existing:
			lr.Existing++
			items = append(items, item)
		default:
			lr.Enrolled++
			items = append(items, item)
		}

		s.progress(Progress{Label: label, Stage: StageEnroll, Completed: i + 1, Total: len(issues), Failures: len(lr.Failures)})
	}
	return items
}

func (s *Service) enrollIssue(ctx context.Context, label string, issue model.Issue) (model.BoardItem, error) {
	if existing, ok := s.boardItems[issue.NodeID]; ok {
		log.Debug("issue already on board", "label", label, "issue", issue.Number, "item", existing.ItemID)
		existing.IssueNumber = issue.Number
		existing.Existing = true
		return existing, nil
	}

	if s.opts.DryRun {
		log.Info("dry run: would add issue to board", "label", label, "issue", issue.Number)
		item := model.BoardItem{IssueNumber: issue.Number, ContentID: issue.NodeID}
		s.boardItems[issue.NodeID] = item
		return item, nil
	}

	itemID, err := s.gh.AddItem(ctx, s.opts.ProjectID, issue.NodeID)
	if err != nil {
		return model.BoardItem{}, &EnrollmentError{Label: label, Issue: issue.Number, Err: err}
	}

	log.Debug("added issue to board", "label", label, "issue", issue.Number, "item", itemID)
	item := model.BoardItem{ItemID: itemID, IssueNumber: issue.Number, ContentID: issue.NodeID}
	s.boardItems[issue.NodeID] = item
	return item, nil
}

// loadBoard reads the items already on the board once per run.
func (s *Service) loadBoard(ctx context.Context) error {
	if !s.opts.Dedupe || s.boardLoaded {
		return nil
	}

	existing, err := s.gh.ProjectItems(ctx, s.opts.ProjectID)
	if err != nil {
		return fmt.Errorf("list existing board items: %w", err)
	}
	for _, item := range existing {
		if _, ok := s.boardItems[item.ContentID]; !ok {
			s.boardItems[item.ContentID] = item
		}
	}
	s.boardLoaded = true
	log.Debug("loaded board items", "count", len(existing))
	return nil
}
