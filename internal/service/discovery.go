package service

import (
	"context"

	"github.com/spiffcs/boardsync/internal/model"
)

// discover returns the open issues carrying label.
func (s *Service) discover(ctx context.Context, label string) ([]model.Issue, error) {
	issues, err := s.gh.SearchIssues(ctx, s.opts.Repo, label)
	if err != nil {
		return nil, &DiscoveryError{Label: label, Repo: s.opts.Repo, Err: err}
	}
	return issues, nil
}
