// Package ghclient provides GitHub API client functionality.
package ghclient

import (
	"context"

	"github.com/spiffcs/boardsync/internal/model"
)

// API defines the GitHub operations the sync engine depends on.
// This interface enables an in-memory GitHub in unit tests.
type API interface {
	// Discovery
	SearchIssues(ctx context.Context, repo, label string) ([]model.Issue, error)

	// Board
	ProjectItems(ctx context.Context, projectID string) ([]model.BoardItem, error)
	AddItem(ctx context.Context, projectID, contentID string) (string, error)
	UpdateField(ctx context.Context, u model.FieldUpdate) error

	// Activity
	Timeline(ctx context.Context, timelineURL string) ([]model.TimelineEvent, error)
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
