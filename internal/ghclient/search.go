package ghclient

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
)

// BuildSearchQuery returns the search query for open issues and pull
// requests in repo carrying label. The label is wrapped in literal quotes so
// multi-word labels match exactly. Search has no escape syntax, so the label
// is passed through unchanged.
func BuildSearchQuery(repo, label string) string {
	return `label:"` + label + `" repo:` + repo + " state:open"
}

// SearchIssues returns the first page (at most 100) of open issues in repo
// labeled label. Further pages are not fetched.
func (c *Client) SearchIssues(ctx context.Context, repo, label string) ([]model.Issue, error) {
	query := BuildSearchQuery(repo, label)

	opts := &gh.SearchOptions{
		ListOptions: gh.ListOptions{
			PerPage: constants.SearchPageSize,
		},
	}

	log.Debug("searching issues", "query", query)
	result, _, err := c.client.Search.Issues(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search issues: %w", err)
	}

	if total := result.GetTotal(); total > len(result.Issues) {
		log.Warn("search matched more issues than one page; only the first page is synchronized",
			"label", label, "total", total, "fetched", len(result.Issues))
	}

	issues := make([]model.Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, toIssue(issue))
	}
	return issues, nil
}

func toIssue(issue *gh.Issue) model.Issue {
	return model.Issue{
		NodeID:      issue.GetNodeID(),
		Number:      issue.GetNumber(),
		Title:       issue.GetTitle(),
		Author:      issue.GetUser().GetLogin(),
		HTMLURL:     issue.GetHTMLURL(),
		UpdatedAt:   issue.GetUpdatedAt().Time,
		TimelineURL: issue.GetURL() + "/timeline",
	}
}
