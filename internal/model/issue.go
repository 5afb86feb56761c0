// Package model contains domain types for the boardsync application.
// These types are independent of any external GitHub library.
package model

import (
	"strings"
	"time"
)

// Issue is an open issue (or pull request) returned by label discovery.
// Issues are read-only to boardsync and fetched fresh on every run.
type Issue struct {
	NodeID      string    `json:"nodeId"`
	Number      int       `json:"number"`
	Title       string    `json:"title,omitempty"`
	Author      string    `json:"author,omitempty"`
	HTMLURL     string    `json:"htmlUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
	TimelineURL string    `json:"timelineUrl"`
}

// BoardItem is the project board's representation of an enrolled issue.
type BoardItem struct {
	ItemID      string `json:"itemId"`
	IssueNumber int    `json:"issueNumber"`
	ContentID   string `json:"contentId"`

	// Existing is true when the item was already on the board and no add
	// mutation was sent for it.
	Existing bool `json:"existing,omitempty"`
}

// IssuesByNumber indexes issues by their number.
func IssuesByNumber(issues []Issue) map[int]Issue {
	byNumber := make(map[int]Issue, len(issues))
	for _, issue := range issues {
		byNumber[issue.Number] = issue
	}
	return byNumber
}

// IsBotLogin reports whether a login belongs to a GitHub App or bot account.
func IsBotLogin(login string) bool {
	return strings.HasSuffix(strings.ToLower(login), "[bot]")
}
