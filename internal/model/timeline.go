package model

import "time"

// EventKind is the timeline event type as reported by GitHub.
// Kinds other than the ones below are kept verbatim and ignored.
type EventKind string

const (
	EventCommitted EventKind = "committed"
	EventCommented EventKind = "commented"
	EventReviewed  EventKind = "reviewed"
)

// TimelineEvent is a single entry of an issue timeline.
type TimelineEvent struct {
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	// Actor is the login of the user behind a comment or review.
	Actor      string `json:"actor,omitempty"`
	ActorIsBot bool   `json:"actorIsBot,omitempty"`

	// Commit identity, set only for committed events. Git identities are
	// free-form and not tied to a GitHub account.
	CommitterName  string `json:"committerName,omitempty"`
	CommitterEmail string `json:"committerEmail,omitempty"`
	AuthorEmail    string `json:"authorEmail,omitempty"`
}

// IsCommentOrReview reports whether the event is a comment or a review.
func (e TimelineEvent) IsCommentOrReview() bool {
	return e.Kind == EventCommented || e.Kind == EventReviewed
}
