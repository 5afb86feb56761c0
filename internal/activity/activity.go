// Package activity derives staleness signals from an issue and its timeline.
package activity

import (
	"time"

	"github.com/spiffcs/boardsync/internal/model"
)

const day = 24 * time.Hour

// DaysBetween returns the whole number of days from "from" to "now",
// truncated toward zero. Timestamps in the future count as zero days.
func DaysBetween(from, now time.Time) int {
	d := now.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

// Measurement is one computed signal: the day count and the timestamp it
// was measured from.
type Measurement struct {
	Signal model.Signal
	Days   int
	At     time.Time
}

// Activity holds the signals computed for one issue. A nil measurement means
// the signal has no source event and must not be written.
type Activity struct {
	IssueNumber          int
	SinceUpdate          *Measurement
	SinceCommentOrReview *Measurement
	SinceAuthorCommit    *Measurement
}

// Measurements returns the present signals in write order.
func (a Activity) Measurements() []Measurement {
	var out []Measurement
	for _, m := range []*Measurement{a.SinceUpdate, a.SinceCommentOrReview, a.SinceAuthorCommit} {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// Compute derives the activity signals for issue from its timeline events.
// Events are expected in chronological order, as GitHub returns them.
func Compute(issue model.Issue, events []model.TimelineEvent, now time.Time, match AuthorMatcher) Activity {
	if match == nil {
		match = MatchDisplayName
	}

	a := Activity{
		IssueNumber: issue.Number,
		SinceUpdate: measure(model.SignalDaysSinceUpdate, issue.UpdatedAt, now),
	}

	if e, ok := lastCommentOrReview(events); ok {
		a.SinceCommentOrReview = measure(model.SignalDaysSinceLastCommentOrReview, e.At, now)
	}

	if e, ok := lastAuthorCommit(events, issue.Author, match); ok {
		a.SinceAuthorCommit = measure(model.SignalDaysSinceLastAuthorCommit, e.At, now)
	}

	return a
}

func measure(signal model.Signal, at, now time.Time) *Measurement {
	return &Measurement{Signal: signal, Days: DaysBetween(at, now), At: at}
}

// lastCommentOrReview scans newest to oldest for a human comment or review.
func lastCommentOrReview(events []model.TimelineEvent) (model.TimelineEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if !e.IsCommentOrReview() || e.ActorIsBot || e.At.IsZero() {
			continue
		}
		return e, true
	}
	return model.TimelineEvent{}, false
}

// lastAuthorCommit scans newest to oldest for a commit attributed to author.
func lastAuthorCommit(events []model.TimelineEvent, author string, match AuthorMatcher) (model.TimelineEvent, bool) {
	if author == "" {
		return model.TimelineEvent{}, false
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind != model.EventCommitted || e.At.IsZero() {
			continue
		}
		if match(e, author) {
			return e, true
		}
	}
	return model.TimelineEvent{}, false
}
