package activity

import (
	"testing"
	"time"

	"github.com/spiffcs/boardsync/internal/model"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) time.Time {
	return testNow.Add(-time.Duration(d * float64(24*time.Hour)))
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want int
	}{
		{"same instant", testNow, 0},
		{"under a day", testNow.Add(-23 * time.Hour), 0},
		{"exactly one day", testNow.Add(-24 * time.Hour), 1},
		{"one day and change", testNow.Add(-47 * time.Hour), 1},
		{"five days", daysAgo(5), 5},
		{"five and a half days floors", daysAgo(5.5), 5},
		{"future clamps to zero", testNow.Add(72 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.from, testNow); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysBetween_MonotonicInNow(t *testing.T) {
	updated := daysAgo(3)
	prev := -1
	for h := 0; h < 24*10; h += 5 {
		now := testNow.Add(time.Duration(h) * time.Hour)
		got := DaysBetween(updated, now)
		if got < prev {
			t.Fatalf("days decreased from %d to %d at +%dh", prev, got, h)
		}
		prev = got
	}
}

func TestCompute(t *testing.T) {
	issue := model.Issue{Number: 7, Author: "octocat", UpdatedAt: daysAgo(2)}

	tests := []struct {
		name             string
		events           []model.TimelineEvent
		wantComment      *int
		wantAuthorCommit *int
	}{
		{
			name:   "empty timeline leaves optional signals unset",
			events: nil,
		},
		{
			name: "latest of several comments wins",
			events: []model.TimelineEvent{
				{Kind: model.EventCommented, At: daysAgo(20), Actor: "a"},
				{Kind: model.EventCommented, At: daysAgo(9), Actor: "b"},
				{Kind: model.EventCommented, At: daysAgo(5), Actor: "c"},
				{Kind: "labeled", At: daysAgo(1), Actor: "d"},
			},
			wantComment: intPtr(5),
		},
		{
			name: "review counts as comment activity",
			events: []model.TimelineEvent{
				{Kind: model.EventCommented, At: daysAgo(8), Actor: "a"},
				{Kind: model.EventReviewed, At: daysAgo(3), Actor: "b"},
			},
			wantComment: intPtr(3),
		},
		{
			name: "bot comments are skipped",
			events: []model.TimelineEvent{
				{Kind: model.EventCommented, At: daysAgo(6), Actor: "maintainer"},
				{Kind: model.EventCommented, At: daysAgo(1), Actor: "dependabot[bot]", ActorIsBot: true},
			},
			wantComment: intPtr(6),
		},
		{
			name: "author commit matched by display name",
			events: []model.TimelineEvent{
				{Kind: model.EventCommitted, At: daysAgo(12), CommitterName: "octocat"},
				{Kind: model.EventCommitted, At: daysAgo(4), CommitterName: "Mona Lisa Octocat"},
			},
			wantAuthorCommit: intPtr(12),
		},
		{
			name: "commits by others do not count",
			events: []model.TimelineEvent{
				{Kind: model.EventCommitted, At: daysAgo(4), CommitterName: "someone"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(issue, tt.events, testNow, nil)

			if got.IssueNumber != 7 {
				t.Errorf("IssueNumber = %d, want 7", got.IssueNumber)
			}
			if got.SinceUpdate == nil || got.SinceUpdate.Days != 2 {
				t.Errorf("SinceUpdate = %+v, want 2 days", got.SinceUpdate)
			}
			checkMeasurement(t, "SinceCommentOrReview", got.SinceCommentOrReview, tt.wantComment)
			checkMeasurement(t, "SinceAuthorCommit", got.SinceAuthorCommit, tt.wantAuthorCommit)
		})
	}
}

func TestCompute_NoreplyMatcher(t *testing.T) {
	issue := model.Issue{Number: 1, Author: "OctoCat", UpdatedAt: testNow}
	events := []model.TimelineEvent{
		{Kind: model.EventCommitted, At: daysAgo(10), CommitterName: "GitHub", CommitterEmail: "noreply@github.com", AuthorEmail: "583231+octocat@users.noreply.github.com"},
		{Kind: model.EventCommitted, At: daysAgo(2), CommitterName: "octocat", CommitterEmail: "octo@example.com"},
	}

	got := Compute(issue, events, testNow, MatchNoreplyEmail)
	checkMeasurement(t, "SinceAuthorCommit", got.SinceAuthorCommit, intPtr(10))
}

func TestMeasurements(t *testing.T) {
	a := Activity{
		SinceUpdate:       &Measurement{Signal: model.SignalDaysSinceUpdate, Days: 1},
		SinceAuthorCommit: &Measurement{Signal: model.SignalDaysSinceLastAuthorCommit, Days: 3},
	}

	got := a.Measurements()
	if len(got) != 2 {
		t.Fatalf("expected 2 measurements, got %d", len(got))
	}
	if got[0].Signal != model.SignalDaysSinceUpdate || got[1].Signal != model.SignalDaysSinceLastAuthorCommit {
		t.Errorf("unexpected order: %v, %v", got[0].Signal, got[1].Signal)
	}
}

func TestNoreplyLogin(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"octocat@users.noreply.github.com", "octocat"},
		{"583231+OctoCat@users.noreply.github.com", "octocat"},
		{"octocat@example.com", ""},
		{"@users.noreply.github.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := noreplyLogin(tt.email); got != tt.want {
				t.Errorf("noreplyLogin(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestMatcherFor(t *testing.T) {
	for _, name := range []string{"", MatchByDisplayName, MatchByNoreplyEmail} {
		m, err := MatcherFor(name)
		if err != nil {
			t.Errorf("MatcherFor(%q) error: %v", name, err)
		}
		if m == nil {
			t.Errorf("MatcherFor(%q) returned nil matcher", name)
		}
	}
	if _, err := MatcherFor("account-id"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func checkMeasurement(t *testing.T, name string, got *Measurement, want *int) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %d days, want unset", name, got.Days)
	case want != nil && got == nil:
		t.Errorf("%s unset, want %d days", name, *want)
	case want != nil && got.Days != *want:
		t.Errorf("%s = %d days, want %d", name, got.Days, *want)
	}
}

func intPtr(n int) *int { return &n }
