package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewRun_AssignsID(t *testing.T) {
	a := NewRun("octo/repo", "PVT_1", false, time.Now())
	b := NewRun("octo/repo", "PVT_1", false, time.Now())
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct run ids, got %q and %q", a.ID, b.ID)
	}
}

func TestRun_LabelReturnsSameEntry(t *testing.T) {
	r := NewRun("octo/repo", "PVT_1", false, time.Now())
	r.Label("bug").Discovered = 3
	r.Label("docs")
	r.Label("bug").Enrolled = 2

	if len(r.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(r.Labels))
	}
	if got := r.Labels[0]; got.Discovered != 3 || got.Enrolled != 2 {
		t.Errorf("unexpected bug label: %+v", got)
	}
}

func TestRun_Err(t *testing.T) {
	r := NewRun("octo/repo", "PVT_1", false, time.Now())
	if r.Err() != nil || r.Failed() {
		t.Fatal("expected a fresh run to have no error")
	}

	cause := errors.New("boom")
	r.Label("bug").AddFailure(NewFailure(KindEnrollment, "bug", 7, "", cause))
	r.Label("docs").AddFailure(NewFailure(KindFieldUpdate, "docs", 9, "days_since_update", errors.New("denied")))

	if !r.Failed() {
		t.Error("expected Failed() to be true")
	}
	err := r.Err()
	if !errors.Is(err, cause) {
		t.Errorf("expected joined error to wrap cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Errorf("expected joined error to include every failure, got %v", err)
	}
	if n := len(r.Totals().Failures); n != 2 {
		t.Errorf("expected 2 failures in totals, got %d", n)
	}
}

func TestFailure_ErrAfterRoundTrip(t *testing.T) {
	f := NewFailure(KindTimeline, "bug", 3, "", errors.New("timeline unavailable"))

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var loaded Failure
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if loaded.Err() == nil || loaded.Err().Error() != "timeline unavailable" {
		t.Errorf("Err() = %v", loaded.Err())
	}
}

func TestFailure_String(t *testing.T) {
	tests := []struct {
		name string
		f    Failure
		want string
	}{
		{"label only", Failure{Kind: KindDiscovery, Label: "bug", Message: "search failed"}, "discovery [bug]: search failed"},
		{"with issue and field", Failure{Kind: KindFieldUpdate, Label: "bug", Issue: 4, Field: "days_since_update", Message: "x"}, "field_update [bug] #4 days_since_update: x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r := NewRun("octo/repo", "PVT_1", false, start)
	if r.Duration() != 0 {
		t.Error("expected zero duration before finish")
	}
	r.FinishedAt = start.Add(90 * time.Second)
	if r.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v", r.Duration())
	}
}
