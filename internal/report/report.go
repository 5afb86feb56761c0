// Package report holds the outcome of a synchronization run.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FailureKind classifies a non-fatal failure.
type FailureKind string

const (
	KindDiscovery   FailureKind = "discovery"
	KindEnrollment  FailureKind = "enrollment"
	KindTimeline    FailureKind = "timeline"
	KindFieldUpdate FailureKind = "field_update"
)

// Failure is one isolated failure. Issue and Field are zero when the failure
// is not attributable to them.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Label   string      `json:"label"`
	Issue   int         `json:"issue,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`

	err error
}

// NewFailure records err under kind.
func NewFailure(kind FailureKind, label string, issue int, field string, err error) Failure {
	return Failure{Kind: kind, Label: label, Issue: issue, Field: field, Message: err.Error(), err: err}
}

// Err returns the original error, or one rebuilt from the message when the
// failure was loaded from history.
func (f Failure) Err() error {
	if f.err != nil {
		return f.err
	}
	return errors.New(f.Message)
}

func (f Failure) String() string {
	s := fmt.Sprintf("%s [%s]", f.Kind, f.Label)
	if f.Issue != 0 {
		s += fmt.Sprintf(" #%d", f.Issue)
	}
	if f.Field != "" {
		s += " " + f.Field
	}
	return s + ": " + f.Message
}

// Label is the outcome of one label's pipeline.
type Label struct {
	Name            string    `json:"name"`
	ComputeActivity bool      `json:"computeActivity"`
	Discovered      int       `json:"discovered"`
	Enrolled        int       `json:"enrolled"`
	Existing        int       `json:"existing"`
	Annotated       int       `json:"annotated"`
	FieldsWritten   int       `json:"fieldsWritten"`
	Failures        []Failure `json:"failures,omitempty"`
}

// AddFailure appends a failure to the label.
func (l *Label) AddFailure(f Failure) {
	l.Failures = append(l.Failures, f)
}

// Run is the report of one synchronization pass.
type Run struct {
	ID         string    `json:"id"`
	Repo       string    `json:"repo"`
	ProjectID  string    `json:"projectId"`
	DryRun     bool      `json:"dryRun,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Labels     []*Label  `json:"labels"`
}

// NewRun starts a report with a fresh run id.
func NewRun(repo, projectID string, dryRun bool, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Repo:      repo,
		ProjectID: projectID,
		DryRun:    dryRun,
		StartedAt: startedAt,
	}
}

// Label returns the entry for name, creating it on first use.
func (r *Run) Label(name string) *Label {
	for _, l := range r.Labels {
		if l.Name == name {
			return l
		}
	}
	l := &Label{Name: name}
	r.Labels = append(r.Labels, l)
	return l
}

// Failures returns every failure in label order.
func (r *Run) Failures() []Failure {
	var out []Failure
	for _, l := range r.Labels {
		out = append(out, l.Failures...)
	}
	return out
}

// Failed reports whether any non-fatal failure occurred.
func (r *Run) Failed() bool {
	for _, l := range r.Labels {
		if len(l.Failures) > 0 {
			return true
		}
	}
	return false
}

// Err joins every failure of the run, or returns nil.
func (r *Run) Err() error {
	var errs []error
	for _, f := range r.Failures() {
		errs = append(errs, f.Err())
	}
	return errors.Join(errs...)
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals sums the counters of every label.
func (r *Run) Totals() Label {
	t := Label{Name: "total"}
	for _, l := range r.Labels {
		t.Discovered += l.Discovered
		t.Enrolled += l.Enrolled
		t.Existing += l.Existing
		t.Annotated += l.Annotated
		t.FieldsWritten += l.FieldsWritten
		t.Failures = append(t.Failures, l.Failures...)
	}
	return t
}
