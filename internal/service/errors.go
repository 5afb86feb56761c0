package service

import (
	"errors"
	"fmt"

	"github.com/spiffcs/boardsync/internal/report"
)

// DiscoveryError is returned when the issue search for a label fails.
type DiscoveryError struct {
	Label string
	Repo  string
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover issues labeled %q in %s: %v", e.Label, e.Repo, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// EnrollmentError is returned when an issue could not be added to the board.
type EnrollmentError struct {
	Label string
	Issue int
	Err   error
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("enroll issue #%d (label %q): %v", e.Issue, e.Label, e.Err)
}

func (e *EnrollmentError) Unwrap() error { return e.Err }

// TimelineFetchError is returned when an issue timeline could not be read.
type TimelineFetchError struct {
	Label string
	Issue int
	Err   error
}

func (e *TimelineFetchError) Error() string {
	return fmt.Sprintf("fetch timeline of issue #%d (label %q): %v", e.Issue, e.Label, e.Err)
}

func (e *TimelineFetchError) Unwrap() error { return e.Err }

// FieldUpdateError is returned when a field write fails. Earlier writes for
// the same issue are kept.
type FieldUpdateError struct {
	Label string
	Issue int
	Field string
	Err   error
}

func (e *FieldUpdateError) Error() string {
	return fmt.Sprintf("update field %s of issue #%d (label %q): %v", e.Field, e.Issue, e.Label, e.Err)
}

func (e *FieldUpdateError) Unwrap() error { return e.Err }

// failureOf converts a typed pipeline error into a report entry.
func failureOf(err error) report.Failure {
	var (
		de *DiscoveryError
		ee *EnrollmentError
		te *TimelineFetchError
		fe *FieldUpdateError
	)
	switch {
	case errors.As(err, &de):
		return report.NewFailure(report.KindDiscovery, de.Label, 0, "", err)
	case errors.As(err, &ee):
		return report.NewFailure(report.KindEnrollment, ee.Label, ee.Issue, "", err)
	case errors.As(err, &te):
		return report.NewFailure(report.KindTimeline, te.Label, te.Issue, "", err)
	case errors.As(err, &fe):
		return report.NewFailure(report.KindFieldUpdate, fe.Label, fe.Issue, fe.Field, err)
	default:
		return report.NewFailure(report.KindDiscovery, "", 0, "", err)
	}
}
