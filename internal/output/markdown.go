package output

import (
	"fmt"
	"io"

	"github.com/spiffcs/boardsync/internal/format"
	"github.com/spiffcs/boardsync/internal/report"
)

// MarkdownFormatter formats output as Markdown, suitable for a CI job
// summary.
type MarkdownFormatter struct{}

// FormatRun outputs a run report as a Markdown table.
func (f *MarkdownFormatter) FormatRun(run *report.Run, w io.Writer) error {
	fmt.Fprintf(w, "## Board sync: %s\n\n", run.Repo)
	fmt.Fprintf(w, "- **Project:** `%s`\n", run.ProjectID)
	fmt.Fprintf(w, "- **Run:** `%s`\n", run.ID)
	fmt.Fprintf(w, "- **Started:** %s\n", run.StartedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "- **Took:** %s\n", format.FormatElapsed(run.Duration()))
	if run.DryRun {
		fmt.Fprintln(w, "- **Dry run:** no changes were written")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Label | Activity | Found | Added | Existing | Annotated | Fields | Failures |")
	fmt.Fprintln(w, "|---|---|---:|---:|---:|---:|---:|---:|")
	for _, l := range run.Labels {
		activity := ""
		if l.ComputeActivity {
			activity = "yes"
		}
		fmt.Fprintf(w, "| %s | %s | %d | %d | %d | %d | %d | %d |\n",
			l.Name, activity, l.Discovered, l.Enrolled, l.Existing, l.Annotated, l.FieldsWritten, len(l.Failures))
	}

	failures := run.Failures()
	if len(failures) > 0 {
		fmt.Fprintf(w, "\n### Failures (%d)\n\n", len(failures))
		for _, fl := range failures {
			fmt.Fprintf(w, "- %s\n", fl.String())
		}
	}
	return nil
}

// FormatHistory outputs runs as a Markdown table.
func (f *MarkdownFormatter) FormatHistory(runs []*report.Run, w io.Writer) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(w, "| Started | Run | Took | Dry run | Added | Fields | Failures |")
	fmt.Fprintln(w, "|---|---|---|---|---:|---:|---:|")
	for _, r := range runs {
		t := r.Totals()
		dry := ""
		if r.DryRun {
			dry = "yes"
		}
		fmt.Fprintf(w, "| %s | `%s` | %s | %s | %d | %d | %d |\n",
			r.StartedAt.UTC().Format("2006-01-02 15:04"), shortID(r.ID), format.FormatElapsed(r.Duration()),
			dry, t.Enrolled, t.FieldsWritten, len(t.Failures))
	}
	return nil
}
