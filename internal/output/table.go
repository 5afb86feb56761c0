package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/spiffcs/boardsync/internal/format"
	"github.com/spiffcs/boardsync/internal/report"
)

// TableFormatter formats output as a terminal table
type TableFormatter struct{}

const (
	colLabel    = 24
	colActivity = 8
	colCount    = 10
)

var countHeaders = []string{"Found", "Added", "Existing", "Annotated", "Fields", "Failures"}

// FormatRun prints a per-label table followed by every failure.
func (f *TableFormatter) FormatRun(run *report.Run, w io.Writer) error {
	title := fmt.Sprintf("Run %s  %s -> %s  (%s)", shortID(run.ID), run.Repo, run.ProjectID, format.FormatElapsed(run.Duration()))
	if run.DryRun {
		title += "  " + color.YellowString("[dry run]")
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w)

	if len(run.Labels) == 0 {
		fmt.Fprintln(w, "No labels processed.")
		return nil
	}

	printHeader(w)
	for _, l := range run.Labels {
		printLabelRow(w, *l)
	}
	fmt.Fprintln(w, strings.Repeat("-", tableWidth()))
	printLabelRow(w, run.Totals())

	failures := run.Failures()
	if len(failures) == 0 {
		fmt.Fprintf(w, "\n%s\n", color.GreenString("Completed without failures."))
		return nil
	}

	fmt.Fprintf(w, "\n%s\n", color.RedString("%d failure(s):", len(failures)))
	for _, fl := range failures {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("●"), fl.String())
	}
	return nil
}

func printHeader(w io.Writer) {
	var b strings.Builder
	b.WriteString(format.Cell("Label", colLabel))
	b.WriteString("  ")
	b.WriteString(format.Cell("Activity", colActivity))
	for _, h := range countHeaders {
		b.WriteString("  ")
		b.WriteString(fmt.Sprintf("%*s", colCount, h))
	}
	fmt.Fprintln(w, b.String())
	fmt.Fprintln(w, strings.Repeat("-", tableWidth()))
}

func printLabelRow(w io.Writer, l report.Label) {
	activity := ""
	if l.ComputeActivity {
		activity = "yes"
	}

	failures := fmt.Sprintf("%*d", colCount, len(l.Failures))
	if len(l.Failures) > 0 {
		failures = color.RedString(failures)
	}

	fmt.Fprintf(w, "%s  %s  %*d  %*d  %*d  %*d  %*d  %s\n",
		format.Cell(l.Name, colLabel),
		format.Cell(activity, colActivity),
		colCount, l.Discovered,
		colCount, l.Enrolled,
		colCount, l.Existing,
		colCount, l.Annotated,
		colCount, l.FieldsWritten,
		failures,
	)
}

func tableWidth() int {
	return colLabel + 2 + colActivity + len(countHeaders)*(colCount+2)
}

// FormatHistory prints one line per run, newest first.
func (f *TableFormatter) FormatHistory(runs []*report.Run, w io.Writer) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	const (
		colStarted  = 16
		colRun      = 8
		colDuration = 8
		colLabels   = 6
	)

	fmt.Fprintf(w, "%-*s  %-*s  %*s  %*s  %*s  %*s  %*s\n",
		colStarted, "Started",
		colRun, "Run",
		colDuration, "Took",
		colLabels, "Labels",
		colCount, "Added",
		colCount, "Fields",
		colCount, "Failures")
	fmt.Fprintln(w, strings.Repeat("-", colStarted+colRun+colDuration+colLabels+3*colCount+12))

	for _, r := range runs {
		t := r.Totals()
		id := shortID(r.ID)
		if r.DryRun {
			id = color.YellowString(format.Cell(id+"*", colRun))
		} else {
			id = format.Cell(id, colRun)
		}

		failures := fmt.Sprintf("%*d", colCount, len(t.Failures))
		if len(t.Failures) > 0 {
			failures = color.RedString(failures)
		}

		fmt.Fprintf(w, "%-*s  %s  %*s  %*d  %*d  %*d  %s\n",
			colStarted, r.StartedAt.Local().Format("2006-01-02 15:04"),
			id,
			colDuration, format.FormatElapsed(r.Duration()),
			colLabels, len(r.Labels),
			colCount, t.Enrolled,
			colCount, t.FieldsWritten,
			failures,
		)
	}
	return nil
}

// shortID returns the first block of a run id.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
