package output

import (
	"encoding/json"
	"io"

	"github.com/spiffcs/boardsync/internal/report"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// jsonRun adds derived values to the stored report shape.
type jsonRun struct {
	*report.Run
	DurationMS int64        `json:"durationMs"`
	Totals     report.Label `json:"totals"`
	Failed     bool         `json:"failed"`
}

func toJSONRun(r *report.Run) jsonRun {
	totals := r.Totals()
	totals.Failures = nil
	return jsonRun{Run: r, DurationMS: r.Duration().Milliseconds(), Totals: totals, Failed: r.Failed()}
}

// FormatRun outputs one run report as a JSON object.
func (f *JSONFormatter) FormatRun(run *report.Run, w io.Writer) error {
	return f.encode(w, toJSONRun(run))
}

// FormatHistory outputs runs as a JSON array.
func (f *JSONFormatter) FormatHistory(runs []*report.Run, w io.Writer) error {
	out := make([]jsonRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, toJSONRun(r))
	}
	return f.encode(w, out)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
