package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/spiffcs/boardsync/internal/report"
)

func sampleRun() *report.Run {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := report.NewRun("octo/repo", "PVT_1", false, start)
	r.ID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	r.FinishedAt = start.Add(65 * time.Second)

	gfi := r.Label("good first issue")
	gfi.Discovered, gfi.Enrolled, gfi.Existing = 3, 2, 1

	cpr := r.Label("Community PR")
	cpr.ComputeActivity = true
	cpr.Discovered, cpr.Enrolled, cpr.Annotated, cpr.FieldsWritten = 2, 2, 1, 3
	cpr.AddFailure(report.NewFailure(report.KindTimeline, "Community PR", 42, "", errors.New("timeline: 502")))
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json should give a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatMarkdown).(*MarkdownFormatter); !ok {
		t.Error("markdown should give a MarkdownFormatter")
	}
	if _, ok := NewFormatter("").(*TableFormatter); !ok {
		t.Error("default should be a TableFormatter")
	}
}

func TestTableFormatRun(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	if err := (&TableFormatter{}).FormatRun(sampleRun(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Run 1b4e28ba  octo/repo -> PVT_1  (1m05s)",
		"good first issue",
		"Community PR",
		"1 failure(s):",
		"timeline [Community PR] #42: timeline: 502",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[dry run]") {
		t.Error("live run should not be marked as dry run")
	}

	// Rows share one width.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var rowWidth int
	for _, line := range lines {
		if !strings.HasPrefix(line, "good first issue") && !strings.HasPrefix(line, "Community PR") {
			continue
		}
		if rowWidth == 0 {
			rowWidth = len(line)
		} else if len(line) != rowWidth {
			t.Errorf("row width %d, want %d: %q", len(line), rowWidth, line)
		}
	}
}

func TestTableFormatRun_Clean(t *testing.T) {
	color.NoColor = true

	r := report.NewRun("octo/repo", "PVT_1", true, time.Now())
	r.Label("bug")

	var buf bytes.Buffer
	if err := (&TableFormatter{}).FormatRun(r, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[dry run]") || !strings.Contains(buf.String(), "Completed without failures.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestTableFormatHistory(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	if err := (&TableFormatter{}).FormatHistory(nil, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No runs recorded.") {
		t.Errorf("unexpected empty output %q", buf.String())
	}

	buf.Reset()
	if err := (&TableFormatter{}).FormatHistory([]*report.Run{sampleRun()}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1b4e28ba") || !strings.Contains(buf.String(), "1m05s") {
		t.Errorf("unexpected history output:\n%s", buf.String())
	}
}

func TestJSONFormatRun(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatRun(sampleRun(), &buf); err != nil {
		t.Fatal(err)
	}

	var got struct {
		ID         string `json:"id"`
		DurationMS int64  `json:"durationMs"`
		Failed     bool   `json:"failed"`
		Totals     struct {
			Discovered    int `json:"discovered"`
			FieldsWritten int `json:"fieldsWritten"`
		} `json:"totals"`
		Labels []struct {
			Name     string `json:"name"`
			Failures []struct {
				Kind  string `json:"kind"`
				Issue int    `json:"issue"`
			} `json:"failures"`
		} `json:"labels"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	if got.ID == "" || got.DurationMS != 65000 || !got.Failed {
		t.Errorf("unexpected header fields: %+v", got)
	}
	if got.Totals.Discovered != 5 || got.Totals.FieldsWritten != 3 {
		t.Errorf("totals = %+v", got.Totals)
	}
	if len(got.Labels) != 2 || len(got.Labels[1].Failures) != 1 || got.Labels[1].Failures[0].Kind != "timeline" {
		t.Errorf("labels = %+v", got.Labels)
	}
}

func TestJSONFormatHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).FormatHistory(nil, &buf); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty history = %q, want []", buf.String())
	}
}

func TestMarkdownFormatRun(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownFormatter{}).FormatRun(sampleRun(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"## Board sync: octo/repo",
		"| good first issue |  | 3 | 2 | 1 | 0 | 0 | 0 |",
		"| Community PR | yes | 2 | 2 | 0 | 1 | 3 | 1 |",
		"### Failures (1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
