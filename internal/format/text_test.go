package format

import (
	"testing"
)

func TestStripAnsi(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no ansi", "hello", "hello"},
		{"single color", "\x1b[31mred\x1b[0m", "red"},
		{"multiple colors", "\x1b[31mred\x1b[0m \x1b[32mgreen\x1b[0m", "red green"},
		{"compound", "\x1b[1;31;40mbold\x1b[0m", "bold"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripAnsi(tt.input); got != tt.expected {
				t.Errorf("StripAnsi(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"ascii", "good first issue", 16},
		{"with ansi", "\x1b[31mfailed\x1b[0m", 6},
		{"wide chars", "日本語", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayWidth(tt.input); got != tt.expected {
				t.Errorf("DisplayWidth(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		maxWidth      int
		expectedStr   string
		expectedWidth int
	}{
		{"fits", "help wanted", 20, "help wanted", 11},
		{"exact fit", "hello", 5, "hello", 5},
		{"truncate ascii", "good first issue", 8, "good ...", 8},
		{"colors dropped when cut", "\x1b[31mred text\x1b[0m", 6, "red...", 6},
		{"colors kept when fitting", "\x1b[31mred\x1b[0m", 6, "\x1b[31mred\x1b[0m", 3},
		{"suffix only", "hello", 3, "...", 3},
		{"narrower than suffix", "hello", 2, "..", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStr, gotWidth := TruncateToWidth(tt.input, tt.maxWidth)
			if gotStr != tt.expectedStr || gotWidth != tt.expectedWidth {
				t.Errorf("TruncateToWidth(%q, %d) = (%q, %d), want (%q, %d)",
					tt.input, tt.maxWidth, gotStr, gotWidth, tt.expectedStr, tt.expectedWidth)
			}
		})
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"bug", 6, "bug   "},
		{"Community PR", 8, "Commu..."},
		{"", 2, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Cell(tt.input, tt.width); got != tt.want {
				t.Errorf("Cell(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestHyperlinkWithoutTerminal(t *testing.T) {
	// go test never runs with a terminal on stdout.
	if got := Hyperlink("#12", "https://github.com/octo/repo/issues/12"); got != "#12" {
		t.Errorf("Hyperlink() = %q, want plain text", got)
	}
}
