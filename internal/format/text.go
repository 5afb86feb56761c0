// Package format provides shared text formatting utilities for terminal output.
package format

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/spiffcs/boardsync/internal/constants"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripAnsi removes ANSI color sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the visible width of s in terminal columns.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(StripAnsi(s))
}

// TruncateToWidth shortens s to maxWidth columns, ending it with "...".
// Colors are dropped from truncated strings. It returns the result and its
// visible width.
func TruncateToWidth(s string, maxWidth int) (string, int) {
	if w := DisplayWidth(s); w <= maxWidth {
		return s, w
	}
	if maxWidth <= constants.TruncationSuffixWidth {
		return strings.Repeat(".", max(maxWidth, 0)), max(maxWidth, 0)
	}
	out := runewidth.Truncate(StripAnsi(s), maxWidth, "...")
	return out, runewidth.StringWidth(out)
}

// PadRight pads s with spaces from visibleWidth up to targetWidth.
func PadRight(s string, visibleWidth, targetWidth int) string {
	if visibleWidth >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-visibleWidth)
}

// Cell truncates and pads s to exactly width columns.
func Cell(s string, width int) string {
	s, w := TruncateToWidth(s, width)
	return PadRight(s, w, width)
}

// Hyperlink wraps text in an OSC 8 link when stdout is a terminal.
func Hyperlink(text, url string) string {
	if url == "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return text
	}
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}
