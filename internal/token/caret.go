package token

import (
	"strings"
	"unicode/utf8"
)

// Caret renders the input line containing span with a caret pointer
// underneath, for caller-facing error messages:
//
//	Filter: status[>>"Open"]
//	               ^
//
// Offsets are clamped to the input so a span past EOF still renders.
func Caret(input string, span Span) string {
	start := span.Start
	if start > len(input) {
		start = len(input)
	}
	end := span.End
	if end < start {
		end = start
	}
	if end > len(input) {
		end = len(input)
	}

	lineStart := strings.LastIndexByte(input[:start], '\n') + 1
	lineEnd := len(input)
	if i := strings.IndexByte(input[start:], '\n'); i >= 0 {
		lineEnd = start + i
	}
	line := input[lineStart:lineEnd]

	col := utf8.RuneCountInString(input[lineStart:start])
	width := utf8.RuneCountInString(input[start:min(end, lineEnd)])
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", col))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}
