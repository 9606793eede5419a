// Package fragment provides the C-flavored accumulators: statement lists,
// braced blocks, keyed declarations, include lists, comments and
// run-once initialization blocks.
package fragment

import (
	"strings"
	"unicode"
)

// IndentWidth is the column step of nested blocks.
const IndentWidth = 4

// Dedent normalizes a multi-line snippet: a leading blank line and trailing
// blank lines are dropped and the common left margin is removed, so snippets
// can be written indented inside Go source.
func Dedent(s string) string {
	if !strings.Contains(s, "\n") {
		return strings.TrimSpace(s)
	}
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	margin := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeftFunc(l, unicode.IsSpace))
		if margin < 0 || n < margin {
			margin = n
		}
	}
	for i, l := range lines {
		if len(l) >= margin && margin > 0 {
			lines[i] = l[margin:]
		} else if strings.TrimSpace(l) == "" {
			lines[i] = ""
		}
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// Indent shifts every non-empty line of s right by n columns.
func Indent(s string, n int) string {
	if s == "" {
		return ""
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

// Terminate appends a statement terminator unless the text already ends in
// one, ends in whitespace or a closing brace, or is a comment or
// preprocessor line.
func Terminate(s string) string {
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if last == ';' || last == '}' || unicode.IsSpace(rune(last)) {
		return s
	}
	head := strings.TrimLeftFunc(s, unicode.IsSpace)
	for _, p := range []string{"/*", "//", "#"} {
		if strings.HasPrefix(head, p) {
			return s
		}
	}
	return s + ";"
}
