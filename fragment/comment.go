package fragment

import (
	"strings"

	"github.com/teranos/cgen/accum"
)

// Comment is a block of line comments. Contributed lines that are not
// comments already get a "// " prefix.
type Comment struct {
	*accum.Accumulator
}

// NewComment creates a comment under parent.
func NewComment(name string, parent accum.Node) *Comment {
	c := &Comment{Accumulator: accum.New(name, parent, accum.WithKind("Comment"))}
	c.Bind(c)
	return c
}

// Add appends comment text. Multi-line strings are dedented.
func (c *Comment) Add(items ...any) {
	c.Accumulator.Add(normalize(items)...)
}

// Render prefixes every line that is not already a comment. Lines of a
// /* ... */ block pass through unchanged.
func (c *Comment) Render() string {
	text := c.Accumulator.Render()
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	inBlock := false
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case inBlock:
			inBlock = !strings.Contains(trimmed, "*/")
		case strings.HasPrefix(trimmed, "/*"):
			inBlock = !strings.Contains(trimmed[2:], "*/")
		case strings.HasPrefix(trimmed, "//"):
		case l == "":
			lines[i] = "//"
		default:
			lines[i] = "// " + l
		}
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer.
func (c *Comment) String() string { return c.Render() }
