package fragment

import (
	"github.com/teranos/cgen/accum"
)

// InitOnce is a block whose statements run only on the first execution of
// the enclosing function, guarded by a hidden static flag.
type InitOnce struct {
	*Statements
}

// NewInitOnce creates a run-once block under parent.
func NewInitOnce(name string, parent accum.Node) *InitOnce {
	i := &InitOnce{Statements: NewStatements(name, parent)}
	i.Bind(i)
	return i
}

// Render emits the guarded block, or nothing when there are no statements.
func (i *InitOnce) Render() string {
	inner := i.Statements.Render()
	if inner == "" {
		return ""
	}
	guarded := "initialized = 1;\n" + inner
	return "{\n" +
		Indent("static int initialized = 0;\nif (!initialized) {\n"+Indent(guarded, IndentWidth)+"\n}", IndentWidth) +
		"\n}"
}

// String implements fmt.Stringer.
func (i *InitOnce) String() string { return i.Render() }
