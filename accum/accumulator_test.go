package accum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cgen/errors"
)

type frozenRoot struct {
	*Accumulator
	frozen bool
}

func (r *frozenRoot) Frozen() bool { return r.frozen }

func TestAccumulatorOrder(t *testing.T) {
	a := New("body", nil)
	a.Add("first", "second")
	a.Add("third")

	assert.Equal(t, "first\nsecond\nthird", a.Render())
	assert.Equal(t, 3, a.Len())
}

func TestAccumulatorRenderIsPure(t *testing.T) {
	a := New("body", nil)
	a.Add("x = 1")
	first := a.Render()
	second := a.Render()
	assert.Equal(t, first, second)

	a.Add("y = 2")
	assert.NotEqual(t, first, a.Render())
}

func TestAccumulatorUnique(t *testing.T) {
	a := New("includes", nil, WithAccept(Unique), WithSeparator(" "))
	a.Add("a", "b", "a", "c", "b")
	assert.Equal(t, "a b c", a.Render())
}

func TestAccumulatorUniqueNodes(t *testing.T) {
	parent := New("outer", nil, WithAccept(Unique))
	child := New("inner", parent)
	child.Add("z")

	parent.Add(child, child)
	assert.Equal(t, 1, parent.Len())
	assert.Equal(t, "z", parent.Render())
}

func TestAccumulatorOutputAndEmptyParts(t *testing.T) {
	a := New("decls", nil, WithOutput(func(item any) string {
		s := RenderItem(item)
		if s == "" {
			return ""
		}
		return s + ";"
	}))
	a.Add("int x", New("empty", nil), "int y")
	assert.Equal(t, "int x;\nint y;", a.Render())
}

func TestAccumulatorNilIgnored(t *testing.T) {
	a := New("body", nil)
	a.Add(nil, "x", nil)
	assert.Equal(t, []any{"x"}, a.Items())
}

func TestAccumulatorFrozen(t *testing.T) {
	root := &frozenRoot{Accumulator: New("lib", nil)}
	root.Bind(root)
	child := New("body", root)
	child.Add("ok")

	root.frozen = true
	assert.PanicsWithError(t, "add to body after commit: template tree is frozen", func() {
		child.Add("late")
	}, "contributions after commit must be rejected")

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, errors.ErrFrozen))
		assert.True(t, errors.HasAssertionFailure(err))
	}()
	root.Add("late")
}

func TestSetParentRejectsCycle(t *testing.T) {
	a := New("a", nil)
	b := New("b", a)
	c := New("c", b)

	err := a.SetParent(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCycle))
	assert.Nil(t, a.Parent())

	d := New("d", nil)
	require.NoError(t, d.SetParent(c))
	assert.Equal(t, Node(c), d.Parent())
}

func TestInspect(t *testing.T) {
	outer := New("outer", nil, WithKind("Block"))
	inner := New("inner", outer)
	inner.Add("y")
	outer.Add("x", inner)

	want := "Block \"outer\" (2 items)\n" +
		"  \"x\"\n" +
		"  Accumulator \"inner\" (1 items)\n" +
		"    \"y\""
	assert.Equal(t, want, outer.Inspect())
}

func TestRenderItem(t *testing.T) {
	tests := []struct {
		name string
		item any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"node", func() any { a := New("n", nil); a.Add("v"); return a }(), "v"},
		{"number", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderItem(tt.item))
		})
	}
}
