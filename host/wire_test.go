package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cgen/errors"
)

// counter keeps a native int in Data and serializes it through the
// _dump_data/_load_data protocol.
func counterClass(t *testing.T, rt *Runtime) *Class {
	t.Helper()
	cls, err := rt.DefineClass("Counter", nil)
	require.NoError(t, err)
	cls.SetAllocator(func(rt *Runtime, cls *Class) (*Object, error) {
		o := rt.NewObject(cls)
		o.Data = int64(0)
		return o, nil
	})
	cls.DefineMethod(DumpMethod, func(rt *Runtime, self Value, args []Value) (Value, error) {
		return NewArray(self.(*Object).Data), nil
	})
	cls.DefineMethod(LoadMethod, func(rt *Runtime, self Value, args []Value) (Value, error) {
		from := args[0].(*Array)
		self.(*Object).Data = from.Shift()
		return from, nil
	})
	return cls
}

func TestDumpLoadRoundTrip(t *testing.T) {
	rt := NewRuntime()
	cls := counterClass(t, rt)

	c, err := rt.Allocate(cls)
	require.NoError(t, err)
	c.Data = int64(5)
	c.SetIvar("@label", "five")
	c.SetIvar("@self", c)

	root := NewArray(c, c, 1.5, "s", Symbol("k"), nil, true)
	data, err := rt.Dump(root)
	require.NoError(t, err)

	again, err := rt.Dump(root)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")

	v, err := rt.Load(data)
	require.NoError(t, err)
	arr := v.(*Array)
	require.Len(t, arr.Items, 7)

	got := arr.Items[0].(*Object)
	assert.NotSame(t, c, got)
	assert.Same(t, got, arr.Items[1], "shared reference preserved")
	assert.Equal(t, int64(5), got.Data)
	assert.Equal(t, "five", got.Ivar("@label"))
	assert.Same(t, got, got.Ivar("@self"), "cycle preserved")
	assert.Equal(t, []Value{1.5, "s", Symbol("k"), nil, true}, arr.Items[2:])
}

func TestLoadDetectsUnreadData(t *testing.T) {
	rt := NewRuntime()
	cls := counterClass(t, rt)
	c, _ := rt.Allocate(cls)
	data, err := rt.Dump(c)
	require.NoError(t, err)

	// a reader that consumes nothing
	cls.DefineMethod(LoadMethod, func(rt *Runtime, self Value, args []Value) (Value, error) {
		return args[0], nil
	})
	_, err = rt.Load(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSerialization))
}

func TestLoadGarbage(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Load([]byte{0xff, 0x00})
	assert.True(t, errors.Is(err, errors.ErrSerialization))
}
