package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestMarkf(t *testing.T) {
	err := Markf(ErrNameConflict, "attribute %s already declared", "x")

	assert.Equal(t, "attribute x already declared", err.Error())
	assert.True(t, Is(err, ErrNameConflict))
	assert.False(t, Is(err, ErrInvalidName))

	wrapped := Wrap(err, "declaring Base")
	assert.True(t, Is(wrapped, ErrNameConflict))
}

func TestWrapMark(t *testing.T) {
	cause := New("exit status 1")
	err := WrapMark(cause, ErrBuildFailed, "compile")

	assert.True(t, Is(err, ErrBuildFailed))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "compile")
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		declaration bool
		commit      bool
		runtime     bool
	}{
		{"unrecognized", Markf(ErrUnrecognizedDeclaration, "x"), true, false, false},
		{"ambiguous", Markf(ErrAmbiguousDeclaration, "x"), true, false, false},
		{"placement", Markf(ErrAlreadyPlaced, "x"), true, false, false},
		{"committed", Markf(ErrCommitted, "x"), false, true, false},
		{"build", WrapMark(New("cc"), ErrBuildFailed, "compile"), false, true, false},
		{"type", Markf(ErrTypeMismatch, "x"), false, false, true},
		{"range", Markf(ErrRange, "x"), false, false, true},
		{"frozen", Markf(ErrFrozen, "x"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.declaration, IsDeclarationError(tt.err))
			assert.Equal(t, tt.commit, IsCommitError(tt.err))
			assert.Equal(t, tt.runtime, IsRuntimeError(tt.err))
		})
	}
}

func TestWithDetail(t *testing.T) {
	err := New("error")
	withDetail := WithDetail(err, "cc: fatal error: ruby.h: No such file or directory")

	details := GetAllDetails(withDetail)
	require.Len(t, details, 1)
	assert.Equal(t, "cc: fatal error: ruby.h: No such file or directory", details[0])
}

func TestWithHintf(t *testing.T) {
	err := New("error")
	withHint := WithHintf(err, "see %s for the full transcript", "build.log")

	hints := GetAllHints(withHint)
	require.Len(t, hints, 1)
	assert.Equal(t, "see build.log for the full transcript", hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestErrorChaining(t *testing.T) {
	base := New("base error")

	err := Wrap(base, "layer 1")
	err = WithHint(err, "helpful hint")
	err = WithDetail(err, "detailed info")
	err = Wrap(err, "layer 2")

	assert.True(t, Is(err, base))
	assert.Contains(t, err.Error(), "layer 2")
	assert.Contains(t, err.Error(), "layer 1")
	assert.Contains(t, err.Error(), "base error")

	assert.Contains(t, GetAllHints(err), "helpful hint")
	assert.Contains(t, GetAllDetails(err), "detailed info")
}

func ExampleMarkf() {
	err := Markf(ErrUnrecognizedDeclaration, "unrecognized declaration %q", "int* *x")
	fmt.Println(err, Is(err, ErrUnrecognizedDeclaration))
	// Output: unrecognized declaration "int* *x" true
}

func ExampleWrap() {
	baseErr := New("exit status 1")
	err := Wrap(baseErr, "compile libmain.c")
	fmt.Println(err)
	// Output: compile libmain.c: exit status 1
}
