// Package errors provides error handling for cgen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for humans reading a failed commit
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Classify with a sentinel so callers can errors.Is() it
//	return errors.Markf(errors.ErrNameConflict, "attribute %s already declared", name)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions and panics
var (
	AssertionFailedf                 = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
	WithAssertionFailure             = crdb.WithAssertionFailure
	HasAssertionFailure              = crdb.HasAssertionFailure
)

// Declaration-time errors. These are defects in the generating program and
// are reported before anything is committed.
var (
	// ErrUnrecognizedDeclaration indicates no attribute plugin matched a declaration
	ErrUnrecognizedDeclaration = New("unrecognized declaration")

	// ErrAmbiguousDeclaration indicates more than one attribute plugin matched
	ErrAmbiguousDeclaration = New("ambiguous declaration")

	// ErrNameConflict indicates a name is already taken by a different declaration
	ErrNameConflict = New("name conflict")

	// ErrInvalidName indicates a library, file or symbol name is not usable in C
	ErrInvalidName = New("invalid name")

	// ErrAlreadyPlaced indicates a library or file placement was set twice
	ErrAlreadyPlaced = New("placement already set")
)

// Commit-time errors. Fatal for the library being committed.
var (
	// ErrCommitted indicates a mutation or a second commit after commit
	ErrCommitted = New("already committed")

	// ErrLiveInstances indicates a class being committed already has instances
	ErrLiveInstances = New("class has live instances")

	// ErrBuildFailed indicates an external build step failed
	ErrBuildFailed = New("build failed")

	// ErrFilesystem indicates the build area could not be prepared
	ErrFilesystem = New("build area conflict")
)

// Runtime errors raised by generated accessors and the host model.
var (
	// ErrTypeMismatch indicates a typed writer received a value of the wrong class
	ErrTypeMismatch = New("type mismatch")

	// ErrRange indicates a value does not fit a native scalar
	ErrRange = New("out of range")

	// ErrArgumentCount indicates a call had the wrong number of arguments
	ErrArgumentCount = New("wrong number of arguments")

	// ErrNoMethod indicates a method is not defined for the receiver
	ErrNoMethod = New("undefined method")

	// ErrNotCommitted indicates construction before the owning library committed
	ErrNotCommitted = New("not committed")
)

// Structural and serialization errors.
var (
	// ErrFrozen indicates mutation of a template tree after commit
	ErrFrozen = New("template tree is frozen")

	// ErrCycle indicates a parent assignment would create a delegation cycle
	ErrCycle = New("delegation cycle")

	// ErrNotClosed indicates an ancestor was spliced before it was closed
	ErrNotClosed = New("ancestor not closed")

	// ErrSerialization indicates a dump/load stream did not match its reader
	ErrSerialization = New("serialization mismatch")
)

// Markf creates a formatted error that errors.Is() matches against sentinel.
func Markf(sentinel error, format string, args ...interface{}) error {
	return Mark(Newf(format, args...), sentinel)
}

// WrapMark wraps err with context and marks it with sentinel.
func WrapMark(err error, sentinel error, context string) error {
	return Mark(Wrap(err, context), sentinel)
}

// IsDeclarationError reports whether err is a declaration-time error.
func IsDeclarationError(err error) bool {
	return err != nil && IsAny(err,
		ErrUnrecognizedDeclaration,
		ErrAmbiguousDeclaration,
		ErrNameConflict,
		ErrInvalidName,
		ErrAlreadyPlaced)
}

// IsCommitError reports whether err is a commit-time error.
func IsCommitError(err error) bool {
	return err != nil && IsAny(err,
		ErrCommitted,
		ErrLiveInstances,
		ErrBuildFailed,
		ErrFilesystem)
}

// IsRuntimeError reports whether err was raised by an accessor or the host model.
func IsRuntimeError(err error) bool {
	return err != nil && IsAny(err,
		ErrTypeMismatch,
		ErrRange,
		ErrArgumentCount,
		ErrNoMethod,
		ErrNotCommitted)
}
