// Package toolchain drives the native build of a committed library:
// dependency discovery, build configuration, compilation and linking.
// Each step returns the transcript of what it ran so failures can be
// reported with the tool's own output.
package toolchain

import (
	"context"
	"fmt"

	"github.com/teranos/cgen/errors"
)

// Step names a build step.
type Step string

const (
	StepDepend    Step = "depend"
	StepConfigure Step = "configure"
	StepCompile   Step = "compile"
	StepLink      Step = "link"
)

// Spec describes one library build.
type Spec struct {
	Library     string
	Dir         string
	Sources     []string
	Headers     []string
	CFlags      []string
	LDFlags     []string
	IncludeDirs []string
}

// Artifact is the file name of the linked shared object.
func (s *Spec) Artifact() string { return "lib" + s.Library + ".so" }

// Result is the outcome of one step. Output carries the step's product:
// dependency rules for Depend, the artifact path for Link.
type Result struct {
	Output     string
	Transcript string
	Changed    bool
}

// Toolchain runs the build steps.
type Toolchain interface {
	Depend(ctx context.Context, spec *Spec) (Result, error)
	Configure(ctx context.Context, spec *Spec) (Result, error)
	Compile(ctx context.Context, spec *Spec) (Result, error)
	Link(ctx context.Context, spec *Spec) (Result, error)
}

// BuildError is a failed step with the transcript of what was run.
type BuildError struct {
	Step       Step
	Transcript string
	Err        error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Failed wraps a step failure so errors.Is matches ErrBuildFailed and the
// transcript travels as error detail.
func Failed(step Step, transcript string, err error) error {
	be := &BuildError{Step: step, Transcript: transcript, Err: err}
	return errors.WithDetail(errors.Mark(be, errors.ErrBuildFailed), transcript)
}
