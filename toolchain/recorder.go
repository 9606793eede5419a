package toolchain

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/teranos/cgen/errors"
)

// Recorder is a Toolchain that runs nothing. It records each step and can
// be told to fail one. Tests and dry runs use it.
type Recorder struct {
	mu     sync.Mutex
	Steps  []Step
	Specs  []Spec
	FailAt Step
	// Deps is returned as the Depend output.
	Deps string
}

func (r *Recorder) record(step Step, spec *Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, step)
	r.Specs = append(r.Specs, *spec)
	if r.FailAt == step {
		return Failed(step, "$ "+string(step)+"\nrecorded failure\n", errors.Newf("%s failed", step))
	}
	return nil
}

// Depend implements Toolchain.
func (r *Recorder) Depend(ctx context.Context, spec *Spec) (Result, error) {
	if err := r.record(StepDepend, spec); err != nil {
		return Result{}, err
	}
	return Result{Output: r.Deps, Transcript: "$ depend\n"}, nil
}

// Configure implements Toolchain.
func (r *Recorder) Configure(ctx context.Context, spec *Spec) (Result, error) {
	if err := r.record(StepConfigure, spec); err != nil {
		return Result{}, err
	}
	return Result{Transcript: "$ configure\n"}, nil
}

// Compile implements Toolchain.
func (r *Recorder) Compile(ctx context.Context, spec *Spec) (Result, error) {
	if err := r.record(StepCompile, spec); err != nil {
		return Result{}, err
	}
	return Result{Transcript: "$ compile\n", Changed: true}, nil
}

// Link implements Toolchain.
func (r *Recorder) Link(ctx context.Context, spec *Spec) (Result, error) {
	if err := r.record(StepLink, spec); err != nil {
		return Result{}, err
	}
	return Result{Output: filepath.Join(spec.Dir, spec.Artifact()), Transcript: "$ link\n", Changed: true}, nil
}

// Ran returns the recorded steps.
func (r *Recorder) Ran() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.Steps...)
}
