// Package core orchestrates stow, unstow, and restow across packages: it
// wires the walker, planners, and executor together and aggregates
// per-package results.
package core

import (
	"context"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/executor"
	"github.com/arthur-debert/winstow/pkg/ignore"
	"github.com/arthur-debert/winstow/pkg/logging"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/planner"
	"github.com/arthur-debert/winstow/pkg/types"
)

// Operation selects what Run does with each package.
type Operation int

const (
	OpStow Operation = iota
	OpUnstow
	OpRestow
)

func (op Operation) String() string {
	switch op {
	case OpUnstow:
		return "unstow"
	case OpRestow:
		return "restow"
	}
	return "stow"
}

// Request is one invocation: an operation applied to packages in order.
type Request struct {
	Operation Operation
	Packages  []string
	Options   types.Options
}

// PackageResult records the outcome for a single package.
type PackageResult struct {
	Package   string
	Planned   int
	Committed int
	Err       error
}

// Result aggregates per-package outcomes. The worst case across packages
// decides the process exit status.
type Result struct {
	Packages []PackageResult
}

// Failed reports whether any package failed.
func (r Result) Failed() bool {
	return r.FirstErr() != nil
}

// FirstErr returns the first per-package error, or nil.
func (r Result) FirstErr() error {
	for _, p := range r.Packages {
		if p.Err != nil {
			return p.Err
		}
	}
	return nil
}

// Run executes the request. Directories are normalized and validated up
// front; pattern compilation happens once. A failing package does not stop
// the remaining packages.
func Run(ctx context.Context, fs types.FS, req Request) (Result, error) {
	log := logging.GetLogger("core")

	opts, patterns, err := prepare(req)
	if err != nil {
		return Result{}, err
	}

	exec := executor.New(fs, opts.DryRun)
	res := Result{}

	for _, pkg := range req.Packages {
		log.Info().Str("operation", req.Operation.String()).Str("package", pkg).Msg("processing package")

		pr := PackageResult{Package: pkg}
		switch req.Operation {
		case OpStow:
			pr = runPlan(ctx, exec, pkg, func() (*types.Plan, error) {
				return planner.NewStow(fs, opts, patterns).PlanPackage(pkg)
			})
		case OpUnstow:
			pr = runPlan(ctx, exec, pkg, func() (*types.Plan, error) {
				return planner.NewUnstow(fs, opts, patterns).PlanPackage(pkg)
			})
		case OpRestow:
			// restow is unstow then stow; a failed unstow skips the stow
			pr = runPlan(ctx, exec, pkg, func() (*types.Plan, error) {
				return planner.NewUnstow(fs, opts, patterns).PlanPackage(pkg)
			})
			if pr.Err == nil {
				stowPR := runPlan(ctx, exec, pkg, func() (*types.Plan, error) {
					return planner.NewStow(fs, opts, patterns).PlanPackage(pkg)
				})
				pr.Planned += stowPR.Planned
				pr.Committed += stowPR.Committed
				pr.Err = stowPR.Err
			}
		}

		if pr.Err != nil {
			log.Error().Str("package", pkg).Err(pr.Err).Msg("package failed")
		}
		res.Packages = append(res.Packages, pr)

		if ctx.Err() != nil {
			break
		}
	}

	return res, nil
}

func runPlan(ctx context.Context, exec *executor.Executor, pkg string, plan func() (*types.Plan, error)) PackageResult {
	pr := PackageResult{Package: pkg}

	p, err := plan()
	if err != nil {
		pr.Err = err
		return pr
	}
	pr.Planned = p.Len()

	execRes, err := exec.Execute(ctx, p)
	pr.Committed = execRes.Committed
	pr.Err = err
	return pr
}

func prepare(req Request) (types.Options, *ignore.Set, error) {
	opts := req.Options

	if opts.Adopt && opts.Override {
		return opts, nil, errors.New(errors.ErrInvalidInput,
			"--adopt and --override are mutually exclusive")
	}
	if len(req.Packages) == 0 {
		return opts, nil, errors.New(errors.ErrInvalidInput, "no packages given")
	}

	var err error
	if opts.StowDir, err = paths.Normalize(opts.StowDir); err != nil {
		return opts, nil, err
	}
	if opts.TargetDir, err = paths.Normalize(opts.TargetDir); err != nil {
		return opts, nil, err
	}

	// a relative link cannot cross volumes; fail before planning anything
	if _, err := paths.Rel(opts.TargetDir, opts.StowDir); err != nil {
		return opts, nil, err
	}

	patterns, err := ignore.NewSet(opts.Ignore, opts.Defer)
	if err != nil {
		return opts, nil, err
	}
	return opts, patterns, nil
}
