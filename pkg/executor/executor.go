// Package executor applies plans against the filesystem capability, one
// action at a time. Preconditions observed at plan time are re-probed
// before each mutation; a mismatch means another process touched the
// target and fails the action rather than guessing.
package executor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/logging"
	"github.com/arthur-debert/winstow/pkg/types"
)

// Result reports how much of a plan ran.
type Result struct {
	Total     int
	Committed int
}

// Executor runs plans sequentially. In dry-run mode every action is logged
// and the paths a real run would re-probe are probed, but no mutation
// happens.
type Executor struct {
	fs     types.FS
	dryRun bool
	log    zerolog.Logger
}

// New creates an executor over the given filesystem capability.
func New(fs types.FS, dryRun bool) *Executor {
	return &Executor{
		fs:     fs,
		dryRun: dryRun,
		log:    logging.GetLogger("executor"),
	}
}

// Execute runs the plan in order, stopping at the first failure or when
// ctx is cancelled between actions. The result carries the committed count
// either way; nothing is rolled back.
func (e *Executor) Execute(ctx context.Context, plan *types.Plan) (Result, error) {
	res := Result{Total: plan.Len()}

	for _, action := range plan.Actions() {
		if err := ctx.Err(); err != nil {
			e.log.Info().Int("committed", res.Committed).Int("total", res.Total).
				Msg("cancelled between actions")
			return res, err
		}

		if e.dryRun {
			e.log.Info().Str("action", action.Describe()).Msg("dry-run")
			if err := e.probeOnly(action); err != nil {
				return res, err
			}
			res.Committed++
			continue
		}

		e.log.Debug().Str("action", action.Describe()).Msg("executing")
		if err := e.apply(action); err != nil {
			return res, err
		}
		res.Committed++
	}

	return res, nil
}

func (e *Executor) apply(action types.Action) error {
	switch a := action.(type) {
	case types.CreateFileSymlink:
		if err := e.requireAbsent(a.LinkPath); err != nil {
			return err
		}
		return e.fs.SymlinkFile(a.LinkPath, a.Relative)

	case types.CreateDirSymlink:
		if err := e.requireAbsent(a.LinkPath); err != nil {
			return err
		}
		return e.fs.SymlinkDir(a.LinkPath, a.Relative)

	case types.RemoveSymlink:
		if err := e.requireSymlink(a.LinkPath); err != nil {
			return err
		}
		return e.fs.RemoveLink(a.LinkPath)

	case types.CreateDirectory:
		return e.fs.MkDir(a.DirPath)

	case types.RemoveDirectoryIfEmpty:
		return e.fs.RemoveDirIfEmpty(a.DirPath)

	case types.UnfoldDirSymlink:
		probe, err := e.fs.Probe(a.LinkPath)
		if err != nil {
			return err
		}
		if probe.Kind != types.ProbeDirSymlink {
			return raceError(a.LinkPath, "directory symlink", probe)
		}
		return e.fs.RemoveLink(a.LinkPath)

	case types.AdoptFile:
		probe, err := e.fs.Probe(a.FromTarget)
		if err != nil {
			return err
		}
		if probe.Kind != types.ProbeFile {
			return raceError(a.FromTarget, "regular file", probe)
		}
		return e.fs.MoveFile(a.FromTarget, a.IntoPackage)

	case types.OverrideRemove:
		probe, err := e.fs.Probe(a.TargetPath)
		if err != nil {
			return err
		}
		if probe.Absent() {
			return nil
		}
		if probe.IsSymlink() {
			return raceError(a.TargetPath, "non-link obstruction", probe)
		}
		return e.fs.RemoveTree(a.TargetPath)

	default:
		return errors.Newf(errors.ErrInternal, "unknown action type %T", action)
	}
}

// probeOnly performs the same precondition probes as apply so dry-run
// output reflects what a real run would have found.
func (e *Executor) probeOnly(action types.Action) error {
	switch a := action.(type) {
	case types.CreateFileSymlink:
		_, err := e.fs.Probe(a.LinkPath)
		return err
	case types.CreateDirSymlink:
		_, err := e.fs.Probe(a.LinkPath)
		return err
	case types.RemoveSymlink:
		_, err := e.fs.Probe(a.LinkPath)
		return err
	case types.UnfoldDirSymlink:
		_, err := e.fs.Probe(a.LinkPath)
		return err
	case types.AdoptFile:
		_, err := e.fs.Probe(a.FromTarget)
		return err
	case types.OverrideRemove:
		_, err := e.fs.Probe(a.TargetPath)
		return err
	default:
		return nil
	}
}

func (e *Executor) requireAbsent(path string) error {
	probe, err := e.fs.Probe(path)
	if err != nil {
		return err
	}
	if !probe.Absent() {
		return raceError(path, "absent path", probe)
	}
	return nil
}

func (e *Executor) requireSymlink(path string) error {
	probe, err := e.fs.Probe(path)
	if err != nil {
		return err
	}
	if !probe.IsSymlink() {
		return raceError(path, "symlink", probe)
	}
	return nil
}

func raceError(path, expected string, found types.TargetProbe) error {
	return errors.Newf(errors.ErrRace,
		"state changed between plan and execute at %s: expected %s, found %s",
		path, expected, found.Kind).
		WithDetail("path", path).
		WithDetail("found", found.Kind.String())
}
