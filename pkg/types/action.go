package types

import (
	"fmt"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
)

// Action is one step of a plan. Actions are created by the planners and
// consumed in order by the executor.
type Action interface {
	// Describe returns the human-readable form used by dry-run and verbose
	// output.
	Describe() string
}

// CreateFileSymlink creates a file symlink at LinkPath storing Relative,
// the target computed from the link's parent directory. TargetAbs is kept
// for conflict checks only. Precondition: LinkPath is absent.
type CreateFileSymlink struct {
	LinkPath  string
	TargetAbs string
	Relative  string
}

func (a CreateFileSymlink) Describe() string {
	return fmt.Sprintf("Create file link: %s -> %s", a.LinkPath, a.Relative)
}

// CreateDirSymlink creates a directory symlink (a fold). Precondition:
// LinkPath is absent.
type CreateDirSymlink struct {
	LinkPath  string
	TargetAbs string
	Relative  string
}

func (a CreateDirSymlink) Describe() string {
	return fmt.Sprintf("Create directory link: %s -> %s", a.LinkPath, a.Relative)
}

// RemoveSymlink removes a file or directory symlink. Precondition:
// LinkPath is a symlink.
type RemoveSymlink struct {
	LinkPath string
}

func (a RemoveSymlink) Describe() string {
	return fmt.Sprintf("Remove link: %s", a.LinkPath)
}

// CreateDirectory creates a real directory. Idempotent.
type CreateDirectory struct {
	DirPath string
}

func (a CreateDirectory) Describe() string {
	return fmt.Sprintf("Create directory: %s", a.DirPath)
}

// RemoveDirectoryIfEmpty prunes a directory left empty by earlier
// removals. No-op when the directory still has entries.
type RemoveDirectoryIfEmpty struct {
	DirPath string
}

func (a RemoveDirectoryIfEmpty) Describe() string {
	return fmt.Sprintf("Remove empty directory: %s", a.DirPath)
}

// UnfoldDirSymlink removes a directory symlink so a real directory can take
// its place. The planner appends the actions that re-materialize the former
// children. Precondition: LinkPath is a directory symlink.
type UnfoldDirSymlink struct {
	LinkPath       string
	PreviousTarget string
}

func (a UnfoldDirSymlink) Describe() string {
	return fmt.Sprintf("Unfold directory link: %s (was -> %s)", a.LinkPath, a.PreviousTarget)
}

// AdoptFile moves a conflicting file from the target into the package,
// overwriting the package file. Precondition: FromTarget is a regular file.
type AdoptFile struct {
	FromTarget  string
	IntoPackage string
}

func (a AdoptFile) Describe() string {
	return fmt.Sprintf("Adopt file: %s -> %s", a.FromTarget, a.IntoPackage)
}

// OverrideRemove deletes a non-link file or directory at the target to make
// room for a link.
type OverrideRemove struct {
	TargetPath string
}

func (a OverrideRemove) Describe() string {
	return fmt.Sprintf("Override (remove): %s", a.TargetPath)
}

// Plan is an ordered sequence of actions scoped to a target root, plus the
// set of directories touched by removals (consumed by the pruner).
type Plan struct {
	targetRoot string
	actions    []Action
	created    map[string]bool
	touched    map[string]string
}

// NewPlan creates an empty plan rooted at the normalized target directory.
func NewPlan(targetRoot string) *Plan {
	return &Plan{
		targetRoot: targetRoot,
		created:    make(map[string]bool),
		touched:    make(map[string]string),
	}
}

// Add appends an action after validating plan invariants: every path stays
// inside the target root (adopt's package-side destination excepted) and no
// link path is created twice.
func (p *Plan) Add(a Action) error {
	var inRoot []string
	var createdLink string

	switch act := a.(type) {
	case CreateFileSymlink:
		inRoot = []string{act.LinkPath}
		createdLink = act.LinkPath
	case CreateDirSymlink:
		inRoot = []string{act.LinkPath}
		createdLink = act.LinkPath
	case RemoveSymlink:
		inRoot = []string{act.LinkPath}
	case CreateDirectory:
		inRoot = []string{act.DirPath}
	case RemoveDirectoryIfEmpty:
		inRoot = []string{act.DirPath}
	case UnfoldDirSymlink:
		inRoot = []string{act.LinkPath}
	case AdoptFile:
		inRoot = []string{act.FromTarget}
	case OverrideRemove:
		inRoot = []string{act.TargetPath}
	default:
		return errors.Newf(errors.ErrInternal, "unknown action type %T", a)
	}

	for _, path := range inRoot {
		if !paths.IsUnder(p.targetRoot, path) {
			return errors.Newf(errors.ErrInvalidPath,
				"action path %s is outside the target directory %s", path, p.targetRoot)
		}
	}

	if createdLink != "" {
		key := paths.FoldKey(createdLink)
		if p.created[key] {
			return errors.Newf(errors.ErrInternal,
				"duplicate create action for link path %s", createdLink)
		}
		p.created[key] = true
	}

	p.actions = append(p.actions, a)
	return nil
}

// Actions returns the ordered action list.
func (p *Plan) Actions() []Action {
	return p.actions
}

// Len returns the number of actions in the plan.
func (p *Plan) Len() int {
	return len(p.actions)
}

// IsEmpty reports whether the plan has no actions.
func (p *Plan) IsEmpty() bool {
	return len(p.actions) == 0
}

// Touch records a directory whose contents a removal will change, so the
// pruner can revisit it.
func (p *Plan) Touch(dir string) {
	p.touched[paths.FoldKey(dir)] = dir
}

// Touched returns the recorded directories in no particular order.
func (p *Plan) Touched() []string {
	dirs := make([]string, 0, len(p.touched))
	for _, d := range p.touched {
		dirs = append(dirs, d)
	}
	return dirs
}

// TargetRoot returns the target directory this plan is scoped to.
func (p *Plan) TargetRoot() string {
	return p.targetRoot
}
