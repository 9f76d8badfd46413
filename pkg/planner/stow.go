package planner

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/ignore"
	"github.com/arthur-debert/winstow/pkg/logging"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/types"
	"github.com/arthur-debert/winstow/pkg/walker"
)

// Stow plans the installation of packages into the target directory.
type Stow struct {
	fs       types.FS
	opts     types.Options
	patterns *ignore.Set
	log      zerolog.Logger
}

// NewStow creates a stow planner. Options must carry normalized stow and
// target directories.
func NewStow(fs types.FS, opts types.Options, patterns *ignore.Set) *Stow {
	if patterns == nil {
		patterns = ignore.Empty()
	}
	return &Stow{
		fs:       fs,
		opts:     opts,
		patterns: patterns,
		log:      logging.GetLogger("planner.stow"),
	}
}

// PlanPackage walks one package and produces its plan. The first conflict
// (absent an adopt/override strategy) aborts planning for the package.
func (s *Stow) PlanPackage(name string) (*types.Plan, error) {
	pkgRoot, err := resolvePackage(s.fs, s.opts.StowDir, name)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("package", name).Msg("planning stow")

	st := &stowState{
		Stow:        s,
		pkgName:     name,
		pkgRoot:     pkgRoot,
		plan:        types.NewPlan(s.opts.TargetDir),
		overlay:     make(map[string]types.TargetProbe),
		overlayDirs: make(map[string]bool),
	}

	w := walker.New(s.fs, pkgRoot, s.patterns)
	for {
		entry, err := w.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Kind == types.EntryDir {
			err = st.planDir(entry, w)
		} else {
			err = st.planFile(entry)
		}
		if err != nil {
			return nil, err
		}
	}

	s.log.Debug().Str("package", name).Int("actions", st.plan.Len()).Msg("stow plan ready")
	return st.plan, nil
}

// stowState carries the per-package planning state. The overlay answers
// probes for paths whose observed state the plan has already decided to
// change, so the planner never consults the filesystem through a symlink
// it is about to unfold.
type stowState struct {
	*Stow
	pkgName     string
	pkgRoot     string
	plan        *types.Plan
	overlay     map[string]types.TargetProbe
	overlayDirs map[string]bool
}

func (st *stowState) probe(path string) (types.TargetProbe, error) {
	if p, ok := st.overlay[paths.FoldKey(path)]; ok {
		return p, nil
	}
	for anc := paths.Parent(path); paths.IsUnder(st.opts.TargetDir, anc); anc = paths.Parent(anc) {
		if st.overlayDirs[paths.FoldKey(anc)] {
			// the real filesystem would resolve this through the old link
			return types.TargetProbe{Kind: types.ProbeAbsent}, nil
		}
		if paths.EqualFold(anc, st.opts.TargetDir) {
			break
		}
	}
	return st.fs.Probe(path)
}

func (st *stowState) planDir(entry *types.PackageEntry, w *walker.Walker) error {
	link, err := linkPath(st.opts.TargetDir, entry.RelPath)
	if err != nil {
		return err
	}
	probe, err := st.probe(link)
	if err != nil {
		return err
	}

	// Defer is defined for files only; a directory defer with an existing
	// target cannot be honored and is rejected rather than guessed.
	if !probe.Absent() && st.patterns.Deferred(entry.RelPath) {
		return errors.Newf(errors.ErrInvalidPath,
			"defer pattern matches directory %s: defer applies to files only", entry.RelPath).
			WithDetail("package", st.pkgName)
	}

	switch probe.Kind {
	case types.ProbeAbsent:
		// fold: one link covers the whole subtree
		if err := st.addLink(link, entry.Source, true); err != nil {
			return err
		}
		w.SkipDir()
		return nil

	case types.ProbeDirSymlink:
		if paths.EqualFold(probe.LinkTarget, entry.Source) {
			st.log.Debug().Str("path", link).Msg("already folded")
			w.SkipDir()
			return nil
		}
		if paths.IsUnder(st.opts.StowDir, probe.LinkTarget) {
			return st.unfold(link, probe.LinkTarget)
		}
		// a directory symlink leaving the stow tree is an obstruction
		return st.resolveConflict(entry, link, probe, w)

	case types.ProbeDir:
		// real directory: recurse, nothing to emit
		return nil

	default:
		return st.resolveConflict(entry, link, probe, w)
	}
}

func (st *stowState) planFile(entry *types.PackageEntry) error {
	link, err := linkPath(st.opts.TargetDir, entry.RelPath)
	if err != nil {
		return err
	}
	probe, err := st.probe(link)
	if err != nil {
		return err
	}

	switch {
	case probe.Absent():
		return st.addLink(link, entry.Source, false)

	case probe.Kind == types.ProbeFileSymlink && paths.EqualFold(probe.LinkTarget, entry.Source):
		st.log.Debug().Str("path", link).Msg("already linked")
		return nil

	case st.patterns.Deferred(entry.RelPath):
		st.log.Debug().Str("path", link).Msg("deferring: target already exists")
		return nil

	default:
		return st.resolveConflict(entry, link, probe, nil)
	}
}

// unfold replaces a foreign directory symlink with a real directory,
// re-materializes the former children as individual links, and lets the
// walk continue into the current package's subtree.
func (st *stowState) unfold(link, oldTarget string) error {
	st.log.Debug().Str("path", link).Str("was", oldTarget).Msg("unfolding directory link")

	if err := st.plan.Add(types.UnfoldDirSymlink{LinkPath: link, PreviousTarget: oldTarget}); err != nil {
		return err
	}
	if err := st.plan.Add(types.CreateDirectory{DirPath: link}); err != nil {
		return err
	}
	st.overlayDirs[paths.FoldKey(link)] = true
	st.overlay[paths.FoldKey(link)] = types.TargetProbe{Kind: types.ProbeDir}

	children, err := st.fs.ReadDir(oldTarget)
	if err != nil {
		return err
	}
	sort.Slice(children, func(i, j int) bool {
		return paths.FoldKey(children[i].Name) < paths.FoldKey(children[j].Name)
	})

	for _, child := range children {
		childLink := link + paths.Separator + child.Name
		childSrc := oldTarget + paths.Separator + child.Name
		if err := st.addLink(childLink, childSrc, child.Kind == types.EntryDir); err != nil {
			return err
		}
	}
	return nil
}

// addLink emits a create-symlink action and records the resulting state in
// the overlay.
func (st *stowState) addLink(link, source string, dir bool) error {
	rel, err := paths.Rel(paths.Parent(link), source)
	if err != nil {
		return err
	}

	var action types.Action
	var kind types.ProbeKind
	if dir {
		action = types.CreateDirSymlink{LinkPath: link, TargetAbs: source, Relative: rel}
		kind = types.ProbeDirSymlink
	} else {
		action = types.CreateFileSymlink{LinkPath: link, TargetAbs: source, Relative: rel}
		kind = types.ProbeFileSymlink
	}
	if err := st.plan.Add(action); err != nil {
		return err
	}
	st.overlay[paths.FoldKey(link)] = types.TargetProbe{Kind: kind, LinkTarget: source}
	return nil
}

// resolveConflict applies the active conflict strategy to an obstruction at
// link. w is non-nil for directory entries so the subtree can be skipped
// once the obstruction is cleared and the directory folded.
func (st *stowState) resolveConflict(entry *types.PackageEntry, link string, probe types.TargetProbe, w *walker.Walker) error {
	isDir := entry.Kind == types.EntryDir

	switch {
	case st.opts.Adopt:
		if err := st.planAdopt(entry, link, probe); err != nil {
			return err
		}
	case st.opts.Override:
		if probe.IsSymlink() {
			if err := st.plan.Add(types.RemoveSymlink{LinkPath: link}); err != nil {
				return err
			}
		} else {
			if err := st.plan.Add(types.OverrideRemove{TargetPath: link}); err != nil {
				return err
			}
		}
	default:
		return st.conflictError(entry, link, probe)
	}

	if err := st.addLink(link, entry.Source, isDir); err != nil {
		return err
	}
	if isDir && w != nil {
		w.SkipDir()
	}
	return nil
}

func (st *stowState) planAdopt(entry *types.PackageEntry, link string, probe types.TargetProbe) error {
	if probe.IsSymlink() || probe.Kind == types.ProbeOtherReparse {
		// links are never adopted; the obstruction stays a conflict
		return st.conflictError(entry, link, probe)
	}

	if entry.Kind == types.EntryFile && probe.Kind == types.ProbeFile {
		return st.plan.Add(types.AdoptFile{FromTarget: link, IntoPackage: entry.Source})
	}

	// An existing real directory is traversed, never adopted, so the only
	// way to land here is a File/Directory kind mismatch.
	return errors.Newf(errors.ErrAdoptKindMismatch,
		"cannot adopt %s at %s for %s entry %s", probe.Kind, link, entry.Kind, entry.RelPath).
		WithDetail("path", link).
		WithDetail("kind", probe.Kind.String()).
		WithDetail("package", st.pkgName)
}

func (st *stowState) conflictError(entry *types.PackageEntry, link string, probe types.TargetProbe) error {
	return errors.Newf(errors.ErrConflict,
		"%s already exists and is not a symlink owned by package %s; "+
			"use --adopt to move it into the package or --override to remove it",
		link, st.pkgName).
		WithDetail("path", link).
		WithDetail("kind", probe.Kind.String()).
		WithDetail("origin", entry.RelPath).
		WithDetail("package", st.pkgName)
}
