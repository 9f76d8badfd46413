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

// Unstow plans the removal of a package's links from the target directory
// and the pruning of directories left empty.
type Unstow struct {
	fs       types.FS
	opts     types.Options
	patterns *ignore.Set
	log      zerolog.Logger
}

// NewUnstow creates an unstow planner. The same ignore patterns used for
// stowing keep the walk consistent with what was installed.
func NewUnstow(fs types.FS, opts types.Options, patterns *ignore.Set) *Unstow {
	if patterns == nil {
		patterns = ignore.Empty()
	}
	return &Unstow{
		fs:       fs,
		opts:     opts,
		patterns: patterns,
		log:      logging.GetLogger("planner.unstow"),
	}
}

// PlanPackage walks one package and plans removal of every symlink that
// resolves into it. Foreign links and non-links are left untouched; they
// are never an error during unstow.
func (u *Unstow) PlanPackage(name string) (*types.Plan, error) {
	pkgRoot, err := resolvePackage(u.fs, u.opts.StowDir, name)
	if err != nil {
		return nil, err
	}

	u.log.Debug().Str("package", name).Msg("planning unstow")

	plan := types.NewPlan(u.opts.TargetDir)
	removed := make(map[string]bool)

	w := walker.New(u.fs, pkgRoot, u.patterns)
	for {
		entry, err := w.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}

		link, err := linkPath(u.opts.TargetDir, entry.RelPath)
		if err != nil {
			return nil, err
		}
		probe, err := u.fs.Probe(link)
		if err != nil {
			return nil, err
		}

		if entry.Kind == types.EntryDir {
			if err := u.planDir(plan, entry, link, probe, removed, w); err != nil {
				return nil, err
			}
		} else {
			if err := u.planFile(plan, entry, link, probe, removed); err != nil {
				return nil, err
			}
		}
	}

	if err := u.prune(plan, removed); err != nil {
		return nil, err
	}

	u.log.Debug().Str("package", name).Int("actions", plan.Len()).Msg("unstow plan ready")
	return plan, nil
}

func (u *Unstow) planDir(plan *types.Plan, entry *types.PackageEntry, link string, probe types.TargetProbe, removed map[string]bool, w *walker.Walker) error {
	switch probe.Kind {
	case types.ProbeDirSymlink:
		// a folded directory comes off as a single link, no unfold
		if paths.EqualFold(probe.LinkTarget, entry.Source) {
			if err := u.remove(plan, link, removed); err != nil {
				return err
			}
		} else {
			u.log.Debug().Str("path", link).Str("target", probe.LinkTarget).
				Msg("directory symlink points elsewhere, leaving it")
		}
		w.SkipDir()
		return nil

	case types.ProbeDir:
		// real directory, keep walking the package beneath it
		return nil

	case types.ProbeAbsent:
		w.SkipDir()
		return nil

	default:
		u.log.Debug().Str("path", link).Str("kind", probe.Kind.String()).
			Str("code", string(errors.ErrUnexpectedState)).
			Msg("expected package directory link, found something else")
		w.SkipDir()
		return nil
	}
}

func (u *Unstow) planFile(plan *types.Plan, entry *types.PackageEntry, link string, probe types.TargetProbe, removed map[string]bool) error {
	switch probe.Kind {
	case types.ProbeFileSymlink:
		if paths.EqualFold(probe.LinkTarget, entry.Source) {
			return u.remove(plan, link, removed)
		}
		u.log.Debug().Str("path", link).Str("target", probe.LinkTarget).
			Msg("symlink points elsewhere, leaving it")
		return nil

	case types.ProbeAbsent:
		return nil

	default:
		u.log.Debug().Str("path", link).Str("kind", probe.Kind.String()).
			Str("code", string(errors.ErrUnexpectedState)).
			Msg("target is not a symlink, leaving it")
		return nil
	}
}

func (u *Unstow) remove(plan *types.Plan, link string, removed map[string]bool) error {
	if err := plan.Add(types.RemoveSymlink{LinkPath: link}); err != nil {
		return err
	}
	removed[paths.FoldKey(link)] = true
	for dir := paths.Parent(link); !paths.EqualFold(dir, u.opts.TargetDir) && paths.IsUnder(u.opts.TargetDir, dir); dir = paths.Parent(dir) {
		plan.Touch(dir)
	}
	return nil
}

// prune revisits every touched directory deepest-first and plans its
// removal when the plan-time listing, minus entries this plan removes,
// comes out empty. The action itself still re-checks at execute time.
func (u *Unstow) prune(plan *types.Plan, removed map[string]bool) error {
	dirs := plan.Touched()
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := paths.Depth(dirs[i]), paths.Depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return paths.FoldKey(dirs[i]) < paths.FoldKey(dirs[j])
	})

	for _, dir := range dirs {
		entries, err := u.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		empty := true
		for _, e := range entries {
			if !removed[paths.FoldKey(dir+paths.Separator+e.Name)] {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		if err := plan.Add(types.RemoveDirectoryIfEmpty{DirPath: dir}); err != nil {
			return err
		}
		removed[paths.FoldKey(dir)] = true
	}
	return nil
}
