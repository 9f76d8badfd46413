// Package planner turns package walks and observed target state into
// ordered plans for the executor. The stow planner embeds the folding,
// unfolding, conflict, and defer logic; the unstow planner discovers
// package-owned links and prunes emptied directories.
package planner

import (
	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/types"
)

// resolvePackage validates the package name and returns the normalized
// absolute package root under the stow directory.
func resolvePackage(fs types.FS, stowDir, name string) (string, error) {
	if err := paths.ValidateRelative(name); err != nil {
		return "", err
	}
	pkgRoot, err := paths.Join(stowDir, name)
	if err != nil {
		return "", err
	}

	probe, err := fs.Probe(pkgRoot)
	if err != nil {
		return "", err
	}
	switch probe.Kind {
	case types.ProbeAbsent:
		return "", errors.Newf(errors.ErrPackageNotFound,
			"package %q does not exist in stow directory %s", name, stowDir).
			WithDetail("package", name).
			WithDetail("stowDir", stowDir)
	case types.ProbeDir:
		return pkgRoot, nil
	default:
		return "", errors.Newf(errors.ErrInvalidPath,
			"package %q is not a directory", name)
	}
}

// linkPath computes the target-side path for a package-relative entry.
func linkPath(targetDir, rel string) (string, error) {
	return paths.Join(targetDir, rel)
}
