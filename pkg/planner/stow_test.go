package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/ignore"
	"github.com/arthur-debert/winstow/pkg/planner"
	"github.com/arthur-debert/winstow/pkg/testutil"
	"github.com/arthur-debert/winstow/pkg/types"
)

func stowOpts() types.Options {
	return types.Options{StowDir: `C:\s`, TargetDir: `C:\t`}
}

func mustSet(t *testing.T, ignorePats, deferPats []string) *ignore.Set {
	t.Helper()
	set, err := ignore.NewSet(ignorePats, deferPats)
	require.NoError(t, err)
	return set
}

// S1: single file into an empty target folds to one file link with a
// relative stored target.
func TestStowSingleFile(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\vimrc`, "").
		AddDir(`C:\t`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, types.CreateFileSymlink{
		LinkPath:  `C:\t\vimrc`,
		TargetAbs: `C:\s\p1\vimrc`,
		Relative:  `..\s\p1\vimrc`,
	}, plan.Actions()[0])
}

// S2: an existing regular file is a conflict by default, adoptable or
// overridable with the matching flags.
func TestStowFileConflict(t *testing.T) {
	build := func() *testutil.MemoryFS {
		return testutil.NewMemoryFS().
			AddFile(`C:\s\p1\vimrc`, "package version").
			AddFile(`C:\t\vimrc`, "local changes")
	}

	t.Run("default fails", func(t *testing.T) {
		_, err := planner.NewStow(build(), stowOpts(), nil).PlanPackage("p1")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
		details := errors.GetErrorDetails(err)
		assert.Equal(t, `C:\t\vimrc`, details["path"])
		assert.Equal(t, "File", details["kind"])
		assert.Equal(t, "vimrc", details["origin"])
	})

	t.Run("adopt", func(t *testing.T) {
		opts := stowOpts()
		opts.Adopt = true
		plan, err := planner.NewStow(build(), opts, nil).PlanPackage("p1")
		require.NoError(t, err)

		require.Equal(t, 2, plan.Len())
		assert.Equal(t, types.AdoptFile{
			FromTarget:  `C:\t\vimrc`,
			IntoPackage: `C:\s\p1\vimrc`,
		}, plan.Actions()[0])
		assert.IsType(t, types.CreateFileSymlink{}, plan.Actions()[1])
	})

	t.Run("override", func(t *testing.T) {
		opts := stowOpts()
		opts.Override = true
		plan, err := planner.NewStow(build(), opts, nil).PlanPackage("p1")
		require.NoError(t, err)

		require.Equal(t, 2, plan.Len())
		assert.Equal(t, types.OverrideRemove{TargetPath: `C:\t\vimrc`}, plan.Actions()[0])
		assert.IsType(t, types.CreateFileSymlink{}, plan.Actions()[1])
	})
}

// S3: a directory with no counterpart in the target folds to a single
// directory link, no child actions.
func TestStowFoldsDirectory(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddDir(`C:\t`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, types.CreateDirSymlink{
		LinkPath:  `C:\t\.config`,
		TargetAbs: `C:\s\p1\.config`,
		Relative:  `..\s\p1\.config`,
	}, plan.Actions()[0])
}

// S4: a directory already folded by another package unfolds: remove the
// link, create a real directory, re-materialize the other package's
// children, then link this package's entries.
func TestStowUnfoldsForeignFold(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p2\.config\a.txt`, "").
		AddFile(`C:\s\p1\.config\b.txt`, "").
		AddDirLink(`C:\t\.config`, `..\s\p2\.config`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 4, plan.Len())
	assert.Equal(t, types.UnfoldDirSymlink{
		LinkPath:       `C:\t\.config`,
		PreviousTarget: `C:\s\p2\.config`,
	}, plan.Actions()[0])
	assert.Equal(t, types.CreateDirectory{DirPath: `C:\t\.config`}, plan.Actions()[1])
	assert.Equal(t, types.CreateFileSymlink{
		LinkPath:  `C:\t\.config\a.txt`,
		TargetAbs: `C:\s\p2\.config\a.txt`,
		Relative:  `..\..\s\p2\.config\a.txt`,
	}, plan.Actions()[2])
	assert.Equal(t, types.CreateFileSymlink{
		LinkPath:  `C:\t\.config\b.txt`,
		TargetAbs: `C:\s\p1\.config\b.txt`,
		Relative:  `..\..\s\p1\.config\b.txt`,
	}, plan.Actions()[3])
}

// S5: ignored entries produce no actions at all.
func TestStowIgnorePattern(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\notes.bak`, "").
		AddDir(`C:\t`)

	set := mustSet(t, []string{"*.bak"}, nil)
	plan, err := planner.NewStow(fs, stowOpts(), set).PlanPackage("p1")
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

// S6: defer only skips when the target already exists; the first package
// wins, the second plans nothing for that entry.
func TestStowDeferPattern(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.bashrc`, "").
		AddFile(`C:\s\p2\.bashrc`, "").
		AddDir(`C:\t`)

	set := mustSet(t, nil, []string{".bashrc"})

	plan, err := planner.NewStow(fs, stowOpts(), set).PlanPackage("p1")
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len(), "first package stows normally into the empty target")

	// simulate the first package's execution
	fs.AddFileLink(`C:\t\.bashrc`, `..\s\p1\.bashrc`)

	plan, err = planner.NewStow(fs, stowOpts(), set).PlanPackage("p2")
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty(), "second package defers to the existing entry")
}

// Property 7: stowing an already-stowed package plans nothing.
func TestStowIdempotent(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\vimrc`, "").
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddFileLink(`C:\t\vimrc`, `..\s\p1\vimrc`).
		AddDirLink(`C:\t\.config`, `..\s\p1\.config`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func TestStowIntoExistingRealDirectory(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddDir(`C:\t\.config`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)

	// the real directory needs no action; only the file is linked
	require.Equal(t, 1, plan.Len())
	assert.Equal(t, types.CreateFileSymlink{
		LinkPath:  `C:\t\.config\a.txt`,
		TargetAbs: `C:\s\p1\.config\a.txt`,
		Relative:  `..\..\s\p1\.config\a.txt`,
	}, plan.Actions()[0])
}

func TestStowDirectoryObstructedByFile(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddFile(`C:\t\.config`, "a file, not a directory")

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
}

func TestStowReparsePointIsConflict(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddReparse(`C:\t\.config`)

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
}

func TestStowSymlinkOutsideStowTreeIsConflict(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddDir(`C:\elsewhere\.config`).
		AddDirLink(`C:\t\.config`, `..\elsewhere\.config`)

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
}

func TestStowOverrideReplacesForeignSymlink(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\vimrc`, "").
		AddFile(`C:\elsewhere\vimrc`, "").
		AddFileLink(`C:\t\vimrc`, `..\elsewhere\vimrc`)

	opts := stowOpts()
	opts.Override = true
	plan, err := planner.NewStow(fs, opts, nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 2, plan.Len())
	assert.Equal(t, types.RemoveSymlink{LinkPath: `C:\t\vimrc`}, plan.Actions()[0])
	assert.IsType(t, types.CreateFileSymlink{}, plan.Actions()[1])
}

func TestStowAdoptKindMismatch(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\vimrc`, "").
		AddDir(`C:\t\vimrc`)

	opts := stowOpts()
	opts.Adopt = true
	_, err := planner.NewStow(fs, opts, nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAdoptKindMismatch))
}

func TestStowAdoptDirEntryOverFileMismatch(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddFile(`C:\t\.config`, "a file in the way")

	opts := stowOpts()
	opts.Adopt = true
	_, err := planner.NewStow(fs, opts, nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAdoptKindMismatch))
}

func TestStowAdoptLeavesRealDirectoryAlone(t *testing.T) {
	// a real directory is traversed, not adopted, regardless of --adopt
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddFile(`C:\t\.config\other.txt`, "")

	opts := stowOpts()
	opts.Adopt = true
	plan, err := planner.NewStow(fs, opts, nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 1, plan.Len())
	assert.IsType(t, types.CreateFileSymlink{}, plan.Actions()[0])
}

func TestStowDeferOnDirectoryRejected(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddDir(`C:\t\.config`)

	set := mustSet(t, nil, []string{".config"})
	_, err := planner.NewStow(fs, stowOpts(), set).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidPath))
}

func TestStowCrossVolume(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`D:\s\p1\vimrc`, "").
		AddDir(`C:\t`)

	opts := types.Options{StowDir: `D:\s`, TargetDir: `C:\t`}
	_, err := planner.NewStow(fs, opts, nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCrossVolume))
}

func TestStowPackageNotFound(t *testing.T) {
	fs := testutil.NewMemoryFS().AddDir(`C:\s`).AddDir(`C:\t`)

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("missing")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPackageNotFound))
}

func TestStowPackageNotADirectory(t *testing.T) {
	fs := testutil.NewMemoryFS().AddFile(`C:\s\notadir`, "").AddDir(`C:\t`)

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("notadir")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidPath))
}

// Property 10 continued: after an unfold, a same-named file owned by the
// other package is a conflict for this package.
func TestStowUnfoldCollidingChildConflicts(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p2\.config\a.txt`, "").
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddDirLink(`C:\t\.config`, `..\s\p2\.config`)

	_, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
}

// With a defer pattern the collision is skipped instead.
func TestStowUnfoldCollidingChildDeferred(t *testing.T) {
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p2\.config\a.txt`, "").
		AddFile(`C:\s\p1\.config\a.txt`, "").
		AddFile(`C:\s\p1\.config\b.txt`, "").
		AddDirLink(`C:\t\.config`, `..\s\p2\.config`)

	set := mustSet(t, nil, []string{"a.txt"})
	plan, err := planner.NewStow(fs, stowOpts(), set).PlanPackage("p1")
	require.NoError(t, err)

	// unfold, mkdir, re-materialize a.txt for p2, link only b.txt for p1
	require.Equal(t, 4, plan.Len())
	last := plan.Actions()[3].(types.CreateFileSymlink)
	assert.Equal(t, `C:\t\.config\b.txt`, last.LinkPath)
}

func TestStowNestedFoldUsesDeepestAbsentDir(t *testing.T) {
	// target already has a real .config; only the subdirectory folds
	fs := testutil.NewMemoryFS().
		AddFile(`C:\s\p1\.config\nvim\init.lua`, "").
		AddDir(`C:\t\.config`)

	plan, err := planner.NewStow(fs, stowOpts(), nil).PlanPackage("p1")
	require.NoError(t, err)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, types.CreateDirSymlink{
		LinkPath:  `C:\t\.config\nvim`,
		TargetAbs: `C:\s\p1\.config\nvim`,
		Relative:  `..\..\s\p1\.config\nvim`,
	}, plan.Actions()[0])
}
