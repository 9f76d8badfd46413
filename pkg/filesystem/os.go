// Package filesystem provides the real implementation of the filesystem
// capability the winstow core depends on. Long paths are prefixed at the
// syscall boundary; symlink creation and reparse-point classification are
// platform-specific and live behind build tags.
package filesystem

import (
	"io"
	"io/fs"
	"os"

	stderrors "errors"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/types"
)

type osFS struct{}

// NewOS creates the OS-backed filesystem capability.
func NewOS() types.FS {
	return &osFS{}
}

func (o *osFS) Probe(name string) (types.TargetProbe, error) {
	fi, err := os.Lstat(paths.Extended(name))
	if err != nil {
		if os.IsNotExist(err) {
			return types.TargetProbe{Kind: types.ProbeAbsent}, nil
		}
		return types.TargetProbe{}, wrapFS(name, err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		resolved, err := o.ReadLink(name)
		if err != nil {
			return types.TargetProbe{}, err
		}
		kind := types.ProbeFileSymlink
		if st, err := os.Stat(paths.Extended(name)); err == nil && st.IsDir() {
			kind = types.ProbeDirSymlink
		}
		return types.TargetProbe{Kind: kind, LinkTarget: resolved}, nil
	}

	if isOtherReparse(fi) {
		return types.TargetProbe{Kind: types.ProbeOtherReparse}, nil
	}
	if fi.IsDir() {
		return types.TargetProbe{Kind: types.ProbeDir}, nil
	}
	return types.TargetProbe{Kind: types.ProbeFile}, nil
}

func (o *osFS) ReadDir(name string) ([]types.DirEntry, error) {
	entries, err := os.ReadDir(paths.Extended(name))
	if err != nil {
		return nil, wrapFS(name, err)
	}
	out := make([]types.DirEntry, 0, len(entries))
	for _, e := range entries {
		kind := types.EntryFile
		if e.IsDir() {
			kind = types.EntryDir
		}
		out = append(out, types.DirEntry{
			Name:         e.Name(),
			Kind:         kind,
			ReparsePoint: e.Type()&(os.ModeSymlink|os.ModeIrregular) != 0,
		})
	}
	return out, nil
}

func (o *osFS) ReadLink(name string) (string, error) {
	raw, err := os.Readlink(paths.Extended(name))
	if err != nil {
		return "", wrapFS(name, err)
	}
	if _, err := paths.Normalize(raw); err == nil {
		return paths.Normalize(raw)
	}
	norm, err := paths.Normalize(name)
	if err != nil {
		return "", err
	}
	return paths.Join(paths.Parent(norm), raw)
}

func (o *osFS) SymlinkFile(link, target string) error {
	if err := o.MkDir(paths.Parent(link)); err != nil {
		return err
	}
	return createSymlink(link, target, false)
}

func (o *osFS) SymlinkDir(link, target string) error {
	if err := o.MkDir(paths.Parent(link)); err != nil {
		return err
	}
	return createSymlink(link, target, true)
}

func (o *osFS) RemoveLink(name string) error {
	if err := os.Remove(paths.Extended(name)); err != nil {
		return wrapFS(name, err)
	}
	return nil
}

func (o *osFS) MkDir(name string) error {
	if err := os.MkdirAll(paths.Extended(name), 0o755); err != nil {
		return wrapFS(name, err)
	}
	return nil
}

func (o *osFS) RemoveDirIfEmpty(name string) error {
	entries, err := os.ReadDir(paths.Extended(name))
	if err != nil {
		return wrapFS(name, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(paths.Extended(name)); err != nil {
		return wrapFS(name, err)
	}
	return nil
}

func (o *osFS) MoveFile(src, dst string) error {
	if err := os.Rename(paths.Extended(src), paths.Extended(dst)); err == nil {
		return nil
	}
	// rename across volumes fails; copy and delete instead
	in, err := os.Open(paths.Extended(src))
	if err != nil {
		return wrapFS(src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(paths.Extended(dst))
	if err != nil {
		return wrapFS(dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return wrapFS(dst, err)
	}
	if err := out.Close(); err != nil {
		return wrapFS(dst, err)
	}
	if err := os.Remove(paths.Extended(src)); err != nil {
		return wrapFS(src, err)
	}
	return nil
}

func (o *osFS) MoveDir(src, dst string) error {
	if err := os.Rename(paths.Extended(src), paths.Extended(dst)); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return o.RemoveTree(src)
}

func (o *osFS) RemoveTree(name string) error {
	if err := os.RemoveAll(paths.Extended(name)); err != nil {
		return wrapFS(name, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	if err := os.MkdirAll(paths.Extended(dst), 0o755); err != nil {
		return wrapFS(dst, err)
	}
	entries, err := os.ReadDir(paths.Extended(src))
	if err != nil {
		return wrapFS(src, err)
	}
	for _, e := range entries {
		srcPath := src + paths.Separator + e.Name()
		dstPath := dst + paths.Separator + e.Name()
		if e.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := (&osFS{}).MoveFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func wrapFS(path string, err error) error {
	switch {
	case stderrors.Is(err, fs.ErrPermission):
		return errors.Wrapf(err, errors.ErrPermissionDenied,
			"permission denied at %s; %s", path, errors.PermissionGuidance)
	case stderrors.Is(err, fs.ErrExist):
		return errors.Wrapf(err, errors.ErrAlreadyExists, "%s already exists", path)
	default:
		return errors.Wrapf(err, errors.ErrIO, "filesystem operation failed at %s", path)
	}
}
