//go:build windows

package filesystem

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
)

// createSymlink calls CreateSymbolicLinkW directly so the directory flag
// and unprivileged creation are under our control; the target is stored as
// the relative path we were given, never resolved.
func createSymlink(link, target string, dir bool) error {
	linkPtr, err := windows.UTF16PtrFromString(paths.Extended(link))
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidPath, "cannot encode link path %s", link)
	}
	targetPtr, err := windows.UTF16PtrFromString(target)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidPath, "cannot encode link target %s", target)
	}

	flags := uint32(windows.SYMBOLIC_LINK_FLAG_ALLOW_UNPRIVILEGED_CREATE)
	if dir {
		flags |= windows.SYMBOLIC_LINK_FLAG_DIRECTORY
	}

	if err := windows.CreateSymbolicLink(linkPtr, targetPtr, flags); err != nil {
		if err == windows.ERROR_PRIVILEGE_NOT_HELD {
			return errors.Wrapf(err, errors.ErrPermissionDenied,
				"cannot create symlink at %s; %s", link, errors.PermissionGuidance)
		}
		if err == windows.ERROR_ALREADY_EXISTS || err == windows.ERROR_FILE_EXISTS {
			return errors.Wrapf(err, errors.ErrAlreadyExists, "%s already exists", link)
		}
		return wrapFS(link, err)
	}
	return nil
}

// isOtherReparse reports reparse points that are not symlinks: junctions,
// mount points, and anything else with the reparse attribute. These are
// opaque to winstow.
func isOtherReparse(fi os.FileInfo) bool {
	if fi.Mode()&os.ModeSymlink != 0 {
		return false
	}
	sys, ok := fi.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return false
	}
	return sys.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}
