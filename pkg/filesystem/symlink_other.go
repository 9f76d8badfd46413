//go:build !windows

package filesystem

import (
	"os"
)

// createSymlink falls back to os.Symlink on non-Windows hosts; there is no
// separate directory flag to carry.
func createSymlink(link, target string, _ bool) error {
	if err := os.Symlink(target, link); err != nil {
		return wrapFS(link, err)
	}
	return nil
}

// isOtherReparse is Windows-only; nothing to classify elsewhere.
func isOtherReparse(os.FileInfo) bool {
	return false
}
