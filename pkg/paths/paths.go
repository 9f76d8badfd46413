// Package paths implements the Windows path model used by winstow.
//
// Paths are handled lexically: absolute paths are drive-letter rooted,
// separators are normalized to backslash, comparisons use Unicode simple
// case folding while display strings keep the creator's case. No function
// in this package touches the filesystem.
package paths

import (
	"strings"

	"github.com/arthur-debert/winstow/pkg/errors"
	"golang.org/x/text/cases"
)

// Separator is the canonical path separator for normalized paths.
const Separator = `\`

// LongPathPrefix is prepended to paths that exceed the classic MAX_PATH
// aware limit so the Win32 layer accepts them.
const LongPathPrefix = `\\?\`

// longPathThreshold matches the point where CreateFile starts rejecting
// unprefixed paths (260 minus room for a NUL and an 8.3 component).
const longPathThreshold = 248

// Normalize converts input into a canonical absolute path: separators
// collapsed to backslash, `.` and `..` resolved lexically, drive letter
// uppercased, original case preserved everywhere else. The long-path prefix
// is accepted and stripped. Paths that are relative, escape their root via
// `..`, or contain reserved device names are rejected.
func Normalize(input string) (string, error) {
	s := strings.TrimPrefix(input, LongPathPrefix)
	s = strings.ReplaceAll(s, "/", Separator)

	vol, rest, ok := splitVolume(s)
	if !ok {
		return "", errors.Newf(errors.ErrInvalidPath, "not an absolute drive-rooted path: %q", input)
	}

	var segs []string
	for _, seg := range strings.Split(rest, Separator) {
		switch seg {
		case "", ".":
			// collapsed separator runs and self references
		case "..":
			if len(segs) == 0 {
				return "", errors.Newf(errors.ErrInvalidPath, "path escapes its root: %q", input)
			}
			segs = segs[:len(segs)-1]
		default:
			if err := validateSegment(seg); err != nil {
				return "", err
			}
			segs = append(segs, seg)
		}
	}

	if len(segs) == 0 {
		return vol + Separator, nil
	}
	return vol + Separator + strings.Join(segs, Separator), nil
}

// Join appends relative segments to an absolute path. The relative part may
// use either separator; `.` and `..` are resolved. The result is normalized.
func Join(abs string, rel string) (string, error) {
	if rel == "" {
		return Normalize(abs)
	}
	return Normalize(abs + Separator + rel)
}

// Rel computes the relative path from fromDir (a directory) to toAbs. Both
// arguments must be normalized absolute paths. The result uses backslash
// separators and one `..` per level up to the lowest common ancestor.
// Volumes that differ make a relative link inexpressible.
func Rel(fromDir, toAbs string) (string, error) {
	fromVol, fromRest, ok1 := splitVolume(fromDir)
	toVol, toRest, ok2 := splitVolume(toAbs)
	if !ok1 || !ok2 {
		return "", errors.Newf(errors.ErrInvalidPath, "relative path requires absolute endpoints: %q -> %q", fromDir, toAbs)
	}
	if FoldKey(fromVol) != FoldKey(toVol) {
		return "", errors.Newf(errors.ErrCrossVolume,
			"cannot express a relative link from %s to %s: different volumes", fromDir, toAbs)
	}

	fromSegs := segments(fromRest)
	toSegs := segments(toRest)

	common := 0
	for common < len(fromSegs) && common < len(toSegs) &&
		FoldKey(fromSegs[common]) == FoldKey(toSegs[common]) {
		common++
	}

	var parts []string
	for i := common; i < len(fromSegs); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, toSegs[common:]...)

	if len(parts) == 0 {
		return ".", nil
	}
	return strings.Join(parts, Separator), nil
}

// EqualFold reports whether two paths are identical under case folding.
func EqualFold(a, b string) bool {
	return FoldKey(a) == FoldKey(b)
}

// FoldKey returns the Unicode simple case folded form of s, suitable as a
// case-insensitive map key or ordering key.
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// IsUnder reports whether p equals root or lies inside its subtree,
// case-insensitively. Both arguments must be normalized.
func IsUnder(root, p string) bool {
	rk := FoldKey(strings.TrimSuffix(root, Separator))
	pk := FoldKey(p)
	if pk == rk {
		return true
	}
	return strings.HasPrefix(pk, rk+Separator)
}

// Parent returns the parent directory of a normalized absolute path. The
// volume root is its own parent.
func Parent(p string) string {
	vol, rest, ok := splitVolume(p)
	if !ok {
		return p
	}
	segs := segments(rest)
	if len(segs) <= 1 {
		return vol + Separator
	}
	return vol + Separator + strings.Join(segs[:len(segs)-1], Separator)
}

// Base returns the final segment of a path, or "" at a volume root.
func Base(p string) string {
	_, rest, ok := splitVolume(p)
	if !ok {
		return p
	}
	segs := segments(rest)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Depth returns the number of segments below the volume root. Used to order
// directory pruning deepest-first.
func Depth(p string) int {
	_, rest, ok := splitVolume(p)
	if !ok {
		return 0
	}
	return len(segments(rest))
}

// Segments splits a relative path on either separator, dropping empties.
func Segments(rel string) []string {
	return segments(strings.ReplaceAll(rel, "/", Separator))
}

// Extended returns p with the long-path prefix applied when p is long
// enough to need it.
func Extended(p string) string {
	if len(p) < longPathThreshold || strings.HasPrefix(p, LongPathPrefix) {
		return p
	}
	return LongPathPrefix + p
}

func segments(rest string) []string {
	var segs []string
	for _, seg := range strings.Split(rest, Separator) {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// splitVolume splits `X:\a\b` into "X:" and `\a\b`. The drive letter is
// uppercased. Returns ok=false for anything not drive-rooted.
func splitVolume(p string) (vol, rest string, ok bool) {
	if len(p) < 2 || p[1] != ':' {
		return "", "", false
	}
	c := p[0]
	if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
		return "", "", false
	}
	if len(p) > 2 && p[2] != '\\' {
		// drive-relative paths like C:foo are not supported
		return "", "", false
	}
	return strings.ToUpper(p[:2]), p[2:], true
}
