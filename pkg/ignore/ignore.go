// Package ignore compiles the --ignore and --defer glob patterns and
// answers filter membership for package-relative paths.
//
// A pattern matches when it matches any single path segment (so `*.bak`
// catches `foo\bar.bak`) or the full relative path (so `node_modules` and
// `docs/build` both work). Matching is case-insensitive.
package ignore

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
)

// Set holds the compiled ignore and defer patterns for one run.
type Set struct {
	ignore []string
	defer_ []string
}

// NewSet validates and case-folds the pattern lists. Invalid glob syntax is
// reported as PATTERN_INVALID.
func NewSet(ignorePatterns, deferPatterns []string) (*Set, error) {
	ig, err := compile(ignorePatterns)
	if err != nil {
		return nil, err
	}
	df, err := compile(deferPatterns)
	if err != nil {
		return nil, err
	}
	return &Set{ignore: ig, defer_: df}, nil
}

// Empty returns a set with no patterns.
func Empty() *Set {
	return &Set{}
}

func compile(patterns []string) ([]string, error) {
	folded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		normalized := strings.ReplaceAll(p, `\`, "/")
		if !doublestar.ValidatePattern(normalized) {
			return nil, errors.Newf(errors.ErrPatternInvalid, "invalid pattern %q", p)
		}
		folded = append(folded, paths.FoldKey(normalized))
	}
	return folded, nil
}

// Ignored reports whether the package-relative path matches an ignore
// pattern.
func (s *Set) Ignored(rel string) bool {
	return matches(s.ignore, rel)
}

// Deferred reports whether the package-relative path matches a defer
// pattern.
func (s *Set) Deferred(rel string) bool {
	return matches(s.defer_, rel)
}

func matches(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return false
	}

	segs := paths.Segments(rel)
	full := paths.FoldKey(strings.Join(segs, "/"))
	for i, seg := range segs {
		segs[i] = paths.FoldKey(seg)
	}

	for _, pat := range patterns {
		// ValidatePattern ran at compile time, so Match cannot fail here.
		if ok, _ := doublestar.Match(pat, full); ok {
			return true
		}
		for _, seg := range segs {
			if ok, _ := doublestar.Match(pat, seg); ok {
				return true
			}
		}
	}
	return false
}
