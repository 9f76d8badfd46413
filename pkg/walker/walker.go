// Package walker produces deterministic, lazy pre-order traversals of a
// package tree. Parents are yielded before children and siblings are
// ordered by their case-folded names, so plans come out in a stable order
// regardless of how the filesystem lists entries.
package walker

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/winstow/pkg/ignore"
	"github.com/arthur-debert/winstow/pkg/logging"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/types"
)

// Walker iterates one package tree. It is single-use; construct a new one
// to restart the traversal.
type Walker struct {
	fs       types.FS
	root     string
	patterns *ignore.Set
	stack    []*frame
	pending  *descend
	started  bool
	log      zerolog.Logger
}

type frame struct {
	relDir  string
	absDir  string
	entries []types.DirEntry
	idx     int
}

type descend struct {
	relDir string
	absDir string
}

// New creates a walker over the package rooted at packageRoot (a normalized
// absolute path). Entries matching the ignore patterns are skipped, whole
// subtrees included.
func New(fs types.FS, packageRoot string, patterns *ignore.Set) *Walker {
	if patterns == nil {
		patterns = ignore.Empty()
	}
	return &Walker{
		fs:       fs,
		root:     packageRoot,
		patterns: patterns,
		log:      logging.GetLogger("walker"),
	}
}

// Next returns the next package entry, or (nil, nil) when the walk is done.
// After Next returns a directory entry, the walker will descend into it on
// the following call unless SkipDir is called first.
func (w *Walker) Next() (*types.PackageEntry, error) {
	if !w.started {
		w.started = true
		if err := w.push("", w.root); err != nil {
			return nil, err
		}
	}

	if w.pending != nil {
		d := w.pending
		w.pending = nil
		if err := w.push(d.relDir, d.absDir); err != nil {
			return nil, err
		}
	}

	for len(w.stack) > 0 {
		f := w.stack[len(w.stack)-1]
		if f.idx >= len(f.entries) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		e := f.entries[f.idx]
		f.idx++

		rel := e.Name
		if f.relDir != "" {
			rel = f.relDir + paths.Separator + e.Name
		}
		if w.patterns.Ignored(rel) {
			w.log.Debug().Str("path", rel).Msg("ignoring entry")
			continue
		}

		abs := f.absDir + paths.Separator + e.Name
		entry := &types.PackageEntry{RelPath: rel, Kind: e.Kind, Source: abs}
		if e.Kind == types.EntryDir {
			w.pending = &descend{relDir: rel, absDir: abs}
		}
		return entry, nil
	}

	return nil, nil
}

// SkipDir tells the walker not to descend into the directory entry most
// recently returned by Next.
func (w *Walker) SkipDir() {
	w.pending = nil
}

func (w *Walker) push(relDir, absDir string) error {
	entries, err := w.fs.ReadDir(absDir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return paths.FoldKey(entries[i].Name) < paths.FoldKey(entries[j].Name)
	})
	w.stack = append(w.stack, &frame{relDir: relDir, absDir: absDir, entries: entries})
	return nil
}
