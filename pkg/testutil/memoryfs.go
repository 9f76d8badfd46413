// Package testutil provides test doubles and scenario helpers for the
// winstow packages.
package testutil

import (
	"sort"
	"strings"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/paths"
	"github.com/arthur-debert/winstow/pkg/types"
)

type nodeKind int

const (
	nodeFile nodeKind = iota
	nodeDir
	nodeFileLink
	nodeDirLink
	nodeReparse
)

type memNode struct {
	display string
	kind    nodeKind
	target  string // stored link target, usually relative
	content string
}

// MemoryFS is an in-memory types.FS with Windows path semantics:
// case-insensitive lookups, backslash separators, drive-rooted paths.
// Volume roots (C:\ and friends) always exist.
type MemoryFS struct {
	nodes map[string]*memNode
}

// NewMemoryFS returns an empty in-memory filesystem.
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{nodes: make(map[string]*memNode)}
}

// Setup helpers. All of them panic on malformed paths so scenario builders
// stay terse; missing parent directories are created implicitly.

func (m *MemoryFS) AddDir(path string) *MemoryFS {
	p := mustNormalize(path)
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: nodeDir})
	return m
}

func (m *MemoryFS) AddFile(path, content string) *MemoryFS {
	p := mustNormalize(path)
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: nodeFile, content: content})
	return m
}

func (m *MemoryFS) AddFileLink(link, target string) *MemoryFS {
	p := mustNormalize(link)
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: nodeFileLink, target: target})
	return m
}

func (m *MemoryFS) AddDirLink(link, target string) *MemoryFS {
	p := mustNormalize(link)
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: nodeDirLink, target: target})
	return m
}

func (m *MemoryFS) AddReparse(path string) *MemoryFS {
	p := mustNormalize(path)
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: nodeReparse})
	return m
}

// FileContent returns the content of a regular file, or "" when absent.
func (m *MemoryFS) FileContent(path string) string {
	n := m.get(mustNormalize(path))
	if n == nil {
		return ""
	}
	return n.content
}

// Snapshot returns a stable description of every node, keyed by display
// path, for before/after comparisons in round-trip tests.
func (m *MemoryFS) Snapshot() map[string]string {
	snap := make(map[string]string, len(m.nodes))
	for _, n := range m.nodes {
		switch n.kind {
		case nodeFile:
			snap[n.display] = "file:" + n.content
		case nodeDir:
			snap[n.display] = "dir"
		case nodeFileLink:
			snap[n.display] = "filelink->" + n.target
		case nodeDirLink:
			snap[n.display] = "dirlink->" + n.target
		case nodeReparse:
			snap[n.display] = "reparse"
		}
	}
	return snap
}

// types.FS implementation

func (m *MemoryFS) Probe(path string) (types.TargetProbe, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return types.TargetProbe{}, err
	}
	if isVolumeRoot(p) {
		return types.TargetProbe{Kind: types.ProbeDir}, nil
	}
	n := m.get(p)
	if n == nil {
		return types.TargetProbe{Kind: types.ProbeAbsent}, nil
	}
	switch n.kind {
	case nodeFile:
		return types.TargetProbe{Kind: types.ProbeFile}, nil
	case nodeDir:
		return types.TargetProbe{Kind: types.ProbeDir}, nil
	case nodeFileLink:
		resolved, err := m.resolve(n)
		if err != nil {
			return types.TargetProbe{}, err
		}
		return types.TargetProbe{Kind: types.ProbeFileSymlink, LinkTarget: resolved}, nil
	case nodeDirLink:
		resolved, err := m.resolve(n)
		if err != nil {
			return types.TargetProbe{}, err
		}
		return types.TargetProbe{Kind: types.ProbeDirSymlink, LinkTarget: resolved}, nil
	default:
		return types.TargetProbe{Kind: types.ProbeOtherReparse}, nil
	}
}

func (m *MemoryFS) ReadDir(path string) ([]types.DirEntry, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return nil, err
	}
	n := m.get(p)
	if n != nil && n.kind == nodeDirLink {
		resolved, err := m.resolve(n)
		if err != nil {
			return nil, err
		}
		p = resolved
		n = m.get(p)
	}
	if !isVolumeRoot(p) {
		if n == nil {
			return nil, errors.Newf(errors.ErrIO, "read dir: %s does not exist", path)
		}
		if n.kind != nodeDir {
			return nil, errors.Newf(errors.ErrIO, "read dir: %s is not a directory", path)
		}
	}

	var entries []types.DirEntry
	for _, child := range m.nodes {
		if !paths.EqualFold(paths.Parent(child.display), p) {
			continue
		}
		e := types.DirEntry{Name: paths.Base(child.display)}
		switch child.kind {
		case nodeDir:
			e.Kind = types.EntryDir
		case nodeDirLink, nodeReparse:
			e.Kind = types.EntryDir
			e.ReparsePoint = true
		case nodeFileLink:
			e.Kind = types.EntryFile
			e.ReparsePoint = true
		default:
			e.Kind = types.EntryFile
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return paths.FoldKey(entries[i].Name) < paths.FoldKey(entries[j].Name)
	})
	return entries, nil
}

func (m *MemoryFS) ReadLink(path string) (string, error) {
	p, err := paths.Normalize(path)
	if err != nil {
		return "", err
	}
	n := m.get(p)
	if n == nil || (n.kind != nodeFileLink && n.kind != nodeDirLink) {
		return "", errors.Newf(errors.ErrIO, "read link: %s is not a symlink", path)
	}
	return m.resolve(n)
}

func (m *MemoryFS) SymlinkFile(link, target string) error {
	return m.symlink(link, target, nodeFileLink)
}

func (m *MemoryFS) SymlinkDir(link, target string) error {
	return m.symlink(link, target, nodeDirLink)
}

func (m *MemoryFS) symlink(link, target string, kind nodeKind) error {
	p, err := paths.Normalize(link)
	if err != nil {
		return err
	}
	if m.get(p) != nil {
		return errors.Newf(errors.ErrAlreadyExists, "symlink: %s already exists", link)
	}
	m.ensureParents(p)
	m.put(&memNode{display: p, kind: kind, target: target})
	return nil
}

func (m *MemoryFS) RemoveLink(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	n := m.get(p)
	if n == nil || (n.kind != nodeFileLink && n.kind != nodeDirLink) {
		return errors.Newf(errors.ErrIO, "remove link: %s is not a symlink", path)
	}
	delete(m.nodes, paths.FoldKey(p))
	return nil
}

func (m *MemoryFS) MkDir(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	if n := m.get(p); n != nil {
		if n.kind == nodeDir {
			return nil
		}
		return errors.Newf(errors.ErrAlreadyExists, "mkdir: %s exists and is not a directory", path)
	}
	m.ensureParents(p)
	if !isVolumeRoot(p) {
		m.put(&memNode{display: p, kind: nodeDir})
	}
	return nil
}

func (m *MemoryFS) RemoveDirIfEmpty(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	n := m.get(p)
	if n == nil || n.kind != nodeDir {
		return errors.Newf(errors.ErrIO, "remove dir: %s is not a directory", path)
	}
	entries, err := m.ReadDir(p)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	delete(m.nodes, paths.FoldKey(p))
	return nil
}

func (m *MemoryFS) MoveFile(src, dst string) error {
	s, err := paths.Normalize(src)
	if err != nil {
		return err
	}
	d, err := paths.Normalize(dst)
	if err != nil {
		return err
	}
	n := m.get(s)
	if n == nil || n.kind != nodeFile {
		return errors.Newf(errors.ErrIO, "move file: %s is not a regular file", src)
	}
	m.ensureParents(d)
	delete(m.nodes, paths.FoldKey(s))
	m.put(&memNode{display: d, kind: nodeFile, content: n.content})
	return nil
}

func (m *MemoryFS) MoveDir(src, dst string) error {
	s, err := paths.Normalize(src)
	if err != nil {
		return err
	}
	d, err := paths.Normalize(dst)
	if err != nil {
		return err
	}
	n := m.get(s)
	if n == nil || n.kind != nodeDir {
		return errors.Newf(errors.ErrIO, "move dir: %s is not a directory", src)
	}
	if m.get(d) != nil {
		return errors.Newf(errors.ErrAlreadyExists, "move dir: %s already exists", dst)
	}
	m.ensureParents(d)

	srcKey := paths.FoldKey(s)
	moved := make([]*memNode, 0)
	for key, child := range m.nodes {
		if key == srcKey || strings.HasPrefix(key, srcKey+paths.Separator) {
			moved = append(moved, child)
			delete(m.nodes, key)
		}
	}
	for _, child := range moved {
		child.display = d + child.display[len(s):]
		m.put(child)
	}
	return nil
}

func (m *MemoryFS) RemoveTree(path string) error {
	p, err := paths.Normalize(path)
	if err != nil {
		return err
	}
	key := paths.FoldKey(p)
	for k := range m.nodes {
		if k == key || strings.HasPrefix(k, key+paths.Separator) {
			delete(m.nodes, k)
		}
	}
	return nil
}

// internals

func (m *MemoryFS) get(p string) *memNode {
	return m.nodes[paths.FoldKey(p)]
}

func (m *MemoryFS) put(n *memNode) {
	m.nodes[paths.FoldKey(n.display)] = n
}

func (m *MemoryFS) resolve(n *memNode) (string, error) {
	if _, err := paths.Normalize(n.target); err == nil {
		return paths.Normalize(n.target)
	}
	return paths.Join(paths.Parent(n.display), n.target)
}

func (m *MemoryFS) ensureParents(p string) {
	parent := paths.Parent(p)
	for !isVolumeRoot(parent) && m.get(parent) == nil {
		m.put(&memNode{display: parent, kind: nodeDir})
		parent = paths.Parent(parent)
	}
}

func isVolumeRoot(p string) bool {
	return len(p) == 3 && p[1] == ':'
}

func mustNormalize(p string) string {
	n, err := paths.Normalize(p)
	if err != nil {
		panic(err)
	}
	return n
}
