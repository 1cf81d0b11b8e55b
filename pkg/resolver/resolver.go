// Package resolver classifies absolute host paths against a built package
// map, the basis the filesystem overlay uses to decide whether to serve a
// call from the map, synthesise a failure, or defer to the real filesystem.
package resolver

import (
	"path/filepath"
	"strings"

	"github.com/packmap/packmap/pkg/pkgmap"
)

// dependencyRootName is the single path segment every tracked path must
// begin with, immediately under the project root.
const dependencyRootName = "node_modules"

// Kind discriminates the four shapes a Resolution can take.
type Kind uint8

const (
	// Untracked means the path lies outside the project's dependency root,
	// or its first segment isn't the dependency root name. Callers defer to
	// the real filesystem.
	Untracked Kind = iota
	// Missing means the path lies inside the dependency root but no map
	// entry matches it. Callers synthesise a NOT_FOUND failure.
	Missing
	// Dir means the path resolves to a directory entry.
	Dir
	// File means the path resolves to a file entry.
	File
)

// String renders a Kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case Untracked:
		return "untracked"
	case Missing:
		return "missing"
	case Dir:
		return "dir"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving a single absolute path against a
// Resolver. Children is populated only for Dir; Entry only for File; Path
// holds the project-root-relative path, starting with node_modules (empty
// for Untracked).
type Resolution struct {
	Kind     Kind
	Children map[string]*pkgmap.Entry
	Entry    *pkgmap.Entry
	Path     string
}

// Resolver answers path queries against a single project's built package
// map. It holds no mutable state: the same absolute path always resolves to
// the same Resolution for the lifetime of a Resolver.
type Resolver struct {
	projectRoot string
	tree        map[string]*pkgmap.Entry
}

// New constructs a Resolver rooted at projectRoot (the absolute path to the
// directory containing node_modules), querying against root — the top-level
// Entry pkgmap.Build returned, whose sole child must be node_modules. A nil
// root is treated as an empty map: every tracked path resolves Missing.
func New(projectRoot string, root *pkgmap.Entry) *Resolver {
	var tree map[string]*pkgmap.Entry
	if root != nil {
		tree = root.Contents
	}
	return &Resolver{
		projectRoot: filepath.ToSlash(filepath.Clean(projectRoot)),
		tree:        tree,
	}
}

// relativeToProjectRoot strips the resolver's project root from an absolute
// path, returning false if the path does not lie under it.
func (r *Resolver) relativeToProjectRoot(absolutePath string) (string, bool) {
	cleaned := filepath.ToSlash(filepath.Clean(absolutePath))
	if cleaned == r.projectRoot {
		return "", true
	}
	prefix := r.projectRoot + "/"
	if !strings.HasPrefix(cleaned, prefix) {
		return "", false
	}
	return cleaned[len(prefix):], true
}

// Resolve classifies an absolute path per spec.md §4.C: split into segments
// relative to the project root, require the first segment to be the
// dependency root name, then walk the map tree segment by segment. A
// missing node_modules segment at the end of an otherwise-valid walk is
// treated as a virtual empty directory, so that recursive module lookup
// terminates without touching disk.
func (r *Resolver) Resolve(absolutePath string) Resolution {
	relative, ok := r.relativeToProjectRoot(absolutePath)
	if !ok || relative == "" {
		return Resolution{Kind: Untracked}
	}

	segments := strings.Split(relative, "/")
	if segments[0] != dependencyRootName {
		return Resolution{Kind: Untracked}
	}

	if r.tree == nil {
		return Resolution{Kind: Missing, Path: relative}
	}

	current, ok := r.tree[dependencyRootName]
	if !ok {
		return Resolution{Kind: Missing, Path: relative}
	}

	path := dependencyRootName
	for i := 1; i < len(segments); i++ {
		segment := segments[i]

		if current.Kind != pkgmap.KindDir {
			return Resolution{Kind: Missing, Path: relative}
		}

		child, ok := current.Contents[segment]
		if !ok {
			if segment == dependencyRootName && i == len(segments)-1 {
				return Resolution{Kind: Dir, Children: map[string]*pkgmap.Entry{}, Path: path + "/" + segment}
			}
			return Resolution{Kind: Missing, Path: relative}
		}

		current = child
		path = path + "/" + segment
	}

	if current.Kind == pkgmap.KindDir {
		return Resolution{Kind: Dir, Children: current.Contents, Path: path}
	}
	return Resolution{Kind: File, Entry: current, Path: path}
}
