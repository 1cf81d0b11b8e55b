// Package pkgmap implements the package map: an immutable tree, rooted at a
// project's dependency directory, mapping project-relative paths to content
// digests, sizes, and POSIX permission bits. It is built once from a
// lockfile and is read-only for the remainder of the process.
package pkgmap

import (
	"errors"
	"sort"
	"strings"
)

// Kind discriminates the two entry shapes a package map can hold.
type Kind uint8

const (
	// KindFile indicates a leaf entry backed by a blob in the content store.
	KindFile Kind = iota
	// KindDir indicates an interior entry whose Contents names its children.
	KindDir
)

// String renders a Kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Entry is a single node in the package map tree. For a file entry, Digest
// and Size describe the blob backing it; Contents is nil. For a directory
// entry, Contents maps single path-segment names to child entries; Digest
// and Size are zero.
//
// Digest is stored as its canonical string form rather than an
// integrity.Digest value so that Entry round-trips cleanly through
// encoding/gob without custom codec plumbing; callers that need a parsed
// digest call integrity.Parse on demand.
type Entry struct {
	Kind     Kind
	Digest   string
	Size     uint64
	Mode     uint32
	Contents map[string]*Entry
}

// EnsureValid checks that an entry satisfies the invariants described in the
// data model: a file entry carries a non-empty digest and no children; a
// directory entry carries no digest and only validly-named children.
func (e *Entry) EnsureValid() error {
	if e == nil {
		return nil
	}

	switch e.Kind {
	case KindFile:
		if e.Contents != nil {
			return errors.New("pkgmap: file entry has non-nil contents")
		}
		if e.Digest == "" {
			return errors.New("pkgmap: file entry has empty digest")
		}
	case KindDir:
		if e.Digest != "" {
			return errors.New("pkgmap: directory entry has non-empty digest")
		}
		for name, child := range e.Contents {
			if name == "" || name == "." || name == ".." {
				return errors.New("pkgmap: invalid content name: " + name)
			}
			if strings.ContainsRune(name, '/') {
				return errors.New("pkgmap: content name contains path separator: " + name)
			}
			if child == nil {
				return errors.New("pkgmap: nil content entry for name: " + name)
			}
			if err := child.EnsureValid(); err != nil {
				return err
			}
		}
	default:
		return errors.New("pkgmap: unknown entry kind")
	}

	return nil
}

// entryVisitor is invoked once per entry during a walk.
type entryVisitor func(path string, entry *Entry)

// walk performs a depth-first, parent-before-child traversal of the entry
// hierarchy, visiting children in sorted name order so that two builds from
// identical input produce identical traversal sequences.
func (e *Entry) walk(path string, visitor entryVisitor) {
	visitor(path, e)
	if e == nil || e.Kind != KindDir {
		return
	}

	names := make([]string, 0, len(e.Contents))
	for name := range e.Contents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		e.Contents[name].walk(childPath, visitor)
	}
}

// Count returns the total number of entries in the hierarchy rooted at e,
// including e itself.
func (e *Entry) Count() uint64 {
	if e == nil {
		return 0
	}
	var count uint64
	e.walk("", func(_ string, entry *Entry) {
		if entry != nil {
			count++
		}
	})
	return count
}

// CopyBehavior selects how deeply Copy duplicates an entry's subtree.
type CopyBehavior uint8

const (
	// CopyDeep recursively copies the entire subtree.
	CopyDeep CopyBehavior = iota
	// CopyShallow copies only the entry and a new top-level Contents map
	// whose values still point at the original child entries.
	CopyShallow
	// CopySlim copies only the entry's scalar fields, excluding Contents.
	CopySlim
)

// Copy duplicates an entry according to behavior. Entries are conventionally
// treated as immutable and shared by pointer; Copy exists for callers that
// need a temporarily mutable value. Build and Persist do not use it.
func (e *Entry) Copy(behavior CopyBehavior) *Entry {
	if e == nil {
		return nil
	}

	result := &Entry{
		Kind:   e.Kind,
		Digest: e.Digest,
		Size:   e.Size,
		Mode:   e.Mode,
	}

	if behavior == CopySlim || len(e.Contents) == 0 {
		return result
	}

	result.Contents = make(map[string]*Entry, len(e.Contents))
	switch behavior {
	case CopyDeep:
		for name, child := range e.Contents {
			result.Contents[name] = child.Copy(CopyDeep)
		}
	case CopyShallow:
		for name, child := range e.Contents {
			result.Contents[name] = child
		}
	default:
		panic("pkgmap: unhandled copy behavior")
	}

	return result
}
