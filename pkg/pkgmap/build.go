package pkgmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/integrity"
	"github.com/packmap/packmap/pkg/lockfile"
)

// Build constructs the package map for a project from its lockfile, rooted
// at a single top-level node_modules directory. Traversal is deterministic:
// root dependencies and each package's own dependencies are visited in
// sorted-name order, and a given lockfile key is built at most once, its
// resulting subtree shared by pointer with every parent that requires it.
//
// If store is non-nil, Build verifies that every file a package claims
// actually has a blob present in store, failing fast on a lockfile that
// names content nothing ever populated. Passing a nil store skips this
// check, which test code that doesn't care about blob presence relies on.
func Build(lock *lockfile.Lockfile, store *blobstore.Store) (*Entry, error) {
	cache := make(map[string]*Entry)
	building := make(map[string]bool)

	root := &Entry{Kind: KindDir, Contents: make(map[string]*Entry)}
	nodeModules := &Entry{Kind: KindDir, Contents: make(map[string]*Entry)}
	root.Contents["node_modules"] = nodeModules

	names := make([]string, 0, len(lock.Root))
	for name := range lock.Root {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := lock.Root[name]
		entry, err := buildPackageEntry(key, lock, store, cache, building)
		if err != nil {
			return nil, fmt.Errorf("pkgmap: building %q: %w", name, err)
		}
		nodeModules.Contents[name] = entry
	}

	if err := root.EnsureValid(); err != nil {
		return nil, err
	}
	return root, nil
}

// buildPackageEntry builds (or returns the cached build of) the directory
// entry for a single lockfile key, including its own nested node_modules for
// any dependencies it declares.
func buildPackageEntry(key string, lock *lockfile.Lockfile, store *blobstore.Store, cache map[string]*Entry, building map[string]bool) (*Entry, error) {
	if entry, ok := cache[key]; ok {
		return entry, nil
	}
	if building[key] {
		return nil, fmt.Errorf("pkgmap: circular dependency detected at %q", key)
	}
	building[key] = true
	defer delete(building, key)

	pkg, ok := lock.Packages[key]
	if !ok {
		return nil, &lockfile.UnresolvedDependencyError{Key: key}
	}

	root := &Entry{Kind: KindDir, Contents: make(map[string]*Entry)}

	filePaths := make([]string, 0, len(pkg.Files))
	for path := range pkg.Files {
		filePaths = append(filePaths, path)
	}
	sort.Strings(filePaths)

	for _, path := range filePaths {
		record := pkg.Files[path]
		if store != nil {
			digest, err := integrity.Parse(record.Digest)
			if err != nil {
				return nil, fmt.Errorf("pkgmap: file %q in %q: %w", path, key, err)
			}
			if !store.Exists(digest) {
				return nil, fmt.Errorf("pkgmap: file %q in %q: %w", path, key, blobstore.ErrNotFound)
			}
		}
		if err := insertFile(root, path, record); err != nil {
			return nil, fmt.Errorf("pkgmap: file %q in %q: %w", path, key, err)
		}
	}

	depNames := make([]string, 0, len(pkg.Dependencies))
	for name := range pkg.Dependencies {
		depNames = append(depNames, name)
	}
	sort.Strings(depNames)

	if len(depNames) > 0 {
		nested := &Entry{Kind: KindDir, Contents: make(map[string]*Entry)}
		for _, name := range depNames {
			child, err := buildPackageEntry(pkg.Dependencies[name], lock, store, cache, building)
			if err != nil {
				return nil, err
			}
			nested.Contents[name] = child
		}
		root.Contents["node_modules"] = nested
	}

	cache[key] = root
	return root, nil
}

// insertFile places a single file record into the directory tree rooted at
// root, creating intermediate directory entries as needed.
func insertFile(root *Entry, path string, record lockfile.FileRecord) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}
	segments := strings.Split(path, "/")
	current := root

	for i, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("invalid path segment %q", segment)
		}
		if i == len(segments)-1 {
			current.Contents[segment] = &Entry{
				Kind:   KindFile,
				Digest: record.Digest,
				Size:   record.Size,
				Mode:   record.Mode,
			}
			continue
		}

		child, ok := current.Contents[segment]
		if !ok {
			child = &Entry{Kind: KindDir, Contents: make(map[string]*Entry)}
			current.Contents[segment] = child
		} else if child.Kind != KindDir {
			return fmt.Errorf("path segment %q is both a file and a directory", segment)
		}
		current = child
	}

	return nil
}
