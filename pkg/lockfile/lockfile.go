// Package lockfile parses the minimal YAML-based lockfile format consumed by
// the package map builder and the installer bridge. It is a deliberately
// small format (name -> resolved/integrity/dependencies), not a registry
// resolver: resolving ranges against a registry is explicitly out of scope.
package lockfile

import (
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileRecord names a single file within a package's extracted contents: its
// relative path (the map key in PackageEntry.Files), content digest, size,
// and POSIX permission bits. These are the inputs pkgmap.Build needs to
// produce one map entry per file without re-reading extracted package
// contents from disk.
type FileRecord struct {
	// Digest is the canonical "<algorithm>-<base64>" digest of the file.
	Digest string `yaml:"digest"`
	// Size is the file size in bytes.
	Size uint64 `yaml:"size"`
	// Mode is the file's 9-bit POSIX permission bits.
	Mode uint32 `yaml:"mode"`
}

// PackageEntry describes a single resolved package as recorded in a
// lockfile: where its tarball was resolved from, the integrity digest that
// must match its extracted contents, the files it contributes, and the
// dependency closure that must also appear in the lockfile under its own
// key.
type PackageEntry struct {
	// Resolved is the tarball URL or path the package was fetched from.
	Resolved string `yaml:"resolved"`
	// Integrity is the canonical "<algorithm>-<base64>" digest the package
	// must verify against once extracted.
	Integrity string `yaml:"integrity"`
	// Files maps each file's path (relative to the package's own root) to
	// its content record. Packages with install scripts or bundled
	// dependencies may leave this empty and rely on the Installer Bridge's
	// extract capability instead (spec.md §4.F).
	Files map[string]FileRecord `yaml:"files,omitempty"`
	// Dependencies maps a dependency's package name to the lockfile key
	// (typically "<name>@<version>") that resolves it within this package's
	// scope.
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}

// Lockfile is a fully decoded lockfile: every package it names is keyed by a
// stable identity string (conventionally "<name>@<version>").
type Lockfile struct {
	// Packages maps a package key to its resolved entry.
	Packages map[string]PackageEntry `yaml:"packages"`
	// Root names the packages directly required by the project itself,
	// mapping a dependency name to the lockfile key that resolves it.
	Root map[string]string `yaml:"root"`
}

// Parse decodes lockfile bytes into a Lockfile. It does not validate the
// dependency closure; callers needing that should use Closure, which
// reports an unresolved dependency key as an error.
func Parse(data []byte) (*Lockfile, error) {
	result := &Lockfile{}
	if err := yaml.Unmarshal(data, result); err != nil {
		return nil, err
	}
	if result.Packages == nil {
		result.Packages = make(map[string]PackageEntry)
	}
	if result.Root == nil {
		result.Root = make(map[string]string)
	}
	return result, nil
}

// Marshal re-encodes a Lockfile to YAML bytes. This is primarily used by
// tests to construct fixtures and to support the seal round-trip tests in
// pkgmap.
func (l *Lockfile) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// SortedKeys returns the lockfile's package keys in ascending lexical order,
// the order pkgmap.Build relies on for deterministic map construction.
func (l *Lockfile) SortedKeys() []string {
	keys := make([]string, 0, len(l.Packages))
	for key := range l.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Closure computes the transitive set of lockfile keys reachable from the
// project's root dependencies, in the deterministic order pkgmap.Build
// requires (each key visited exactly once, parents enqueued before the
// children they introduce).
func (l *Lockfile) Closure() ([]string, error) {
	visited := make(map[string]bool)
	var order []string

	rootNames := make([]string, 0, len(l.Root))
	for name := range l.Root {
		rootNames = append(rootNames, name)
	}
	sort.Strings(rootNames)

	var visit func(key string) error
	visit = func(key string) error {
		if visited[key] {
			return nil
		}
		visited[key] = true
		order = append(order, key)

		entry, ok := l.Packages[key]
		if !ok {
			return &UnresolvedDependencyError{Key: key}
		}

		depNames := make([]string, 0, len(entry.Dependencies))
		for name := range entry.Dependencies {
			depNames = append(depNames, name)
		}
		sort.Strings(depNames)

		for _, name := range depNames {
			if err := visit(entry.Dependencies[name]); err != nil {
				return errors.Wrapf(err, "dependency %q of %q", name, key)
			}
		}
		return nil
	}

	for _, name := range rootNames {
		if err := visit(l.Root[name]); err != nil {
			return nil, errors.Wrapf(err, "root dependency %q", name)
		}
	}

	return order, nil
}

// UnresolvedDependencyError indicates that a lockfile references a
// dependency key with no corresponding package entry.
type UnresolvedDependencyError struct {
	Key string
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	return "lockfile: unresolved dependency key: " + e.Key
}
