package fsoverlay

import (
	"errors"
	"os"
	"sort"

	"github.com/packmap/packmap/pkg/pkgmap"
	"github.com/packmap/packmap/pkg/resolver"
)

// ReadFile implements spec.md §4.E's readFile contract: short-circuit to a
// verified blob read for File, fail ErrIsDir for Dir, ErrNotFound for
// Missing, defer to the host for Untracked.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	res := fs.resolver.Resolve(path)
	if res.Kind == resolver.Untracked {
		return os.ReadFile(path)
	}
	if res.Kind == resolver.Missing {
		return nil, ErrNotFound
	}

	data, err := resolver.Read(res, fs.store)
	if err != nil {
		if errors.Is(err, resolver.ErrIsDir) {
			return nil, ErrIsDir
		}
		return nil, err
	}
	return data, nil
}

// ReadDir implements spec.md §4.E's directory-merge contract: attempt the
// real readdir first. If it succeeds, append the map's children (if any)
// and deduplicate. If the real call fails ENOENT and the resolver returns
// Dir, return the map's children alone. If both fail, fail ErrNotFound. If
// the resolver returns File where a directory was expected, fail
// ErrNotDir. Entry names are returned sorted, matching Node's fs.readdir()
// default (no withFileTypes) of bare name strings.
func (fs *FS) ReadDir(path string) ([]string, error) {
	realEntries, realErr := os.ReadDir(path)

	res := fs.resolver.Resolve(path)

	if realErr == nil {
		names := make(map[string]bool, len(realEntries))
		for _, entry := range realEntries {
			names[entry.Name()] = true
		}
		if res.Kind == resolver.Dir {
			for name := range res.Children {
				names[name] = true
			}
		} else if res.Kind == resolver.File {
			return nil, ErrNotDir
		}
		return sortedKeys(names), nil
	}

	if !os.IsNotExist(realErr) {
		return nil, realErr
	}

	switch res.Kind {
	case resolver.Dir:
		return sortedKeys(childNames(res.Children)), nil
	case resolver.File:
		return nil, ErrNotDir
	default:
		return nil, ErrNotFound
	}
}

func childNames(children map[string]*pkgmap.Entry) map[string]bool {
	names := make(map[string]bool, len(children))
	for name := range children {
		names[name] = true
	}
	return names
}

func sortedKeys(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
