package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/packmap/packmap/pkg/lockfile"
)

// lockfileFileName is the conventional lockfile location this diagnostic
// tool reads from; the core itself is agnostic to where a LockfileSource
// gets its bytes (spec.md §4.F), so this convention lives entirely here.
const lockfileFileName = "packmap-lock.yaml"

// readProjectLockfile reads and parses the lockfile at the project root's
// conventional location.
func readProjectLockfile(projectRoot string) ([]byte, *lockfile.Lockfile, error) {
	path := filepath.Join(projectRoot, lockfileFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	lock, err := lockfile.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return data, lock, nil
}
