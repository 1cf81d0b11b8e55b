package resolver

import (
	"errors"
	"fmt"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/integrity"
)

// ErrIsDir indicates that Read was asked to read a Dir resolution.
var ErrIsDir = errors.New("resolver: cannot read a directory")

// Read returns a file resolution's blob bytes via store, verifying them
// against the entry's digest. It fails with ErrIsDir for Dir, with
// blobstore.ErrNotFound for Missing, and passes through Untracked as a
// programmer error — an overlay should never call Read on an Untracked
// resolution, since that case defers to the real filesystem entirely.
func Read(resolution Resolution, store *blobstore.Store) ([]byte, error) {
	switch resolution.Kind {
	case Dir:
		return nil, ErrIsDir
	case Missing:
		return nil, blobstore.ErrNotFound
	case File:
		digest, err := integrity.Parse(resolution.Entry.Digest)
		if err != nil {
			return nil, fmt.Errorf("resolver: parsing digest for %q: %w", resolution.Path, err)
		}
		return store.ReadAll(digest)
	default:
		return nil, fmt.Errorf("resolver: cannot read a %s resolution", resolution.Kind)
	}
}
