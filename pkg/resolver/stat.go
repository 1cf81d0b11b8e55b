package resolver

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/filesystem"
	"github.com/packmap/packmap/pkg/integrity"
)

// dirMode is the fixed mode reported for every synthesised directory entry.
const dirMode = filesystem.Mode(0755) | filesystem.ModeTypeDirectory

// Stat is a synthetic stat record for a resolved path, shaped after
// pkg/filesystem's Metadata type but trimmed to what spec.md §4.D requires:
// no device ID, since map entries aren't backed by any single real device.
type Stat struct {
	Size    uint64
	Mode    filesystem.Mode
	Kind    Kind
	ModTime time.Time
	Ino     uint64
}

// inoFor hashes a string into a stable pseudo-inode. Using hash/fnv here
// rather than a cryptographic digest is deliberate: the sole requirement is
// process-lifetime stability for a given input, and pkg/integrity's
// registered algorithms would be pure overhead for a value nothing ever
// verifies.
func inoFor(value string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(value))
	return h.Sum64()
}

// Stat produces a Stat record for a Dir or File resolution, per spec.md
// §4.D. buildTime is the fixed timestamp every entry reports as its mtime —
// conventionally the package map's build time, captured once by the caller
// and passed through rather than read from the clock on every call.
//
// If verify is true, Stat additionally confirms the file's blob exists in
// store, failing with blobstore.ErrNotFound if it does not; store must be
// non-nil in that case. Stat on any other Resolution Kind is a programmer
// error.
func Stat(resolution Resolution, buildTime time.Time, verify bool, store *blobstore.Store) (Stat, error) {
	switch resolution.Kind {
	case Dir:
		return Stat{
			Size:    0,
			Mode:    dirMode,
			Kind:    Dir,
			ModTime: buildTime,
			Ino:     inoFor(resolution.Path),
		}, nil

	case File:
		if verify {
			if store == nil {
				return Stat{}, fmt.Errorf("resolver: verify requested without a blob store")
			}
			digest, err := integrity.Parse(resolution.Entry.Digest)
			if err != nil {
				return Stat{}, fmt.Errorf("resolver: parsing digest for %q: %w", resolution.Path, err)
			}
			if !store.Exists(digest) {
				return Stat{}, blobstore.ErrNotFound
			}
		}
		return Stat{
			Size:    resolution.Entry.Size,
			Mode:    filesystem.Mode(resolution.Entry.Mode) | filesystem.ModeTypeFile,
			Kind:    File,
			ModTime: buildTime,
			Ino:     inoFor(resolution.Entry.Digest),
		}, nil

	default:
		return Stat{}, fmt.Errorf("resolver: cannot stat a %s resolution", resolution.Kind)
	}
}
