// Package blobstore implements the content-addressed blob cache: files are
// stored once per integrity digest and located by a pure function of that
// digest and the store's root, independent of any logical path that might
// reference them.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/packmap/packmap/pkg/integrity"
	"github.com/packmap/packmap/pkg/logging"
)

// layoutVersion names the on-disk fan-out layout so that a future incompatible
// layout change can coexist with this one during a migration.
const layoutVersion = "content-v2"

// defaultAlgorithm is used by Put when the caller doesn't care which
// algorithm produces the digest.
const defaultAlgorithm = "sha256"

// Store is a content-addressed blob cache rooted at a single directory on
// disk. Unlike the teacher's Stager (which is explicitly not safe for
// concurrent access and is torn down at the end of a sync session), a Store
// is long-lived and must tolerate concurrent Put/OpenRead calls from the
// installer bridge's bounded-parallelism fetch workers, so its prefix-
// existence cache is guarded by a mutex.
type Store struct {
	// root is the blob store's root directory.
	root string
	// maxBlobSize bounds the size of any single blob Put will accept. Zero
	// means unbounded.
	maxBlobSize uint64
	// logger receives diagnostic output. It may be nil.
	logger *logging.Logger

	// prefixMutex guards prefixExists.
	prefixMutex sync.Mutex
	// prefixExists tracks which fan-out prefix directories have already been
	// created, mirroring the teacher's Stager.prefixExists cache. It may
	// contain false negatives but never false positives.
	prefixExists map[string]bool
}

// New creates a Store rooted at the given directory. The directory is not
// created until the first successful Put; PathFor and OpenRead tolerate a
// store root that does not yet exist.
func New(root string, maxBlobSize uint64, logger *logging.Logger) *Store {
	return &Store{
		root:         root,
		maxBlobSize:  maxBlobSize,
		logger:       logger,
		prefixExists: make(map[string]bool),
	}
}

// fanOutComponents splits a digest's base64 form into the two-character
// prefix components used by the on-disk layout:
// <root>/content-v2/<algorithm>/<first-2>/<next-2>/<rest>.
func fanOutComponents(encoded string) (first, next, rest string, err error) {
	if len(encoded) < 4 {
		return "", "", "", fmt.Errorf("blobstore: digest encoding too short for fan-out: %q", encoded)
	}
	return encoded[:2], encoded[2:4], encoded[4:], nil
}

// PathFor computes the on-disk path for a digest. It is a pure function of
// the digest and the store's configured root; it does not touch disk.
func (s *Store) PathFor(digest integrity.Digest) (string, error) {
	encoded := digest.String()
	// Strip the "<algorithm>-" prefix before fanning out, since the
	// algorithm is already a path component.
	algorithm := digest.Algorithm()
	rawEncoded := encoded[len(algorithm)+1:]

	first, next, rest, err := fanOutComponents(rawEncoded)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, layoutVersion, algorithm, first, next, rest), nil
}

// ensurePrefixDirectory ensures that the two levels of fan-out directories
// above a blob's final path component exist, using a cache to avoid redundant
// Mkdir calls, mirroring Stager.ensurePrefixExists.
func (s *Store) ensurePrefixDirectory(dir string) error {
	s.prefixMutex.Lock()
	exists := s.prefixExists[dir]
	s.prefixMutex.Unlock()
	if exists {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create blob prefix directory: %w", err)
	}

	s.prefixMutex.Lock()
	s.prefixExists[dir] = true
	s.prefixMutex.Unlock()
	return nil
}

// Put computes the digest of data under the given algorithm, writes it under
// the content-addressed layout if not already present, and returns the
// digest. Put is idempotent: an existing blob for the same digest is not
// rewritten. Concurrent Put calls for the same digest cannot corrupt the
// entry, since size and content are identical by construction and the final
// publish step is an atomic rename.
func (s *Store) Put(algorithm string, data []byte) (integrity.Digest, error) {
	if s.maxBlobSize > 0 && uint64(len(data)) > s.maxBlobSize {
		return integrity.Digest{}, ErrTooLarge
	}

	digest, err := integrity.ComputeBytes(algorithm, data)
	if err != nil {
		return integrity.Digest{}, err
	}

	destination, err := s.PathFor(digest)
	if err != nil {
		return integrity.Digest{}, err
	}

	if _, err := os.Lstat(destination); err == nil {
		return digest, nil
	}

	if err := s.ensurePrefixDirectory(filepath.Dir(destination)); err != nil {
		return integrity.Digest{}, err
	}

	temporary, err := os.CreateTemp(filepath.Dir(destination), "blob-incoming-")
	if err != nil {
		return integrity.Digest{}, fmt.Errorf("unable to create temporary blob file: %w", err)
	}
	cleanup := func() {
		if removeErr := os.Remove(temporary.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
			s.logger.Warn(fmt.Errorf("unable to remove temporary blob file: %w", removeErr))
		}
	}

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		cleanup()
		return integrity.Digest{}, fmt.Errorf("unable to write blob data: %w", err)
	}
	if err := temporary.Close(); err != nil {
		cleanup()
		return integrity.Digest{}, fmt.Errorf("unable to close temporary blob file: %w", err)
	}
	if err := os.Chmod(temporary.Name(), 0444); err != nil {
		cleanup()
		return integrity.Digest{}, fmt.Errorf("unable to set blob permissions: %w", err)
	}

	if err := os.Rename(temporary.Name(), destination); err != nil {
		cleanup()
		return integrity.Digest{}, fmt.Errorf("unable to publish blob: %w", err)
	}

	return digest, nil
}

// PutDefault is shorthand for Put using the store's default digest algorithm.
func (s *Store) PutDefault(data []byte) (integrity.Digest, error) {
	return s.Put(defaultAlgorithm, data)
}

// Exists reports whether a blob for the given digest is present in the store.
func (s *Store) Exists(digest integrity.Digest) bool {
	path, err := s.PathFor(digest)
	if err != nil {
		return false
	}
	_, err = os.Lstat(path)
	return err == nil
}

// OpenRead opens a stream to the blob's bytes without verifying its content
// against the digest; verification on full streamed reads is optional for
// performance, per spec. Callers that need verification should use ReadAll.
func (s *Store) OpenRead(digest integrity.Digest) (io.ReadCloser, error) {
	path, err := s.PathFor(digest)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to open blob: %w", err)
	}
	return file, nil
}

// ReadAll reads a blob's bytes in full and verifies them against digest,
// failing with ErrIntegrity if the on-disk bytes do not hash to the requested
// digest. Verification is mandatory here, per spec.
func (s *Store) ReadAll(digest integrity.Digest) ([]byte, error) {
	path, err := s.PathFor(digest)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to read blob: %w", err)
	}

	actual, err := integrity.ComputeBytes(digest.Algorithm(), data)
	if err != nil {
		return nil, err
	}
	if !actual.Equal(digest) {
		return nil, ErrIntegrity
	}

	return data, nil
}
