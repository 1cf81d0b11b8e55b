// Package installer specifies and partially implements the Installer
// Bridge: the external-collaborator boundary between a verified lockfile
// and this module's core (spec.md §4.F). The core only consumes a
// validated lockfile and an Extractor; registry resolution, tarball
// download, and install-script execution are explicitly out of scope and
// live on the caller's side of that interface.
package installer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/config"
	"github.com/packmap/packmap/pkg/fsoverlay"
	"github.com/packmap/packmap/pkg/lockfile"
	"github.com/packmap/packmap/pkg/logging"
	"github.com/packmap/packmap/pkg/pkgmap"
	"github.com/packmap/packmap/pkg/resolver"
)

// PackageIdentity names a single package for Extractor, carrying exactly
// the fields spec.md §4.F's extract signature needs.
type PackageIdentity struct {
	Key       string
	Resolved  string
	Integrity string
}

// Extractor is the opaque capability spec.md §4.F describes: something
// that can materialise a package's files under a target directory given
// only its resolved location and expected integrity. The core uses it
// only for packages whose lockfile entry carries no Files (the Installer
// Bridge's signal that the package needs install-script or bundled-
// dependency handling); every other package is represented purely as map
// entries against blobs the caller already populated.
type Extractor interface {
	Extract(ctx context.Context, identity PackageIdentity, targetDir string) error
}

// LockfileSource supplies the verified lockfile input spec.md §4.F
// requires: both the canonical bytes the seal is computed over and the
// already-parsed structure, so the core never has to re-derive one from
// the other.
type LockfileSource interface {
	Load(ctx context.Context) (lockfileBytes []byte, lock *lockfile.Lockfile, err error)
}

// Bridge implements the core-facing half of the Installer Bridge:
// build_and_persist_map and install_overlay from spec.md §4.F.
type Bridge struct {
	store      *blobstore.Store
	extractor  Extractor
	logger     *logging.Logger
	concurrent uint
	buildTime  time.Time
}

// NewBridge constructs a Bridge. cfg's EffectiveFetchConcurrency clamps
// the number of packages fetched concurrently to spec.md §5's suggested
// 50–100 ceiling. buildTime is the fixed timestamp the resulting overlay
// reports as every synthetic entry's mtime — callers conventionally pass
// process-start time, captured once rather than read from the clock on
// every stat.
func NewBridge(store *blobstore.Store, extractor Extractor, cfg *config.Configuration, logger *logging.Logger, buildTime time.Time) *Bridge {
	return &Bridge{
		store:      store,
		extractor:  extractor,
		logger:     logger,
		concurrent: cfg.EffectiveFetchConcurrency(),
		buildTime:  buildTime,
	}
}

// BuildAndPersistMap implements spec.md §4.F's build_and_persist_map: it
// extracts any package whose lockfile entry has no pre-populated Files
// (with bounded parallelism per spec.md §5), puts the resulting files into
// the blob store, builds the package map from the now-complete lockfile
// view, and persists map plus seal under projectRoot/node_modules. The
// order packages complete extraction in is not observable — only the
// final map is — since every package's resolved Files are written into an
// independent map slot keyed by its lockfile key.
func (b *Bridge) BuildAndPersistMap(ctx context.Context, projectRoot string, lock *lockfile.Lockfile, lockfileBytes []byte) (*pkgmap.Entry, error) {
	keys, err := lock.Closure()
	if err != nil {
		return nil, fmt.Errorf("installer: computing dependency closure: %w", err)
	}

	resolved := make(map[string]lockfile.PackageEntry, len(lock.Packages))
	var resolvedMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(b.concurrent))

	for _, key := range keys {
		key := key
		pkg := lock.Packages[key]

		if len(pkg.Files) > 0 {
			resolvedMu.Lock()
			resolved[key] = pkg
			resolvedMu.Unlock()
			continue
		}

		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			files, err := b.extractAndPopulate(groupCtx, key, pkg)
			if err != nil {
				return fmt.Errorf("installer: extracting %q: %w", key, err)
			}

			pkg.Files = files
			resolvedMu.Lock()
			resolved[key] = pkg
			resolvedMu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	resolvedLockfile := &lockfile.Lockfile{Root: lock.Root, Packages: resolved}

	root, err := pkgmap.Build(resolvedLockfile, b.store)
	if err != nil {
		return nil, fmt.Errorf("installer: building package map: %w", err)
	}

	dependencyDir := filepath.Join(projectRoot, "node_modules")
	if err := os.MkdirAll(dependencyDir, 0755); err != nil {
		return nil, fmt.Errorf("installer: creating dependency directory: %w", err)
	}
	if err := pkgmap.Persist(dependencyDir, root, lockfileBytes, b.logger); err != nil {
		return nil, fmt.Errorf("installer: persisting package map: %w", err)
	}

	return root, nil
}

// extractAndPopulate extracts a single package to a scratch directory,
// puts every regular file it contains into the blob store, and returns
// one FileRecord per file, keyed by its path relative to the package
// root.
func (b *Bridge) extractAndPopulate(ctx context.Context, key string, pkg lockfile.PackageEntry) (map[string]lockfile.FileRecord, error) {
	if b.extractor == nil {
		return nil, fmt.Errorf("no extractor configured for a package with no pre-populated files")
	}

	targetDir, err := os.MkdirTemp("", "packmap-extract-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(targetDir)

	identity := PackageIdentity{Key: key, Resolved: pkg.Resolved, Integrity: pkg.Integrity}
	if err := b.extractor.Extract(ctx, identity, targetDir); err != nil {
		return nil, err
	}

	files := make(map[string]lockfile.FileRecord)
	err = filepath.WalkDir(targetDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}

		relativePath, err := filepath.Rel(targetDir, path)
		if err != nil {
			return err
		}
		relativePath = filepath.ToSlash(relativePath)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", relativePath, err)
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		digest, err := b.store.PutDefault(data)
		if err != nil {
			return fmt.Errorf("storing %q: %w", relativePath, err)
		}

		files[relativePath] = lockfile.FileRecord{
			Digest: digest.String(),
			Size:   uint64(len(data)),
			Mode:   uint32(info.Mode().Perm()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// InstallOverlay implements spec.md §4.F's install_overlay: load the
// persisted map, verify its seal against the lockfile source's current
// bytes, rebuild via BuildAndPersistMap on any miss (absent map, seal
// mismatch), and construct the FS the rest of the process will use. It is
// meant to run exactly once per process, before user code runs.
func (b *Bridge) InstallOverlay(ctx context.Context, projectRoot string, source LockfileSource) (*fsoverlay.FS, error) {
	lockfileBytes, lock, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("installer: loading lockfile: %w", err)
	}

	dependencyDir := filepath.Join(projectRoot, "node_modules")
	root, seal, err := pkgmap.Load(dependencyDir)
	if err != nil {
		return nil, fmt.Errorf("installer: loading persisted map: %w", err)
	}

	if !pkgmap.Verify(root, lockfileBytes, seal) {
		root, err = b.BuildAndPersistMap(ctx, projectRoot, lock, lockfileBytes)
		if err != nil {
			return nil, err
		}
	}

	res := resolver.New(projectRoot, root)
	return fsoverlay.New(res, b.store, b.buildTime, b.logger), nil
}
