package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/config"
	"github.com/packmap/packmap/pkg/lockfile"
)

// fakeExtractor writes a single fixed file into every target directory it's
// asked to populate, recording which identities it was asked to extract.
type fakeExtractor struct {
	extracted []PackageIdentity
}

func (f *fakeExtractor) Extract(ctx context.Context, identity PackageIdentity, targetDir string) error {
	f.extracted = append(f.extracted, identity)
	return os.WriteFile(filepath.Join(targetDir, "index.js"), []byte("module.exports = '"+identity.Key+"';"), 0644)
}

// fakeSource hands back a fixed lockfile and its canonical bytes.
type fakeSource struct {
	bytes []byte
	lock  *lockfile.Lockfile
}

func (f *fakeSource) Load(ctx context.Context) ([]byte, *lockfile.Lockfile, error) {
	return f.bytes, f.lock, nil
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	raw := []byte(`
root:
  left-pad: left-pad@1.3.0
packages:
  left-pad@1.3.0:
    resolved: https://registry.example/left-pad.tgz
    integrity: sha256-AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=
`)
	lock, err := lockfile.Parse(raw)
	require.NoError(t, err)
	return &fakeSource{bytes: raw, lock: lock}
}

func newTestBridge(t *testing.T, extractor Extractor) (*Bridge, string) {
	t.Helper()
	store := blobstore.New(t.TempDir(), 0, nil)
	cfg := &config.Configuration{}
	buildTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewBridge(store, extractor, cfg, nil, buildTime), t.TempDir()
}

func TestBuildAndPersistMapExtractsPackagesWithoutFiles(t *testing.T) {
	extractor := &fakeExtractor{}
	bridge, projectRoot := newTestBridge(t, extractor)
	source := newFakeSource(t)

	root, err := bridge.BuildAndPersistMap(context.Background(), projectRoot, source.lock, source.bytes)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Len(t, extractor.extracted, 1)
	require.Equal(t, "left-pad@1.3.0", extractor.extracted[0].Key)

	for _, name := range []string{".pkgmap", ".pkglock-hash"} {
		_, err := os.Stat(filepath.Join(projectRoot, "node_modules", name))
		require.NoErrorf(t, err, "expected %s to be persisted", name)
	}
}

func TestBuildAndPersistMapSkipsExtractionWhenFilesArePrePopulated(t *testing.T) {
	extractor := &fakeExtractor{}
	bridge, projectRoot := newTestBridge(t, extractor)

	digest, err := bridge.store.PutDefault([]byte("module.exports = 1;"))
	require.NoError(t, err)

	raw := []byte(`
root:
  left-pad: left-pad@1.3.0
packages:
  left-pad@1.3.0:
    resolved: https://registry.example/left-pad.tgz
    integrity: ` + digest.String() + `
    files:
      index.js:
        digest: ` + digest.String() + `
        size: 19
        mode: 420
`)
	lock, err := lockfile.Parse(raw)
	require.NoError(t, err)

	root, err := bridge.BuildAndPersistMap(context.Background(), projectRoot, lock, raw)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Empty(t, extractor.extracted)
}

func TestInstallOverlayBuildsOnFirstRunThenReusesPersistedMap(t *testing.T) {
	extractor := &fakeExtractor{}
	bridge, projectRoot := newTestBridge(t, extractor)
	source := newFakeSource(t)

	_, err := bridge.InstallOverlay(context.Background(), projectRoot, source)
	require.NoError(t, err)
	require.Len(t, extractor.extracted, 1)

	_, err = bridge.InstallOverlay(context.Background(), projectRoot, source)
	require.NoError(t, err)
	require.Lenf(t, extractor.extracted, 1, "expected the second install to reuse the persisted map without re-extracting")
}

func TestInstallOverlayRebuildsWhenLockfileChanges(t *testing.T) {
	extractor := &fakeExtractor{}
	bridge, projectRoot := newTestBridge(t, extractor)
	source := newFakeSource(t)

	_, err := bridge.InstallOverlay(context.Background(), projectRoot, source)
	require.NoError(t, err)

	source.bytes = []byte(`
root:
  left-pad: left-pad@1.3.1
packages:
  left-pad@1.3.1:
    resolved: https://registry.example/left-pad.tgz
    integrity: sha256-AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=
`)
	lock, err := lockfile.Parse(source.bytes)
	require.NoError(t, err)
	source.lock = lock

	_, err = bridge.InstallOverlay(context.Background(), projectRoot, source)
	require.NoError(t, err)
	require.Lenf(t, extractor.extracted, 2, "expected a seal mismatch to trigger re-extraction")
}
