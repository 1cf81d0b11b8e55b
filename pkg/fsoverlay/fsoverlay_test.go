package fsoverlay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/lockfile"
	"github.com/packmap/packmap/pkg/pkgmap"
	"github.com/packmap/packmap/pkg/resolver"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	projectDir := t.TempDir()
	storeDir := t.TempDir()

	store := blobstore.New(storeDir, 0, nil)
	digest, err := store.PutDefault([]byte("module.exports = 1;"))
	if err != nil {
		t.Fatal(err)
	}

	lock, err := lockfile.Parse([]byte(`
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
`))
	if err != nil {
		t.Fatal(err)
	}

	root, err := pkgmap.Build(lock, store)
	if err != nil {
		t.Fatal(err)
	}

	res := resolver.New(projectDir, root)
	return New(res, store, time.Now(), nil), projectDir
}

func TestStatServesSyntheticEntriesForUntouchedPaths(t *testing.T) {
	fs, projectDir := newTestFS(t)

	info, err := fs.Stat(filepath.Join(projectDir, "node_modules", "left-pad", "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 19 {
		t.Errorf("Size = %d, want 19", info.Size)
	}
	if info.IsDir {
		t.Error("expected a file, not a directory")
	}
}

func TestStatPrefersRealFileOverMap(t *testing.T) {
	fs, projectDir := newTestFS(t)

	realPath := filepath.Join(projectDir, "node_modules", "left-pad", "index.js")
	if err := os.MkdirAll(filepath.Dir(realPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(realPath, []byte("real contents, much longer than the blob"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := fs.Stat(realPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != int64(len("real contents, much longer than the blob")) {
		t.Error("expected Stat to prefer the real file over the map entry")
	}
}

func TestReadFileReturnsBlobContentsForUnmaterializedEntry(t *testing.T) {
	fs, projectDir := newTestFS(t)

	data, err := fs.ReadFile(filepath.Join(projectDir, "node_modules", "left-pad", "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "module.exports = 1;" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestReadFileFailsIsDirForDirectoryResolution(t *testing.T) {
	fs, projectDir := newTestFS(t)

	if _, err := fs.ReadFile(filepath.Join(projectDir, "node_modules", "left-pad")); err != ErrIsDir {
		t.Errorf("expected ErrIsDir, got %v", err)
	}
}

func TestReadDirMergesVirtualNodeModulesAsEmpty(t *testing.T) {
	fs, projectDir := newTestFS(t)

	names, err := fs.ReadDir(filepath.Join(projectDir, "node_modules", "left-pad", "node_modules"))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("expected an empty listing, got %v", names)
	}
}

func TestReadDirListsTopLevelPackages(t *testing.T) {
	fs, projectDir := newTestFS(t)

	names, err := fs.ReadDir(filepath.Join(projectDir, "node_modules"))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "left-pad" {
		t.Errorf("ReadDir() = %v, want [left-pad]", names)
	}
}

func TestOpenMaterializesOnWrite(t *testing.T) {
	fs, projectDir := newTestFS(t)
	path := filepath.Join(projectDir, "node_modules", "left-pad", "index.js")

	file, err := fs.Open(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatal(err)
	}
	file.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected the path to be materialised on disk: %v", err)
	}
}

func TestOpenReadOnlyDoesNotMaterialize(t *testing.T) {
	fs, projectDir := newTestFS(t)
	path := filepath.Join(projectDir, "node_modules", "left-pad", "index.js")

	file, err := fs.Open(path, os.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	file.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected a read-only open to leave no real file behind")
	}
}

func TestInternalModuleStatContract(t *testing.T) {
	fs, projectDir := newTestFS(t)

	if got := fs.InternalModuleStat(filepath.Join(projectDir, "node_modules", "left-pad", "index.js")); got != 0 {
		t.Errorf("file probe = %d, want 0", got)
	}
	if got := fs.InternalModuleStat(filepath.Join(projectDir, "node_modules", "left-pad")); got != 1 {
		t.Errorf("dir probe = %d, want 1", got)
	}
	if got := fs.InternalModuleStat(filepath.Join(projectDir, "node_modules", "left-pad", "node_modules")); got != 1 {
		t.Errorf("virtual node_modules probe = %d, want 1", got)
	}
	if got := fs.InternalModuleStat(filepath.Join(projectDir, "node_modules", "does-not-exist")); got != -34 {
		t.Errorf("missing probe = %d, want -34", got)
	}
}

func TestStatAsyncRespectsCancellation(t *testing.T) {
	fs, projectDir := newTestFS(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.StatAsync(ctx, filepath.Join(projectDir, "node_modules", "left-pad", "index.js")); err == nil {
		t.Error("expected a cancelled context to produce an error")
	}
}

func TestReadFileAsyncMatchesSyncResult(t *testing.T) {
	fs, projectDir := newTestFS(t)
	path := filepath.Join(projectDir, "node_modules", "left-pad", "index.js")

	syncData, err := fs.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	asyncData, err := fs.ReadFileAsync(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if string(syncData) != string(asyncData) {
		t.Errorf("async result %q does not match sync result %q", asyncData, syncData)
	}
}
