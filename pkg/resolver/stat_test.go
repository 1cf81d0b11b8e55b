package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/filesystem"
	"github.com/packmap/packmap/pkg/integrity"
	"github.com/packmap/packmap/pkg/pkgmap"
)

var fixedBuildTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStatForFileReportsSizeAndMode(t *testing.T) {
	resolution := Resolution{
		Kind: File,
		Entry: &pkgmap.Entry{
			Kind:   pkgmap.KindFile,
			Digest: "sha256-aaaa",
			Size:   42,
			Mode:   0644,
		},
		Path: "node_modules/left-pad/index.js",
	}

	stat, err := Stat(resolution, fixedBuildTime, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Size != 42 {
		t.Errorf("Size = %d, want 42", stat.Size)
	}
	if stat.Mode&filesystem.ModeTypeMask != filesystem.ModeTypeFile {
		t.Errorf("Mode does not carry the file type bit: %v", stat.Mode)
	}
	if !stat.ModTime.Equal(fixedBuildTime) {
		t.Errorf("ModTime = %v, want %v", stat.ModTime, fixedBuildTime)
	}
}

func TestStatForFileIsDeterministicAcrossCalls(t *testing.T) {
	resolution := Resolution{
		Kind:  File,
		Entry: &pkgmap.Entry{Kind: pkgmap.KindFile, Digest: "sha256-aaaa", Size: 1, Mode: 0644},
	}

	first, err := Stat(resolution, fixedBuildTime, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Stat(resolution, fixedBuildTime, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Ino != second.Ino {
		t.Error("expected Ino to be stable across repeated Stat calls for the same digest")
	}
}

func TestStatForDirReportsFixedSizeAndMode(t *testing.T) {
	resolution := Resolution{Kind: Dir, Children: map[string]*pkgmap.Entry{}, Path: "node_modules/left-pad"}

	stat, err := Stat(resolution, fixedBuildTime, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Size != 0 {
		t.Errorf("Size = %d, want 0", stat.Size)
	}
	if stat.Mode&filesystem.ModeTypeMask != filesystem.ModeTypeDirectory {
		t.Errorf("Mode does not carry the directory type bit: %v", stat.Mode)
	}
}

func TestStatVerifyFailsWhenBlobAbsent(t *testing.T) {
	store := blobstore.New(t.TempDir(), 0, nil)
	bogus, err := integrity.ComputeBytes("sha256", []byte("never written"))
	if err != nil {
		t.Fatal(err)
	}
	resolution := Resolution{
		Kind:  File,
		Entry: &pkgmap.Entry{Kind: pkgmap.KindFile, Digest: bogus.String(), Size: 1, Mode: 0644},
	}

	if _, err := Stat(resolution, fixedBuildTime, true, store); !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStatVerifySucceedsWhenBlobPresent(t *testing.T) {
	store := blobstore.New(t.TempDir(), 0, nil)
	digest, err := store.PutDefault([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	resolution := Resolution{
		Kind:  File,
		Entry: &pkgmap.Entry{Kind: pkgmap.KindFile, Digest: digest.String(), Size: 7, Mode: 0644},
	}

	if _, err := Stat(resolution, fixedBuildTime, true, store); err != nil {
		t.Errorf("expected verified stat to succeed, got %v", err)
	}
}

func TestStatRejectsUntrackedAndMissing(t *testing.T) {
	for _, kind := range []Kind{Untracked, Missing} {
		if _, err := Stat(Resolution{Kind: kind}, fixedBuildTime, false, nil); err == nil {
			t.Errorf("expected an error statting a %s resolution", kind)
		}
	}
}
