package pkgmap

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/packmap/packmap/pkg/filesystem"
	"github.com/packmap/packmap/pkg/logging"
)

// mapFileName holds the binary gob envelope for the built tree.
const mapFileName = ".pkgmap"

// sealFileName holds the human-inspectable YAML seal, per spec's
// "<project>/node_modules/.pkglock-hash (or equivalent)" note. The seal,
// not the map file's presence, is authoritative over map validity.
const sealFileName = ".pkglock-hash"

// mapFormatVersion guards against loading an envelope written by an
// incompatible future layout.
const mapFormatVersion = 1

// envelope is the gob-encoded structure written to mapFileName.
type envelope struct {
	Version uint32
	Root    *Entry
}

// Persist writes the built tree and a seal computed over lockfileBytes to
// dir, atomically. A later Load/Verify pair against the same directory
// detects any drift between the persisted map and a changed lockfile.
func Persist(dir string, root *Entry, lockfileBytes []byte, logger *logging.Logger) error {
	seal, err := computeSeal(lockfileBytes)
	if err != nil {
		return fmt.Errorf("pkgmap: computing seal: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Version: mapFormatVersion, Root: root}); err != nil {
		return fmt.Errorf("pkgmap: encoding map: %w", err)
	}
	if err := filesystem.WriteFileAtomic(filepath.Join(dir, mapFileName), buf.Bytes(), 0644, logger); err != nil {
		return fmt.Errorf("pkgmap: writing map: %w", err)
	}

	sealBytes, err := yaml.Marshal(seal)
	if err != nil {
		return fmt.Errorf("pkgmap: encoding seal: %w", err)
	}
	if err := filesystem.WriteFileAtomic(filepath.Join(dir, sealFileName), sealBytes, 0644, logger); err != nil {
		return fmt.Errorf("pkgmap: writing seal: %w", err)
	}

	return nil
}

// Load reads the persisted map and seal from dir. If neither file is
// present, Load returns a typed empty value (nil root, zero Seal) rather
// than an error, per spec's "returns a typed empty value if absent" note —
// a project that has never been installed is not itself an error condition.
func Load(dir string) (*Entry, Seal, error) {
	mapData, err := os.ReadFile(filepath.Join(dir, mapFileName))
	if os.IsNotExist(err) {
		return nil, Seal{}, nil
	} else if err != nil {
		return nil, Seal{}, fmt.Errorf("pkgmap: reading map: %w", err)
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(mapData)).Decode(&env); err != nil {
		return nil, Seal{}, fmt.Errorf("pkgmap: decoding map: %w", err)
	}
	if env.Version != mapFormatVersion {
		return nil, Seal{}, fmt.Errorf("pkgmap: unsupported map format version %d", env.Version)
	}

	sealData, err := os.ReadFile(filepath.Join(dir, sealFileName))
	if os.IsNotExist(err) {
		return env.Root, Seal{}, nil
	} else if err != nil {
		return nil, Seal{}, fmt.Errorf("pkgmap: reading seal: %w", err)
	}

	var seal Seal
	if err := yaml.Unmarshal(sealData, &seal); err != nil {
		return nil, Seal{}, fmt.Errorf("pkgmap: decoding seal: %w", err)
	}

	return env.Root, seal, nil
}

// Verify reports whether root is non-nil and seal verifies against
// lockfileBytes. Either condition failing means the persisted map must be
// treated as invalid and rebuilt.
func Verify(root *Entry, lockfileBytes []byte, seal Seal) bool {
	return root != nil && seal.Verify(lockfileBytes)
}
