package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/packmap/packmap/pkg/logging"
)

const (
	// atomicWriteTemporaryNamePrefix is the file name prefix to use for
	// intermediate temporary files used in atomic writes.
	atomicWriteTemporaryNamePrefix = TemporaryNamePrefix + "atomic-write"
)

// WriteFileAtomic writes a file to disk in an atomic fashion by using an
// intermediate temporary file in the same directory that is swapped into
// place using a rename operation. The logger is used only to report failures
// during best-effort cleanup of the temporary file; it may be nil.
func WriteFileAtomic(path string, data []byte, permissions os.FileMode, logger *logging.Logger) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), atomicWriteTemporaryNamePrefix)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	cleanup := func() {
		if removeErr := os.Remove(temporary.Name()); removeErr != nil {
			logger.Warn(fmt.Errorf("unable to remove temporary file: %w", removeErr))
		}
	}

	if _, err = temporary.Write(data); err != nil {
		temporary.Close()
		cleanup()
		return fmt.Errorf("unable to write data to temporary file: %w", err)
	}

	if err = temporary.Close(); err != nil {
		cleanup()
		return fmt.Errorf("unable to close temporary file: %w", err)
	}

	if err = os.Chmod(temporary.Name(), permissions); err != nil {
		cleanup()
		return fmt.Errorf("unable to change file permissions: %w", err)
	}

	if err = os.Rename(temporary.Name(), path); err != nil {
		cleanup()
		return fmt.Errorf("unable to rename file into place: %w", err)
	}

	return nil
}
