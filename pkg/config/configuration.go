package config

import (
	"github.com/packmap/packmap/pkg/encoding"
)

// defaultFetchConcurrency is used when a configuration file doesn't specify
// an explicit fetch concurrency.
const defaultFetchConcurrency = 64

// Configuration is the top-level YAML configuration object type. It governs
// where the blob store and package maps live on disk and how the installer
// bridge paces concurrent fetches.
type Configuration struct {
	// CacheRoot is the root directory under which the content-addressed blob
	// store is rooted. If empty, callers should apply a platform-appropriate
	// default (e.g. a cache directory under the user's home).
	CacheRoot string `yaml:"cacheRoot"`
	// ProjectPrefix is an optional project prefix carried in the
	// configuration file. No code in this module reads it; in particular,
	// the package map and seal file names are fixed and do not include it.
	ProjectPrefix string `yaml:"projectPrefix"`
	// MaxBlobSize bounds the size of any single blob the store will accept,
	// guarding against runaway disk usage from a malformed lockfile entry. A
	// zero value means no limit is enforced.
	MaxBlobSize ByteSize `yaml:"maxBlobSize"`
	// FetchConcurrency bounds the number of concurrent fetch operations the
	// installer bridge may run. It is clamped into the range [50, 100] if
	// set to a value outside that range, and defaults to 64 if unset.
	FetchConcurrency uint `yaml:"fetchConcurrency"`
}

// EffectiveFetchConcurrency returns the configured fetch concurrency, falling
// back to a sane default and clamping to the bounded-parallelism range the
// installer bridge requires.
func (c *Configuration) EffectiveFetchConcurrency() uint {
	concurrency := c.FetchConcurrency
	if concurrency == 0 {
		concurrency = defaultFetchConcurrency
	}
	if concurrency < 50 {
		concurrency = 50
	} else if concurrency > 100 {
		concurrency = 100
	}
	return concurrency
}

// Load attempts to load a YAML-based configuration file from the specified
// path. A missing file is returned as the unwrapped not-exist error, so
// callers can check os.IsNotExist on it and fall back to zero-value
// Configuration defaults.
func Load(path string) (*Configuration, error) {
	result := &Configuration{}
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		return nil, err
	}
	return result, nil
}
