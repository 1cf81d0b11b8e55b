// Package fsoverlay implements the virtual filesystem overlay: a typed
// facade over the host's filesystem primitives that consults a Resolver
// and either serves a call synthetically from the package map and blob
// store, synthesises its natural failure, or defers to the real
// filesystem. Per spec.md §9's design note, this is a typed facade rather
// than primitive-patching — Go has no monkey-patching story for os.* in
// any case — constructed once with a captured resolver and blob store and
// then called directly by consuming code instead of os.* itself.
package fsoverlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/packmap/packmap/pkg/blobstore"
	"github.com/packmap/packmap/pkg/integrity"
	"github.com/packmap/packmap/pkg/logging"
	"github.com/packmap/packmap/pkg/resolver"
)

// ErrIsDir indicates an operation that requires a file was given a
// directory resolution.
var ErrIsDir = errors.New("fsoverlay: is a directory")

// ErrNotDir indicates an operation that requires a directory was given a
// file resolution.
var ErrNotDir = errors.New("fsoverlay: not a directory")

// ErrNotFound mirrors the host's ENOENT, synthesised for Missing
// resolutions without touching the real filesystem.
var ErrNotFound = errors.New("fsoverlay: no such file or directory")

// ErrAccessDenied is returned when a write or execute access check is made
// against a synthetic directory entry.
var ErrAccessDenied = errors.New("fsoverlay: access denied")

// FS is the overlay's entry point. It is immutable after construction: a
// single FS is built once per process, before user code runs, and every
// method call is independent of any other — the overlay itself carries no
// per-call state (spec.md §5).
type FS struct {
	resolver  *resolver.Resolver
	store     *blobstore.Store
	buildTime time.Time
	logger    *logging.Logger
}

// New constructs an FS from a resolver and the blob store it was built
// against. buildTime is the fixed timestamp synthetic stat records report
// as mtime, conventionally the package map's build time.
func New(res *resolver.Resolver, store *blobstore.Store, buildTime time.Time, logger *logging.Logger) *FS {
	return &FS{
		resolver:  res,
		store:     store,
		buildTime: buildTime,
		logger:    logger,
	}
}

// asyncResult carries a single typed value and error pair across an async
// method's result channel. Each Async method type-asserts Value itself;
// this avoids the pre-generics boilerplate of one result struct per
// operation while staying well short of justifying a worker-pool package.
type asyncResult struct {
	Value interface{}
	Err   error
}

// runAsync launches op on its own goroutine and delivers its result on a
// buffered channel of capacity 1, so the goroutine never blocks on a
// caller that abandons the channel — the same non-blocking-send shape
// pkg/state's Coalescer uses for its event channel. fsoverlay has no
// cancellation story of its own (spec.md §5: "none at the overlay layer");
// callers that want cancellation wrap the returned channel with their own
// context.Context select.
func runAsync(op func() (interface{}, error)) <-chan asyncResult {
	out := make(chan asyncResult, 1)
	go func() {
		value, err := op()
		out <- asyncResult{Value: value, Err: err}
	}()
	return out
}

// digestOf parses a File resolution's entry digest. Callers must only pass
// a resolver.File resolution; anything else is a programmer error.
func digestOf(res resolver.Resolution) (integrity.Digest, error) {
	if res.Kind != resolver.File {
		return integrity.Digest{}, fmt.Errorf("fsoverlay: not a file resolution")
	}
	return integrity.Parse(res.Entry.Digest)
}
