package fsoverlay

import (
	"context"
	"os"
)

// The five operations spec.md §5 names as suspension points (readFile,
// open, access, stat, readdir) each get an Async twin here. Every twin
// runs the synchronous method on its own goroutine via runAsync and
// returns as soon as either the goroutine finishes or ctx is cancelled —
// the overlay retains no state past that point (spec.md §5: a caller that
// abandons the handle must not leak anything), matching runAsync's
// buffered, never-blocking send.

// StatAsync is the async twin of Stat.
func (fs *FS) StatAsync(ctx context.Context, path string) (Info, error) {
	result := runAsync(func() (interface{}, error) {
		return fs.Stat(path)
	})
	select {
	case r := <-result:
		if r.Err != nil {
			return Info{}, r.Err
		}
		return r.Value.(Info), nil
	case <-ctx.Done():
		return Info{}, ctx.Err()
	}
}

// AccessAsync is the async twin of Access.
func (fs *FS) AccessAsync(ctx context.Context, path string, mode AccessMode) error {
	result := runAsync(func() (interface{}, error) {
		return nil, fs.Access(path, mode)
	})
	select {
	case r := <-result:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadFileAsync is the async twin of ReadFile.
func (fs *FS) ReadFileAsync(ctx context.Context, path string) ([]byte, error) {
	result := runAsync(func() (interface{}, error) {
		return fs.ReadFile(path)
	})
	select {
	case r := <-result:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Value.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadDirAsync is the async twin of ReadDir.
func (fs *FS) ReadDirAsync(ctx context.Context, path string) ([]string, error) {
	result := runAsync(func() (interface{}, error) {
		return fs.ReadDir(path)
	})
	select {
	case r := <-result:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Value.([]string), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OpenAsync is the async twin of Open.
func (fs *FS) OpenAsync(ctx context.Context, path string, flag int, perm os.FileMode) (*os.File, error) {
	result := runAsync(func() (interface{}, error) {
		return fs.Open(path, flag, perm)
	})
	select {
	case r := <-result:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Value.(*os.File), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
