// Package file opens local files as datasources and reads location lists.
package file

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Local opens one path on the local disk. Paths ending in ".gz" are
// decompressed transparently; "-" reads standard input.
type Local struct{ path string }

// NewLocal binds a Local to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path is the bound path.
func (l *Local) Path() string { return l.path }

// Open returns a reader over the file contents. A canceled ctx short-circuits
// before the filesystem is touched. Errors wrap the underlying *PathError so
// errors.Is(err, os.ErrNotExist) works.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if !strings.HasSuffix(strings.ToLower(l.path), ".gz") {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gunzip %s: %w", l.path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}
