// Package datasource resolves a location string to a byte stream: a local
// path (optionally gzip-compressed), a file:// URL, "-" for stdin, or an
// http(s) URL fetched with retries.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"rowpipe/internal/datasource/file"
	"rowpipe/internal/datasource/httpds"
)

// Source opens a fresh stream on every call.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Resolve picks the Source for location. client serves http(s) locations; a
// nil client gets httpds defaults.
func Resolve(location string, client *httpds.Client) (Source, error) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return nil, fmt.Errorf("datasource: empty location")
	}
	lower := strings.ToLower(loc)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if client == nil {
			client = httpds.NewClient(httpds.Config{})
		}
		return httpds.NewSource(client, loc), nil
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("datasource: %w", err)
		}
		return file.NewLocal(u.Path), nil
	case strings.Contains(lower, "://"):
		return nil, fmt.Errorf("datasource: unsupported scheme in %q", loc)
	}
	return file.NewLocal(loc), nil
}

// Open resolves location and opens it.
func Open(ctx context.Context, location string, client *httpds.Client) (io.ReadCloser, error) {
	src, err := Resolve(location, client)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx)
}
