package storage

import (
	"context"

	"rowpipe/internal/ddl"
)

// Sink is the part of Repository a backend implements itself; the release
// function returned by its Opener supplies Close.
type Sink interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string) error
}

// Opener connects a backend sink and returns the function that releases it.
type Opener func(ctx context.Context, cfg Config) (Sink, func(), error)

// RegisterBackend registers open under kind together with a CREATE TABLE
// bootstrapper rendering in dialect d.
func RegisterBackend(kind string, d ddl.Dialect, open Opener) {
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		s, release, err := open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &boundRepo{Sink: s, release: release}, nil
	})
	RegisterDDL(kind, CreateTable(d))
}

type boundRepo struct {
	Sink
	release func()
}

func (b *boundRepo) Close() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
}

// Unwrap returns the backend sink behind a Repository opened through
// RegisterBackend, or nil.
func Unwrap(r Repository) Sink {
	if b, ok := r.(*boundRepo); ok {
		return b.Sink
	}
	return nil
}
