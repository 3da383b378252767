package mssql

import (
	"context"

	"rowpipe/internal/ddl"
	"rowpipe/internal/storage"
)

// newRepository is replaced in tests to avoid a live connection.
var newRepository = NewRepository

func init() {
	storage.RegisterBackend("mssql", ddl.SQLServer, func(ctx context.Context, cfg storage.Config) (storage.Sink, func(), error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table, Columns: cfg.Columns})
		if err != nil {
			return nil, nil, err
		}
		return r, closeFn, nil
	})
}
