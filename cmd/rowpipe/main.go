// Command rowpipe runs streaming row pipelines: CSV or SQL sources, decorator
// steps, destination mapping and bulk loading into PostgreSQL, SQL Server or
// SQLite. It also infers CREATE TABLE statements from sampled CSV files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "rowpipe/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
