package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rowpipe/internal/rows"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows aligned to columns and return the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered. A progress line is logged on every
// successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	logger *slog.Logger,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			logger.Error("loader: copy failed", "inserted", n, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		logger.Info("loader: batch",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total_inserted", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				logger.Info("loader: input closed", "batches", batches, "total_inserted", total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// Load drains cur into copyFn in batches of batchSize. When columns is nil
// the cursor's own names are used, resolved after the first Read so lazily
// discovered headers work. Reading runs on its own goroutine and hands copies
// of each row to LoadBatches; cur is not closed.
func Load(
	ctx context.Context,
	cur rows.Cursor,
	columns []string,
	batchSize int,
	copyFn CopyFn,
	logger *slog.Logger,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	ok, err := cur.Read()
	if err != nil {
		return 0, fmt.Errorf("load: read: %w", err)
	}
	if !ok {
		return 0, nil
	}
	if columns == nil {
		if columns, err = rows.Names(cur); err != nil {
			return 0, fmt.Errorf("load: names: %w", err)
		}
	}
	width := len(columns)

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(ch)
		for {
			row := make([]any, width)
			if _, err := cur.Values(row); err != nil {
				return fmt.Errorf("load: row %d: %w", cur.Depth(), err)
			}
			select {
			case ch <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
			ok, err := cur.Read()
			if err != nil {
				return fmt.Errorf("load: read: %w", err)
			}
			if !ok {
				return nil
			}
		}
	})

	var total int64
	g.Go(func() error {
		n, err := LoadBatches(gctx, columns, ch, batchSize, copyFn, logger)
		total = n
		return err
	})

	err = g.Wait()
	return total, err
}
