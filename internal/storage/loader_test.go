package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"rowpipe/internal/rows"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts. It also checks the total equals the sum of
// all successful copyFn returns.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	columns := []string{"c1", "c2"}

	in := make(chan []any, 8)
	for i := 0; i < 7; i++ {
		in <- []any{i, "x"}
	}
	close(in)

	var calls int32
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(ctx, columns, in, 3, copyFn, quiet)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("copyFn calls %d, want 3 (3+3+1)", got)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is propagated
// and processing stops after that batch.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	columns := []string{"c"}

	in := make(chan []any, 5)
	for i := 0; i < 5; i++ {
		in <- []any{i}
	}
	close(in)

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return int64(len(rows)), wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(ctx, columns, in, 2, copyFn, quiet)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	// Total must include rows from successful batches (at least the first 2).
	if total < 4 {
		t.Fatalf("total rows %d, want >= 4", total)
	}
}

// TestLoadBatches_ContextCancel checks the loader exits on context cancellation.
func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	columns := []string{"c"}
	in := make(chan []any, 1)
	in <- []any{1}

	// copyFn sleeps to simulate slow I/O; cancel triggers early exit.
	copyFn := func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(2 * time.Second):
			return int64(len(rows)), nil
		}
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := LoadBatches(ctx, columns, in, 2, copyFn, quiet)
		errCh <- err
	}()

	cancel() // cancel promptly
	close(in)

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected cancellation error, got nil")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LoadBatches did not return after context cancel")
	}
}

// TestLoad_FromCursor drains an in-memory cursor and checks batches carry the
// cursor's column names and row values in order.
func TestLoad_FromCursor(t *testing.T) {
	t.Parallel()

	cur, err := rows.FromStrings([]string{"id", "name"},
		[]string{"1", "ann"},
		[]string{"2", "bob"},
		[]string{"3", "cy"},
	)
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}

	var gotCols []string
	var got [][]any
	copyFn := func(_ context.Context, cols []string, batch [][]any) (int64, error) {
		gotCols = cols
		for _, r := range batch {
			got = append(got, append([]any(nil), r...))
		}
		return int64(len(batch)), nil
	}

	total, err := Load(context.Background(), cur, nil, 2, copyFn, quiet)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if !reflect.DeepEqual(gotCols, []string{"id", "name"}) {
		t.Fatalf("columns = %v", gotCols)
	}
	want := [][]any{{"1", "ann"}, {"2", "bob"}, {"3", "cy"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
	if cur.IsClosed() {
		t.Fatalf("Load must not close the cursor")
	}
}

// TestLoad_Empty returns zero without calling copyFn.
func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	cur, err := rows.NewMemory([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	copyFn := func(context.Context, []string, [][]any) (int64, error) {
		t.Fatal("copyFn called for empty cursor")
		return 0, nil
	}
	total, err := Load(context.Background(), cur, nil, 10, copyFn, quiet)
	if err != nil || total != 0 {
		t.Fatalf("Load = %d, %v; want 0, nil", total, err)
	}
}

// TestLoad_CopyErrorStopsReader surfaces the sink failure even though the
// producer still has rows to send.
func TestLoad_CopyErrorStopsReader(t *testing.T) {
	t.Parallel()

	data := make([][]any, 100)
	for i := range data {
		data[i] = []any{int64(i)}
	}
	cur, err := rows.NewMemory([]string{"n"}, data)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	wantErr := errors.New("disk full")
	copyFn := func(context.Context, []string, [][]any) (int64, error) {
		return 0, wantErr
	}
	_, err = Load(context.Background(), cur, []string{"n"}, 5, copyFn, quiet)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want %v, got %v", wantErr, err)
	}
}

// TestLoad_RejectsBadBatchSize fails before touching the cursor.
func TestLoad_RejectsBadBatchSize(t *testing.T) {
	t.Parallel()

	cur, _ := rows.FromStrings([]string{"a"}, []string{"x"})
	if _, err := Load(context.Background(), cur, nil, 0, nil, quiet); err == nil {
		t.Fatal("expected error for batchSize 0")
	}
	if cur.Depth() != 0 {
		t.Fatalf("cursor advanced to depth %d", cur.Depth())
	}
}
