package rows

// Deferred holds a value that is computed on first use and memoized,
// including a failed computation's error. It is not safe for concurrent use;
// cursors are single-consumer.
type Deferred[T any] struct {
	fn   func() (T, error)
	done bool
	val  T
	err  error
}

// Defer returns a Deferred that runs fn at most once.
func Defer[T any](fn func() (T, error)) *Deferred[T] {
	return &Deferred[T]{fn: fn}
}

// Get computes the value on the first call and returns the memoized result
// afterwards.
func (d *Deferred[T]) Get() (T, error) {
	if !d.done {
		d.val, d.err = d.fn()
		d.done = true
		d.fn = nil
	}
	return d.val, d.err
}

// Resolved reports whether Get has already run.
func (d *Deferred[T]) Resolved() bool { return d.done }
