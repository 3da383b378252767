package pipeline

import "rowpipe/internal/rows"

// Limited stops after a fixed number of yielded rows.
type Limited struct {
	forward
	max   int
	count int
}

// Limit yields at most n rows of inner. A negative n means no cap. Reaching
// the cap does not close inner; that is left to Close.
func Limit(inner rows.Cursor, n int) *Limited {
	return &Limited{forward: forward{inner: inner}, max: n}
}

func (l *Limited) Read() (bool, error) {
	if l.closed {
		return false, rows.ErrCursorClosed
	}
	if l.max >= 0 && l.count >= l.max {
		return false, nil
	}
	ok, err := l.inner.Read()
	if ok {
		l.count++
	}
	return ok, err
}

func (l *Limited) Depth() int { return l.count }

// Counted forwards every row and counts them.
type Counted struct {
	forward
	count int
}

// Count wraps inner with a row counter.
func Count(inner rows.Cursor) *Counted {
	return &Counted{forward: forward{inner: inner}}
}

func (c *Counted) Read() (bool, error) {
	ok, err := c.forward.Read()
	if ok {
		c.count++
	}
	return ok, err
}

// Count returns the number of rows read so far.
func (c *Counted) Count() int { return c.count }

// Notifier counts rows and reports progress through a callback.
type Notifier struct {
	forward
	every    int
	fn       func(count int)
	count    int
	last     int
	finished bool
}

// Notify calls fn(count) after every row whose count is a multiple of every,
// and once more with the final count when the input ends (or the cursor is
// closed early) on a count that was not already reported. every <= 0 reports
// each row. fn runs synchronously on the reading goroutine.
func Notify(inner rows.Cursor, every int, fn func(count int)) *Notifier {
	if every <= 0 {
		every = 1
	}
	return &Notifier{forward: forward{inner: inner}, every: every, fn: fn}
}

func (n *Notifier) Read() (bool, error) {
	ok, err := n.forward.Read()
	if err != nil {
		return false, err
	}
	if !ok {
		n.finish()
		return false, nil
	}
	n.count++
	if n.count%n.every == 0 {
		n.last = n.count
		n.fn(n.count)
	}
	return true, nil
}

func (n *Notifier) Close() error {
	if !n.closed {
		n.finish()
	}
	return n.forward.Close()
}

// Count returns the number of rows read so far.
func (n *Notifier) Count() int { return n.count }

func (n *Notifier) finish() {
	if n.finished {
		return
	}
	n.finished = true
	if n.count != n.last {
		n.last = n.count
		n.fn(n.count)
	}
}
