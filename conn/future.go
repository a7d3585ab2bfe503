package conn

import (
	"context"

	"mredis/resp"
)

// Future is the handle a caller holds for a reply that has not arrived
// yet. It is resolved exactly once: by the connection's read loop when
// its reply or confirming push arrives, or, for a pending request, by
// teardown on whichever goroutine closes the connection. The read loop
// is the only goroutine that ever invokes a user callback, which keeps
// callback delivery serialized per connection (I5) without any separate
// scheduler abstraction.
type Future struct {
	done chan struct{}
	val  resp.Value
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future that is already complete, for callers that
// need to satisfy a Future-returning contract without a round trip (the
// pool's no-lease unsubscribe no-op, see DESIGN.md).
func Resolved(v resp.Value, err error) *Future {
	f := newFuture()
	f.resolve(v, err)
	return f
}

func (f *Future) resolve(v resp.Value, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Wait blocks until the future resolves or ctx is done. Dropping a
// Future without calling Wait does not cancel the in-flight command —
// the connection's read loop still consumes and discards its reply from
// the pending-request FIFO when it arrives.
func (f *Future) Wait(ctx context.Context) (resp.Value, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return resp.Value{}, ErrTimeout
	}
}
