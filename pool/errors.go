package pool

import "errors"

var (
	// ErrPoolClosed is returned by any lease attempt after Close.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrExhausted is returned when every connection is leased and the
	// pool is already at maximumConnectionCount.
	ErrExhausted = errors.New("pool: no connections available")
	// ErrRetryTimeout is returned when dialing a fresh connection keeps
	// failing past connectionRetryTimeout.
	ErrRetryTimeout = errors.New("pool: connect retry timeout exceeded")
)
