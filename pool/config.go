package pool

import (
	"time"

	"mredis/lib/logger"
	"mredis/transport"
)

// Config enumerates everything a Pool needs to dial and manage a set of
// connections to a single endpoint. DefaultConfig replaces unset or
// out-of-range backoff, retry-timeout, maximum-count, logger and dialer
// settings with defaults; Address and ConnectionPassword are kept as
// given, and MinimumConnectionCount only has a negative value raised to 0.
type Config struct {
	// Address is the host:port the pool dials.
	Address string

	InitialConnectionBackoffDelay time.Duration
	ConnectionBackoffFactor       float64
	ConnectionRetryTimeout        time.Duration

	MaximumConnectionCount int
	MinimumConnectionCount int

	ConnectionPassword string

	ConnectionDefaultLogger logger.Logger

	// TCPClient dials new connections. A nil value falls back to
	// transport.Default(), which applies TCP_NODELAY/keepalive tuning.
	TCPClient transport.Dialer
}

// DefaultConfig returns a Config with conservative defaults for every
// field left unset in cfg, without mutating cfg itself.
func DefaultConfig(cfg Config) Config {
	out := cfg
	if out.InitialConnectionBackoffDelay <= 0 {
		out.InitialConnectionBackoffDelay = 50 * time.Millisecond
	}
	if out.ConnectionBackoffFactor <= 1 {
		out.ConnectionBackoffFactor = 2
	}
	if out.ConnectionRetryTimeout <= 0 {
		out.ConnectionRetryTimeout = 5 * time.Second
	}
	if out.MaximumConnectionCount <= 0 {
		out.MaximumConnectionCount = 10
	}
	if out.MinimumConnectionCount < 0 {
		out.MinimumConnectionCount = 0
	}
	if out.ConnectionDefaultLogger == nil {
		out.ConnectionDefaultLogger = logger.NewNop()
	}
	if out.TCPClient == nil {
		out.TCPClient = transport.Default()
	}
	return out
}
