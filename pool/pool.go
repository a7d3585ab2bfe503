// Package pool manages a bounded set of connections to a single
// Redis-compatible endpoint, dedicating one of them to host every
// pool-level subscription (a connection in PubSub mode cannot serve
// arbitrary commands, so subscriptions must share a lease).
package pool

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"mredis/conn"
	"mredis/resp"
)

// Pool dials, leases, and reclaims connections to cfg.Address.
type Pool struct {
	cfg Config

	mu                sync.Mutex
	free              []*conn.Connection
	leased            map[*conn.Connection]struct{}
	pubsubConn        *conn.Connection
	reconnectAttempts int
	closed            bool

	metrics *metrics
}

// New constructs a Pool against cfg. reg may be nil, in which case the
// pool runs without metrics. It does not dial any connections eagerly —
// the first Lease or Subscribe call creates the first one.
func New(cfg Config, reg prometheus.Registerer) *Pool {
	full := DefaultConfig(cfg)
	return &Pool{
		cfg:     full,
		leased:  make(map[*conn.Connection]struct{}),
		metrics: newMetrics(reg, full.Address),
	}
}

// LeasedConnectionCount reports how many connections are currently
// leased out (including the pub-sub lease, if active).
func (p *Pool) LeasedConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leased)
}

// OpenConnectionCount reports how many connections are currently open,
// whether free or leased.
func (p *Pool) OpenConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free) + len(p.leased)
}

// ReconnectAttempts reports how many times this pool has retried a dial
// since it was created.
func (p *Pool) ReconnectAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reconnectAttempts
}

// EnsureMinimum lazily dials connections into the free set until the pool
// holds at least MinimumConnectionCount open connections.
func (p *Pool) EnsureMinimum(ctx context.Context) error {
	for {
		p.mu.Lock()
		short := p.cfg.MinimumConnectionCount - (len(p.free) + len(p.leased))
		p.mu.Unlock()
		if short <= 0 {
			return nil
		}
		c, err := p.dial(ctx)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.free = append(p.free, c)
		p.metrics.setOpen(len(p.free) + len(p.leased))
		p.mu.Unlock()
	}
}

// Lease returns an open connection, dialing a fresh one (with backoff
// retries bounded by ConnectionRetryTimeout) if the free set is empty and
// the pool has not reached MaximumConnectionCount.
func (p *Pool) Lease(ctx context.Context) (*conn.Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		p.leased[c] = struct{}{}
		p.metrics.setLeased(len(p.leased))
		p.mu.Unlock()
		return c, nil
	}
	if len(p.leased)+len(p.free) >= p.cfg.MaximumConnectionCount {
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.leased[c] = struct{}{}
	p.metrics.setLeased(len(p.leased))
	p.metrics.setOpen(len(p.free) + len(p.leased))
	p.mu.Unlock()
	return c, nil
}

// Release returns c to the free set, or closes it if the pool has since
// been closed.
func (p *Pool) Release(c *conn.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.leased, c)
	p.metrics.setLeased(len(p.leased))
	if p.closed {
		_ = c.Close()
		p.metrics.setOpen(len(p.free) + len(p.leased))
		return
	}
	p.free = append(p.free, c)
}

// dial opens a fresh connection to cfg.Address, retrying with exponential
// backoff until ConnectionRetryTimeout elapses.
func (p *Pool) dial(ctx context.Context) (*conn.Connection, error) {
	deadline := time.Now().Add(p.cfg.ConnectionRetryTimeout)
	delay := p.cfg.InitialConnectionBackoffDelay
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			p.mu.Lock()
			p.reconnectAttempts++
			p.metrics.incReconnect()
			p.mu.Unlock()
		}
		netConn, err := p.cfg.TCPClient.Dial(ctx, "tcp", p.cfg.Address)
		if err == nil {
			return conn.New(netConn, conn.WithLogger(p.cfg.ConnectionDefaultLogger)), nil
		}
		if time.Now().Add(delay).After(deadline) {
			return nil, ErrRetryTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(math.Min(
			float64(delay)*p.cfg.ConnectionBackoffFactor,
			float64(p.cfg.ConnectionRetryTimeout),
		))
	}
}

// acquirePubSubLease returns the pool's single dedicated subscription
// connection, leasing (and if necessary dialing) one on first use.
func (p *Pool) acquirePubSubLease(ctx context.Context) (*conn.Connection, error) {
	p.mu.Lock()
	if p.pubsubConn != nil {
		c := p.pubsubConn
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.Lease(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.pubsubConn = c
	p.mu.Unlock()
	return c, nil
}

// releasePubSubLeaseIfIdle returns the pub-sub connection to the free set
// once it has dropped every subscription (Normal state again).
func (p *Pool) releasePubSubLeaseIfIdle(c *conn.Connection) {
	p.mu.Lock()
	if p.pubsubConn != c || c.IsSubscribed() {
		p.mu.Unlock()
		return
	}
	p.pubsubConn = nil
	p.mu.Unlock()
	p.Release(c)
}

// Subscribe subscribes on the pool's pub-sub lease connection, leasing it
// first if no pool-level subscription is currently active.
func (p *Pool) Subscribe(ctx context.Context, channels [][]byte, onMessage conn.MessageReceiver, onSubscribe, onUnsubscribe conn.ConfirmReceiver) (*conn.Future, error) {
	c, err := p.acquirePubSubLease(ctx)
	if err != nil {
		return nil, err
	}
	return c.Subscribe(channels, onMessage, onSubscribe, p.wrapUnsubscribe(c, onUnsubscribe))
}

// PSubscribe is the pattern-subscription analogue of Subscribe.
func (p *Pool) PSubscribe(ctx context.Context, patterns [][]byte, onMessage conn.MessageReceiver, onSubscribe, onUnsubscribe conn.ConfirmReceiver) (*conn.Future, error) {
	c, err := p.acquirePubSubLease(ctx)
	if err != nil {
		return nil, err
	}
	return c.PSubscribe(patterns, onMessage, onSubscribe, p.wrapUnsubscribe(c, onUnsubscribe))
}

func (p *Pool) wrapUnsubscribe(c *conn.Connection, onUnsubscribe conn.ConfirmReceiver) conn.ConfirmReceiver {
	return func(name []byte, count int64) {
		if onUnsubscribe != nil {
			onUnsubscribe(name, count)
		}
		p.releasePubSubLeaseIfIdle(c)
	}
}

// Unsubscribe unsubscribes on the pool's pub-sub lease. When no pool-level
// subscription is active it is a local no-op (Open Question, DESIGN.md):
// it neither leases a connection nor performs a round trip.
func (p *Pool) Unsubscribe(channels [][]byte) (*conn.Future, error) {
	p.mu.Lock()
	c := p.pubsubConn
	p.mu.Unlock()
	if c == nil {
		return conn.Resolved(resp.Value{}, nil), nil
	}
	return c.Unsubscribe(channels)
}

// PUnsubscribe is the pattern-subscription analogue of Unsubscribe.
func (p *Pool) PUnsubscribe(patterns [][]byte) (*conn.Future, error) {
	p.mu.Lock()
	c := p.pubsubConn
	p.mu.Unlock()
	if c == nil {
		return conn.Resolved(resp.Value{}, nil), nil
	}
	return c.PUnsubscribe(patterns)
}

// Do leases a connection, runs command on it, and releases it back to the
// free set regardless of outcome.
func (p *Pool) Do(ctx context.Context, command string, args ...[]byte) (resp.Value, error) {
	c, err := p.Lease(ctx)
	if err != nil {
		return resp.Value{}, err
	}
	defer p.Release(c)
	return c.Do(ctx, command, args...)
}

// Close tears down every open connection and aggregates their individual
// close errors with multierr rather than reporting only the first.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	all := append([]*conn.Connection{}, p.free...)
	for c := range p.leased {
		all = append(all, c)
	}
	p.free = nil
	p.leased = make(map[*conn.Connection]struct{})
	p.pubsubConn = nil
	p.mu.Unlock()

	var err error
	for _, c := range all {
		err = multierr.Append(err, c.Close())
	}
	p.metrics.setLeased(0)
	p.metrics.setOpen(0)
	return err
}
