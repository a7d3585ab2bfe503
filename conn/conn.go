// Package conn implements the connection state machine: pipelined
// request/reply correlation over a single duplex byte stream, and the
// transition into and out of Pub/Sub mode that protects subscription
// callbacks from interleaving with ordinary command replies.
package conn

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"mredis/datastruct/list"
	"mredis/lib/logger"
	atomicflag "mredis/lib/sync/atomic"
	"mredis/lib/sync/wait"
	"mredis/resp"
)

// readLoopShutdown bounds how long Close waits for the read loop
// goroutine to observe the socket close and exit.
const readLoopShutdown = 2 * time.Second

// quitWriteBound bounds how long Close's best-effort QUIT may block on
// the socket write before the connection is torn down anyway.
const quitWriteBound = 500 * time.Millisecond

type pendingRequest struct {
	fut *Future
	id  string
}

// Connection owns one duplex byte stream to a Redis-compatible server.
// Writes happen on the calling goroutine; all reads, frame dispatch, and
// user-callback invocation happen on a single internal goroutine (the
// read loop), which is what gives
// callback delivery its per-connection serialization (I5) without a
// separate executor abstraction.
type Connection struct {
	mu      sync.Mutex
	netConn net.Conn
	state   State
	closed  atomicflag.Boolean

	pending list.List[*pendingRequest]
	tracker *tracker

	nullChannelWaiters list.List[*subscribeCall]
	nullPatternWaiters list.List[*subscribeCall]

	parser *resp.Parser
	log    logger.Logger

	id      string
	readWg  wait.Wait
}

// Option customizes a newly constructed Connection.
type Option func(*Connection)

// WithLogger overrides the default no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Connection) { c.log = l }
}

// New wraps netConn in a Connection, starting in Normal state, and
// launches its read loop.
func New(netConn net.Conn, opts ...Option) *Connection {
	c := &Connection{
		netConn: netConn,
		state:   Normal,
		tracker: newTracker(),
		parser:  resp.NewParser(),
		log:     logger.NewNop(),
	}
	c.id = fingerprint(netConn.RemoteAddr().String(), nextConnSeq())
	for _, opt := range opts {
		opt(c)
	}
	c.readWg.Add(1)
	go c.readLoop()
	return c
}

// ID returns the connection's log-correlation fingerprint. It never
// appears on the wire.
func (c *Connection) ID() string { return c.id }

// IsSubscribed reports whether the connection is in PubSub state (I4):
// true from the moment a SUBSCRIBE/PSUBSCRIBE is written, before the
// server confirms it, until an unsubscribe push leaves both subscription
// maps empty.
func (c *Connection) IsSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == PubSub
}

// State returns the connection's current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send encodes command and its arguments as a RESP array of bulk
// strings, writes it to the socket, and returns a Future for the next
// non-push reply. Two Send calls from the same caller complete in call
// order (I1) because replies are matched FIFO.
func (c *Connection) Send(command string, args ...[]byte) (*Future, error) {
	if c.closed.Get() {
		return nil, ErrConnectionClosed
	}

	full := make([][]byte, 0, len(args)+1)
	full = append(full, []byte(command))
	full = append(full, args...)
	wire := resp.EncodeCommand(full...)

	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	if c.state == PubSub && !allowedInPubSub(command) {
		c.mu.Unlock()
		return nil, ErrPubSubModeViolation
	}

	fut := newFuture()
	c.pending.PushBack(&pendingRequest{fut: fut, id: newRequestID()})

	_, err := c.netConn.Write(wire)
	if err != nil {
		c.mu.Unlock()
		c.teardown(err)
		return nil, err
	}
	c.mu.Unlock()
	return fut, nil
}

// Do is a convenience wrapper combining Send and Future.Wait.
func (c *Connection) Do(ctx context.Context, command string, args ...[]byte) (resp.Value, error) {
	fut, err := c.Send(command, args...)
	if err != nil {
		return resp.Value{}, err
	}
	return fut.Wait(ctx)
}

// Ping sends PING, optionally with a payload, which the allowlist
// permits even while the connection is in PubSub mode.
func (c *Connection) Ping(ctx context.Context, payload []byte) (resp.Value, error) {
	if payload == nil {
		return c.Do(ctx, "PING")
	}
	return c.Do(ctx, "PING", payload)
}

// Publish sends PUBLISH and decodes the integer reply as the number of
// subscribers that received the message.
func (c *Connection) Publish(ctx context.Context, channel, payload []byte) (int64, error) {
	v, err := c.Do(ctx, "PUBLISH", channel, payload)
	if err != nil {
		return 0, err
	}
	if v.IsError() {
		return 0, &ServerError{Message: v.AsError()}
	}
	return v.Int, nil
}

// Subscribe writes SUBSCRIBE for the given channels, registers their
// callbacks, and transitions Normal -> PubSub immediately (I3). The
// returned Future resolves once the server has confirmed every channel.
func (c *Connection) Subscribe(channels [][]byte, onMessage MessageReceiver, onSubscribe, onUnsubscribe ConfirmReceiver) (*Future, error) {
	return c.subscribeGeneric("SUBSCRIBE", kindChannel, channels, onMessage, onSubscribe, onUnsubscribe)
}

// PSubscribe is the pattern-subscription analogue of Subscribe.
func (c *Connection) PSubscribe(patterns [][]byte, onMessage MessageReceiver, onSubscribe, onUnsubscribe ConfirmReceiver) (*Future, error) {
	return c.subscribeGeneric("PSUBSCRIBE", kindPattern, patterns, onMessage, onSubscribe, onUnsubscribe)
}

func (c *Connection) subscribeGeneric(cmd string, k entryKind, names [][]byte, onMessage MessageReceiver, onSubscribe, onUnsubscribe ConfirmReceiver) (*Future, error) {
	if len(names) == 0 {
		return nil, errors.New("conn: subscribe requires at least one channel or pattern")
	}
	if c.closed.Get() {
		return nil, ErrConnectionClosed
	}
	full := make([][]byte, 0, len(names)+1)
	full = append(full, []byte(cmd))
	full = append(full, names...)
	wire := resp.EncodeCommand(full...)

	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	fut := newFuture()
	call := &subscribeCall{remaining: len(names), fut: fut}
	for _, n := range names {
		c.tracker.addPending(&subEntry{
			kind:          k,
			name:          append([]byte{}, n...),
			onMessage:     onMessage,
			onSubscribe:   onSubscribe,
			onUnsubscribe: onUnsubscribe,
			call:          call,
		})
	}

	_, err := c.netConn.Write(wire)
	if err != nil {
		c.mu.Unlock()
		c.teardown(err)
		return nil, err
	}
	if c.state == Normal {
		c.state = PubSub
	}
	c.mu.Unlock()
	return fut, nil
}

// Unsubscribe writes UNSUBSCRIBE. An empty channels list unsubscribes
// from every currently-held channel subscription; pattern subscriptions
// are unaffected (I3). The returned Future resolves once every expected
// unsubscribe push has arrived.
func (c *Connection) Unsubscribe(channels [][]byte) (*Future, error) {
	return c.unsubscribeGeneric("UNSUBSCRIBE", kindChannel, channels)
}

// PUnsubscribe is the pattern-subscription analogue of Unsubscribe.
func (c *Connection) PUnsubscribe(patterns [][]byte) (*Future, error) {
	return c.unsubscribeGeneric("PUNSUBSCRIBE", kindPattern, patterns)
}

func (c *Connection) unsubscribeGeneric(cmd string, k entryKind, names [][]byte) (*Future, error) {
	if c.closed.Get() {
		return nil, ErrConnectionClosed
	}
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	if len(names) == 0 {
		names = c.tracker.confirmedNames(k)
	}

	full := make([][]byte, 0, len(names)+1)
	full = append(full, []byte(cmd))
	full = append(full, names...)
	wire := resp.EncodeCommand(full...)

	fut := newFuture()
	if len(names) == 0 {
		// No current subscriptions of this kind: the server still answers
		// with a single push whose name field is null (see DESIGN.md, Open
		// Question). The spec treats that push as a no-op, but the Future
		// still resolves once it arrives.
		call := &subscribeCall{remaining: 1, fut: fut}
		if k == kindChannel {
			c.nullChannelWaiters.PushBack(call)
		} else {
			c.nullPatternWaiters.PushBack(call)
		}
	} else {
		call := &subscribeCall{remaining: len(names), fut: fut}
		for _, n := range names {
			if !c.tracker.attachCall(k, n, call) {
				// Unsubscribing from a name we never subscribed to: Redis
				// still replies with a confirming push for it, so stage a
				// placeholder entry purely to catch that confirmation.
				c.tracker.addPending(&subEntry{kind: k, name: append([]byte{}, n...), call: call})
			}
		}
	}

	_, err := c.netConn.Write(wire)
	if err != nil {
		c.mu.Unlock()
		c.teardown(err)
		return nil, err
	}
	c.mu.Unlock()
	return fut, nil
}

// Close best-effort sends QUIT, then tears the connection down.
// Subsequent operations fail with ErrConnectionClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	alreadyClosed := c.state == Closed
	c.mu.Unlock()
	if alreadyClosed {
		return nil
	}
	_ = c.netConn.SetWriteDeadline(time.Now().Add(quitWriteBound))
	_, _ = c.Send("QUIT")
	err := c.teardown(ErrConnectionClosed)
	if c.readWg.WaitWithTimeout(readLoopShutdown) {
		c.log.Warnw("read loop did not exit within shutdown bound", "id", c.id)
	}
	return err
}

// teardown moves the connection to Closed, fails every pending request
// with cause, and closes the socket. Unsubscribe callbacks are
// deliberately not synthesized for entries still tracked at teardown
// time — tearing down a connection is not a logical unsubscribe.
func (c *Connection) teardown(cause error) error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	c.state = Closed
	c.closed.Set(true)

	var failed []*pendingRequest
	for {
		pr, ok := c.pending.PopFront()
		if !ok {
			break
		}
		failed = append(failed, pr)
	}
	c.mu.Unlock()

	for _, pr := range failed {
		pr.fut.resolve(resp.Value{}, cause)
	}

	c.log.Warnw("connection closed", "id", c.id, "cause", cause)
	return c.netConn.Close()
}

func (c *Connection) readLoop() {
	defer c.readWg.Done()
	buf := make([]byte, 8192)
	for {
		n, err := c.netConn.Read(buf)
		if n > 0 {
			c.parser.Feed(buf[:n])
			for {
				v, ok, perr := c.parser.Next()
				if perr != nil {
					c.teardown(perr)
					return
				}
				if !ok {
					break
				}
				c.dispatch(v)
			}
		}
		if err != nil {
			c.teardown(err)
			return
		}
	}
}

func isPushFrameValue(v resp.Value) bool {
	if v.Kind != resp.Array || len(v.Array) == 0 {
		return false
	}
	head := v.Array[0]
	if head.Kind != resp.BulkString || head.Bulk == nil {
		return false
	}
	return isPushFrame(head.Bulk)
}

func (c *Connection) dispatch(v resp.Value) {
	if isPushFrameValue(v) {
		c.dispatchPush(v)
		return
	}

	c.mu.Lock()
	pr, ok := c.pending.PopFront()
	c.mu.Unlock()
	if !ok {
		c.log.Warnw("reply with no pending request", "id", c.id, "value", v.String())
		return
	}
	if v.IsError() {
		pr.fut.resolve(v, &ServerError{Message: v.AsError()})
		return
	}
	pr.fut.resolve(v, nil)
}

func (c *Connection) dispatchPush(v resp.Value) {
	name := strings.ToLower(string(v.Array[0].Bulk))
	switch name {
	case "message":
		channel := v.Array[1].Bulk
		payload := v.Array[2].Bulk
		c.mu.Lock()
		e, ok := c.tracker.channels[string(channel)]
		c.mu.Unlock()
		if ok && e.onMessage != nil {
			e.onMessage(channel, channel, payload)
		}

	case "pmessage":
		pattern := v.Array[1].Bulk
		channel := v.Array[2].Bulk
		payload := v.Array[3].Bulk
		c.mu.Lock()
		e, ok := c.tracker.patterns[string(pattern)]
		c.mu.Unlock()
		if ok && e.onMessage != nil {
			e.onMessage(pattern, channel, payload)
		}

	case "subscribe", "psubscribe":
		k := kindChannel
		if name == "psubscribe" {
			k = kindPattern
		}
		nameBytes := v.Array[1].Bulk
		count := v.Array[2].Int
		c.mu.Lock()
		e, ok := c.tracker.confirmSubscribe(k, nameBytes)
		c.mu.Unlock()
		if !ok {
			return
		}
		if e.onSubscribe != nil {
			e.onSubscribe(nameBytes, count)
		}
		if e.call != nil {
			e.call.confirmOne()
		}

	case "unsubscribe", "punsubscribe":
		k := kindChannel
		if name == "punsubscribe" {
			k = kindPattern
		}
		nameElem := v.Array[1]
		count := v.Array[2].Int

		if nameElem.IsNilBulk() {
			c.mu.Lock()
			call := c.popNullWaiter(k)
			c.mu.Unlock()
			if call != nil {
				call.confirmOne()
			}
			return
		}

		nameBytes := nameElem.Bulk
		c.mu.Lock()
		e, ok := c.tracker.confirmUnsubscribe(k, nameBytes)
		if ok && !c.tracker.isSubscribed() && c.state == PubSub {
			c.state = Normal
		}
		c.mu.Unlock()
		if !ok {
			return
		}
		if e.onUnsubscribe != nil {
			e.onUnsubscribe(nameBytes, count)
		}
		if e.call != nil {
			e.call.confirmOne()
		}
	}
}

func (c *Connection) popNullWaiter(k entryKind) *subscribeCall {
	if k == kindChannel {
		call, ok := c.nullChannelWaiters.PopFront()
		if !ok {
			return nil
		}
		return call
	}
	call, ok := c.nullPatternWaiters.PopFront()
	if !ok {
		return nil
	}
	return call
}
