// Package transport supplies the pool's default dialer. Connections
// themselves only need a net.Conn; this package is where the knobs for
// getting one live.
package transport

import (
	"context"
	"net"
	"syscall"
	"time"
)

// Dialer is the pool's "tcpClient" config field: anything that can turn
// an address into a duplex byte stream. Callers that need TLS supply
// their own Dialer that wraps the net.Conn returned by a plain dial.
type Dialer interface {
	Dial(ctx context.Context, network, addr string) (net.Conn, error)
}

// Default returns the library's default Dialer: a net.Dialer tuned for a
// long-lived, pipelined socket (TCP_NODELAY, modest keepalive), applied
// through the platform's socket-control hook where available.
func Default() Dialer {
	return &netDialer{
		d: net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   tuneSocket,
		},
	}
}

type netDialer struct {
	d net.Dialer
}

func (n *netDialer) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	return n.d.DialContext(ctx, network, addr)
}

// tuneSocket is invoked by net.Dialer before connect(2) and sets options
// that matter for a socket that will carry many small pipelined frames
// rather than a handful of large transfers.
func tuneSocket(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = setSocketOptions(fd)
	})
	if err != nil {
		return err
	}
	return sockErr
}
