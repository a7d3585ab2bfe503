//go:build unix

package transport

import "golang.org/x/sys/unix"

// setSocketOptions enables TCP_NODELAY so small pipelined command frames
// aren't held back by Nagle's algorithm, and turns on SO_KEEPALIVE so a
// dead peer is noticed rather than via a stuck write. The keepalive period
// itself comes from net.Dialer's KeepAlive field, not from this function.
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}
	return nil
}
