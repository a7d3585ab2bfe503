//go:build !unix

package transport

// setSocketOptions is a no-op on platforms without the x/sys/unix
// socket-control hook; net.Dialer's own KeepAlive field still applies.
func setSocketOptions(fd uintptr) error { return nil }
