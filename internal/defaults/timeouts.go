package defaults

import "time"

const (
	// ConnectTimeout is the default timeout for establishing a TCP connection.
	ConnectTimeout = 10 * time.Second
	// HandshakeTimeout is the default timeout for completing the TLS handshake.
	HandshakeTimeout = 10 * time.Second
	// ShutdownTimeout is the default grace period for draining a bound server.
	ShutdownTimeout = 5 * time.Second
)
