// Package transport implements the three connection variants of §4.3:
// a spawned stdio child, a filesystem-pathed Unix socket, and a Linux
// abstract-namespace Unix socket discovered via internal/transport/procnet.
package transport

import (
	"context"
	"io"

	"zynx/internal/codec"
)

// Connection is an ephemeral byte stream, valid for the duration of a
// single two-phase exchange (§3). It composes the codec's framing Stream
// with io.Closer so adapters can use it directly with codec.WriteMsg/
// ReadMsg and release it afterward.
type Connection interface {
	codec.Stream
	io.Closer
}

// Transport is the uniform open/close abstraction of §4.3.
type Transport interface {
	// Open establishes (or, for Stdio, leases) a Connection for one
	// exchange.
	Open(ctx context.Context) (Connection, error)

	// Close releases a Connection obtained from Open. For socket
	// variants this closes the underlying socket; for Stdio it only
	// releases the lease — the child's pipes stay open across
	// exchanges.
	Close(conn Connection) error

	// Teardown permanently releases any resources the transport holds
	// across exchanges (the Stdio child process). Socket variants have
	// nothing to tear down since every exchange opens a fresh
	// connection.
	Teardown() error
}
