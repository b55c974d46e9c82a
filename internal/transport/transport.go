// Package transport defines the byte-level contract the RPC runtime needs
// from whatever multiplexed, reliable connection carries it (component A).
// The runtime assumes reliable, in-order delivery per stream and
// independent streams — head-of-line blocking only within a single stream.
//
// Two concrete implementations live in the sibling quictransport and
// pipetransport packages; nothing above this package cares which one it is
// talking to.
package transport

import (
	"context"
	"io"
)

// RawStream is the minimal primitive a transport stream must provide:
// ordered byte reads and writes, an explicit flush point, and a close.
// internal/framing wraps a RawStream to add message framing.
type RawStream interface {
	io.Reader
	io.Writer
	Flush() error
	Close() error
}

// Stopper is an optional capability a RawStream may implement: waiting
// until the peer has observed the stream as closed. The core does not call
// this by default (see design note on the close-after-terminal-frame
// rule), but it's exposed for implementers who want back-pressure on
// stream closure without changing the protocol.
type Stopper interface {
	Stopped(ctx context.Context) error
}

// Connection opens outbound streams and accepts inbound ones over a single
// multiplexed transport connection.
type Connection interface {
	// OpenStream creates a new logical stream and notifies the peer.
	OpenStream(ctx context.Context) (RawStream, error)
	// AcceptStream blocks until the peer opens a new logical stream.
	AcceptStream(ctx context.Context) (RawStream, error)
	// Close tears down the connection and all of its streams.
	Close() error
}

// Listener yields inbound connections, e.g. a QUIC listener accepting new
// client connections.
type Listener interface {
	Accept(ctx context.Context) (Connection, error)
	Close() error
}
