// Package pipetransport implements internal/transport over in-memory
// net.Pipe connections — the test double used by internal/e2e and package
// tests that want a real transport.Connection without a network or TLS.
// It also demonstrates the Stopper extension point: a stream here reports
// itself stopped once its own Close has run.
package pipetransport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/streamrpc/streamrpc/internal/transport"
)

// stream wraps one half of a net.Pipe. closed is signalled once Close has
// run, so Stopped can observe this side's closure without a separate
// out-of-band handshake.
type stream struct {
	net.Conn
	closed chan struct{}
	once   sync.Once
}

func newStream(conn net.Conn) *stream {
	return &stream{Conn: conn, closed: make(chan struct{})}
}

func (s *stream) Flush() error { return nil }

func (s *stream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return s.Conn.Close()
}

// Stopped blocks until this stream's Close has run or ctx is cancelled.
// net.Pipe has no notion of "peer stopped reading" distinct from full
// close, so this reports local closure rather than a true peer signal —
// good enough for tests that only need the extension point exercised.
func (s *stream) Stopped(ctx context.Context) error {
	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ transport.RawStream = (*stream)(nil)
	_ transport.Stopper   = (*stream)(nil)
)

// streamPair is one bidirectional stream as seen from both connections it
// was opened between.
type streamPair struct {
	clientSide *stream
	serverSide *stream
}

func newStreamPair() streamPair {
	a, b := net.Pipe()
	return streamPair{clientSide: newStream(a), serverSide: newStream(b)}
}

// connection is one endpoint of an in-memory connection: new streams it
// opens are delivered to the peer's accept channel, and vice versa.
type connection struct {
	openOut  chan streamPair
	acceptIn chan streamPair

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *connection) OpenStream(ctx context.Context) (transport.RawStream, error) {
	pair := newStreamPair()
	select {
	case c.openOut <- pair:
		return pair.clientSide, nil
	case <-c.closed:
		return nil, fmt.Errorf("pipetransport: connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *connection) AcceptStream(ctx context.Context) (transport.RawStream, error) {
	select {
	case pair := <-c.acceptIn:
		return pair.serverSide, nil
	case <-c.closed:
		return nil, fmt.Errorf("pipetransport: connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

var _ transport.Connection = (*connection)(nil)

// NewPair returns two transport.Connection values, client and server, that
// are connected to each other: a stream client opens with OpenStream is
// what server receives from AcceptStream, and vice versa.
func NewPair() (client, server transport.Connection) {
	ab := make(chan streamPair)
	ba := make(chan streamPair)

	c := &connection{openOut: ab, acceptIn: ba, closed: make(chan struct{})}
	s := &connection{openOut: ba, acceptIn: ab, closed: make(chan struct{})}
	return c, s
}

// Listener hands out server-side connections built by dialing an
// in-process channel — a minimal transport.Listener good for tests that
// want to exercise a real Accept loop without a network.
type Listener struct {
	dial   chan transport.Connection
	closed chan struct{}
	once   sync.Once
}

// NewListener returns a Listener and a Dial function that produces a new
// connected client/server pair, delivering the server side to the
// Listener's Accept and returning the client side to the caller.
func NewListener() (*Listener, func(ctx context.Context) (transport.Connection, error)) {
	l := &Listener{dial: make(chan transport.Connection), closed: make(chan struct{})}
	dial := func(ctx context.Context) (transport.Connection, error) {
		client, server := NewPair()
		select {
		case l.dial <- server:
			return client, nil
		case <-l.closed:
			return nil, fmt.Errorf("pipetransport: listener closed")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return l, dial
}

func (l *Listener) Accept(ctx context.Context) (transport.Connection, error) {
	select {
	case conn := <-l.dial:
		return conn, nil
	case <-l.closed:
		return nil, fmt.Errorf("pipetransport: listener closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

var _ transport.Listener = (*Listener)(nil)
