// Package quictransport implements internal/transport on top of QUIC
// (github.com/quic-go/quic-go), the reference transport: bidirectional
// streams map one-to-one onto transport.RawStream, and a QUIC connection's
// stream multiplexing is exactly the "many concurrent exchanges share one
// connection" property the wire protocol assumes.
package quictransport

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/streamrpc/streamrpc/internal/transport"
)

// stream adapts a *quic.Stream to transport.RawStream. quic-go streams are
// already both Reader and Writer; Flush is a no-op because QUIC streams
// have no separate user-space buffering layer to push through — framing's
// own bufio.Writer is what actually batches writes.
type stream struct {
	*quic.Stream
}

func (s stream) Flush() error { return nil }

// Stopped waits for the peer to have read everything written on this
// stream, or for the peer to reset it — the same observation QUIC exposes
// via Context/Stopped on the underlying send side.
func (s stream) Stopped(ctx context.Context) error {
	select {
	case <-s.Context().Done():
		return s.Context().Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ transport.RawStream = stream{}
	_ transport.Stopper   = stream{}
)

// connection adapts a *quic.Conn to transport.Connection.
type connection struct {
	conn *quic.Conn
}

func (c *connection) OpenStream(ctx context.Context) (transport.RawStream, error) {
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("quictransport: open stream: %w", err)
	}
	return stream{s}, nil
}

func (c *connection) AcceptStream(ctx context.Context) (transport.RawStream, error) {
	s, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("quictransport: accept stream: %w", err)
	}
	return stream{s}, nil
}

func (c *connection) Close() error {
	return c.conn.CloseWithError(0, "connection closed")
}

var _ transport.Connection = (*connection)(nil)

// listener adapts a *quic.Listener to transport.Listener.
type listener struct {
	ln *quic.Listener
}

// Listen starts a QUIC listener on addr using tlsConfig, which must
// negotiate an ALPN protocol the peer also offers (NewDevServerTLSConfig
// builds one suitable for local development). quicConfig may be nil to take
// quic-go's defaults.
func Listen(addr string, tlsConfig *tls.Config, quicConfig *quic.Config) (transport.Listener, error) {
	ln, err := quic.ListenAddr(addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("quictransport: listen %s: %w", addr, err)
	}
	return &listener{ln: ln}, nil
}

func (l *listener) Accept(ctx context.Context) (transport.Connection, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("quictransport: accept connection: %w", err)
	}
	return &connection{conn: conn}, nil
}

func (l *listener) Close() error {
	return l.ln.Close()
}

var _ transport.Listener = (*listener)(nil)

// Dial opens a QUIC connection to addr; SNI and certificate verification
// follow tlsConfig. tlsConfig.InsecureSkipVerify may be set by callers
// talking to a dev server using NewDevServerTLSConfig's self-signed cert
// (NewDevClientTLSConfig builds such a config).
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, quicConfig *quic.Config) (transport.Connection, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("quictransport: dial %s: %w", addr, err)
	}
	return &connection{conn: conn}, nil
}
