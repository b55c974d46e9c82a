// Package rpcserver is the per-connection server dispatcher (component E):
// the connection acceptor, public service table, private service
// allocator wiring, and per-stream request handling.
package rpcserver

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/streamrpc/streamrpc/internal/capability"
	"github.com/streamrpc/streamrpc/internal/debughttp"
	"github.com/streamrpc/streamrpc/internal/transport"
	"github.com/streamrpc/streamrpc/internal/wire"
)

// Listener is the transport.Listener this server accepts connections
// from — aliased here so callers only need to import rpcserver.
type Listener = transport.Listener

// Server is built once by Builder.Build and then Listen'd on. Its public
// service table is immutable for its whole lifetime (spec invariant 1);
// every accepted connection gets its own private-service allocator, while
// one task pool tracks the stream handlers of all connections.
type Server struct {
	listener Listener
	codec    wire.Codec

	entries []publicEntry
	byName  map[string]int

	tasks *taskPool
	stats *debughttp.Stats
}

// Stats returns the counters this server updates as connections and
// streams come and go, suitable for exposing via debughttp.New. It is
// never nil.
func (s *Server) Stats() *debughttp.Stats { return s.stats }

// Listen accepts connections until ctx is cancelled or the listener
// reports a fatal error, dispatching each one on its own goroutine. A
// single connection's failure never brings down the others.
func (s *Server) Listen(ctx context.Context) error {
	defer s.tasks.Close()

	g, ctx := errgroup.WithContext(ctx)
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("rpcserver: accept connection: %w", err)
		}

		s.stats.ConnectionsAccepted.Add(1)
		s.stats.ConnectionsActive.Add(1)
		g.Go(func() error {
			defer s.stats.ConnectionsActive.Add(-1)
			s.handleConnection(ctx, conn)
			return nil
		})
	}
	return g.Wait()
}

// handleConnection accepts streams on conn in a loop, handing each one to
// its own task. It returns once accepting streams fails (the connection
// closed) or ctx is cancelled.
func (s *Server) handleConnection(ctx context.Context, conn transport.Connection) {
	connID := uuid.New()

	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("rpcserver: conn=%s close connection: %v", connID, err)
		}
	}()

	handler := &callHandler{server: s, allocator: capability.New()}

	for {
		raw, err := conn.AcceptStream(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("rpcserver: conn=%s accept stream: %v", connID, err)
			}
			return
		}

		s.tasks.Spawn(ctx, func(taskCtx context.Context) {
			s.stats.StreamsHandled.Add(1)
			if err := handleStream(taskCtx, s.codec, raw, handler); err != nil {
				log.Printf("rpcserver: conn=%s stream handler: %v", connID, err)
			}
		})
	}
}
