// Package rpcclient is the client half of the runtime (component F): a
// connection wrapper that opens one stream per request, a small pool of
// warm streams to cut open-stream latency under load, and the typed
// capability handle protocol used to release private services.
package rpcclient

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/streamrpc/streamrpc/internal/framing"
	"github.com/streamrpc/streamrpc/internal/multipart"
	"github.com/streamrpc/streamrpc/internal/transport"
	"github.com/streamrpc/streamrpc/internal/wire"
)

// defaultPoolSize bounds how many idle streams Client keeps warm. Opening a
// stream is cheap on a multiplexed transport, but reusing one still saves a
// round trip of transport-level setup under sustained load.
const defaultPoolSize = 32

// Client is a connection to one server, safe for concurrent use by many
// goroutines. Each call opens (or reuses) its own stream; streams are never
// shared between concurrent calls, matching the one-request-per-stream
// wire contract.
type Client struct {
	codec wire.Codec

	connMu sync.Mutex
	conn   transport.Connection

	sem  *semaphore.Weighted
	idle chan *framing.Stream
}

// New wraps conn for use as an RPC client talking with codec. poolSize is
// the maximum number of idle streams kept warm; 0 selects a default.
func New(conn transport.Connection, codec wire.Codec, poolSize int) *Client {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Client{
		codec: codec,
		conn:  conn,
		sem:   semaphore.NewWeighted(int64(poolSize)),
		idle:  make(chan *framing.Stream, poolSize),
	}
}

// acquireStream returns a pooled idle stream if one is available, else
// opens a fresh one. The semaphore caps how many streams this client will
// ever hold open at once, applying back-pressure to callers beyond that.
func (c *Client) acquireStream(ctx context.Context) (*framing.Stream, error) {
	select {
	case s := <-c.idle:
		return s, nil
	default:
	}

	// A permit represents a stream this pool has created, not a stream
	// currently in use — releaseStream(reuse=true) keeps the permit held
	// and parks the stream on c.idle instead of giving it back. So a
	// failed TryAcquire here means poolSize streams already exist, each
	// either in active use by another caller or idle; the ones in active
	// use will eventually be released and land on c.idle. Blocking on
	// c.sem.Acquire would instead wait for a permit, which is never
	// released while any stream is being reused — wait on the channel.
	if c.sem.TryAcquire(1) {
		c.connMu.Lock()
		raw, err := c.conn.OpenStream(ctx)
		c.connMu.Unlock()
		if err != nil {
			c.sem.Release(1)
			return nil, fmt.Errorf("rpcclient: open stream: %w", err)
		}
		return framing.New(raw), nil
	}

	select {
	case s := <-c.idle:
		return s, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("rpcclient: acquire stream: %w", ctx.Err())
	}
}

// releaseStream returns a stream to the idle pool for reuse, or closes it
// and gives back its permit if the pool is already full or the stream
// errored and should not be reused.
func (c *Client) releaseStream(s *framing.Stream, reuse bool) {
	if reuse {
		select {
		case c.idle <- s:
			return
		default:
		}
	}
	s.Close()
	c.sem.Release(1)
}

// Close closes the underlying connection. Any streams currently idle in the
// pool are closed along with it.
func (c *Client) Close() error {
	close(c.idle)
	for s := range c.idle {
		s.Close()
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn.Close()
}

// RequestService resolves name/checksum to a public service id, performing
// the ServiceId request/response exchange on its own stream.
func (c *Client) RequestService(ctx context.Context, name string, checksum []byte) (uint32, error) {
	stream, err := c.acquireStream(ctx)
	if err != nil {
		return 0, err
	}

	req := wire.NewServiceIDRequest(name, checksum)
	reqBytes, err := wire.EncodeValue(c.codec, req)
	if err != nil {
		c.releaseStream(stream, false)
		return 0, fmt.Errorf("rpcclient: encode request: %w", err)
	}
	if err := stream.Send(ctx, reqBytes); err != nil {
		c.releaseStream(stream, false)
		return 0, fmt.Errorf("rpcclient: send request: %w", err)
	}
	if err := stream.Flush(); err != nil {
		c.releaseStream(stream, false)
		return 0, fmt.Errorf("rpcclient: flush: %w", err)
	}

	respBytes, err := stream.Receive(ctx)
	if err != nil {
		c.releaseStream(stream, false)
		return 0, fmt.Errorf("rpcclient: receive response: %w", err)
	}
	c.releaseStream(stream, true)

	result, err := wire.DecodeValue[wire.ServiceIDResult](c.codec, respBytes)
	if err != nil {
		return 0, fmt.Errorf("rpcclient: decode response: %w", err)
	}
	id, ok := result.OK()
	if !ok {
		return 0, result.Error()
	}
	return id, nil
}

// CallService invokes functionID on the service identified by (kind, id),
// sending args as a single-part multipart body and decoding the first
// returned part as Returns.
func CallService[Returns any](ctx context.Context, c *Client, kind wire.ServiceKind, id, functionID uint32, args any) (Returns, error) {
	var zero Returns

	argBytes, err := wire.EncodeValue(c.codec, args)
	if err != nil {
		return zero, fmt.Errorf("rpcclient: encode args: %w", err)
	}
	returns, err := c.CallServiceMultipart(ctx, kind, id, functionID, multipart.NewSendable(argBytes))
	if err != nil {
		return zero, err
	}
	if returns.Len() < 1 {
		return zero, fmt.Errorf("rpcclient: call returned no parts")
	}
	part, _ := returns.Part(0)
	return wire.DecodeValue[Returns](c.codec, part)
}

// CallServiceMultipart is the untyped call path: it sends args as-is and
// returns the raw multipart response, letting the caller decode each part
// itself (used by typed clients that return more than one value, such as a
// value plus a minted capability).
func (c *Client) CallServiceMultipart(ctx context.Context, kind wire.ServiceKind, id, functionID uint32, args *multipart.Sendable) (*multipart.Received, error) {
	stream, err := c.acquireStream(ctx)
	if err != nil {
		return nil, err
	}

	req := wire.NewServiceCallRequest(kind, id, functionID, args.PartSizes())
	reqBytes, err := wire.EncodeValue(c.codec, req)
	if err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: encode request: %w", err)
	}
	if err := stream.Send(ctx, reqBytes); err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: send request: %w", err)
	}
	if err := args.WriteTo(ctx, stream); err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: send args: %w", err)
	}
	if err := stream.Flush(); err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: flush: %w", err)
	}

	respBytes, err := stream.Receive(ctx)
	if err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: receive response: %w", err)
	}

	result, err := wire.DecodeValue[wire.ServiceCallResult](c.codec, respBytes)
	if err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: decode response: %w", err)
	}
	partSizes, ok := result.OK()
	if !ok {
		c.releaseStream(stream, true)
		return nil, result.Error()
	}

	returns, err := multipart.ReceiveFromStream(ctx, stream, partSizes)
	if err != nil {
		c.releaseStream(stream, false)
		return nil, fmt.Errorf("rpcclient: receive returns: %w", err)
	}
	c.releaseStream(stream, true)
	return returns, nil
}

// DeallocatePrivateService releases a capability's server-side slot. Callers
// normally reach this through Capability.Release rather than directly.
func (c *Client) DeallocatePrivateService(ctx context.Context, id uint32) error {
	stream, err := c.acquireStream(ctx)
	if err != nil {
		return err
	}

	req := wire.NewDeallocateRequest(id)
	reqBytes, err := wire.EncodeValue(c.codec, req)
	if err != nil {
		c.releaseStream(stream, false)
		return fmt.Errorf("rpcclient: encode request: %w", err)
	}
	if err := stream.Send(ctx, reqBytes); err != nil {
		c.releaseStream(stream, false)
		return fmt.Errorf("rpcclient: send request: %w", err)
	}
	if err := stream.Flush(); err != nil {
		c.releaseStream(stream, false)
		return fmt.Errorf("rpcclient: flush: %w", err)
	}

	respBytes, err := stream.Receive(ctx)
	if err != nil {
		c.releaseStream(stream, false)
		return fmt.Errorf("rpcclient: receive response: %w", err)
	}
	c.releaseStream(stream, true)

	result, err := wire.DecodeValue[wire.DeallocateResult](c.codec, respBytes)
	if err != nil {
		return fmt.Errorf("rpcclient: decode response: %w", err)
	}
	if !result.OK() {
		return result.Error()
	}
	return nil
}
