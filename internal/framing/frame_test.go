package framing

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrpc/streamrpc/internal/transport"
)

type pipeRawStream struct {
	net.Conn
}

func (p pipeRawStream) Flush() error { return nil }

func newPipePair() (transport.RawStream, transport.RawStream) {
	a, b := net.Pipe()
	return pipeRawStream{a}, pipeRawStream{b}
}

func TestSendReceiveRoundTrip(t *testing.T) {
	clientRaw, serverRaw := newPipePair()
	client := New(clientRaw)
	server := New(serverRaw)

	msg := []byte("hello, stream")

	errCh := make(chan error, 1)
	go func() {
		if err := client.Send(context.Background(), msg); err != nil {
			errCh <- err
			return
		}
		errCh <- client.Flush()
	}()

	got, err := server.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	require.NoError(t, <-errCh)
}

func TestSendRawReceiveRawFull(t *testing.T) {
	clientRaw, serverRaw := newPipePair()
	client := New(clientRaw)
	server := New(serverRaw)

	part := []byte("raw-part-bytes")

	errCh := make(chan error, 1)
	go func() {
		if err := client.SendRaw(context.Background(), part); err != nil {
			errCh <- err
			return
		}
		errCh <- client.Flush()
	}()

	buf := make([]byte, len(part))
	require.NoError(t, server.ReceiveRawFull(context.Background(), buf))
	assert.Equal(t, part, buf)
	require.NoError(t, <-errCh)
}

func TestSendRespectsContextCancellation(t *testing.T) {
	clientRaw, _ := newPipePair()
	client := New(clientRaw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Send(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitStoppedNoopWithoutStopper(t *testing.T) {
	clientRaw, _ := newPipePair()
	client := New(clientRaw)
	assert.NoError(t, client.AwaitStopped(context.Background()))
}
