package multipart

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrpc/streamrpc/internal/framing"
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

func TestSendableReceivedRoundTrip(t *testing.T) {
	clientRaw, serverRaw := newPipePair()
	client := framing.New(clientRaw)
	server := framing.New(serverRaw)

	sendable := NewSendable([]byte("part-one"), []byte("part-2-longer"))

	errCh := make(chan error, 1)
	go func() {
		if err := sendable.WriteTo(context.Background(), client); err != nil {
			errCh <- err
			return
		}
		errCh <- client.Flush()
	}()

	received, err := ReceiveFromStream(context.Background(), server, sendable.PartSizes())
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	assert.Equal(t, 2, received.Len())
	p0, ok := received.Part(0)
	require.True(t, ok)
	assert.Equal(t, []byte("part-one"), p0)
	p1, ok := received.Part(1)
	require.True(t, ok)
	assert.Equal(t, []byte("part-2-longer"), p1)
}

func TestSendablePush(t *testing.T) {
	s := NewSendable()
	s.Push([]byte("a"))
	s.Push([]byte("bb"))
	assert.Equal(t, []uint32{1, 2}, s.PartSizes())
}

func TestReceivedPartOutOfRange(t *testing.T) {
	r := &Received{}
	_, ok := r.Part(0)
	assert.False(t, ok)
}

func TestReceiveFromStreamEmpty(t *testing.T) {
	clientRaw, serverRaw := newPipePair()
	_ = clientRaw
	server := framing.New(serverRaw)

	received, err := ReceiveFromStream(context.Background(), server, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, received.Len())
}

func TestReceiveFromStreamOverflow(t *testing.T) {
	_, serverRaw := newPipePair()
	server := framing.New(serverRaw)

	_, err := ReceiveFromStream(context.Background(), server, []uint32{framing.MaxMessageSize, 1})
	assert.Error(t, err)
}
