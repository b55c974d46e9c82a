// Package e2e drives the whole stack — transport, framing, codec,
// dispatch, capability allocation — through pipetransport, the way
// dispatch_test.go in internal/rpcserver does for the narrower protocol
// cases. These tests exercise the scenarios a real client/server pair
// would hit: authenticating, calling a minted capability repeatedly,
// releasing it, and many concurrent calls sharing one connection.
package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrpc/streamrpc/internal/examples/authsvc"
	"github.com/streamrpc/streamrpc/internal/examples/hellosvc"
	"github.com/streamrpc/streamrpc/internal/rpcclient"
	"github.com/streamrpc/streamrpc/internal/rpcserver"
	"github.com/streamrpc/streamrpc/internal/service"
	"github.com/streamrpc/streamrpc/internal/transport/pipetransport"
	"github.com/streamrpc/streamrpc/internal/wire"
	"github.com/streamrpc/streamrpc/internal/wire/jsoncodec"
)

func newServerAndClient(t *testing.T) (*rpcclient.Client, func()) {
	t.Helper()
	codec := jsoncodec.New()

	builder := rpcserver.NewBuilder(codec)
	rpcserver.WithService(builder, hellosvc.Descriptor, hellosvc.New(greeter{"hello from e2e"}))
	rpcserver.WithService(builder, authsvc.Descriptor, authsvc.New(authImpl{}))

	listener, dial := pipetransport.NewListener()
	server := builder.Build(listener)

	ctx, cancel := context.WithCancel(context.Background())
	go server.Listen(ctx)

	conn, err := dial(context.Background())
	require.NoError(t, err)

	client := rpcclient.New(conn, codec, 8)
	cleanup := func() {
		client.Close()
		cancel()
	}
	return client, cleanup
}

type greeter struct{ text string }

func (g greeter) Greeting(ctx context.Context) string { return g.text }

// authImpl grants a Hello capability only for the admin/admin pair.
type authImpl struct{}

func (authImpl) Auth(ctx context.Context, username, password string) service.Service {
	if username != "admin" || password != "admin" {
		return nil
	}
	return hellosvc.New(greeter{"hello from e2e"})
}

func TestAuthenticateAndCallCapability(t *testing.T) {
	client, cleanup := newServerAndClient(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auth, err := rpcclient.NewServiceClient[authsvc.Client](ctx, client, authsvc.Name, authsvc.Checksum)
	require.NoError(t, err)

	capability, hello, ok, err := auth.Auth(ctx, "admin", "admin")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, capability)
	require.NotNil(t, hello)
	defer capability.Release(ctx)

	for i := 0; i < 3; i++ {
		greeting, err := hello.Greeting(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello from e2e", greeting)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	client, cleanup := newServerAndClient(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auth, err := rpcclient.NewServiceClient[authsvc.Client](ctx, client, authsvc.Name, authsvc.Checksum)
	require.NoError(t, err)

	capability, hello, ok, err := auth.Auth(ctx, "admin", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, capability)
	assert.Nil(t, hello)
}

func TestCapabilityReleaseThenDeniedCall(t *testing.T) {
	client, cleanup := newServerAndClient(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auth, err := rpcclient.NewServiceClient[authsvc.Client](ctx, client, authsvc.Name, authsvc.Checksum)
	require.NoError(t, err)

	capability, hello, ok, err := auth.Auth(ctx, "admin", "admin")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, capability.Release(ctx))

	_, err = hello.Greeting(ctx)
	assert.Error(t, err)
}

func TestConcurrentCallsShareOneConnection(t *testing.T) {
	client, cleanup := newServerAndClient(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hello, err := rpcclient.NewServiceClient[hellosvc.Client](ctx, client, hellosvc.Name, hellosvc.Checksum)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = hello.Greeting(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestPublicServiceNotFoundSurfacesWireError(t *testing.T) {
	client, cleanup := newServerAndClient(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.RequestService(ctx, "DoesNotExist", nil)
	assert.ErrorIs(t, err, wire.ErrServiceNotFound)
}
