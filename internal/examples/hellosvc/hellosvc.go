// Package hellosvc is a minimal demonstration service with a single
// no-argument function, used by internal/e2e and as the capability a
// successful authsvc login hands back.
package hellosvc

import (
	"context"
	"encoding/json"

	"github.com/streamrpc/streamrpc/internal/multipart"
	"github.com/streamrpc/streamrpc/internal/rpcclient"
	"github.com/streamrpc/streamrpc/internal/service"
	"github.com/streamrpc/streamrpc/internal/wire"
)

// Name and Checksum identify this service on the wire. The checksum is a
// fixed empty tag — fine for a demo, unlike a real service that would hash
// its function signatures. Lookups compare checksums byte for byte, so only
// a request carrying an empty checksum matches it.
const Name = "Hello"

var Checksum = []byte{}

// Descriptor is this service's registration identity.
var Descriptor = service.Descriptor{Name: Name, Checksum: Checksum}

const functionHello = 0

// Implementation is the interface a server plugs in; Greeting is the only
// function this service exposes.
type Implementation interface {
	Greeting(ctx context.Context) string
}

// Wrapper adapts an Implementation to service.Service.
type Wrapper struct {
	Impl Implementation
}

func New(impl Implementation) *Wrapper { return &Wrapper{Impl: impl} }

func (w *Wrapper) Checksum() []byte { return Checksum }

func (w *Wrapper) Call(ctx context.Context, _ service.Allocator, functionID uint32, args *multipart.Received) (*multipart.Sendable, error) {
	if functionID != functionHello {
		return nil, wire.ErrInvalidFunctionID
	}

	greeting := w.Impl.Greeting(ctx)
	b, err := json.Marshal(greeting)
	if err != nil {
		return nil, wire.ErrServerInternal
	}
	return multipart.NewSendable(b), nil
}

// Client is the typed client for a resolved Hello service, public or
// private (the latter when obtained as an authsvc capability).
type Client struct {
	rpcclient.BoundService
}

var _ rpcclient.ServiceClient = (*Client)(nil)

// NewClientFromCapability wraps a capability minted by another call (e.g.
// authsvc.Client.Auth's return value) as a Hello client, skipping the
// RequestService round trip a public lookup needs.
func NewClientFromCapability(rc *rpcclient.Client, ref wire.ServiceRef) *Client {
	return &Client{BoundService: rpcclient.NewBoundPrivateService(rc, ref)}
}

// Greeting calls the remote Hello function.
func (c *Client) Greeting(ctx context.Context) (string, error) {
	return rpcclient.CallService[string](ctx, c.Client, c.Kind, c.ID, functionHello, struct{}{})
}
