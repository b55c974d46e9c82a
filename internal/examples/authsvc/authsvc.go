// Package authsvc is a minimal demonstration service that authenticates a
// username/password pair and, on success, mints a private hellosvc
// capability scoped to the caller's connection — the reference example of
// a call whose return value is itself a service reference (spec §12).
package authsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamrpc/streamrpc/internal/examples/hellosvc"
	"github.com/streamrpc/streamrpc/internal/multipart"
	"github.com/streamrpc/streamrpc/internal/rpcclient"
	"github.com/streamrpc/streamrpc/internal/service"
	"github.com/streamrpc/streamrpc/internal/wire"
)

const Name = "Auth"

var Checksum = []byte{}

var Descriptor = service.Descriptor{Name: Name, Checksum: Checksum}

const functionAuth = 0

// Implementation authenticates credentials and, on success, returns the
// service this caller's connection may now privately call. Returning nil
// means authentication failed.
type Implementation interface {
	Auth(ctx context.Context, username, password string) service.Service
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Wrapper adapts an Implementation to service.Service.
type Wrapper struct {
	Impl Implementation
}

func New(impl Implementation) *Wrapper { return &Wrapper{Impl: impl} }

func (w *Wrapper) Checksum() []byte { return Checksum }

func (w *Wrapper) Call(ctx context.Context, allocator service.Allocator, functionID uint32, args *multipart.Received) (*multipart.Sendable, error) {
	if functionID != functionAuth {
		return nil, wire.ErrInvalidFunctionID
	}

	var req authRequest
	if args.Len() < 1 {
		return nil, wire.ErrArgsDecode
	}
	part, _ := args.Part(0)
	if err := json.Unmarshal(part, &req); err != nil {
		return nil, wire.ErrArgsDecode
	}

	granted := w.Impl.Auth(ctx, req.Username, req.Password)

	var ref *wire.ServiceRef
	if granted != nil {
		id := allocator.Allocate(ctx, granted)
		ref = &wire.ServiceRef{ServiceID: id, Checksum: granted.Checksum()}
	}

	b, err := json.Marshal(ref)
	if err != nil {
		return nil, wire.ErrServerInternal
	}
	return multipart.NewSendable(b), nil
}

// Client is the typed client for the public Auth service.
type Client struct {
	rpcclient.BoundService
}

var _ rpcclient.ServiceClient = (*Client)(nil)

// Auth calls the remote Auth function. On success it returns a
// *rpcclient.Capability wrapping the minted hellosvc capability, along
// with a ready-to-use *hellosvc.Client bound to it; ok is false if the
// credentials were rejected.
func (c *Client) Auth(ctx context.Context, username, password string) (capability *rpcclient.Capability, hello *hellosvc.Client, ok bool, err error) {
	req := authRequest{Username: username, Password: password}
	ref, err := rpcclient.CallService[*wire.ServiceRef](ctx, c.Client, c.Kind, c.ID, functionAuth, req)
	if err != nil {
		return nil, nil, false, err
	}
	if ref == nil {
		return nil, nil, false, nil
	}
	if !bytesEqual(ref.Checksum, hellosvc.Checksum) {
		return nil, nil, false, fmt.Errorf("authsvc: minted capability checksum mismatch: %w", wire.ErrInvalidChecksum)
	}

	capability = rpcclient.NewCapability(c.Client, *ref)
	hello = hellosvc.NewClientFromCapability(c.Client, *ref)
	return capability, hello, true, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
