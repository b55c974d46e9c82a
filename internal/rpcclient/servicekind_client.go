package rpcclient

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/streamrpc/streamrpc/internal/wire"
)

// ServiceClient is implemented by generated per-service client types. The
// type parameter on NewServiceClient picks the client type that Rust's
// associated consts on a trait (SERVICE_NAME/SERVICE_CHECKSUM) would carry:
// Go interfaces can't carry const fields, so the identity instead lives in
// package-level Name/Checksum values that callers pass in directly.
type ServiceClient interface {
	// bindService is called once, right after the service id is resolved,
	// to give the concrete client its calling context. Unexported so only
	// this package's generated clients can implement ServiceClient.
	bindService(client *Client, kind wire.ServiceKind, id uint32)
}

// NewServiceClient resolves name/checksum to a public service id and
// returns a *T bound to it. T is the generated client struct (e.g.
// hellosvc.Client); PT pins the pointer type that actually implements
// ServiceClient, since bindService's receiver must be a pointer for the
// mutation to stick.
func NewServiceClient[T any, PT interface {
	*T
	ServiceClient
}](ctx context.Context, c *Client, name string, checksum []byte) (PT, error) {
	id, err := c.RequestService(ctx, name, checksum)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: get service client %q: %w", name, err)
	}
	client := PT(new(T))
	client.bindService(c, wire.Public, id)
	return client, nil
}

// BoundService is the common embeddable base for generated service client
// structs: it stores the (client, kind, id) triple every call needs and
// implements ServiceClient's bind step.
type BoundService struct {
	Client *Client
	Kind   wire.ServiceKind
	ID     uint32
}

func (b *BoundService) bindService(client *Client, kind wire.ServiceKind, id uint32) {
	b.Client = client
	b.Kind = kind
	b.ID = id
}

// NewBoundPrivateService wraps a capability's (service_id, checksum) as a
// BoundService ready to embed in a generated private-service client,
// without the RequestService round trip a public lookup needs — the
// capability already carries its id.
func NewBoundPrivateService(c *Client, ref wire.ServiceRef) BoundService {
	return BoundService{Client: c, Kind: wire.Private, ID: ref.ServiceID}
}

// Capability is a handle on a private service minted as another call's
// return value. It must be released exactly once, either explicitly via
// Release or implicitly (best-effort) by the finalizer installed by
// NewCapability, which mirrors Rust's Drop-triggers-deallocate semantics
// as closely as a garbage-collected language allows.
type Capability struct {
	client *Client
	ref    wire.ServiceRef
}

const finalizerDeallocTimeout = 5 * time.Second

// NewCapability wraps ref for use against c and installs a finalizer that
// deallocates it if the caller never calls Release. The finalizer is a
// backstop, not the primary release path: it runs at an unspecified time
// after the Capability becomes unreachable and logs instead of returning
// an error, so callers that care about deallocation timing or failure
// must call Release themselves.
func NewCapability(c *Client, ref wire.ServiceRef) *Capability {
	h := &Capability{client: c, ref: ref}
	runtime.SetFinalizer(h, finalizeCapability)
	return h
}

func finalizeCapability(h *Capability) {
	// Best-effort only: by the time a finalizer runs there is no caller
	// left to hand an error to. A background context bounds how long this
	// can block exit; failures are logged and otherwise dropped.
	ctx, cancel := context.WithTimeout(context.Background(), finalizerDeallocTimeout)
	defer cancel()
	if err := h.client.DeallocatePrivateService(ctx, h.ref.ServiceID); err != nil {
		log.Printf("rpcclient: finalizer deallocate private service %d: %v", h.ref.ServiceID, err)
	}
}

// Ref returns the wire identity of this capability, e.g. to pass it as an
// argument to another call.
func (h *Capability) Ref() wire.ServiceRef { return h.ref }

// Release deallocates the capability's server-side slot and disarms the
// finalizer backstop. Calling Release more than once is safe; the second
// call returns whatever error the server reports for an already-freed id.
func (h *Capability) Release(ctx context.Context) error {
	runtime.SetFinalizer(h, nil)
	return h.client.DeallocatePrivateService(ctx, h.ref.ServiceID)
}
