// Package service defines the contract every callable service — public or
// private — must satisfy (component D/E boundary, spec §4.4.2).
package service

import (
	"context"

	"github.com/streamrpc/streamrpc/internal/multipart"
)

// Allocator is the subset of the private-service allocator a service
// implementation needs in order to mint capabilities as part of its
// return value. Defined here, implemented by internal/capability, to keep
// this package free of a dependency on the allocator's concurrency
// internals.
type Allocator interface {
	Allocate(ctx context.Context, impl Service) uint32
}

// Service is the contract a named, versioned, callable unit of functions
// must implement. The server's public table and private allocator both
// hold values of this interface; nothing in the dispatcher cares whether a
// given Service is public or private.
type Service interface {
	// Checksum returns the opaque compatibility tag checked for equality
	// against whatever checksum a client requests, or that was recorded at
	// the moment a capability referencing this service was minted.
	Checksum() []byte

	// Call invokes functionID with args and returns the multipart result
	// on success. allocator is the calling connection's private-service
	// allocator, passed through so the call can mint further capabilities
	// as part of its return value. Unknown function ids must fail with
	// wire.ErrInvalidFunctionID; decode failures with wire.ErrArgsDecode;
	// anything else unexpected with wire.ErrServerInternal. err is nil on
	// success and otherwise always a wire.ServiceCallError.
	Call(ctx context.Context, allocator Allocator, functionID uint32, args *multipart.Received) (returns *multipart.Sendable, err error)
}

// Descriptor names a service by its registration identity, independent of
// any particular implementation — used by the server builder and by
// generated typed clients alike.
type Descriptor struct {
	Name     string
	Checksum []byte
}
