package rpcserver

import (
	"fmt"

	"github.com/streamrpc/streamrpc/internal/debughttp"
	"github.com/streamrpc/streamrpc/internal/service"
	"github.com/streamrpc/streamrpc/internal/wire"
)

// publicEntry is one row of the public service table: the implementation
// plus the (name, checksum) identity it was registered under.
type publicEntry struct {
	name     string
	checksum []byte
	impl     service.Service
}

// Builder accumulates public services in registration order and produces
// an immutable Server. The table is append-only while building; Build
// hands the Server its own copy, so registrations made on the Builder
// afterwards never reach it — the public table is immutable for the
// server's whole lifetime (spec invariant 1).
type Builder struct {
	codec    wire.Codec
	entries  []publicEntry
	byName   map[string]int // name -> slot index
}

// NewBuilder starts an empty server builder using codec to encode and
// decode protocol envelopes and user payloads.
func NewBuilder(codec wire.Codec) *Builder {
	return &Builder{
		codec:  codec,
		byName: make(map[string]int),
	}
}

// WithRawService registers impl under (name, checksum) without requiring a
// typed descriptor — the untyped registration path, mirroring
// rustyrpc's with_boxed_service. WithService is the typed convenience atop
// this.
//
// Panics if name was already registered (matching the source's "service
// count overflows u32" panic-on-misuse posture for build-time errors; a
// duplicate name is a programming error, not a runtime condition).
func (b *Builder) WithRawService(name string, checksum []byte, impl service.Service) *Builder {
	if _, exists := b.byName[name]; exists {
		panic(fmt.Sprintf("rpcserver: service %q registered twice", name))
	}

	id := len(b.entries)
	b.entries = append(b.entries, publicEntry{name: name, checksum: checksum, impl: impl})
	b.byName[name] = id
	return b
}

// WithService registers impl under its Descriptor's identity.
func WithService(b *Builder, d service.Descriptor, impl service.Service) *Builder {
	return b.WithRawService(d.Name, d.Checksum, impl)
}

// Build finalizes the public service table and returns a Server ready to
// Listen on listener.
func (b *Builder) Build(listener Listener) *Server {
	entries := append([]publicEntry(nil), b.entries...)
	byName := make(map[string]int, len(b.byName))
	for name, id := range b.byName {
		byName[name] = id
	}
	return &Server{
		listener: listener,
		codec:    b.codec,
		entries:  entries,
		byName:   byName,
		tasks:    newTaskPool(),
		stats:    &debughttp.Stats{},
	}
}
