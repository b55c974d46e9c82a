// Package capability implements the per-connection private-service
// allocator (spec §4.4.3): the server's capability mechanism. A capability
// is a (slot id, checksum) pair; possession of it plus a matching typed
// client confers the right to call. The allocator is the sole keeper of a
// private service's liveness — it is never modeled as shared ownership
// across connections, only as slots scoped to the connection that minted
// them.
package capability

import (
	"context"
	"sync"

	"github.com/streamrpc/streamrpc/internal/service"
)

// slot holds one private service behind its own reader/writer lock, so
// concurrent calls into different capabilities never contend with each
// other — only calls that target the very same slot do.
type slot struct {
	mu  sync.RWMutex
	svc service.Service // nil when the slot is free
}

// Allocator is one connection's private-service table: a grow-only,
// per-slot-locked collection plus a free list of vacated indices. Multiple
// concurrent Get calls on the same slot are admitted; Allocate and
// DeallocateByID serialize only on the free list, never on unrelated
// slots.
type Allocator struct {
	slotsMu sync.RWMutex // guards growth of the slots slice itself
	slots   []*slot

	freeMu sync.Mutex
	free   []uint32
}

// New returns an empty allocator, ready for one connection's lifetime.
func New() *Allocator {
	return &Allocator{}
}

// Allocate installs impl in a free slot (reusing a previously deallocated
// index when available) or appends a new one, and returns its id.
func (a *Allocator) Allocate(ctx context.Context, impl service.Service) uint32 {
	a.freeMu.Lock()
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.freeMu.Unlock()

		a.slotsMu.RLock()
		s := a.slots[id]
		a.slotsMu.RUnlock()

		s.mu.Lock()
		s.svc = impl
		s.mu.Unlock()
		return id
	}
	a.freeMu.Unlock()

	a.slotsMu.Lock()
	id := uint32(len(a.slots))
	a.slots = append(a.slots, &slot{svc: impl})
	a.slotsMu.Unlock()
	return id
}

// Handle is a read-locked reference to an allocated service. The caller
// must call Release once the call it was obtained for has completed, so
// the slot cannot be deallocated out from under an in-flight call, and
// must not be deallocated until then.
type Handle struct {
	slot *slot
}

// Service returns the service this handle guards.
func (h Handle) Service() service.Service { return h.slot.svc }

// Release gives up the read lock obtained by Get.
func (h Handle) Release() { h.slot.mu.RUnlock() }

// Get returns a read-locked handle on the service at id, or ok=false if
// the id is out of range or the slot is currently empty. The returned
// handle's Release must be called exactly once, after the call using it
// has finished — holding the guard for that whole duration is what
// prevents a concurrent DeallocateByID from freeing the slot mid-call.
func (a *Allocator) Get(id uint32) (Handle, bool) {
	a.slotsMu.RLock()
	if int(id) >= len(a.slots) {
		a.slotsMu.RUnlock()
		return Handle{}, false
	}
	s := a.slots[id]
	a.slotsMu.RUnlock()

	s.mu.RLock()
	if s.svc == nil {
		s.mu.RUnlock()
		return Handle{}, false
	}
	return Handle{slot: s}, true
}

// DeallocateByID releases the service at id, returning it (so the caller
// may do any teardown it needs) and pushing id onto the free list for
// reuse. It reports ok=false if id was out of range or already empty.
func (a *Allocator) DeallocateByID(id uint32) (service.Service, bool) {
	a.slotsMu.RLock()
	if int(id) >= len(a.slots) {
		a.slotsMu.RUnlock()
		return nil, false
	}
	s := a.slots[id]
	a.slotsMu.RUnlock()

	s.mu.Lock()
	evicted := s.svc
	s.svc = nil
	s.mu.Unlock()

	if evicted == nil {
		return nil, false
	}

	a.freeMu.Lock()
	a.free = append(a.free, id)
	a.freeMu.Unlock()
	return evicted, true
}

// Len reports the number of slots ever allocated (including freed ones) —
// exposed for diagnostics and tests, not part of the core contract.
func (a *Allocator) Len() int {
	a.slotsMu.RLock()
	defer a.slotsMu.RUnlock()
	return len(a.slots)
}
