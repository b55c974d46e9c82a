package capability

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrpc/streamrpc/internal/multipart"
	"github.com/streamrpc/streamrpc/internal/service"
)

// recordingService is a minimal service.Service used only to exercise the
// allocator; its Call is never invoked by these tests.
type recordingService struct{}

func (s *recordingService) Checksum() []byte { return nil }
func (s *recordingService) Call(ctx context.Context, allocator service.Allocator, functionID uint32, args *multipart.Received) (*multipart.Sendable, error) {
	return nil, nil
}

func TestAllocateAndGet(t *testing.T) {
	a := New()
	svc := &recordingService{}

	id := a.Allocate(context.Background(), svc)
	assert.Equal(t, uint32(0), id)

	h, ok := a.Get(id)
	require.True(t, ok)
	assert.Same(t, svc, h.Service())
	h.Release()
}

func TestGetUnknownID(t *testing.T) {
	a := New()
	_, ok := a.Get(42)
	assert.False(t, ok)
}

func TestDeallocateAndReuse(t *testing.T) {
	a := New()
	first := &recordingService{}
	second := &recordingService{}

	id := a.Allocate(context.Background(), first)
	evicted, ok := a.DeallocateByID(id)
	require.True(t, ok)
	assert.Same(t, first, evicted)

	_, ok = a.Get(id)
	assert.False(t, ok)

	reusedID := a.Allocate(context.Background(), second)
	assert.Equal(t, id, reusedID)
	assert.Equal(t, 1, a.Len())
}

func TestDeallocateAlreadyEmptyIsNoop(t *testing.T) {
	a := New()
	id := a.Allocate(context.Background(), &recordingService{})
	_, ok := a.DeallocateByID(id)
	require.True(t, ok)

	_, ok = a.DeallocateByID(id)
	assert.False(t, ok)
}

func TestConcurrentAllocate(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	ids := make(chan uint32, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- a.Allocate(context.Background(), &recordingService{})
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint32]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Equal(t, 100, len(seen))
}
