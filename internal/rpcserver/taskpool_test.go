package rpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskPoolSpawnRuns(t *testing.T) {
	p := newTaskPool()
	done := make(chan struct{})

	p.Spawn(context.Background(), func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestTaskPoolCloseCancelsRunningTasks(t *testing.T) {
	p := newTaskPool()
	started := make(chan struct{})
	cancelled := make(chan struct{})

	p.Spawn(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})

	<-started
	p.Close()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled by Close")
	}
}

func TestTaskPoolRefusesSpawnAfterClose(t *testing.T) {
	p := newTaskPool()
	p.Close()

	ran := false
	p.Spawn(context.Background(), func(ctx context.Context) {
		ran = true
	})

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran)
	require.Empty(t, p.cancel)
}
