package janitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestJanitorSweepsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	j := New("test", 5*time.Millisecond, func() int {
		calls.Add(1)
		return 1
	}, nil)

	j.Start(context.Background())
	j.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep ran %d times, want at least 3", calls.Load())
		}
		time.Sleep(time.Millisecond)
	}

	j.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Fatalf("sweep ran after Stop: %d -> %d", after, got)
	}
	j.Stop()
}

func TestJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := New("ctx", time.Hour, func() int { return 0 }, nil)
	j.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
