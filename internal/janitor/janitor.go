// Package janitor runs periodic cleanup tasks on behalf of the process.
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Janitor calls a sweep function on a fixed interval until stopped.
type Janitor struct {
	name     string
	interval time.Duration
	sweep    func() int
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Janitor. sweep returns the number of items it removed.
func New(name string, interval time.Duration, sweep func() int, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		name:     name,
		interval: interval,
		sweep:    sweep,
		logger:   logger.With("janitor", name),
	}
}

// Start launches the sweep loop. It is a no-op if the loop is already running.
// The loop ends when ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.run(ctx, j.done)
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.sweep(); n > 0 {
				j.logger.Debug("expired entries removed", "removed", n)
			}
		}
	}
}
