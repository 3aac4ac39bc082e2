package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultSweepInterval = time.Minute

// Janitor periodically evicts idle conversations from a Manager.
type Janitor struct {
	manager  *Manager
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewJanitor(manager *Manager, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		manager:  manager,
		interval: interval,
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true

	go j.run(sweepCtx, j.done)
}

// Stop cancels the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.mu.Unlock()

	cancel()
	<-done
}

// Run blocks until ctx is done, sweeping on every tick.
func (j *Janitor) Run(ctx context.Context) error {
	j.Start(ctx)
	<-ctx.Done()
	j.Stop()
	return nil
}

func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("component", "state.janitor").Msg("janitor stopping")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	start := time.Now()
	removed := j.manager.EvictIdle()
	stats := j.manager.Stats()

	ev := log.Debug()
	if removed > 0 {
		ev = log.Info()
	}
	ev.Str("component", "state.janitor").
		Int("removed", removed).
		Int("total", stats.Total).
		Int("active", stats.Active).
		Dur("duration", time.Since(start)).
		Msg("swept idle conversations")
}
