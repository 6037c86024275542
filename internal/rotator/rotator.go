// Package rotator picks the featured post shown on the home page. On every tick
// of a fixed interval it draws a new index that differs from the current one.
package rotator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var rotatorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	rotatorLogger = l
}

type Rotator struct {
	mu      sync.Mutex
	size    int
	current int
	rng     *rand.Rand

	interval time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID
	started  bool
	stopped  chan struct{}
}

// New creates a rotator over size candidates. The seed makes the sequence of
// indexes reproducible.
func New(interval time.Duration, size int, seed uint64) *Rotator {
	return &Rotator{
		size:     max(size, 0),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		interval: interval,
		cron:     cron.New(),
	}
}

// Current returns the index of the featured candidate.
func (r *Rotator) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SetSize changes the number of candidates. The current index is kept when it
// is still valid.
func (r *Rotator) SetSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.size = max(size, 0)
	if r.current >= r.size {
		r.current = 0
	}
}

// Tick draws the next index. With fewer than two candidates the index stays 0.
func (r *Rotator) Tick() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size <= 1 {
		r.current = 0
		return 0
	}

	next := r.rng.IntN(r.size)
	for next == r.current {
		next = r.rng.IntN(r.size)
	}
	r.current = next
	return next
}

// Start schedules Tick every interval until Stop is called or ctx is done.
func (r *Rotator) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	id, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		idx := r.Tick()
		rotatorLogger.Debug().Int("index", idx).Msg("Featured post rotated")
	})
	if err != nil {
		return fmt.Errorf("schedule rotation: %w", err)
	}

	r.entryID = id
	r.started = true
	r.stopped = make(chan struct{})
	r.cron.Start()

	go func(stopped chan struct{}) {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-stopped:
		}
	}(r.stopped)

	rotatorLogger.Info().Dur("interval", r.interval).Msg("Featured rotation started")
	return nil
}

// Stop removes the schedule and waits for a running tick to finish.
func (r *Rotator) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.cron.Remove(r.entryID)
	close(r.stopped)
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	rotatorLogger.Info().Msg("Featured rotation stopped")
}
