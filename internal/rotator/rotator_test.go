package rotator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestTickNeverRepeats(t *testing.T) {
	for _, size := range []int{2, 3, 5, 10} {
		r := New(time.Second, size, 42)
		prev := r.Current()

		for i := 0; i < 500; i++ {
			next := r.Tick()
			if next == prev {
				t.Fatalf("size %d: tick %d repeated index %d", size, i, next)
			}
			if next < 0 || next >= size {
				t.Fatalf("size %d: index %d out of range", size, next)
			}
			prev = next
		}
	}
}

func TestTickCoversCandidates(t *testing.T) {
	r := New(time.Second, 4, 7)

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		seen[r.Tick()] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected every index to be drawn, saw %v", seen)
	}
}

func TestSmallSizes(t *testing.T) {
	for _, size := range []int{-1, 0, 1} {
		r := New(time.Second, size, 1)
		for i := 0; i < 5; i++ {
			if got := r.Tick(); got != 0 {
				t.Errorf("size %d: expected 0, got %d", size, got)
			}
		}
	}
}

func TestSetSize(t *testing.T) {
	r := New(time.Second, 5, 3)
	for r.Current() < 3 {
		r.Tick()
	}

	r.SetSize(2)
	if r.Current() != 0 {
		t.Errorf("Expected index to reset when out of range, got %d", r.Current())
	}

	r.SetSize(10)
	r.Tick()
	idx := r.Current()
	r.SetSize(12)
	if r.Current() != idx {
		t.Errorf("Expected index %d to be kept, got %d", idx, r.Current())
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	a := New(time.Second, 6, 99)
	b := New(time.Second, 6, 99)

	for i := 0; i < 20; i++ {
		if x, y := a.Tick(), b.Tick(); x != y {
			t.Fatalf("Tick %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	SetLogger(zerolog.Nop())

	r := New(time.Second, 3, 5)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for r.Current() == 0 {
		select {
		case <-deadline:
			t.Fatal("Expected the scheduled tick to move the index")
		case <-time.After(50 * time.Millisecond):
		}
	}

	r.Stop()
	r.Stop()

	idx := r.Current()
	time.Sleep(1500 * time.Millisecond)
	if r.Current() != idx {
		t.Error("Expected no ticks after Stop")
	}
}

func TestStopOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	SetLogger(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	r := New(time.Second, 3, 5)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		started := r.started
		r.mu.Unlock()
		if !started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected rotation to stop after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
