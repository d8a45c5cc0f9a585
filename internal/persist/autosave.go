package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"konto/internal/core"
)

// SnapshotSource produces the current snapshot on demand. The store
// implements it.
type SnapshotSource interface {
	Snapshot() core.Snapshot
}

// Saver debounces snapshot saves. Mutating callers signal Notify; the run
// loop waits for a quiet interval before writing, so a burst of edits costs
// one save instead of one per keystroke. A failed save keeps the state
// dirty and retries on the next interval.
type Saver struct {
	gateway  Gateway
	source   SnapshotSource
	interval time.Duration

	notify chan struct{}

	mu    sync.Mutex
	dirty bool
}

func NewSaver(gateway Gateway, source SnapshotSource, interval time.Duration) *Saver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Saver{
		gateway:  gateway,
		source:   source,
		interval: interval,
		notify:   make(chan struct{}, 1),
	}
}

// Notify marks the state dirty and schedules a save. Never blocks.
func (s *Saver) Notify() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run processes save signals until the context is cancelled, then flushes
// any pending state before returning.
func (s *Saver) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-s.notify:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)

		case <-timer.C:
			s.flush(ctx)

		case <-ctx.Done():
			// last chance to write what the debounce was still holding
			s.flush(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

// Force saves immediately, bypassing the debounce.
func (s *Saver) Force(ctx context.Context) error {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if err := s.gateway.Save(ctx, s.source.Snapshot()); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Saver) flush(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.gateway.Save(ctx, s.source.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to save snapshot", "error", err)
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		// retry once the next notify comes in; the in-memory state is
		// still authoritative
		s.Notify()
	}
}
