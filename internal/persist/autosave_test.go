package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"konto/internal/core"
)

type staticSource struct {
	snap core.Snapshot
}

func (s staticSource) Snapshot() core.Snapshot { return s.snap }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSaverDebouncesBurst(t *testing.T) {
	gw := NewMemoryGateway()
	saver := NewSaver(gw, staticSource{snap: sampleSnapshot()}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		saver.Notify()
	}
	waitFor(t, func() bool { return gw.SaveCount() == 1 }, "debounced save never ran")

	// quiet period, no further notifies: no extra saves
	time.Sleep(60 * time.Millisecond)
	if got := gw.SaveCount(); got != 1 {
		t.Errorf("SaveCount = %d after one burst, want 1", got)
	}

	cancel()
	<-done
}

func TestSaverFlushesOnShutdown(t *testing.T) {
	gw := NewMemoryGateway()
	saver := NewSaver(gw, staticSource{snap: sampleSnapshot()}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(done)
	}()

	saver.Notify()
	cancel()
	<-done

	if got := gw.SaveCount(); got != 1 {
		t.Errorf("SaveCount = %d after shutdown flush, want 1", got)
	}
}

func TestSaverForce(t *testing.T) {
	gw := NewMemoryGateway()
	saver := NewSaver(gw, staticSource{snap: sampleSnapshot()}, time.Hour)

	if err := saver.Force(context.Background()); err != nil {
		t.Fatalf("Force: %v", err)
	}
	if got := gw.SaveCount(); got != 1 {
		t.Errorf("SaveCount = %d after Force, want 1", got)
	}
}

type failingGateway struct {
	MemoryGateway
	mu    sync.Mutex
	fails int
}

func (g *failingGateway) Save(ctx context.Context, snap core.Snapshot) error {
	g.mu.Lock()
	if g.fails > 0 {
		g.fails--
		g.mu.Unlock()
		return errors.New("disk full")
	}
	g.mu.Unlock()
	return g.MemoryGateway.Save(ctx, snap)
}

func TestSaverRetriesAfterFailure(t *testing.T) {
	gw := &failingGateway{fails: 1}
	saver := NewSaver(gw, staticSource{snap: sampleSnapshot()}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(done)
	}()

	saver.Notify()
	waitFor(t, func() bool { return gw.SaveCount() == 1 }, "save never succeeded after a failure")

	cancel()
	<-done
}
