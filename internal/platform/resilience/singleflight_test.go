package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSingleFlight_CollapsesSameGame(t *testing.T) {
	var g SingleFlight[int]
	var runs atomic.Int32

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _, _ = g.Do("save-1", func() (int, error) {
			runs.Add(1)
			close(started)
			<-release
			return 7, nil
		})
	}()
	<-started

	if !g.Running("save-1") {
		t.Fatalf("expected save-1 to be running")
	}
	if g.Running("save-2") {
		t.Fatalf("save-2 should not be running")
	}

	const waiters = 10
	var wg sync.WaitGroup
	wg.Add(waiters)
	var sharedCount atomic.Int32
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			v, err, shared := g.Do("save-1", func() (int, error) {
				runs.Add(1)
				return 0, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if shared {
				sharedCount.Add(1)
				if v != 7 {
					t.Errorf("shared caller got %d, want 7", v)
				}
			}
		}()
	}

	close(release)
	wg.Wait()

	// callers arriving after the first flight finished start their own run
	if got := runs.Load(); got != 1+waiters-sharedCount.Load() {
		t.Fatalf("unexpected run count %d (shared %d)", got, sharedCount.Load())
	}
	if g.Running("save-1") {
		t.Fatalf("flight should be cleared")
	}
}

func TestSingleFlight_ReleasesWaitersOnPanic(t *testing.T) {
	var g SingleFlight[string]

	func() {
		defer func() { _ = recover() }()
		_, _, _ = g.Do("save-1", func() (string, error) {
			panic("boom")
		})
	}()

	v, err, shared := g.Do("save-1", func() (string, error) { return "ok", nil })
	if err != nil || shared || v != "ok" {
		t.Fatalf("unexpected result v=%q err=%v shared=%v", v, err, shared)
	}
}
