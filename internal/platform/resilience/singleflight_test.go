package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[[]byte]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			got, err, _ := g.Do("/livescores/list", func() ([]byte, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return []byte("[]"), nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if string(got) != "[]" {
				t.Errorf("unexpected shared value: %q", got)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_ForgetsKeyAfterError(t *testing.T) {
	var g SingleFlight[int]
	errBoom := errors.New("boom")

	if _, err, _ := g.Do("k", func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	got, err, shared := g.Do("k", func() (int, error) { return 7, nil })
	if err != nil || got != 7 || shared {
		t.Fatalf("expected fresh call, got=%d err=%v shared=%v", got, err, shared)
	}
}

func TestSingleFlight_DoContextCancelledLeaderLeavesCallRunning(t *testing.T) {
	var g SingleFlight[string]
	var runs atomic.Int32
	release := make(chan struct{})
	fn := func() (string, error) {
		runs.Add(1)
		<-release
		return "board", nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err, _ := g.DoContext(leaderCtx, "/livescores/list", fn)
		leaderErr <- err
	}()
	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected leader to stop with its own cancellation, got %v", err)
	}

	time.AfterFunc(50*time.Millisecond, func() { close(release) })
	got, err, shared := g.DoContext(context.Background(), "/livescores/list", func() (string, error) {
		t.Errorf("follower must join the running call")
		return "", nil
	})
	if err != nil || got != "board" || !shared {
		t.Fatalf("unexpected follower result: got=%q err=%v shared=%v", got, err, shared)
	}
	if n := runs.Load(); n != 1 {
		t.Fatalf("expected one shared run, got %d", n)
	}
}

func TestSingleFlight_DoContextFollowerGivesUp(t *testing.T) {
	var g SingleFlight[int]
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go g.Do("k", func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err, shared := g.DoContext(ctx, "k", func() (int, error) { return 2, nil }); !errors.Is(err, context.DeadlineExceeded) || !shared {
		t.Fatalf("expected follower deadline, got err=%v shared=%v", err, shared)
	}
}
