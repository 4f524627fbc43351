package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func makeItems(n int) []WorkItem {
	items := make([]WorkItem, n)
	for i := range items {
		items[i] = WorkItem{Key: fmt.Sprintf("item-%03d", i)}
	}
	return items
}

func TestRunBatchAllSucceed(t *testing.T) {
	items := makeItems(20)
	outcome, err := runBatch(context.Background(), items, func(ctx context.Context, item WorkItem) error {
		return nil
	}, 4, nil)
	if err != nil {
		t.Fatalf("runBatch() error = %v, want nil", err)
	}
	if outcome.Succeeded != 20 || len(outcome.Failed) != 0 {
		t.Errorf("outcome = %d succeeded / %d failed, want 20/0", outcome.Succeeded, len(outcome.Failed))
	}
}

func TestRunBatchPartialFailures(t *testing.T) {
	const n, k = 50, 7
	items := makeItems(n)
	failing := make(map[string]bool, k)
	for i := 0; i < k; i++ {
		failing[fmt.Sprintf("item-%03d", i*5)] = true
	}

	var progressCalls int
	lastDone := 0
	outcome, err := runBatch(context.Background(), items, func(ctx context.Context, item WorkItem) error {
		if failing[item.Key] {
			return errors.New("synthetic failure")
		}
		return nil
	}, 8, func(done, total int) {
		progressCalls++
		if done != lastDone+1 {
			t.Errorf("progress done = %d after %d, want strictly increasing by 1", done, lastDone)
		}
		lastDone = done
		if total != n {
			t.Errorf("progress total = %d, want %d", total, n)
		}
	})
	if err != nil {
		t.Fatalf("runBatch() error = %v, want nil", err)
	}
	if outcome.Succeeded != n-k {
		t.Errorf("Succeeded = %d, want %d", outcome.Succeeded, n-k)
	}
	if len(outcome.Failed) != k {
		t.Errorf("len(Failed) = %d, want %d", len(outcome.Failed), k)
	}
	if progressCalls != n {
		t.Errorf("progress callback invoked %d times, want %d", progressCalls, n)
	}
	for key := range outcome.Failed {
		if !failing[key] {
			t.Errorf("unexpected failure recorded for %s", key)
		}
	}
}

func TestRunBatchTallyInvariant(t *testing.T) {
	items := makeItems(30)
	outcome, err := runBatch(context.Background(), items, func(ctx context.Context, item WorkItem) error {
		if strings.HasSuffix(item.Key, "7") {
			return errors.New("no")
		}
		return nil
	}, 3, nil)
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	if outcome.Succeeded+len(outcome.Failed) != len(items) {
		t.Errorf("succeeded %d + failed %d != submitted %d", outcome.Succeeded, len(outcome.Failed), len(items))
	}
}

func TestRunBatchInterruptDrainsInFlight(t *testing.T) {
	const n, workers = 40, 4
	items := makeItems(n)
	ctx, cancel := context.WithCancel(context.Background())

	var started, finished atomic.Int32
	release := make(chan struct{})
	var once sync.Once

	outcome, err := runBatch(ctx, items, func(ctx context.Context, item WorkItem) error {
		started.Add(1)
		// Cancel while the first wave is in flight, then let it finish.
		once.Do(func() {
			cancel()
			close(release)
		})
		<-release
		time.Sleep(5 * time.Millisecond)
		finished.Add(1)
		return nil
	}, workers, nil)

	if !errors.Is(err, errInterrupted) {
		t.Fatalf("runBatch() error = %v, want errInterrupted", err)
	}
	// Every item that started must have been allowed to finish.
	if started.Load() != finished.Load() {
		t.Errorf("started %d items but only %d finished; in-flight work was not drained", started.Load(), finished.Load())
	}
	// Unstarted items appear in neither tally.
	if got := outcome.Succeeded + len(outcome.Failed); got != int(finished.Load()) {
		t.Errorf("tally %d != completed %d", got, finished.Load())
	}
	if outcome.Succeeded >= n {
		t.Errorf("interrupt had no effect: all %d items ran", n)
	}
}

func TestRunBatchInterruptedWorkerContextNotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sawCancelled atomic.Bool

	_, err := runBatch(ctx, makeItems(10), func(ctx context.Context, item WorkItem) error {
		cancel()
		time.Sleep(2 * time.Millisecond)
		if ctx.Err() != nil {
			sawCancelled.Store(true)
		}
		return nil
	}, 2, nil)

	if !errors.Is(err, errInterrupted) {
		t.Fatalf("runBatch() error = %v, want errInterrupted", err)
	}
	if sawCancelled.Load() {
		t.Error("worker context was cancelled mid-item; in-flight work must run to completion")
	}
}

func TestRunBatchEmpty(t *testing.T) {
	outcome, err := runBatch(context.Background(), nil, func(ctx context.Context, item WorkItem) error {
		t.Error("worker invoked for empty batch")
		return nil
	}, 4, nil)
	if err != nil {
		t.Fatalf("runBatch() error = %v, want nil", err)
	}
	if outcome.Succeeded != 0 || len(outcome.Failed) != 0 {
		t.Errorf("outcome = %+v, want empty", outcome)
	}
}

func TestRunBatchConcurrencyCap(t *testing.T) {
	const maxWorkers = 3
	var active, peak atomic.Int32
	_, err := runBatch(context.Background(), makeItems(24), func(ctx context.Context, item WorkItem) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return nil
	}, maxWorkers, nil)
	if err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	if got := peak.Load(); got > maxWorkers {
		t.Errorf("observed %d concurrent workers, cap is %d", got, maxWorkers)
	}
}
