// runner.go
package main

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// errInterrupted is returned by runBatch after an external interrupt, once
// every in-flight item has drained.
var errInterrupted = errors.New("interrupted")

// WorkItem is one unit of download or transform work. Key identifies the item
// in failure maps and diagnostics; Source and Dest are interpreted by the
// worker body.
type WorkItem struct {
	Key    string
	Source string
	Dest   string
}

// WorkerFunc is the per-item body plugged into runBatch. The context it
// receives is never cancelled mid-item: an item that starts runs to
// completion even when the batch is interrupted.
type WorkerFunc func(ctx context.Context, item WorkItem) error

// BatchOutcome tallies one batch. Succeeded + len(Failed) equals the number
// of items submitted unless the batch was interrupted, in which case items
// that never started appear in neither.
type BatchOutcome struct {
	Succeeded int
	Failed    map[string]error
}

type itemResult struct {
	item WorkItem
	err  error
}

// runBatch executes items on a fixed pool of concurrency workers. Completion
// order is first-finished; onProgress (may be nil) is invoked once per
// completed item with a strictly increasing done count. Per-item failures are
// collected in the outcome and never stop sibling items.
//
// On context cancellation the feed stops, unstarted items are dropped,
// in-flight items run to completion, and errInterrupted is returned after the
// pool has fully drained.
func runBatch(ctx context.Context, items []WorkItem, worker WorkerFunc, concurrency int, onProgress func(done, total int)) (BatchOutcome, error) {
	outcome := BatchOutcome{Failed: make(map[string]error)}
	total := len(items)
	if total == 0 {
		return outcome, ctx.Err()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > total {
		concurrency = total
	}

	batchID := uuid.NewString()
	log.Debug().Str("batch", batchID).Int("items", total).Int("workers", concurrency).Msg("batch started")

	jobs := make(chan WorkItem)
	results := make(chan itemResult)

	// Feed items until the list is exhausted or the batch is interrupted.
	// Items never sent are simply never executed.
	go func() {
		defer close(jobs)
		for _, item := range items {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	// An item that has been handed to a worker must not be torn down
	// mid-write, so worker bodies get a detached context.
	itemCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- itemResult{item: item, err: worker(itemCtx, item)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		done++
		if res.err != nil {
			outcome.Failed[res.item.Key] = res.err
			log.Debug().Str("batch", batchID).Str("item", res.item.Key).Err(res.err).Msg("item failed")
		} else {
			outcome.Succeeded++
		}
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	if err := ctx.Err(); err != nil {
		log.Debug().Str("batch", batchID).Int("completed", done).Msg("batch interrupted")
		return outcome, errInterrupted
	}
	log.Debug().Str("batch", batchID).Int("succeeded", outcome.Succeeded).Int("failed", len(outcome.Failed)).Msg("batch finished")
	return outcome, nil
}
