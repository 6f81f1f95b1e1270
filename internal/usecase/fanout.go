package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// BatchFanOut is the generic per-cycle fan-out contract: batch
// size B tasks dispatched in parallel, then await all, then sleep S
// between batches. Uses a bounded github.com/panjf2000/ants/v2 pool with
// sync.WaitGroup and ordered result collection, generalized from
// per-resync-row tasks to any item type T producing a result R.
func BatchFanOut[T any, R any](ctx context.Context, items []T, batchSize int, sleepBetween time.Duration, work func(context.Context, T) R) ([]R, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	results := make([]R, len(items))

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		pool, err := ants.NewPool(len(batch))
		if err != nil {
			return results, fmt.Errorf("create worker pool: %w", err)
		}

		var workers sync.WaitGroup
		for offset, item := range batch {
			idx := start + offset
			item := item
			workers.Add(1)
			if submitErr := pool.Submit(func() {
				defer workers.Done()
				results[idx] = work(ctx, item)
			}); submitErr != nil {
				workers.Done()
			}
		}
		workers.Wait()
		pool.Release()

		if end < len(items) && sleepBetween > 0 {
			timer := time.NewTimer(sleepBetween)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return results, nil
}
