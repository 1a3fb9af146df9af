// Package dispatcher fans crawl work out to a bounded pool of goroutines.
package dispatcher

import (
	"context"
	"iter"
	"sync"
)

// Run hands every item of items to fn using at most workers goroutines and
// blocks until all started work has returned. Once ctx is done no further
// items are handed out. workers below 1 runs everything on the caller's
// goroutine, in order.
func Run[T any](ctx context.Context, workers int, items iter.Seq[T], fn func(context.Context, T)) {
	if workers <= 1 {
		for item := range items {
			if ctx.Err() != nil {
				return
			}
			fn(ctx, item)
		}
		return
	}

	jobs := make(chan T)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				fn(ctx, item)
			}
		}()
	}

	defer wg.Wait()
	defer close(jobs)
	feed(ctx, items, jobs)
}

func feed[T any](ctx context.Context, items iter.Seq[T], jobs chan<- T) {
	for item := range items {
		select {
		case <-ctx.Done():
			return
		case jobs <- item:
		}
	}
}
