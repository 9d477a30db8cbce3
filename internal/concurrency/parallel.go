package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions bounds a parallel run.
type ParallelOptions struct {
	// MaxWorkers is the number of goroutines pulling items.
	MaxWorkers int
}

func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

// Result pairs an item's value with its error.
type Result[R any] struct {
	Value R
	Err   error
}

func workers(opts ParallelOptions, n int) int {
	w := opts.MaxWorkers
	if w <= 0 {
		w = 10
	}
	if w > n {
		w = n
	}
	return w
}

// ProcessParallel runs itemFunc over items with at most opts.MaxWorkers in
// flight. Results are index-aligned with items. Items not started before
// ctx is done get ctx.Err() as their error.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers(opts, len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					out[i].Err = err
					continue
				}
				v, err := itemFunc(ctx, i, items[i])
				out[i] = Result[R]{Value: v, Err: err}
			}
		}()
	}
	wg.Wait()
	return out
}

// ForEach is ProcessParallel for side effects only. It returns the non-nil
// errors in item order.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) error,
) []error {
	res := ProcessParallel(ctx, items, opts, func(ctx context.Context, i int, item T) (struct{}, error) {
		return struct{}{}, itemFunc(ctx, i, item)
	})
	return Errors(res)
}

// Errors collects the non-nil errors of rs in order.
func Errors[R any](rs []Result[R]) []error {
	var errs []error
	for _, r := range rs {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
