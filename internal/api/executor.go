package api

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Concurrency model names accepted by NewExecutor.
const (
	ConcurrencyParallel    = "parallel"
	ConcurrencyCooperative = "cooperative"
)

// Executor fans out n independent tasks. Implementations differ only in
// scheduling; fn receives the task index and results are reassembled by the
// caller in index order, so both are interchangeable for pagination and
// file transfer.
type Executor interface {
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Parallel returns an Executor that runs up to limit tasks at once on an
// errgroup. The first error cancels the remaining tasks. limit <= 0 means
// runtime.NumCPU().
func Parallel(limit int) Executor {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	return parallelExecutor{limit: limit}
}

type parallelExecutor struct {
	limit int
}

func (p parallelExecutor) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i := range n {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			return fn(gctx, i)
		})
	}

	return g.Wait()
}

// Cooperative returns an Executor that runs one task at a time on the
// calling goroutine. Cancellation is observed between tasks and by every
// request and sleep inside a task.
func Cooperative() Executor {
	return cooperativeExecutor{}
}

type cooperativeExecutor struct{}

func (cooperativeExecutor) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(ctx, i); err != nil {
			return err
		}
	}

	return nil
}

// NewExecutor maps a configured concurrency model name to an Executor.
func NewExecutor(model string, limit int) (Executor, error) {
	switch model {
	case "", ConcurrencyParallel:
		return Parallel(limit), nil
	case ConcurrencyCooperative:
		return Cooperative(), nil
	default:
		return nil, fmt.Errorf("anaplan: unknown concurrency model %q", model)
	}
}
