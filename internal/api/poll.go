package api

import (
	"context"
	"fmt"
	"log/slog"
)

// Task states reported by the server. A task never leaves TaskComplete.
const (
	TaskNotStarted = "NOT_STARTED"
	TaskInProgress = "IN_PROGRESS"
	TaskComplete   = "COMPLETE"
)

// TaskStater is implemented by task objects returned from a status probe.
type TaskStater interface {
	State() string
}

// PollTask invokes probe until the returned task reports COMPLETE, sleeping
// the service poll delay between probes. Cancellation of ctx interrupts both
// the probe and the sleep.
func PollTask[T TaskStater](ctx context.Context, s *Service, probe func(ctx context.Context) (T, error)) (T, error) {
	for polls := 1; ; polls++ {
		task, err := probe(ctx)
		if err != nil {
			var zero T
			return zero, err
		}

		if task.State() == TaskComplete {
			s.logger.Debug("task complete", slog.Int("polls", polls))
			return task, nil
		}

		s.logger.Debug("task not complete, waiting",
			slog.String("state", task.State()),
			slog.Duration("delay", s.pollDelay),
		)

		if err := s.sleepFunc(ctx, s.pollDelay); err != nil {
			var zero T
			return zero, fmt.Errorf("anaplan: polling canceled: %w", err)
		}
	}
}
