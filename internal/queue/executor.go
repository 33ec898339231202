package queue

import "context"

type ProgressFunc func(downloaded, total int64)

// Executor performs the transfer for a single task and persists its payload
// at task.Dest. Execute blocks until the transfer ends; cancelling ctx aborts
// it. The controller runs at most one Execute at a time.
type Executor interface {
	Execute(ctx context.Context, task Task, progress ProgressFunc) error
}
