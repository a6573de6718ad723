package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskClient is the subset of *asynq.Client the Enqueuer needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes reprice tasks. Tasks are unique per cart for DedupTTL,
// so a burst of line changes collapses into one reprice.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	DedupTTL time.Duration
	MaxRetry int
}

// EnqueueReprice schedules a reprice of cartID. A task already pending for the
// same cart is not an error.
func (e Enqueuer) EnqueueReprice(ctx context.Context, cartID string) error {
	if e.Client == nil {
		return errors.New("queue: task client not configured")
	}
	payload, err := encodeReprice(cartID)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, asynq.NewTask(TypeCartReprice, payload), e.options()...)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue reprice: %w", err)
	}
	return nil
}

func (e Enqueuer) options() []asynq.Option {
	queue := e.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	ttl := e.DedupTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 10
	}
	return []asynq.Option{asynq.Queue(queue), asynq.Unique(ttl), asynq.MaxRetry(maxRetry)}
}
