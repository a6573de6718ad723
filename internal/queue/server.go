package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-offers/internal/resilience"
)

// ServerConfig tunes the reprice worker.
type ServerConfig struct {
	Concurrency int
	Queue       string
	RetryBase   time.Duration
	RetryJitter float64
	Logger      zerolog.Logger
}

// NewServer builds an asynq server that consumes the reprice queue.
func NewServer(opt asynq.RedisConnOpt, cfg ServerConfig) *asynq.Server {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger := cfg.Logger
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{queue: 1},
		RetryDelayFunc: RetryDelay(cfg.RetryBase, cfg.RetryJitter),
		Logger:         zerologAdapter{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).
				Str("type", task.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	})
}

// RetryDelay returns an asynq retry policy using exponential backoff with jitter.
func RetryDelay(base time.Duration, jitter float64) asynq.RetryDelayFunc {
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return resilience.Backoff(base, n+1, jitter)
	}
}

// WatchDepth samples queue sizes into QueueDepth until ctx is done.
func WatchDepth(ctx context.Context, inspector *asynq.Inspector, queue string, every time.Duration, logger zerolog.Logger) {
	if every <= 0 {
		every = 15 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := inspector.GetQueueInfo(queue)
			if err != nil {
				logger.Debug().Err(err).Str("queue", queue).Msg("queue info unavailable")
				continue
			}
			QueueDepth.WithLabelValues(queue, "pending").Set(float64(info.Pending))
			QueueDepth.WithLabelValues(queue, "retry").Set(float64(info.Retry))
			QueueDepth.WithLabelValues(queue, "archived").Set(float64(info.Archived))
		}
	}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Debug(args ...interface{}) { a.logger.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...interface{})  { a.logger.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...interface{})  { a.logger.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...interface{}) { a.logger.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...interface{}) { a.logger.Fatal().Msg(fmt.Sprint(args...)) }
