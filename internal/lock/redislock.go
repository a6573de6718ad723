package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotConfigured is returned when a Locker has no Redis client.
	ErrNotConfigured = errors.New("lock: redis client not configured")
	// ErrLockLost is the cancellation cause seen by fn when the lease could
	// not be renewed because another owner holds the key.
	ErrLockLost = errors.New("lock: lease lost")
	// ErrBusy is returned when Wait elapses before the key could be taken.
	ErrBusy = errors.New("lock: held by another owner")
)

// Both scripts act only while the key still carries our token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker serialises pricing runs on one cart across API and worker processes.
// While fn runs the lease is renewed every ttl/3. A positive Wait bounds
// acquisition only; fn itself runs under the caller's ctx.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	Wait         time.Duration
}

// CartKey returns the lock key guarding a single cart.
func CartKey(cartID string) string {
	return "offers:lock:cart:" + cartID
}

// WithLock waits for key, runs fn and releases the key, even when fn fails.
// If ctx ends first ctx.Err() is returned and fn never runs; if Wait elapses
// first the error is ErrBusy.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	token := uuid.NewString()
	if err := l.acquire(ctx, key, token, ttl, retry); err != nil {
		return err
	}
	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.R, []string{key}, token).Err()
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	done := make(chan struct{})
	defer close(done)
	go l.renew(runCtx, cancel, done, key, token, ttl)

	return fn(runCtx)
}

func (l Locker) acquire(ctx context.Context, key, token string, ttl, retry time.Duration) error {
	waitCtx := ctx
	if l.Wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.Wait)
		defer cancel()
	}
	for {
		ok, err := l.R.SetNX(waitCtx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return ErrBusy
			}
			return err
		}
		if ok {
			return nil
		}
		timer := time.NewTimer(retry)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrBusy
		case <-timer.C:
		}
	}
}

func (l Locker) renew(ctx context.Context, cancel context.CancelCauseFunc, done <-chan struct{}, key, token string, ttl time.Duration) {
	every := ttl / 3
	if every < time.Millisecond {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, l.R, []string{key}, token, ttl.Milliseconds()).Int64()
			if err == nil && n == 0 {
				cancel(ErrLockLost)
				return
			}
		}
	}
}
