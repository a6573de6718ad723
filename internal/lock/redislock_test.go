package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-offers/internal/lock"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockSerialisesCallers(t *testing.T) {
	_, client := newClient(t)

	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	key := lock.CartKey("cart-1")

	go func() {
		_ = locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		_ = locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasesOnError(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client}
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), lock.CartKey("cart-2"), time.Second, func(context.Context) error {
		require.True(t, mr.Exists(lock.CartKey("cart-2")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(lock.CartKey("cart-2")))
}

func TestWithLockHonoursContext(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set(lock.CartKey("busy"), "other-owner"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}.WithLock(ctx, lock.CartKey("busy"), time.Second, func(context.Context) error {
		t.Fatal("callback must not run without the lock")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLockRequiresClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotConfigured)
}

func TestWithLockRenewsLease(t *testing.T) {
	mr, client := newClient(t)
	key := lock.CartKey("slow")
	err := lock.Locker{R: client}.WithLock(context.Background(), key, 60*time.Millisecond, func(ctx context.Context) error {
		mr.SetTTL(key, time.Millisecond)
		require.Eventually(t, func() bool { return mr.TTL(key) == 60*time.Millisecond }, time.Second, 5*time.Millisecond)
		return ctx.Err()
	})
	require.NoError(t, err)
	require.False(t, mr.Exists(key))
}

func TestWithLockCancelsWhenLeaseLost(t *testing.T) {
	mr, client := newClient(t)
	key := lock.CartKey("stolen")
	err := lock.Locker{R: client}.WithLock(context.Background(), key, 30*time.Millisecond, func(ctx context.Context) error {
		require.NoError(t, mr.Set(key, "someone-else"))
		<-ctx.Done()
		return context.Cause(ctx)
	})
	require.ErrorIs(t, err, lock.ErrLockLost)
	got, _ := mr.Get(key)
	require.Equal(t, "someone-else", got, "release must not delete another owner's key")
}

func TestWithLockWaitReportsBusy(t *testing.T) {
	mr, client := newClient(t)
	key := lock.CartKey("cart-busy")
	require.NoError(t, mr.Set(key, "other-owner"))

	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, Wait: 40 * time.Millisecond}
	ran := false
	started := time.Now()
	err := locker.WithLock(context.Background(), key, time.Second, func(context.Context) error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrBusy)
	require.False(t, ran)
	require.Less(t, time.Since(started), time.Second)

	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "other-owner", got)
}
