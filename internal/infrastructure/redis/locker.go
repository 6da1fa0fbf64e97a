package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"

	"github.com/orderflow/orderflow/pkg/redisclient"
)

// ErrLockBusy means another consumer instance is handling the same
// logical event right now.
var ErrLockBusy = errors.New("event lock is busy")

// EventLocker takes a short-TTL distributed mutex per event before a saga
// step runs, so broker redelivery across instances cannot advance the
// same event twice. Single try: a busy lock is a skip, not a wait.
type EventLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewEventLocker(rc *redisclient.RedisClient, ttl time.Duration) *EventLocker {
	pool := goredis.NewPool(rc.Client)

	return &EventLocker{
		rs:  redsync.New(pool),
		ttl: ttl,
	}
}

func (l *EventLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		"lock:"+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return fmt.Errorf("EventLocker - WithLock: %w", ErrLockBusy)
		}
		return fmt.Errorf("EventLocker - WithLock - mutex.LockContext: %w", err)
	}

	defer func() {
		// TTL expiry also releases the lock, an unlock error is not fatal.
		_, _ = mutex.UnlockContext(ctx)
	}()

	return fn(ctx)
}
