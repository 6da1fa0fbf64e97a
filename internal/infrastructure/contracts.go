package infrastructure

import (
	"context"

	"github.com/orderflow/orderflow/internal/entity"
)

type (
	EventsSender interface {
		SendEvent(ctx context.Context, event *entity.OutboxEvent) error
		Close() error
	}

	// EventLocker serializes delivery-retries of the same logical event
	// across consumer instances. ErrLockBusy means another instance holds
	// the section; the caller skips without committing the offset.
	EventLocker interface {
		WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
	}
)
