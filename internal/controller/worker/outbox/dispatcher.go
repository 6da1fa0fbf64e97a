package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/infrastructure"
	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

// Dispatcher drains INIT outbox rows to the broker. Publish failures are
// recorded on the row (FAIL after the retry budget), never propagated: the
// recovery poller owns stuck and failed rows from there.
type Dispatcher struct {
	outbox usecase.OutboxUseCase
	sender infrastructure.EventsSender
	logger logger.Interface

	pollInterval    time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	batchSize       int
	maxAttempts     int
	retryDelay      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	outbox usecase.OutboxUseCase,
	sender infrastructure.EventsSender,
	l logger.Interface,
	pollInterval time.Duration,
	cleanupInterval time.Duration,
	retention time.Duration,
	batchSize int,
	maxAttempts int,
	retryDelay time.Duration,
) *Dispatcher {
	return &Dispatcher{
		outbox:          outbox,
		sender:          sender,
		logger:          l,
		pollInterval:    pollInterval,
		cleanupInterval: cleanupInterval,
		retention:       retention,
		batchSize:       batchSize,
		maxAttempts:     maxAttempts,
		retryDelay:      retryDelay,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Dispatcher - Start - worker already started")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// 1. publish pending events
	d.worker(d.pollInterval, func() {
		d.dispatchBatch(d.ctx)
	})

	// 2. archive + cleanup resolved events
	d.worker(d.cleanupInterval, func() {
		err := d.outbox.ArchiveResolved(d.ctx, time.Now().Add(-d.retention))
		if err != nil {
			d.logger.Error(err, "Dispatcher - Start - worker - d.outbox.ArchiveResolved")
		}
	})

	return nil
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) {
	events, err := d.outbox.GetInitEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error(err, "Dispatcher - dispatchBatch - d.outbox.GetInitEvents")

		return
	}

	for _, event := range events {
		d.dispatch(ctx, event)
	}
}

// dispatch tries the publish up to maxAttempts times with a fixed delay;
// the outcome lands on the outbox row either way.
func (d *Dispatcher) dispatch(ctx context.Context, event *entity.OutboxEvent) {
	var lastErr error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.retryDelay):
			}
		}

		lastErr = d.sender.SendEvent(ctx, event)
		if lastErr == nil {
			err := d.outbox.MarkSuccess(ctx, event.AggregateID, event.EventType)
			if err != nil {
				d.logger.Error(err, "Dispatcher - dispatch - d.outbox.MarkSuccess")
			}

			return
		}

		incErr := d.outbox.IncrementRetry(ctx, event.AggregateID, event.EventType)
		if incErr != nil {
			d.logger.Error(incErr, "Dispatcher - dispatch - d.outbox.IncrementRetry")
		}
	}

	d.logger.Error(lastErr, "Dispatcher - dispatch - retry budget exhausted, marking FAIL")

	err := d.outbox.MarkFail(ctx, event.AggregateID, event.EventType)
	if err != nil {
		d.logger.Error(err, "Dispatcher - dispatch - d.outbox.MarkFail")
	}
}

func (d *Dispatcher) worker(interval time.Duration, task func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if !d.started.Load() {
		return nil
	}

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		if err := d.sender.Close(); err != nil {
			d.logger.Error(err, "Dispatcher - Shutdown - d.sender.Close")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
