package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/infrastructure"
	kafkapc "github.com/orderflow/orderflow/internal/infrastructure/kafka"
	infraredis "github.com/orderflow/orderflow/internal/infrastructure/redis"
	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

// KafkaController consumes the saga topics and advances the next step.
// Offsets are committed only after the handler transaction committed; a
// FAIL outcome is recorded on the outbox row, so an uncommitted redelivery
// short-circuits on the next attempt instead of re-running the step.
type KafkaController struct {
	saga   usecase.SagaUseCase
	ec     *kafkapc.EventConsumer
	locker infrastructure.EventLocker
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	saga usecase.SagaUseCase,
	ec *kafkapc.EventConsumer,
	locker infrastructure.EventLocker,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
	workers int,
) *KafkaController {
	return &KafkaController{
		saga:           saga,
		ec:             ec,
		locker:         locker,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
		workers:        workers,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	tasks := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				event, err := c.ec.ReadEvent(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "KafkaController - Start - c.ec.ReadEvent")
					}
					continue
				}

				select {
				case tasks <- event:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

func (c *KafkaController) handleEvent(ctx context.Context, event kafka.Message) error {
	lockKey := event.Topic + ":" + string(event.Key)

	return c.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		switch event.Topic {
		case entity.TopicOrderCreated:
			var payload entity.OrderCreatedPayload
			if err := json.Unmarshal(event.Value, &payload); err != nil {
				return fmt.Errorf("KafkaController - handleEvent - json.Unmarshal: %w", err)
			}

			return c.saga.DeductStock(ctx, payload)
		case entity.TopicDeductStock:
			var payload entity.DeductStockPayload
			if err := json.Unmarshal(event.Value, &payload); err != nil {
				return fmt.Errorf("KafkaController - handleEvent - json.Unmarshal: %w", err)
			}

			return c.saga.CompletePayment(ctx, payload)
		default:
			return fmt.Errorf("KafkaController - handleEvent - unexpected topic %q", event.Topic)
		}
	})
}

func (c *KafkaController) worker(tasks <-chan kafka.Message) {
	defer c.wg.Done()

	for event := range tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(fmt.Errorf("panic %v", r), "KafkaController - worker - panic")
				}
			}()

			processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
			err := c.handleEvent(processCtx, event)
			processCancel()
			if err != nil {
				// Busy lock: another instance is on it, redelivery will
				// find a resolved row and short-circuit.
				if errors.Is(err, infraredis.ErrLockBusy) {
					return
				}

				c.logger.Error(err, "KafkaController - worker - c.handleEvent")

				return
			}

			commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
			err = c.ec.CommitEvent(commitCtx, event)
			commitCancel()
			if err != nil {
				c.logger.Error(err, "KafkaController - worker - c.ec.CommitEvent")
			}
		}()
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		if err := c.ec.Close(); err != nil {
			c.logger.Error(err, "KafkaController - Shutdown - c.ec.Close")
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
