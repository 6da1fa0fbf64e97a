package recovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/infrastructure"
	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

// Poller is the recovery loop: each tick re-drives stuck INIT rows and
// compensates FAIL rows. One tick runs at a time; ticker delivery plus a
// synchronous tick body keep it non-reentrant, row status is the
// concurrency gate against the dispatcher.
type Poller struct {
	outbox usecase.OutboxUseCase
	saga   usecase.SagaUseCase
	sender infrastructure.EventsSender
	logger logger.Interface

	interval       time.Duration
	batchSize      int
	maxAttempts    int
	retryDelay     time.Duration
	maxConcurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	outbox usecase.OutboxUseCase,
	saga usecase.SagaUseCase,
	sender infrastructure.EventsSender,
	l logger.Interface,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	retryDelay time.Duration,
	maxConcurrency int,
) *Poller {
	return &Poller{
		outbox:         outbox,
		saga:           saga,
		sender:         sender,
		logger:         l,
		interval:       interval,
		batchSize:      batchSize,
		maxAttempts:    maxAttempts,
		retryDelay:     retryDelay,
		maxConcurrency: maxConcurrency,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Poller - Start - worker already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.tick(p.ctx)
			}
		}
	}()

	return nil
}

func (p *Poller) tick(ctx context.Context) {
	p.redriveInitEvents(ctx)
	p.compensateFailEvents(ctx)
}

// redriveInitEvents re-attempts dispatch of stuck INIT rows with bounded
// fan-out; the retry budget exhausting marks the row FAIL for the
// compensation pass.
func (p *Poller) redriveInitEvents(ctx context.Context) {
	events, err := p.outbox.GetInitEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error(err, "Poller - redriveInitEvents - p.outbox.GetInitEvents")

		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)

	for _, event := range events {
		event := event
		g.Go(func() error {
			p.redrive(gctx, event)
			return nil
		})
	}

	_ = g.Wait()
}

func (p *Poller) redrive(ctx context.Context, event *entity.OutboxEvent) {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
		}

		lastErr = p.sender.SendEvent(ctx, event)
		if lastErr == nil {
			err := p.outbox.MarkSuccess(ctx, event.AggregateID, event.EventType)
			if err != nil {
				p.logger.Error(err, "Poller - redrive - p.outbox.MarkSuccess")
			}

			return
		}
	}

	p.logger.Error(lastErr, "Poller - redrive - retry budget exhausted, marking FAIL")

	err := p.outbox.MarkFail(ctx, event.AggregateID, event.EventType)
	if err != nil {
		p.logger.Error(err, "Poller - redrive - p.outbox.MarkFail")
	}
}

// compensateFailEvents runs the event-type-specific compensation for each
// FAIL row; the saga marks the row SUCCESS once compensation resolved it.
func (p *Poller) compensateFailEvents(ctx context.Context) {
	events, err := p.outbox.GetFailEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error(err, "Poller - compensateFailEvents - p.outbox.GetFailEvents")

		return
	}

	for _, event := range events {
		err := p.saga.Compensate(ctx, event)
		if err != nil {
			p.logger.Error(err, "Poller - compensateFailEvents - p.saga.Compensate")
		}
	}
}

func (p *Poller) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
