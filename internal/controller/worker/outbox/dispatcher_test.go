package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(message interface{}, args ...interface{}) {}
func (nopLogger) Info(message string, args ...interface{})       {}
func (nopLogger) Warn(message string, args ...interface{})       {}
func (nopLogger) Error(message interface{}, args ...interface{}) {}
func (nopLogger) Fatal(message interface{}, args ...interface{}) {}

type mockOutboxUseCase struct {
	mock.Mock
}

func (m *mockOutboxUseCase) GetInitEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if events, ok := args.Get(0).([]*entity.OutboxEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxUseCase) GetFailEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if events, ok := args.Get(0).([]*entity.OutboxEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxUseCase) MarkSuccess(ctx context.Context, aggregateID, eventType string) error {
	args := m.Called(ctx, aggregateID, eventType)
	return args.Error(0)
}

func (m *mockOutboxUseCase) MarkFail(ctx context.Context, aggregateID, eventType string) error {
	args := m.Called(ctx, aggregateID, eventType)
	return args.Error(0)
}

func (m *mockOutboxUseCase) IncrementRetry(ctx context.Context, aggregateID, eventType string) error {
	args := m.Called(ctx, aggregateID, eventType)
	return args.Error(0)
}

func (m *mockOutboxUseCase) ArchiveResolved(ctx context.Context, olderThan time.Time) error {
	args := m.Called(ctx, olderThan)
	return args.Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEvent(ctx context.Context, event *entity.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockSender) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestDispatcher(outboxUC *mockOutboxUseCase, sender *mockSender) *Dispatcher {
	return New(outboxUC, sender, nopLogger{},
		time.Second, time.Hour, time.Hour, 10, 3, time.Millisecond)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	event := &entity.OutboxEvent{
		AggregateID: "order-1",
		EventType:   entity.TopicOrderCreated,
		Status:      entity.EventInit,
	}

	t.Run("publish succeeds, row goes to SUCCESS", func(t *testing.T) {
		outboxUC := &mockOutboxUseCase{}
		sender := &mockSender{}
		d := newTestDispatcher(outboxUC, sender)

		sender.On("SendEvent", ctx, event).Return(nil).Once()
		outboxUC.On("MarkSuccess", ctx, event.AggregateID, event.EventType).Return(nil).Once()

		d.dispatch(ctx, event)

		sender.AssertExpectations(t)
		outboxUC.AssertExpectations(t)
		outboxUC.AssertNotCalled(t, "MarkFail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transient failure retries then succeeds", func(t *testing.T) {
		outboxUC := &mockOutboxUseCase{}
		sender := &mockSender{}
		d := newTestDispatcher(outboxUC, sender)

		sender.On("SendEvent", ctx, event).Return(errors.New("broker unavailable")).Once()
		sender.On("SendEvent", ctx, event).Return(nil).Once()
		outboxUC.On("IncrementRetry", ctx, event.AggregateID, event.EventType).Return(nil).Once()
		outboxUC.On("MarkSuccess", ctx, event.AggregateID, event.EventType).Return(nil).Once()

		d.dispatch(ctx, event)

		sender.AssertExpectations(t)
		outboxUC.AssertExpectations(t)
	})

	t.Run("retry budget exhausted, row goes to FAIL", func(t *testing.T) {
		outboxUC := &mockOutboxUseCase{}
		sender := &mockSender{}
		d := newTestDispatcher(outboxUC, sender)

		sender.On("SendEvent", ctx, event).Return(errors.New("broker unavailable")).Times(3)
		outboxUC.On("IncrementRetry", ctx, event.AggregateID, event.EventType).Return(nil).Times(3)
		outboxUC.On("MarkFail", ctx, event.AggregateID, event.EventType).Return(nil).Once()

		d.dispatch(ctx, event)

		sender.AssertExpectations(t)
		outboxUC.AssertExpectations(t)
		outboxUC.AssertNotCalled(t, "MarkSuccess", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDispatchBatch(t *testing.T) {
	ctx := context.Background()

	outboxUC := &mockOutboxUseCase{}
	sender := &mockSender{}
	d := newTestDispatcher(outboxUC, sender)

	events := []*entity.OutboxEvent{
		{AggregateID: "order-1", EventType: entity.TopicOrderCreated},
		{AggregateID: "order-2", EventType: entity.TopicDeductStock},
	}

	outboxUC.On("GetInitEvents", ctx, 10).Return(events, nil).Once()
	sender.On("SendEvent", ctx, events[0]).Return(nil).Once()
	sender.On("SendEvent", ctx, events[1]).Return(nil).Once()
	outboxUC.On("MarkSuccess", ctx, "order-1", entity.TopicOrderCreated).Return(nil).Once()
	outboxUC.On("MarkSuccess", ctx, "order-2", entity.TopicDeductStock).Return(nil).Once()

	d.dispatchBatch(ctx)

	sender.AssertExpectations(t)
	outboxUC.AssertExpectations(t)
}

func TestDispatcherStartTwice(t *testing.T) {
	outboxUC := &mockOutboxUseCase{}
	sender := &mockSender{}
	d := newTestDispatcher(outboxUC, sender)

	sender.On("Close").Return(nil)
	outboxUC.On("GetInitEvents", mock.Anything, mock.Anything).
		Return([]*entity.OutboxEvent{}, nil).Maybe()
	outboxUC.On("ArchiveResolved", mock.Anything, mock.Anything).Return(nil).Maybe()

	require.NoError(t, d.Start(context.Background()))
	require.Error(t, d.Start(context.Background()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(shutdownCtx))
}
