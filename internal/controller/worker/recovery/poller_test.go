package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

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

type mockSagaUseCase struct {
	mock.Mock
}

func (m *mockSagaUseCase) CreateOrder(ctx context.Context, userID uuid.UUID, items []entity.OrderItem) (*entity.Order, error) {
	args := m.Called(ctx, userID, items)
	if order, ok := args.Get(0).(*entity.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSagaUseCase) DeductStock(ctx context.Context, payload entity.OrderCreatedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *mockSagaUseCase) CompletePayment(ctx context.Context, payload entity.DeductStockPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *mockSagaUseCase) Compensate(ctx context.Context, event *entity.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockSagaUseCase) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, id)
	if order, ok := args.Get(0).(*entity.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
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

func newTestPoller(outboxUC *mockOutboxUseCase, sagaUC *mockSagaUseCase, sender *mockSender) *Poller {
	return New(outboxUC, sagaUC, sender, nopLogger{},
		time.Second, 10, 2, time.Millisecond, 2)
}

func TestRedriveInitEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("stuck INIT row gets republished", func(t *testing.T) {
		outboxUC := &mockOutboxUseCase{}
		sender := &mockSender{}
		p := newTestPoller(outboxUC, &mockSagaUseCase{}, sender)

		event := &entity.OutboxEvent{AggregateID: "order-1", EventType: entity.TopicOrderCreated}

		outboxUC.On("GetInitEvents", ctx, 10).Return([]*entity.OutboxEvent{event}, nil).Once()
		sender.On("SendEvent", mock.Anything, event).Return(nil).Once()
		outboxUC.On("MarkSuccess", mock.Anything, "order-1", entity.TopicOrderCreated).Return(nil).Once()

		p.redriveInitEvents(ctx)

		sender.AssertExpectations(t)
		outboxUC.AssertExpectations(t)
	})

	t.Run("retry budget exhausted marks FAIL", func(t *testing.T) {
		outboxUC := &mockOutboxUseCase{}
		sender := &mockSender{}
		p := newTestPoller(outboxUC, &mockSagaUseCase{}, sender)

		event := &entity.OutboxEvent{AggregateID: "order-1", EventType: entity.TopicOrderCreated}

		outboxUC.On("GetInitEvents", ctx, 10).Return([]*entity.OutboxEvent{event}, nil).Once()
		sender.On("SendEvent", mock.Anything, event).Return(errors.New("broker unavailable")).Times(2)
		outboxUC.On("MarkFail", mock.Anything, "order-1", entity.TopicOrderCreated).Return(nil).Once()

		p.redriveInitEvents(ctx)

		sender.AssertExpectations(t)
		outboxUC.AssertExpectations(t)
		outboxUC.AssertNotCalled(t, "MarkSuccess", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCompensateFailEvents(t *testing.T) {
	ctx := context.Background()

	outboxUC := &mockOutboxUseCase{}
	sagaUC := &mockSagaUseCase{}
	p := newTestPoller(outboxUC, sagaUC, &mockSender{})

	failed := []*entity.OutboxEvent{
		{AggregateID: "order-1", EventType: entity.TopicPayment, Status: entity.EventFail},
		{AggregateID: "order-2", EventType: entity.TopicDeductStock, Status: entity.EventFail},
	}

	outboxUC.On("GetFailEvents", ctx, 10).Return(failed, nil).Once()
	sagaUC.On("Compensate", ctx, failed[0]).Return(nil).Once()
	sagaUC.On("Compensate", ctx, failed[1]).Return(errors.New("order lookup failed")).Once()

	p.compensateFailEvents(ctx)

	sagaUC.AssertExpectations(t)
}
