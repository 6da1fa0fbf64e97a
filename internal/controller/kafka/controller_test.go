package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/entity"
	infraredis "github.com/orderflow/orderflow/internal/infrastructure/redis"
)

type nopLogger struct{}

func (nopLogger) Debug(message interface{}, args ...interface{}) {}
func (nopLogger) Info(message string, args ...interface{})       {}
func (nopLogger) Warn(message string, args ...interface{})       {}
func (nopLogger) Error(message interface{}, args ...interface{}) {}
func (nopLogger) Fatal(message interface{}, args ...interface{}) {}

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

// passLocker runs the section inline; busyLocker simulates a lock held by
// another instance.
type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return infraredis.ErrLockBusy
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	userID := uuid.New()

	t.Run("order.created drives stock deduction", func(t *testing.T) {
		sagaUC := &mockSagaUseCase{}
		c := New(sagaUC, nil, passLocker{}, nopLogger{}, time.Second, time.Second, 1)

		payload := entity.OrderCreatedPayload{OrderID: orderID, UserID: userID, Total: 300}
		value, err := json.Marshal(payload)
		require.NoError(t, err)

		sagaUC.On("DeductStock", mock.Anything, payload).Return(nil).Once()

		err = c.handleEvent(ctx, kafka.Message{
			Topic: entity.TopicOrderCreated,
			Key:   []byte("order-" + orderID.String()),
			Value: value,
		})

		require.NoError(t, err)
		sagaUC.AssertExpectations(t)
	})

	t.Run("order.deduct_stock drives payment", func(t *testing.T) {
		sagaUC := &mockSagaUseCase{}
		c := New(sagaUC, nil, passLocker{}, nopLogger{}, time.Second, time.Second, 1)

		payload := entity.DeductStockPayload{OrderID: orderID, UserID: userID, Total: 300}
		value, err := json.Marshal(payload)
		require.NoError(t, err)

		sagaUC.On("CompletePayment", mock.Anything, payload).Return(nil).Once()

		err = c.handleEvent(ctx, kafka.Message{
			Topic: entity.TopicDeductStock,
			Key:   []byte("order-" + orderID.String()),
			Value: value,
		})

		require.NoError(t, err)
		sagaUC.AssertExpectations(t)
	})

	t.Run("unexpected topic", func(t *testing.T) {
		sagaUC := &mockSagaUseCase{}
		c := New(sagaUC, nil, passLocker{}, nopLogger{}, time.Second, time.Second, 1)

		err := c.handleEvent(ctx, kafka.Message{Topic: "order.unknown"})

		require.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		sagaUC := &mockSagaUseCase{}
		c := New(sagaUC, nil, passLocker{}, nopLogger{}, time.Second, time.Second, 1)

		err := c.handleEvent(ctx, kafka.Message{
			Topic: entity.TopicOrderCreated,
			Value: []byte("{broken"),
		})

		require.Error(t, err)
		sagaUC.AssertNotCalled(t, "DeductStock", mock.Anything, mock.Anything)
	})

	t.Run("busy lock skips the handler", func(t *testing.T) {
		sagaUC := &mockSagaUseCase{}
		c := New(sagaUC, nil, busyLocker{}, nopLogger{}, time.Second, time.Second, 1)

		err := c.handleEvent(ctx, kafka.Message{Topic: entity.TopicOrderCreated})

		require.True(t, errors.Is(err, infraredis.ErrLockBusy))
		sagaUC.AssertNotCalled(t, "DeductStock", mock.Anything, mock.Anything)
	})
}
