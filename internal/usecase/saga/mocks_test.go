package saga

import (
	"context"
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

// fakeTransactor runs the callback directly; repo mocks observe calls as
// if inside the transaction.
type fakeTransactor struct {
	err error
}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	if t.err != nil {
		return t.err
	}

	return f(ctx)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) CreateItems(ctx context.Context, items []entity.OrderItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, id)
	if order, ok := args.Get(0).(*entity.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if items, ok := args.Get(0).([]entity.OrderItem); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockStockRepo struct {
	mock.Mock
}

func (m *mockStockRepo) GetByProductID(ctx context.Context, productID uuid.UUID) (*entity.ProductStock, error) {
	args := m.Called(ctx, productID)
	if stock, ok := args.Get(0).(*entity.ProductStock); ok {
		return stock, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStockRepo) GetPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, productIDs)
	if prices, ok := args.Get(0).(map[uuid.UUID]int64); ok {
		return prices, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStockRepo) Deduct(ctx context.Context, quantities map[uuid.UUID]int64) error {
	args := m.Called(ctx, quantities)
	return args.Error(0)
}

func (m *mockStockRepo) Add(ctx context.Context, productID uuid.UUID, quantity int64) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	args := m.Called(ctx, userID)
	if wallet, ok := args.Get(0).(*entity.Wallet); ok {
		return wallet, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWalletRepo) UpdateWithVersion(ctx context.Context, wallet *entity.Wallet, prevVersion int64) error {
	args := m.Called(ctx, wallet, prevVersion)
	return args.Error(0)
}

func (m *mockWalletRepo) CreatePoint(ctx context.Context, point *entity.Point) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func (m *mockWalletRepo) SumPoints(ctx context.Context, walletID uuid.UUID) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Append(ctx context.Context, aggregateID, eventType string, payload []byte) (*entity.OutboxEvent, error) {
	args := m.Called(ctx, aggregateID, eventType, payload)
	if event, ok := args.Get(0).(*entity.OutboxEvent); ok {
		return event, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) Get(ctx context.Context, aggregateID, eventType string) (*entity.OutboxEvent, error) {
	args := m.Called(ctx, aggregateID, eventType)
	if event, ok := args.Get(0).(*entity.OutboxEvent); ok {
		return event, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) GetByStatus(ctx context.Context, status entity.EventStatus, limit int) ([]*entity.OutboxEvent, error) {
	args := m.Called(ctx, status, limit)
	if events, ok := args.Get(0).([]*entity.OutboxEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) UpdateStatus(ctx context.Context, aggregateID, eventType string, status entity.EventStatus) error {
	args := m.Called(ctx, aggregateID, eventType, status)
	return args.Error(0)
}

func (m *mockOutboxRepo) IncrementRetryCount(ctx context.Context, aggregateID, eventType string) error {
	args := m.Called(ctx, aggregateID, eventType)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetResolvedBefore(ctx context.Context, olderThan time.Time, limit int) ([]*entity.OutboxEvent, error) {
	args := m.Called(ctx, olderThan, limit)
	if events, ok := args.Get(0).([]*entity.OutboxEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) DeleteResolvedBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
