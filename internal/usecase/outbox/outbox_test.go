package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

type mockArchiveRepo struct {
	mock.Mock
}

func (m *mockArchiveRepo) StoreBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func TestGetInitEvents(t *testing.T) {
	ctx := context.Background()
	outboxRepo := &mockOutboxRepo{}
	uc := New(outboxRepo, &mockArchiveRepo{}, nopLogger{})

	expected := []*entity.OutboxEvent{{AggregateID: "order-1", EventType: entity.TopicOrderCreated}}
	outboxRepo.On("GetByStatus", ctx, entity.EventInit, 100).Return(expected, nil)

	events, err := uc.GetInitEvents(ctx, 100)

	require.NoError(t, err)
	assert.Equal(t, expected, events)
}

func TestArchiveResolved(t *testing.T) {
	ctx := context.Background()
	olderThan := time.Now().Add(-7 * 24 * time.Hour)

	t.Run("no resolved rows is a no-op", func(t *testing.T) {
		outboxRepo := &mockOutboxRepo{}
		archiveRepo := &mockArchiveRepo{}
		uc := New(outboxRepo, archiveRepo, nopLogger{})

		outboxRepo.On("GetResolvedBefore", ctx, olderThan, 500).
			Return([]*entity.OutboxEvent{}, nil)

		err := uc.ArchiveResolved(ctx, olderThan)

		require.NoError(t, err)
		archiveRepo.AssertNotCalled(t, "StoreBatch", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "DeleteResolvedBefore", mock.Anything, mock.Anything)
	})

	t.Run("archives then deletes up to the retention cutoff", func(t *testing.T) {
		outboxRepo := &mockOutboxRepo{}
		archiveRepo := &mockArchiveRepo{}
		uc := New(outboxRepo, archiveRepo, nopLogger{})

		events := []*entity.OutboxEvent{{AggregateID: "order-1", EventType: entity.TopicOrderSuccess}}

		outboxRepo.On("GetResolvedBefore", ctx, olderThan, 500).Return(events, nil)
		archiveRepo.On("StoreBatch", ctx, events).Return(nil)
		outboxRepo.On("DeleteResolvedBefore", ctx, olderThan).Return(int64(1), nil)

		err := uc.ArchiveResolved(ctx, olderThan)

		require.NoError(t, err)
		archiveRepo.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("failed upload aborts the deletion", func(t *testing.T) {
		outboxRepo := &mockOutboxRepo{}
		archiveRepo := &mockArchiveRepo{}
		uc := New(outboxRepo, archiveRepo, nopLogger{})

		events := []*entity.OutboxEvent{{AggregateID: "order-1", EventType: entity.TopicOrderSuccess}}
		uploadErr := errors.New("bucket unavailable")

		outboxRepo.On("GetResolvedBefore", ctx, olderThan, 500).Return(events, nil)
		archiveRepo.On("StoreBatch", ctx, events).Return(uploadErr)

		err := uc.ArchiveResolved(ctx, olderThan)

		require.ErrorIs(t, err, uploadErr)
		outboxRepo.AssertNotCalled(t, "DeleteResolvedBefore", mock.Anything, mock.Anything)
	})

	t.Run("full batch narrows the delete cutoff to the archived rows", func(t *testing.T) {
		outboxRepo := &mockOutboxRepo{}
		archiveRepo := &mockArchiveRepo{}
		uc := New(outboxRepo, archiveRepo, nopLogger{})

		lastResolved := olderThan.Add(-time.Hour)
		events := make([]*entity.OutboxEvent, 500)
		for i := range events {
			resolvedAt := lastResolved
			events[i] = &entity.OutboxEvent{
				AggregateID: "order-1",
				EventType:   entity.TopicOrderSuccess,
				Status:      entity.EventSuccess,
				ResolvedAt:  &resolvedAt,
			}
		}

		outboxRepo.On("GetResolvedBefore", ctx, olderThan, 500).Return(events, nil)
		archiveRepo.On("StoreBatch", ctx, events).Return(nil)
		outboxRepo.On("DeleteResolvedBefore", ctx, lastResolved.Add(time.Nanosecond)).
			Return(int64(500), nil)

		err := uc.ArchiveResolved(ctx, olderThan)

		require.NoError(t, err)
		outboxRepo.AssertExpectations(t)
	})
}
