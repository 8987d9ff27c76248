package event_relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vocalix-payment-gateway/internal/config"
	"github.com/vocalix-payment-gateway/internal/domain/outbox"
)

// MockEventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MockDLQProducer for testing
type MockDLQProducer struct {
	mock.Mock
}

func (m *MockDLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestPoller(t *testing.T, outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) *Poller {
	t.Helper()

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	workers := &config.WorkerPoolConfig{Size: 4}

	poller, err := NewPoller(cfg, workers, outboxRepo, publisher, dlq, slog.Default())
	require.NoError(t, err)
	t.Cleanup(poller.Shutdown)
	return poller
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	message1 := testOutboxMessage(t)
	message2 := testOutboxMessage(t)
	message2.ID = 2

	tests := []struct {
		name          string
		setupMocks    func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer)
		expectedError error
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, message1).Return(nil).Once()
				publisher.On("PublishEvent", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error getting pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to get pending outbox messages"),
		},
		{
			name: "no pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error publishing one message",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, message1).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				publisher.On("PublishEvent", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "max retry attempts reached ships to DLQ",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				exhausted := testOutboxMessage(t)
				exhausted.ID = 3
				exhausted.Attempts = 2

				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(3), outbox.StatusFailedToPublish).Return(nil).Once()
				dlq.On("PublishToDLQ", mock.Anything, exhausted.WalletID.String(), []byte(exhausted.Payload), "publish error").Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "increment attempts failure stops escalation",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockEventPublisher, dlq *MockDLQProducer) {
				exhausted := testOutboxMessage(t)
				exhausted.ID = 4
				exhausted.Attempts = 2

				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted}, nil).Once()

				publisher.On("PublishEvent", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(4)).Return(errors.New("db error")).Once()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo := &MockOutboxRepo{}
			mockPublisher := &MockEventPublisher{}
			mockDLQ := &MockDLQProducer{}
			poller := newTestPoller(t, mockOutboxRepo, mockPublisher, mockDLQ)

			tt.setupMocks(mockOutboxRepo, mockPublisher, mockDLQ)
			ctx := context.Background()

			err := poller.processPendingMessages(ctx)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
			mockDLQ.AssertExpectations(t)
		})
	}
}

func TestPoller_ProcessPendingMessages_NoDLQConfigured(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockPublisher := &MockEventPublisher{}

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 1,
	}
	workers := &config.WorkerPoolConfig{Size: 2}

	poller, err := NewPoller(cfg, workers, mockOutboxRepo, mockPublisher, nil, slog.Default())
	require.NoError(t, err)
	t.Cleanup(poller.Shutdown)

	exhausted := testOutboxMessage(t)
	exhausted.ID = 5

	mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted}, nil).Once()
	mockPublisher.On("PublishEvent", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
	mockOutboxRepo.On("IncrementAttempts", mock.Anything, int64(5)).Return(nil).Once()
	mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(5), outbox.StatusFailedToPublish).Return(nil).Once()

	err = poller.processPendingMessages(context.Background())
	assert.NoError(t, err)

	mockOutboxRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestPoller_Start(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockPublisher := &MockEventPublisher{}

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	workers := &config.WorkerPoolConfig{Size: 2}

	poller, err := NewPoller(cfg, workers, mockOutboxRepo, mockPublisher, nil, slog.Default())
	require.NoError(t, err)
	t.Cleanup(poller.Shutdown)

	mockOutboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
