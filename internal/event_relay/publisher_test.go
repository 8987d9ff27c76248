package event_relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vocalix-payment-gateway/internal/domain/event"
	"github.com/vocalix-payment-gateway/internal/domain/outbox"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

// MockMessagePublisher for testing
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testOutboxMessage(t *testing.T) *outbox.Message {
	t.Helper()

	evt := &event.PaymentEvent{
		Type:          event.TypePaymentCompleted,
		ReferenceID:   uuid.New(),
		WalletID:      uuid.New(),
		AccountID:     777,
		Gateway:       transaction.GatewayClick,
		Amount:        decimal.RequireFromString("100.00"),
		BalanceAfter:  decimal.RequireFromString("150.00"),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: "corr1",
	}
	msg, err := outbox.NewMessage(evt)
	assert.NoError(t, err)
	msg.ID = 1
	return msg
}

func TestEventPublisher_PublishEvent(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockProducer := &MockMessagePublisher{}
	logger := slog.Default()

	publisher := NewEventPublisher(mockOutboxRepo, mockProducer, logger)

	message := testOutboxMessage(t)

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func()
		expectedError error
	}{
		{
			name:    "successful publish",
			message: message,
			setupMocks: func() {
				mockProducer.On("Publish", mock.Anything, message.WalletID.String(), mock.MatchedBy(func(v interface{}) bool {
					payload, ok := v.(json.RawMessage)
					return ok && string(payload) == string(message.Payload)
				})).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:          1,
				ReferenceID: message.ReferenceID,
				WalletID:    message.WalletID,
				Status:      outbox.StatusPending,
				Payload:     []byte("invalid json"),
				Attempts:    0,
				CreatedAt:   time.Now(),
			},
			setupMocks: func() {
				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error publishing to kafka",
			message: message,
			setupMocks: func() {
				mockProducer.On("Publish", mock.Anything, message.WalletID.String(), mock.Anything).Return(errors.New("kafka down")).Once()
			},
			expectedError: errors.New("failed to publish payment event"),
		},
		{
			name:    "error updating outbox status",
			message: message,
			setupMocks: func() {
				mockProducer.On("Publish", mock.Anything, message.WalletID.String(), mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark outbox"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo = &MockOutboxRepo{}
			mockProducer = &MockMessagePublisher{}
			publisher = NewEventPublisher(mockOutboxRepo, mockProducer, logger)

			tt.setupMocks()
			ctx := context.Background()

			err := publisher.PublishEvent(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockProducer.AssertExpectations(t)
		})
	}
}
