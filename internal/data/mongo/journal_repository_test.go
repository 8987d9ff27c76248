package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vocalix-payment-gateway/internal/domain/journal"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"go.mongodb.org/mongo-driver/mongo"
)

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Record(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepository) GetByGatewayTransactionID(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) ([]*journal.Entry, error) {
	args := m.Called(ctx, gateway, gatewayTxnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepository) GetByReferenceID(ctx context.Context, referenceID string) ([]*journal.Entry, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepository) CountByGateway(ctx context.Context, gateway transaction.Gateway) (int64, error) {
	args := m.Called(ctx, gateway)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewJournalRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewJournalRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &JournalRepository{}, repo)
}

func TestJournalRepository_Record(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	entry := &journal.Entry{
		CorrelationID:        "corr1",
		Gateway:              transaction.GatewayClick,
		Operation:            "prepare",
		GatewayTransactionID: "8412",
		ReferenceID:          "ref1",
		ResponseCode:         0,
		Outcome:              journal.OutcomeApplied,
		ReceivedAt:           time.Now(),
		DurationMS:           12,
	}

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful record",
			setupMocks: func() {
				mockRepo.On("Record", mock.Anything, entry).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("Record", mock.Anything, entry).Return(errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			err := mockRepo.Record(ctx, entry)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestJournalRepository_GetByGatewayTransactionID(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	entries := []*journal.Entry{
		{
			CorrelationID:        "corr1",
			Gateway:              transaction.GatewayPayme,
			Operation:            "CreateTransaction",
			GatewayTransactionID: "5e7c2f4a1b",
			Outcome:              journal.OutcomeApplied,
			ReceivedAt:           time.Now(),
		},
		{
			CorrelationID:        "corr2",
			Gateway:              transaction.GatewayPayme,
			Operation:            "PerformTransaction",
			GatewayTransactionID: "5e7c2f4a1b",
			Outcome:              journal.OutcomeApplied,
			ReceivedAt:           time.Now(),
		},
	}

	tests := []struct {
		name            string
		setupMocks      func()
		expectedEntries []*journal.Entry
		expectedError   error
	}{
		{
			name: "entries found",
			setupMocks: func() {
				mockRepo.On("GetByGatewayTransactionID", mock.Anything, transaction.GatewayPayme, "5e7c2f4a1b").Return(entries, nil)
			},
			expectedEntries: entries,
			expectedError:   nil,
		},
		{
			name: "no entries",
			setupMocks: func() {
				mockRepo.On("GetByGatewayTransactionID", mock.Anything, transaction.GatewayPayme, "5e7c2f4a1b").Return([]*journal.Entry{}, nil)
			},
			expectedEntries: []*journal.Entry{},
			expectedError:   nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("GetByGatewayTransactionID", mock.Anything, transaction.GatewayPayme, "5e7c2f4a1b").Return(nil, errors.New("db error"))
			},
			expectedEntries: nil,
			expectedError:   errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			result, err := mockRepo.GetByGatewayTransactionID(ctx, transaction.GatewayPayme, "5e7c2f4a1b")

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedEntries, result)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestJournalRepository_GetByTimeRange(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	startTime := time.Now().Add(-time.Hour)
	endTime := time.Now()
	entries := []*journal.Entry{
		{
			CorrelationID: "corr1",
			Gateway:       transaction.GatewayClick,
			Operation:     "complete",
			Outcome:       journal.OutcomeReplayed,
			ReceivedAt:    endTime.Add(-time.Minute),
		},
	}

	tests := []struct {
		name            string
		setupMocks      func()
		expectedEntries []*journal.Entry
		expectedError   error
	}{
		{
			name: "entries found",
			setupMocks: func() {
				mockRepo.On("GetByTimeRange", mock.Anything, startTime, endTime, 10, 0).Return(entries, nil)
			},
			expectedEntries: entries,
			expectedError:   nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("GetByTimeRange", mock.Anything, startTime, endTime, 10, 0).Return(nil, errors.New("db error"))
			},
			expectedEntries: nil,
			expectedError:   errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			result, err := mockRepo.GetByTimeRange(ctx, startTime, endTime, 10, 0)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedEntries, result)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestJournalRepository_CountByGateway(t *testing.T) {
	mockRepo := &MockJournalRepository{}

	tests := []struct {
		name          string
		setupMocks    func()
		expectedCount int64
		expectedError error
	}{
		{
			name: "count returned",
			setupMocks: func() {
				mockRepo.On("CountByGateway", mock.Anything, transaction.GatewayClick).Return(int64(42), nil)
			},
			expectedCount: 42,
			expectedError: nil,
		},
		{
			name: "database error",
			setupMocks: func() {
				mockRepo.On("CountByGateway", mock.Anything, transaction.GatewayClick).Return(int64(0), errors.New("db error"))
			},
			expectedCount: 0,
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo = &MockJournalRepository{}
			tt.setupMocks()

			ctx := context.Background()
			count, err := mockRepo.CountByGateway(ctx, transaction.GatewayClick)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCount, count)

			mockRepo.AssertExpectations(t)
		})
	}
}
