package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
	"github.com/vocalix-payment-gateway/internal/webhook_gateway/service"
)

// MockMerchantService mocks the merchant service

type MockMerchantService struct {
	mock.Mock
}

func (m *MockMerchantService) InitiateTransaction(ctx context.Context, accountID int64, amount decimal.Decimal, gateway transaction.Gateway) (*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, amount, gateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockMerchantService) GetTransactionByReference(ctx context.Context, referenceID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockMerchantService) GetWalletBalance(ctx context.Context, accountID int64) (*wallet.Wallet, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func setupMerchantRouter(mockService *MockMerchantService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	h := NewMerchantHandler(logger, mockService)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/transactions", h.Create)
	v1.GET("/transactions/:reference_id", h.GetByReference)
	v1.GET("/wallets/:account_id/balance", h.GetBalance)
	return router
}

func decodeEnvelope(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestMerchantHandler_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		txn, err := transaction.NewTransaction(uuid.New(), transaction.GatewayClick, decimal.RequireFromString("10000"))
		require.NoError(t, err)

		mockService.On("InitiateTransaction", mock.Anything, int64(42), mock.MatchedBy(func(amount decimal.Decimal) bool {
			return amount.Equal(decimal.RequireFromString("10000"))
		}), transaction.GatewayClick).Return(txn, nil).Once()

		body := []byte(`{"account_id": 42, "amount": "10000", "gateway": "click"}`)
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		envelope := decodeEnvelope(t, rr.Body.Bytes())
		data, ok := envelope["data"].(map[string]interface{})
		require.True(t, ok, "'data' field should be a map")
		assert.Equal(t, txn.ReferenceID.String(), data["reference_id"])
		assert.Equal(t, "PENDING", data["state"])
		assert.Equal(t, "10000.00", data["amount"])
		assert.Equal(t, "click", data["gateway"])
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		req, _ := http.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "InitiateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownGateway", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		body := []byte(`{"account_id": 42, "amount": "10000", "gateway": "stripe"}`)
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "InitiateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		body := []byte(`{"account_id": 42, "amount": "0", "gateway": "payme"}`)
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		envelope := decodeEnvelope(t, rr.Body.Bytes())
		errField, ok := envelope["error"].(map[string]interface{})
		require.True(t, ok, "'error' field should be a map")
		assert.Equal(t, "BAD_REQUEST", errField["code"])
		assert.Contains(t, errField["message"], "Invalid amount")
		mockService.AssertNotCalled(t, "InitiateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		mockService.On("InitiateTransaction", mock.Anything, int64(42), mock.Anything, transaction.GatewayPayme).
			Return(nil, assert.AnError).Once()

		body := []byte(`{"account_id": 42, "amount": "10000", "gateway": "payme"}`)
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestMerchantHandler_GetByReference(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		txn, err := transaction.NewTransaction(uuid.New(), transaction.GatewayPayme, decimal.RequireFromString("2500"))
		require.NoError(t, err)
		require.NoError(t, txn.Reserve("p-100", time.Now()))

		mockService.On("GetTransactionByReference", mock.Anything, txn.ReferenceID).Return(txn, nil).Once()

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/transactions/"+txn.ReferenceID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		envelope := decodeEnvelope(t, rr.Body.Bytes())
		data, ok := envelope["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "RESERVED", data["state"])
		assert.Equal(t, "p-100", data["gateway_transaction_id"])
		assert.NotEmpty(t, data["reserved_at"])
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		refID := uuid.New()
		mockService.On("GetTransactionByReference", mock.Anything, refID).
			Return(nil, transaction.ErrTransactionNotFound{ReferenceID: refID}).Once()

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/transactions/"+refID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidReferenceID", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/transactions/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetTransactionByReference", mock.Anything, mock.Anything)
	})
}

func TestMerchantHandler_GetBalance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		w, err := wallet.NewWallet(42)
		require.NoError(t, err)
		w.Balance = decimal.RequireFromString("125000")
		w.TotalCredited = decimal.RequireFromString("130000")
		w.TotalDebited = decimal.RequireFromString("5000")
		now := time.Now()
		w.LastTransactionAt = &now

		mockService.On("GetWalletBalance", mock.Anything, int64(42)).Return(w, nil).Once()

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/42/balance", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		envelope := decodeEnvelope(t, rr.Body.Bytes())
		data, ok := envelope["data"].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, 42, data["account_id"])
		assert.Equal(t, "125000.00", data["balance"])
		assert.Equal(t, "130000.00", data["total_credited"])
		assert.Equal(t, "5000.00", data["total_debited"])
		assert.NotEmpty(t, data["last_transaction_at"])
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		mockService.On("GetWalletBalance", mock.Anything, int64(9000)).
			Return(nil, wallet.ErrAccountWalletNotFound{AccountID: 9000}).Once()

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/9000/balance", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidAccountID", func(t *testing.T) {
		mockService := new(MockMerchantService)
		router := setupMerchantRouter(mockService)

		req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallets/not-a-number/balance", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetWalletBalance", mock.Anything, mock.Anything)
	})
}

var _ service.MerchantService = (*MockMerchantService)(nil)
