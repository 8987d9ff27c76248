package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vocalix-payment-gateway/internal/domain/money"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
	"github.com/vocalix-payment-gateway/internal/webhook_gateway/service"
)

// MerchantHandler handles the internal merchant API: opening payment
// attempts and reading transaction and balance state. Unlike the webhook
// endpoints it speaks the shared JSON envelope and real HTTP status codes.
type MerchantHandler struct {
	merchantService service.MerchantService
	logger          *slog.Logger
}

// NewMerchantHandler creates a new merchant API handler
func NewMerchantHandler(logger *slog.Logger, merchantService service.MerchantService) *MerchantHandler {
	return &MerchantHandler{
		merchantService: merchantService,
		logger:          logger,
	}
}

// Create handles POST /api/v1/transactions
func (h *MerchantHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	txn, err := h.merchantService.InitiateTransaction(c.Request.Context(), req.AccountID, amount, transaction.Gateway(req.Gateway))
	if err != nil {
		h.logger.Error("Failed to initiate transaction", "account_id", req.AccountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// GetByReference handles GET /api/v1/transactions/:reference_id
func (h *MerchantHandler) GetByReference(c *gin.Context) {
	referenceID, err := uuid.Parse(c.Param("reference_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid reference ID")
		return
	}

	txn, err := h.merchantService.GetTransactionByReference(c.Request.Context(), referenceID)
	if err != nil {
		var notFound transaction.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to get transaction", "reference_id", referenceID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// GetBalance handles GET /api/v1/wallets/:account_id/balance
func (h *MerchantHandler) GetBalance(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	w, err := h.merchantService.GetWalletBalance(c.Request.Context(), accountID)
	if err != nil {
		var notFound wallet.ErrAccountWalletNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get wallet balance", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToBalanceResponse(w))
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ReferenceID:          txn.ReferenceID.String(),
		WalletID:             txn.WalletID.String(),
		Gateway:              string(txn.Gateway),
		Amount:               txn.Amount.StringFixed(2),
		State:                string(txn.State),
		GatewayTransactionID: txn.GatewayTransactionID,
		CancelReason:         txn.CancelReason,
		CreatedAt:            txn.CreatedAt.UTC().Format(time.RFC3339),
	}
	if txn.ReservedAt != nil {
		resp.ReservedAt = txn.ReservedAt.UTC().Format(time.RFC3339)
	}
	if txn.PerformedAt != nil {
		resp.PerformedAt = txn.PerformedAt.UTC().Format(time.RFC3339)
	}
	if txn.CancelledAt != nil {
		resp.CancelledAt = txn.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func mapWalletToBalanceResponse(w *wallet.Wallet) BalanceResponse {
	resp := BalanceResponse{
		AccountID:     w.AccountID,
		Balance:       w.Balance.StringFixed(2),
		TotalCredited: w.TotalCredited.StringFixed(2),
		TotalDebited:  w.TotalDebited.StringFixed(2),
	}
	if w.LastTransactionAt != nil {
		resp.LastTransactionAt = w.LastTransactionAt.UTC().Format(time.RFC3339)
	}
	return resp
}
