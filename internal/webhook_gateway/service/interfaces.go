package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
)

// MerchantService defines the interface for the initiating side: the
// collaborator that opens payment attempts and reads their state.
type MerchantService interface {
	// InitiateTransaction opens a Pending transaction for the account,
	// creating the account's wallet on first use. The returned transaction
	// carries the fresh reference id handed to the payer.
	InitiateTransaction(ctx context.Context, accountID int64, amount decimal.Decimal, gateway transaction.Gateway) (*transaction.Transaction, error)

	// GetTransactionByReference retrieves a transaction by its reference id
	// Returns transaction.ErrTransactionNotFound if none exists
	GetTransactionByReference(ctx context.Context, referenceID uuid.UUID) (*transaction.Transaction, error)

	// GetWalletBalance returns the wallet snapshot for an account, served
	// from the balance cache when warm and PostgreSQL otherwise.
	// Returns wallet.ErrAccountWalletNotFound if the account has no wallet.
	GetWalletBalance(ctx context.Context, accountID int64) (*wallet.Wallet, error)
}

// BalanceReader is the cache surface balance reads go through.
// Satisfied by redis.BalanceCache.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountID int64) (*wallet.Wallet, error)
	SetBalance(ctx context.Context, w *wallet.Wallet) error
}
