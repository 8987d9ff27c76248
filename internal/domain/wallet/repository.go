package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines wallet persistence operations
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByAccountID(ctx context.Context, accountID int64) (*Wallet, error)

	// LockForUpdate acquires a pessimistic lock for balance mutation.
	// Callers must already hold the owning transaction's row lock.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// UpdateBalance persists balance, totals and last transaction time
	UpdateBalance(ctx context.Context, w *Wallet) error

	WithTx(tx pgx.Tx) Repository
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	WalletID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.WalletID.String()
}

// ErrAccountWalletNotFound indicates no wallet exists for an account
type ErrAccountWalletNotFound struct {
	AccountID int64
}

func (e ErrAccountWalletNotFound) Error() string {
	return fmt.Sprintf("no wallet for account: %d", e.AccountID)
}

// ErrDuplicateAccount indicates account uniqueness violation
type ErrDuplicateAccount struct {
	AccountID int64
}

func (e ErrDuplicateAccount) Error() string {
	return fmt.Sprintf("wallet for account already exists: %d", e.AccountID)
}
