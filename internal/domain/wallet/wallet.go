package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidAccountID = errors.New("account id must be positive")
)

// Wallet holds the running balance for one account. Balances move only
// through Credit/Debit tied to a transaction transition, never directly.
type Wallet struct {
	ID                uuid.UUID       `json:"id"`
	AccountID         int64           `json:"account_id"` // messenger user the wallet belongs to
	Balance           decimal.Decimal `json:"balance"`
	TotalCredited     decimal.Decimal `json:"total_credited"`
	TotalDebited      decimal.Decimal `json:"total_debited"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewWallet creates an empty wallet for the given account
func NewWallet(accountID int64) (*Wallet, error) {
	if accountID <= 0 {
		return nil, ErrInvalidAccountID
	}

	now := time.Now()
	return &Wallet{
		ID:            uuid.New(),
		AccountID:     accountID,
		Balance:       decimal.Zero,
		TotalCredited: decimal.Zero,
		TotalDebited:  decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Credit adds the specified amount to the wallet balance
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	now := time.Now()
	w.Balance = w.Balance.Add(amount)
	w.TotalCredited = w.TotalCredited.Add(amount)
	w.LastTransactionAt = &now
	w.UpdatedAt = now
	return nil
}

// Debit subtracts the specified amount from the wallet balance.
// The balance may go negative: a gateway-ordered refund must be honored
// even when the credit has already been spent.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	now := time.Now()
	w.Balance = w.Balance.Sub(amount)
	w.TotalDebited = w.TotalDebited.Add(amount)
	w.LastTransactionAt = &now
	w.UpdatedAt = now
	return nil
}
