// Package engine drives the payment transaction lifecycle. Both gateway
// webhook surfaces translate their wire protocols into the operations
// defined here, so replay detection, amount verification, window
// enforcement and wallet mutation live in exactly one place.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
)

// Engine defines the gateway-facing transaction lifecycle operations
type Engine interface {
	// CheckReservable reports whether a pending transaction can accept a
	// reservation for the given amount. Read-only; never transitions state.
	// Returns ErrTransactionNotFound, ErrAmountMismatch, ErrWindowExpired
	// or ErrInvalidTransition.
	CheckReservable(ctx context.Context, gateway transaction.Gateway, referenceID uuid.UUID, amount decimal.Decimal) error

	// Reserve binds a gateway transaction id to a pending transaction and
	// moves it to Reserved. A repeat of an already-applied reservation
	// replays the stored outcome. A reservation attempt past the payment
	// window cancels the transaction and returns ErrWindowExpired.
	Reserve(ctx context.Context, req ReserveRequest) (*Outcome, error)

	// Perform settles a reserved transaction: credits the wallet, records
	// the balance snapshot and enqueues a payment.completed event, all in
	// one database transaction. A repeat on a completed transaction
	// replays the stored outcome without touching the wallet.
	Perform(ctx context.Context, req PerformRequest) (*Outcome, error)

	// Cancel voids a transaction. Before completion this is a plain state
	// change; after completion it debits the wallet back and enqueues a
	// payment.refunded event. Repeats replay the stored outcome.
	Cancel(ctx context.Context, req CancelRequest) (*Outcome, error)

	// Snapshot returns the transaction bound to a gateway transaction id
	Snapshot(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) (*transaction.Transaction, error)

	// Statement lists transactions the gateway reserved inside [from, to]
	Statement(ctx context.Context, gateway transaction.Gateway, from, to time.Time) ([]*transaction.Transaction, error)
}

// TxRunner executes a function inside one database transaction, rolling
// back on error or panic. Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// BalanceCache mirrors committed wallet snapshots into a fast read path.
// Refreshes happen after commit and are best-effort.
type BalanceCache interface {
	SetBalance(ctx context.Context, w *wallet.Wallet) error
}
