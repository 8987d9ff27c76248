package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	GetByReferenceID(ctx context.Context, referenceID uuid.UUID) (*Transaction, error)
	GetByGatewayTransactionID(ctx context.Context, gateway Gateway, gatewayTxnID string) (*Transaction, error)

	// Lock variants acquire a pessimistic row lock for transition processing
	LockByID(ctx context.Context, id int64) (*Transaction, error)
	LockByReferenceID(ctx context.Context, referenceID uuid.UUID) (*Transaction, error)
	LockByGatewayTransactionID(ctx context.Context, gateway Gateway, gatewayTxnID string) (*Transaction, error)

	// UpdateState persists a transition conditionally on the state the row
	// held when it was read. A concurrent transition surfaces as ErrStateConflict.
	UpdateState(ctx context.Context, txn *Transaction, from State) error

	// ListReservedBetween returns transactions the gateway reserved inside
	// [from, to], newest last, for statement reconciliation.
	ListReservedBetween(ctx context.Context, gateway Gateway, from, to time.Time) ([]*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrStateConflict indicates a conditional state update lost to a concurrent transition
type ErrStateConflict struct {
	ID int64
}

func (e ErrStateConflict) Error() string {
	return fmt.Sprintf("concurrent state change detected for transaction: %d", e.ID)
}

// ErrTransactionNotFound indicates no transaction exists for a reference id
type ErrTransactionNotFound struct {
	ReferenceID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ReferenceID.String()
}

// ErrReservationNotFound indicates no transaction exists for a reservation id
type ErrReservationNotFound struct {
	ID int64
}

func (e ErrReservationNotFound) Error() string {
	return fmt.Sprintf("reservation not found: %d", e.ID)
}

// ErrGatewayTransactionNotFound indicates no transaction carries the given
// gateway-assigned identifier
type ErrGatewayTransactionNotFound struct {
	Gateway              Gateway
	GatewayTransactionID string
}

func (e ErrGatewayTransactionNotFound) Error() string {
	return fmt.Sprintf("no %s transaction with gateway id: %s", e.Gateway, e.GatewayTransactionID)
}
