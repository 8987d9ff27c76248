package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// ReserveRequest carries a gateway's claim on a pending transaction
type ReserveRequest struct {
	Gateway              transaction.Gateway
	ReferenceID          uuid.UUID
	GatewayTransactionID string
	Amount               decimal.Decimal
	CorrelationID        string
}

// PerformRequest identifies a reserved transaction to settle. Click
// addresses completions by the reservation id it was handed at prepare;
// Payme addresses them by its own transaction id. When ReservationID is
// nonzero it keys the lookup and the gateway transaction id must match
// the one bound at reservation.
type PerformRequest struct {
	Gateway              transaction.Gateway
	GatewayTransactionID string
	ReservationID        int64
	// Amount, when set, must equal the reserved amount
	Amount        *decimal.Decimal
	CorrelationID string
}

// CancelRequest identifies a transaction to void, keyed like PerformRequest
type CancelRequest struct {
	Gateway              transaction.Gateway
	GatewayTransactionID string
	ReservationID        int64
	Reason               int32
	CorrelationID        string
}

// Outcome is the result of a lifecycle operation. Replayed marks an
// operation that had already been applied; the transaction then reflects
// the stored result and no wallet mutation took place.
type Outcome struct {
	Transaction *transaction.Transaction
	Replayed    bool
}
