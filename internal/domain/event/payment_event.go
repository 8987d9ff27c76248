package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// Type discriminates payment events on the wire
type Type string

const (
	TypePaymentCompleted Type = "payment.completed"
	TypePaymentRefunded  Type = "payment.refunded"
)

// PaymentEvent is the message published to the payment event stream after a
// wallet-mutating transition commits. Downstream consumers (the bot notifier,
// reporting) key on the wallet id.
type PaymentEvent struct {
	Type          Type                `json:"type"`
	ReferenceID   uuid.UUID           `json:"reference_id"`
	WalletID      uuid.UUID           `json:"wallet_id"`
	AccountID     int64               `json:"account_id"`
	Gateway       transaction.Gateway `json:"gateway"`
	Amount        decimal.Decimal     `json:"amount"`
	BalanceAfter  decimal.Decimal     `json:"balance_after"`
	OccurredAt    time.Time           `json:"occurred_at"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}
