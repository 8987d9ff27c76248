package journal

import (
	"time"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// Entry is one webhook callback as it was handled: which gateway called,
// what it asked for, and what the service answered. The journal is the
// append-only audit trail reconciliation and support queries run against.
type Entry struct {
	CorrelationID        string              `json:"correlation_id" bson:"correlation_id"`
	Gateway              transaction.Gateway `json:"gateway" bson:"gateway"`
	Operation            string              `json:"operation" bson:"operation"` // prepare, complete, or the RPC method name
	GatewayTransactionID string              `json:"gateway_transaction_id,omitempty" bson:"gateway_transaction_id,omitempty"`
	ReferenceID          string              `json:"reference_id,omitempty" bson:"reference_id,omitempty"`
	ResponseCode         int32               `json:"response_code" bson:"response_code"` // gateway-vocabulary code (0 = success)
	Outcome              string              `json:"outcome" bson:"outcome"`
	ReceivedAt           time.Time           `json:"received_at" bson:"received_at"`
	DurationMS           int64               `json:"duration_ms" bson:"duration_ms"`
}

// Outcome values recorded on journal entries
const (
	OutcomeApplied  = "APPLIED"
	OutcomeReplayed = "REPLAYED"
	OutcomeRejected = "REJECTED"
)
