package journal

import (
	"context"
	"time"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

// Recorder is the write side of the journal, used by webhook handlers.
// Recording is best-effort: a journal failure never fails the callback.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// Repository manages journal persistence with pagination support
type Repository interface {
	Recorder
	GetByGatewayTransactionID(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) ([]*Entry, error)
	GetByReferenceID(ctx context.Context, referenceID string) ([]*Entry, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)
	CountByGateway(ctx context.Context, gateway transaction.Gateway) (int64, error)
}
