package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vocalix-payment-gateway/internal/domain/event"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a payment event for reliable publishing. Rows are written
// in the same database transaction as the wallet mutation they describe and
// drained by the event relay.
type Message struct {
	ID            int64           `json:"id"`
	ReferenceID   uuid.UUID       `json:"reference_id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

func NewMessage(evt *event.PaymentEvent) (*Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	return &Message{
		ReferenceID: evt.ReferenceID,
		WalletID:    evt.WalletID,
		Payload:     payload,
		Status:      StatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetPaymentEvent extracts the payment event from the payload
func (m *Message) GetPaymentEvent() (*event.PaymentEvent, error) {
	var evt event.PaymentEvent
	if err := json.Unmarshal(m.Payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
