package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidGateway = errors.New("unknown payment gateway")
)

// Gateway identifies the external payment processor a transaction belongs to
type Gateway string

const (
	GatewayClick Gateway = "click"
	GatewayPayme Gateway = "payme"
)

// Valid reports whether the gateway is one of the supported processors
func (g Gateway) Valid() bool {
	return g == GatewayClick || g == GatewayPayme
}

// State defines the transaction lifecycle states
type State string

const (
	StatePending                State = "PENDING"
	StateReserved               State = "RESERVED"
	StateCompleted              State = "COMPLETED"
	StateCancelled              State = "CANCELLED"
	StateCancelledAfterComplete State = "CANCELLED_AFTER_COMPLETE"
	StateFailed                 State = "FAILED"
)

// Cancellation reasons recorded on self-initiated cancels. Payme supplies its
// own reason codes which are stored as received; these constants cover cancels
// this service originates itself.
const (
	CancelReasonGatewayError  int32 = 3 // gateway reported a failed payment
	CancelReasonWindowExpired int32 = 4
	CancelReasonRefund        int32 = 5
)

// Transaction is the unit of work for one payment attempt. The numeric ID
// doubles as the reservation identifier handed to Click (merchant_prepare_id);
// ReferenceID is the join key issued to the initiating side.
type Transaction struct {
	ID                   int64            `json:"id"`
	ReferenceID          uuid.UUID        `json:"reference_id"`
	WalletID             uuid.UUID        `json:"wallet_id"`
	Gateway              Gateway          `json:"gateway"`
	GatewayTransactionID string           `json:"gateway_transaction_id,omitempty"` // empty until reserved
	Amount               decimal.Decimal  `json:"amount"`                           // soums, immutable after creation
	State                State            `json:"state"`
	BalanceBefore        *decimal.Decimal `json:"balance_before,omitempty"`
	BalanceAfter         *decimal.Decimal `json:"balance_after,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	ReservedAt           *time.Time       `json:"reserved_at,omitempty"`
	PerformedAt          *time.Time       `json:"performed_at,omitempty"`
	CancelledAt          *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason         *int32           `json:"cancel_reason,omitempty"`
}

// NewTransaction creates a pending transaction for the given wallet and gateway
func NewTransaction(walletID uuid.UUID, gateway Gateway, amount decimal.Decimal) (*Transaction, error) {
	if !gateway.Valid() {
		return nil, ErrInvalidGateway
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &Transaction{
		ReferenceID: uuid.New(),
		WalletID:    walletID,
		Gateway:     gateway,
		Amount:      amount,
		State:       StatePending,
		CreatedAt:   time.Now(),
	}, nil
}

// Expired reports whether a still-pending transaction has outlived the
// reservation window and may no longer be reserved.
func (t *Transaction) Expired(window time.Duration, now time.Time) bool {
	return t.State == StatePending && now.Sub(t.CreatedAt) > window
}

// Reserve transitions the transaction from Pending to Reserved, binding it
// to the gateway's transaction identifier.
func (t *Transaction) Reserve(gatewayTxnID string, now time.Time) error {
	if t.State != StatePending {
		return ErrInvalidTransition{From: t.State, To: StateReserved}
	}

	t.GatewayTransactionID = gatewayTxnID
	t.State = StateReserved
	t.ReservedAt = &now
	return nil
}

// Complete transitions the transaction from Reserved to Completed, recording
// the wallet balance snapshot taken by the accompanying credit.
func (t *Transaction) Complete(balanceBefore, balanceAfter decimal.Decimal, now time.Time) error {
	if t.State != StateReserved {
		return ErrInvalidTransition{From: t.State, To: StateCompleted}
	}

	t.State = StateCompleted
	t.BalanceBefore = &balanceBefore
	t.BalanceAfter = &balanceAfter
	t.PerformedAt = &now
	return nil
}

// Cancel transitions a not-yet-completed transaction to Cancelled.
// No wallet mutation accompanies this transition.
func (t *Transaction) Cancel(reason int32, now time.Time) error {
	if t.State != StatePending && t.State != StateReserved {
		return ErrInvalidTransition{From: t.State, To: StateCancelled}
	}

	t.State = StateCancelled
	t.CancelledAt = &now
	t.CancelReason = &reason
	return nil
}

// Refund transitions a completed transaction to CancelledAfterComplete,
// recording the balance snapshot of the symmetric wallet debit.
func (t *Transaction) Refund(balanceBefore, balanceAfter decimal.Decimal, reason int32, now time.Time) error {
	if t.State != StateCompleted {
		return ErrInvalidTransition{From: t.State, To: StateCancelledAfterComplete}
	}

	t.State = StateCancelledAfterComplete
	t.BalanceBefore = &balanceBefore
	t.BalanceAfter = &balanceAfter
	t.CancelledAt = &now
	t.CancelReason = &reason
	return nil
}

// Fail marks a pending transaction as failed before any reservation exists
func (t *Transaction) Fail(now time.Time) error {
	if t.State != StatePending {
		return ErrInvalidTransition{From: t.State, To: StateFailed}
	}

	t.State = StateFailed
	t.CancelledAt = &now
	return nil
}

// ErrInvalidTransition indicates a state change the lifecycle does not allow
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ErrAmountMismatch indicates a callback amount that differs from the amount
// recorded at creation. Mismatches are always rejected, never reconciled.
type ErrAmountMismatch struct {
	Expected decimal.Decimal
	Received decimal.Decimal
}

func (e ErrAmountMismatch) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s, received %s", e.Expected.String(), e.Received.String())
}

// ErrWindowExpired indicates a reservation attempt past the payment window
type ErrWindowExpired struct {
	ReferenceID uuid.UUID
}

func (e ErrWindowExpired) Error() string {
	return "reservation window expired for transaction: " + e.ReferenceID.String()
}
