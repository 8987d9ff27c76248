package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		walletID := uuid.New()
		amount := decimal.NewFromInt(10000)

		beforeCreation := time.Now()
		txn, err := NewTransaction(walletID, GatewayClick, amount)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, txn)

		assert.NotEqual(t, uuid.Nil, txn.ReferenceID, "ReferenceID should not be nil")
		assert.Equal(t, walletID, txn.WalletID)
		assert.Equal(t, GatewayClick, txn.Gateway)
		assert.True(t, amount.Equal(txn.Amount))
		assert.Equal(t, StatePending, txn.State)
		assert.Empty(t, txn.GatewayTransactionID)
		assert.Nil(t, txn.BalanceBefore)
		assert.Nil(t, txn.BalanceAfter)
		assert.WithinDuration(t, beforeCreation, txn.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
	})

	t.Run("RejectsUnknownGateway", func(t *testing.T) {
		_, err := NewTransaction(uuid.New(), Gateway("paypal"), decimal.NewFromInt(100))
		assert.ErrorIs(t, err, ErrInvalidGateway)
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		_, err := NewTransaction(uuid.New(), GatewayPayme, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = NewTransaction(uuid.New(), GatewayPayme, decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestTransaction_Reserve(t *testing.T) {
	t.Run("PendingToReserved", func(t *testing.T) {
		txn := pendingTransaction(t)
		now := time.Now()

		err := txn.Reserve("click-12345", now)

		require.NoError(t, err)
		assert.Equal(t, StateReserved, txn.State)
		assert.Equal(t, "click-12345", txn.GatewayTransactionID)
		require.NotNil(t, txn.ReservedAt)
		assert.Equal(t, now, *txn.ReservedAt)
	})

	t.Run("RejectsNonPendingStates", func(t *testing.T) {
		for _, state := range []State{StateReserved, StateCompleted, StateCancelled, StateCancelledAfterComplete, StateFailed} {
			txn := pendingTransaction(t)
			txn.State = state

			err := txn.Reserve("click-12345", time.Now())

			var transitionErr ErrInvalidTransition
			require.ErrorAs(t, err, &transitionErr, "state %s should reject Reserve", state)
			assert.Equal(t, state, transitionErr.From)
			assert.Equal(t, StateReserved, transitionErr.To)
		}
	})
}

func TestTransaction_Complete(t *testing.T) {
	t.Run("ReservedToCompleted", func(t *testing.T) {
		txn := reservedTransaction(t)
		before := decimal.NewFromInt(500)
		after := before.Add(txn.Amount)
		now := time.Now()

		err := txn.Complete(before, after, now)

		require.NoError(t, err)
		assert.Equal(t, StateCompleted, txn.State)
		require.NotNil(t, txn.BalanceBefore)
		require.NotNil(t, txn.BalanceAfter)
		assert.True(t, before.Equal(*txn.BalanceBefore))
		assert.True(t, after.Equal(*txn.BalanceAfter))
		require.NotNil(t, txn.PerformedAt)
		assert.Equal(t, now, *txn.PerformedAt)
	})

	t.Run("RejectsPending", func(t *testing.T) {
		txn := pendingTransaction(t)
		err := txn.Complete(decimal.Zero, txn.Amount, time.Now())
		assert.ErrorAs(t, err, &ErrInvalidTransition{})
	})

	t.Run("RejectsCancelled", func(t *testing.T) {
		txn := reservedTransaction(t)
		require.NoError(t, txn.Cancel(CancelReasonGatewayError, time.Now()))

		err := txn.Complete(decimal.Zero, txn.Amount, time.Now())
		assert.ErrorAs(t, err, &ErrInvalidTransition{})
	})
}

func TestTransaction_Cancel(t *testing.T) {
	t.Run("PendingToCancelled", func(t *testing.T) {
		txn := pendingTransaction(t)
		now := time.Now()

		err := txn.Cancel(CancelReasonWindowExpired, now)

		require.NoError(t, err)
		assert.Equal(t, StateCancelled, txn.State)
		require.NotNil(t, txn.CancelReason)
		assert.Equal(t, CancelReasonWindowExpired, *txn.CancelReason)
		require.NotNil(t, txn.CancelledAt)
	})

	t.Run("ReservedToCancelled", func(t *testing.T) {
		txn := reservedTransaction(t)
		err := txn.Cancel(CancelReasonGatewayError, time.Now())
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, txn.State)
		assert.Nil(t, txn.BalanceBefore, "cancel before completion must not touch balances")
	})

	t.Run("RejectsCompleted", func(t *testing.T) {
		txn := completedTransaction(t)
		err := txn.Cancel(CancelReasonRefund, time.Now())
		assert.ErrorAs(t, err, &ErrInvalidTransition{})
	})
}

func TestTransaction_Refund(t *testing.T) {
	t.Run("CompletedToCancelledAfterComplete", func(t *testing.T) {
		txn := completedTransaction(t)
		before := *txn.BalanceAfter
		after := before.Sub(txn.Amount)
		now := time.Now()

		err := txn.Refund(before, after, CancelReasonRefund, now)

		require.NoError(t, err)
		assert.Equal(t, StateCancelledAfterComplete, txn.State)
		assert.True(t, before.Equal(*txn.BalanceBefore), "refund stamps a fresh balance pair")
		assert.True(t, after.Equal(*txn.BalanceAfter))
		require.NotNil(t, txn.CancelReason)
		assert.Equal(t, CancelReasonRefund, *txn.CancelReason)
	})

	t.Run("RejectsNonCompleted", func(t *testing.T) {
		txn := reservedTransaction(t)
		err := txn.Refund(decimal.Zero, decimal.Zero, CancelReasonRefund, time.Now())
		assert.ErrorAs(t, err, &ErrInvalidTransition{})
	})
}

func TestTransaction_Expired(t *testing.T) {
	window := 12 * time.Hour
	now := time.Now()

	t.Run("PendingPastWindow", func(t *testing.T) {
		txn := pendingTransaction(t)
		txn.CreatedAt = now.Add(-13 * time.Hour)
		assert.True(t, txn.Expired(window, now))
	})

	t.Run("PendingInsideWindow", func(t *testing.T) {
		txn := pendingTransaction(t)
		txn.CreatedAt = now.Add(-time.Hour)
		assert.False(t, txn.Expired(window, now))
	})

	t.Run("ReservedNeverExpires", func(t *testing.T) {
		txn := reservedTransaction(t)
		txn.CreatedAt = now.Add(-48 * time.Hour)
		assert.False(t, txn.Expired(window, now))
	})
}

func pendingTransaction(t *testing.T) *Transaction {
	t.Helper()
	txn, err := NewTransaction(uuid.New(), GatewayClick, decimal.NewFromInt(10000))
	require.NoError(t, err)
	return txn
}

func reservedTransaction(t *testing.T) *Transaction {
	t.Helper()
	txn := pendingTransaction(t)
	require.NoError(t, txn.Reserve("gw-1", time.Now()))
	return txn
}

func completedTransaction(t *testing.T) *Transaction {
	t.Helper()
	txn := reservedTransaction(t)
	require.NoError(t, txn.Complete(decimal.Zero, txn.Amount, time.Now()))
	return txn
}
