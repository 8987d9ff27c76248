package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vocalix-payment-gateway/internal/domain/event"
	"github.com/vocalix-payment-gateway/internal/domain/outbox"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
)

// EngineImpl implements the Engine interface on PostgreSQL-backed
// repositories. Every state-changing operation locks the transaction row
// first, then the wallet row, and persists transitions conditionally on
// the state the row held when read.
type EngineImpl struct {
	db              TxRunner
	transactionRepo transaction.Repository
	walletRepo      wallet.Repository
	outboxRepo      outbox.Repository
	balanceCache    BalanceCache
	window          time.Duration
	logger          *slog.Logger
}

// NewEngine creates the lifecycle engine. The window bounds how long a
// pending transaction remains reservable after creation.
func NewEngine(
	db TxRunner,
	transactionRepo transaction.Repository,
	walletRepo wallet.Repository,
	outboxRepo outbox.Repository,
	balanceCache BalanceCache,
	window time.Duration,
	logger *slog.Logger,
) Engine {
	return &EngineImpl{
		db:              db,
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		outboxRepo:      outboxRepo,
		balanceCache:    balanceCache,
		window:          window,
		logger:          logger,
	}
}

// CheckReservable verifies a pending transaction can accept a reservation
func (s *EngineImpl) CheckReservable(ctx context.Context, gateway transaction.Gateway, referenceID uuid.UUID, amount decimal.Decimal) error {
	txn, err := s.transactionRepo.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return err
	}
	if txn.Gateway != gateway {
		return transaction.ErrTransactionNotFound{ReferenceID: referenceID}
	}

	if txn.State != transaction.StatePending {
		return transaction.ErrInvalidTransition{From: txn.State, To: transaction.StateReserved}
	}
	if !txn.Amount.Equal(amount) {
		return transaction.ErrAmountMismatch{Expected: txn.Amount, Received: amount}
	}
	if txn.Expired(s.window, time.Now()) {
		return transaction.ErrWindowExpired{ReferenceID: referenceID}
	}

	return nil
}

// Reserve binds a gateway transaction id to a pending transaction
func (s *EngineImpl) Reserve(ctx context.Context, req ReserveRequest) (*Outcome, error) {
	logger := s.operationLogger(req.CorrelationID, req.Gateway)

	var outcome *Outcome
	var windowExpired bool
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := s.transactionRepo.WithTx(tx)

		// A reservation already bound to this gateway id is a replay.
		existing, err := txns.LockByGatewayTransactionID(ctx, req.Gateway, req.GatewayTransactionID)
		if err == nil {
			if existing.ReferenceID != req.ReferenceID || existing.State != transaction.StateReserved {
				logger.Warn("Gateway id already bound", "gw_txn_id", req.GatewayTransactionID, "state", existing.State)
				return transaction.ErrInvalidTransition{From: existing.State, To: transaction.StateReserved}
			}
			if !existing.Amount.Equal(req.Amount) {
				return transaction.ErrAmountMismatch{Expected: existing.Amount, Received: req.Amount}
			}
			logger.Info("Reservation replayed", "ref_id", existing.ReferenceID.String(), "gw_txn_id", req.GatewayTransactionID)
			outcome = &Outcome{Transaction: existing, Replayed: true}
			return nil
		}
		var unboundID transaction.ErrGatewayTransactionNotFound
		if !errors.As(err, &unboundID) {
			return err
		}

		txn, err := txns.LockByReferenceID(ctx, req.ReferenceID)
		if err != nil {
			return err
		}
		if txn.Gateway != req.Gateway {
			logger.Warn("Reference belongs to another gateway", "ref_id", req.ReferenceID.String(), "owner", txn.Gateway)
			return transaction.ErrTransactionNotFound{ReferenceID: req.ReferenceID}
		}
		if txn.State != transaction.StatePending {
			return transaction.ErrInvalidTransition{From: txn.State, To: transaction.StateReserved}
		}
		if !txn.Amount.Equal(req.Amount) {
			logger.Warn("Reservation amount mismatch", "ref_id", req.ReferenceID.String(), "expected", txn.Amount.String(), "received", req.Amount.String())
			return transaction.ErrAmountMismatch{Expected: txn.Amount, Received: req.Amount}
		}

		now := time.Now()
		if txn.Expired(s.window, now) {
			// The cancellation must outlive this attempt, so it commits
			// while the reservation itself is reported as expired.
			if err := txn.Cancel(transaction.CancelReasonWindowExpired, now); err != nil {
				return err
			}
			if err := txns.UpdateState(ctx, txn, transaction.StatePending); err != nil {
				return err
			}
			logger.Info("Reservation window expired, transaction cancelled", "ref_id", req.ReferenceID.String())
			windowExpired = true
			return nil
		}

		if err := txn.Reserve(req.GatewayTransactionID, now); err != nil {
			return err
		}
		if err := txns.UpdateState(ctx, txn, transaction.StatePending); err != nil {
			return err
		}

		logger.Info("Transaction reserved", "ref_id", txn.ReferenceID.String(), "gw_txn_id", req.GatewayTransactionID, "reservation_id", txn.ID)
		outcome = &Outcome{Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if windowExpired {
		return nil, transaction.ErrWindowExpired{ReferenceID: req.ReferenceID}
	}

	return outcome, nil
}

// Perform settles a reserved transaction and credits the wallet
func (s *EngineImpl) Perform(ctx context.Context, req PerformRequest) (*Outcome, error) {
	logger := s.operationLogger(req.CorrelationID, req.Gateway)

	var outcome *Outcome
	var updated *wallet.Wallet
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := s.transactionRepo.WithTx(tx)

		txn, err := s.lockForGateway(ctx, txns, req.Gateway, req.GatewayTransactionID, req.ReservationID)
		if err != nil {
			return err
		}

		if txn.State == transaction.StateCompleted {
			logger.Info("Perform replayed", "ref_id", txn.ReferenceID.String(), "gw_txn_id", req.GatewayTransactionID)
			outcome = &Outcome{Transaction: txn, Replayed: true}
			return nil
		}
		if txn.State != transaction.StateReserved {
			return transaction.ErrInvalidTransition{From: txn.State, To: transaction.StateCompleted}
		}
		if req.Amount != nil && !txn.Amount.Equal(*req.Amount) {
			logger.Warn("Perform amount mismatch", "ref_id", txn.ReferenceID.String(), "expected", txn.Amount.String(), "received", req.Amount.String())
			return transaction.ErrAmountMismatch{Expected: txn.Amount, Received: *req.Amount}
		}

		wallets := s.walletRepo.WithTx(tx)
		w, err := wallets.LockForUpdate(ctx, txn.WalletID)
		if err != nil {
			return err
		}

		balanceBefore := w.Balance
		if err := w.Credit(txn.Amount); err != nil {
			return err
		}
		now := time.Now()
		if err := txn.Complete(balanceBefore, w.Balance, now); err != nil {
			return err
		}

		if err := txns.UpdateState(ctx, txn, transaction.StateReserved); err != nil {
			return err
		}
		if err := wallets.UpdateBalance(ctx, w); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, event.TypePaymentCompleted, txn, w, req.CorrelationID, now); err != nil {
			return err
		}

		logger.Info("Transaction completed", "ref_id", txn.ReferenceID.String(), "gw_txn_id", txn.GatewayTransactionID, "amount", txn.Amount.String(), "balance", w.Balance.String())
		outcome = &Outcome{Transaction: txn}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshBalance(ctx, logger, updated)
	return outcome, nil
}

// Cancel voids a transaction, refunding the wallet when it had completed
func (s *EngineImpl) Cancel(ctx context.Context, req CancelRequest) (*Outcome, error) {
	logger := s.operationLogger(req.CorrelationID, req.Gateway)

	var outcome *Outcome
	var updated *wallet.Wallet
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := s.transactionRepo.WithTx(tx)

		txn, err := s.lockForGateway(ctx, txns, req.Gateway, req.GatewayTransactionID, req.ReservationID)
		if err != nil {
			return err
		}

		switch txn.State {
		case transaction.StateCancelled, transaction.StateCancelledAfterComplete:
			logger.Info("Cancel replayed", "ref_id", txn.ReferenceID.String(), "gw_txn_id", req.GatewayTransactionID)
			outcome = &Outcome{Transaction: txn, Replayed: true}
			return nil

		case transaction.StateCompleted:
			wallets := s.walletRepo.WithTx(tx)
			w, err := wallets.LockForUpdate(ctx, txn.WalletID)
			if err != nil {
				return err
			}

			balanceBefore := w.Balance
			if err := w.Debit(txn.Amount); err != nil {
				return err
			}
			now := time.Now()
			if err := txn.Refund(balanceBefore, w.Balance, req.Reason, now); err != nil {
				return err
			}

			if err := txns.UpdateState(ctx, txn, transaction.StateCompleted); err != nil {
				return err
			}
			if err := wallets.UpdateBalance(ctx, w); err != nil {
				return err
			}

			if err := s.enqueueEvent(ctx, tx, event.TypePaymentRefunded, txn, w, req.CorrelationID, now); err != nil {
				return err
			}

			logger.Info("Transaction refunded", "ref_id", txn.ReferenceID.String(), "gw_txn_id", txn.GatewayTransactionID, "reason", req.Reason, "balance", w.Balance.String())
			outcome = &Outcome{Transaction: txn}
			updated = w
			return nil

		case transaction.StatePending, transaction.StateReserved:
			from := txn.State
			if err := txn.Cancel(req.Reason, time.Now()); err != nil {
				return err
			}
			if err := txns.UpdateState(ctx, txn, from); err != nil {
				return err
			}

			logger.Info("Transaction cancelled", "ref_id", txn.ReferenceID.String(), "gw_txn_id", req.GatewayTransactionID, "reason", req.Reason)
			outcome = &Outcome{Transaction: txn}
			return nil

		default:
			return transaction.ErrInvalidTransition{From: txn.State, To: transaction.StateCancelled}
		}
	})
	if err != nil {
		return nil, err
	}

	s.refreshBalance(ctx, logger, updated)
	return outcome, nil
}

// Snapshot returns the transaction bound to a gateway transaction id
func (s *EngineImpl) Snapshot(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) (*transaction.Transaction, error) {
	return s.transactionRepo.GetByGatewayTransactionID(ctx, gateway, gatewayTxnID)
}

// Statement lists transactions the gateway reserved inside [from, to]
func (s *EngineImpl) Statement(ctx context.Context, gateway transaction.Gateway, from, to time.Time) ([]*transaction.Transaction, error) {
	return s.transactionRepo.ListReservedBetween(ctx, gateway, from, to)
}

// lockForGateway locks the transaction row a settlement or cancellation
// addresses. Click supplies the reservation id it was handed at prepare;
// the stored gateway binding must then agree with the caller's. Payme
// supplies only its own transaction id.
func (s *EngineImpl) lockForGateway(ctx context.Context, txns transaction.Repository, gateway transaction.Gateway, gatewayTxnID string, reservationID int64) (*transaction.Transaction, error) {
	if reservationID != 0 {
		txn, err := txns.LockByID(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		if txn.Gateway != gateway || txn.GatewayTransactionID != gatewayTxnID {
			return nil, transaction.ErrReservationNotFound{ID: reservationID}
		}
		return txn, nil
	}
	return txns.LockByGatewayTransactionID(ctx, gateway, gatewayTxnID)
}

func (s *EngineImpl) enqueueEvent(ctx context.Context, tx pgx.Tx, eventType event.Type, txn *transaction.Transaction, w *wallet.Wallet, correlationID string, occurredAt time.Time) error {
	evt := &event.PaymentEvent{
		Type:          eventType,
		ReferenceID:   txn.ReferenceID,
		WalletID:      w.ID,
		AccountID:     w.AccountID,
		Gateway:       txn.Gateway,
		Amount:        txn.Amount,
		BalanceAfter:  w.Balance,
		OccurredAt:    occurredAt,
		CorrelationID: correlationID,
	}

	msg, err := outbox.NewMessage(evt)
	if err != nil {
		return err
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}

// refreshBalance mirrors a committed balance into the cache. Failures are
// logged and swallowed; the database remains the source of truth.
func (s *EngineImpl) refreshBalance(ctx context.Context, logger *slog.Logger, w *wallet.Wallet) {
	if w == nil || s.balanceCache == nil {
		return
	}
	if err := s.balanceCache.SetBalance(ctx, w); err != nil {
		logger.Warn("Failed to refresh cached balance", "wallet_id", w.ID.String(), "error", err)
	}
}

func (s *EngineImpl) operationLogger(correlationID string, gateway transaction.Gateway) *slog.Logger {
	logger := s.logger.With("gateway", string(gateway))
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}
	return logger
}
