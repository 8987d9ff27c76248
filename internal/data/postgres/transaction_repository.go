// Package postgres provides PostgreSQL implementations of the domain
// repositories. All lifecycle state lives here; handlers never reach the
// database except through these types.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/platform/persistence"
)

const transactionColumns = `id, reference_id, wallet_id, gateway, gateway_transaction_id, amount, state,
		balance_before, balance_after, created_at, reserved_at, performed_at, cancelled_at, cancel_reason`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, so lifecycle transitions
// commit atomically with the wallet and outbox writes they belong to.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new pending transaction and assigns its reservation id
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (reference_id, wallet_id, gateway, gateway_transaction_id, amount, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		txn.ReferenceID,
		txn.WalletID,
		txn.Gateway,
		txn.GatewayTransactionID,
		txn.Amount,
		txn.State,
		txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		r.logger.Error("Failed to create transaction", "ref_id", txn.ReferenceID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its reservation id
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrReservationNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByReferenceID retrieves a transaction by its merchant reference
func (r *TransactionRepository) GetByReferenceID(ctx context.Context, referenceID uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ReferenceID: referenceID}
		}
		r.logger.Error("Failed to get transaction by reference", "ref_id", referenceID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return txn, nil
}

// GetByGatewayTransactionID retrieves a transaction by the identifier the
// gateway assigned at reservation
func (r *TransactionRepository) GetByGatewayTransactionID(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE gateway = $1 AND gateway_transaction_id = $2
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, gateway, gatewayTxnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrGatewayTransactionNotFound{Gateway: gateway, GatewayTransactionID: gatewayTxnID}
		}
		r.logger.Error("Failed to get transaction by gateway id", "gateway", string(gateway), "gw_txn_id", gatewayTxnID, "error", err)
		return nil, fmt.Errorf("failed to get transaction by gateway id: %w", err)
	}

	return txn, nil
}

// LockByID obtains a pessimistic lock on the transaction row by reservation id
func (r *TransactionRepository) LockByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrReservationNotFound{ID: id}
		}
		r.logger.Error("Failed to lock transaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	return txn, nil
}

// LockByReferenceID obtains a pessimistic lock on the transaction row by
// merchant reference
func (r *TransactionRepository) LockByReferenceID(ctx context.Context, referenceID uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_id = $1
		FOR UPDATE
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ReferenceID: referenceID}
		}
		r.logger.Error("Failed to lock transaction by reference", "ref_id", referenceID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock transaction by reference: %w", err)
	}

	return txn, nil
}

// LockByGatewayTransactionID obtains a pessimistic lock on the transaction
// row by the gateway-assigned identifier
func (r *TransactionRepository) LockByGatewayTransactionID(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE gateway = $1 AND gateway_transaction_id = $2
		FOR UPDATE
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, gateway, gatewayTxnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrGatewayTransactionNotFound{Gateway: gateway, GatewayTransactionID: gatewayTxnID}
		}
		r.logger.Error("Failed to lock transaction by gateway id", "gateway", string(gateway), "gw_txn_id", gatewayTxnID, "error", err)
		return nil, fmt.Errorf("failed to lock transaction by gateway id: %w", err)
	}

	return txn, nil
}

// UpdateState persists a lifecycle transition conditionally on the state the
// row held when it was read. Zero affected rows means a concurrent transition
// won and the caller's view is stale.
func (r *TransactionRepository) UpdateState(ctx context.Context, txn *transaction.Transaction, from transaction.State) error {
	query := `
		UPDATE transactions
		SET state = $1, gateway_transaction_id = $2, balance_before = $3, balance_after = $4,
		    reserved_at = $5, performed_at = $6, cancelled_at = $7, cancel_reason = $8
		WHERE id = $9 AND state = $10
	`

	result, err := r.querier.Exec(ctx, query,
		txn.State,
		txn.GatewayTransactionID,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.ReservedAt,
		txn.PerformedAt,
		txn.CancelledAt,
		txn.CancelReason,
		txn.ID,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction state", "id", txn.ID, "state", string(txn.State), "error", err)
		return fmt.Errorf("failed to update transaction state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrStateConflict{ID: txn.ID}
	}

	return nil
}

// ListReservedBetween returns the gateway's transactions with a reservation
// time inside [from, to], oldest first
func (r *TransactionRepository) ListReservedBetween(ctx context.Context, gateway transaction.Gateway, from, to time.Time) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE gateway = $1 AND reserved_at >= $2 AND reserved_at <= $3
		ORDER BY reserved_at ASC
	`

	rows, err := r.querier.Query(ctx, query, gateway, from, to)
	if err != nil {
		r.logger.Error("Failed to list reserved transactions", "gateway", string(gateway), "error", err)
		return nil, fmt.Errorf("failed to list reserved transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction row", "error", err)
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txns, nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.ReferenceID,
		&txn.WalletID,
		&txn.Gateway,
		&txn.GatewayTransactionID,
		&txn.Amount,
		&txn.State,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.CreatedAt,
		&txn.ReservedAt,
		&txn.PerformedAt,
		&txn.CancelledAt,
		&txn.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
