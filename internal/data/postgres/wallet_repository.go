package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vocalix-payment-gateway/internal/domain/wallet"
	"github.com/vocalix-payment-gateway/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic balance updates
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet. A second wallet for the same account violates
// the uniqueness constraint and surfaces as ErrDuplicateAccount.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, account_id, balance, total_credited, total_debited, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.AccountID,
		w.Balance,
		w.TotalCredited,
		w.TotalDebited,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return wallet.ErrDuplicateAccount{AccountID: w.AccountID}
		}
		r.logger.Error("Failed to create wallet", "account_id", w.AccountID, "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetByID retrieves a wallet by its id
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT id, account_id, balance, total_credited, total_debited, last_transaction_at, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to get wallet", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// GetByAccountID retrieves the wallet owned by an account
func (r *WalletRepository) GetByAccountID(ctx context.Context, accountID int64) (*wallet.Wallet, error) {
	query := `
		SELECT id, account_id, balance, total_credited, total_debited, last_transaction_at, created_at, updated_at
		FROM wallets
		WHERE account_id = $1
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrAccountWalletNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get wallet by account", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get wallet by account: %w", err)
	}

	return w, nil
}

// LockForUpdate obtains a pessimistic lock on the wallet row and returns its
// current state. Callers must already hold the owning transaction's row lock.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT id, account_id, balance, total_credited, total_debited, last_transaction_at, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to lock wallet for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return w, nil
}

// UpdateBalance persists the balance, running totals and last transaction
// time of a wallet locked earlier in the same database transaction
func (r *WalletRepository) UpdateBalance(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, total_credited = $2, total_debited = $3, last_transaction_at = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.TotalCredited,
		w.TotalDebited,
		w.LastTransactionAt,
		w.UpdatedAt,
		w.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update wallet balance", "id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound{WalletID: w.ID}
	}

	return nil
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Balance,
		&w.TotalCredited,
		&w.TotalDebited,
		&w.LastTransactionAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
