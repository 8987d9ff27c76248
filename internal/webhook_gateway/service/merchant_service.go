package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vocalix-payment-gateway/internal/domain/transaction"
	"github.com/vocalix-payment-gateway/internal/domain/wallet"
	"github.com/vocalix-payment-gateway/internal/engine"
)

// MerchantServiceImpl implements the MerchantService interface
type MerchantServiceImpl struct {
	db              engine.TxRunner
	transactionRepo transaction.Repository
	walletRepo      wallet.Repository
	balanceCache    BalanceReader
	logger          *slog.Logger
}

// NewMerchantService creates a new merchant service
func NewMerchantService(
	logger *slog.Logger,
	db engine.TxRunner,
	transactionRepo transaction.Repository,
	walletRepo wallet.Repository,
	balanceCache BalanceReader,
) MerchantService {
	return &MerchantServiceImpl{
		db:              db,
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		balanceCache:    balanceCache,
		logger:          logger,
	}
}

// InitiateTransaction opens a Pending transaction for the account, creating
// the account's wallet on first use. Wallet and transaction commit together.
func (s *MerchantServiceImpl) InitiateTransaction(ctx context.Context, accountID int64, amount decimal.Decimal, gateway transaction.Gateway) (*transaction.Transaction, error) {
	txn, err := s.createWithWallet(ctx, accountID, amount, gateway)

	// A concurrent initiation may have created the wallet between our read
	// and our insert; the unique violation aborts the whole transaction, so
	// the retry needs a fresh one.
	var duplicateAccount wallet.ErrDuplicateAccount
	if errors.As(err, &duplicateAccount) {
		txn, err = s.createWithWallet(ctx, accountID, amount, gateway)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction initiated",
		"ref_id", txn.ReferenceID.String(),
		"account_id", accountID,
		"gateway", string(gateway),
		"amount", amount.String(),
	)
	return txn, nil
}

func (s *MerchantServiceImpl) createWithWallet(ctx context.Context, accountID int64, amount decimal.Decimal, gateway transaction.Gateway) (*transaction.Transaction, error) {
	var txn *transaction.Transaction
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		wallets := s.walletRepo.WithTx(tx)

		w, err := wallets.GetByAccountID(ctx, accountID)
		var walletNotFound wallet.ErrAccountWalletNotFound
		if errors.As(err, &walletNotFound) {
			w, err = wallet.NewWallet(accountID)
			if err != nil {
				return err
			}
			if err := wallets.Create(ctx, w); err != nil {
				return err
			}
			s.logger.Info("Wallet created", "account_id", accountID, "wallet_id", w.ID.String())
		} else if err != nil {
			return err
		}

		txn, err = transaction.NewTransaction(w.ID, gateway, amount)
		if err != nil {
			return err
		}
		return s.transactionRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactionByReference retrieves a transaction by its reference id
func (s *MerchantServiceImpl) GetTransactionByReference(ctx context.Context, referenceID uuid.UUID) (*transaction.Transaction, error) {
	return s.transactionRepo.GetByReferenceID(ctx, referenceID)
}

// GetWalletBalance returns the wallet snapshot for an account. Cache reads
// and warms are best-effort; PostgreSQL stays authoritative.
func (s *MerchantServiceImpl) GetWalletBalance(ctx context.Context, accountID int64) (*wallet.Wallet, error) {
	if s.balanceCache != nil {
		w, err := s.balanceCache.GetBalance(ctx, accountID)
		if err != nil {
			s.logger.Warn("Balance cache read failed", "account_id", accountID, "error", err)
		}
		if w != nil {
			return w, nil
		}
	}

	w, err := s.walletRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.balanceCache != nil {
		if err := s.balanceCache.SetBalance(ctx, w); err != nil {
			s.logger.Warn("Failed to warm balance cache", "account_id", accountID, "error", err)
		}
	}
	return w, nil
}
