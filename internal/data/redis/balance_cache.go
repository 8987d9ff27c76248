// Package redis provides the Redis-backed wallet balance cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vocalix-payment-gateway/internal/domain/wallet"
)

const balanceKeyPrefix = "balance:"

// BalanceCache mirrors committed wallet snapshots into Redis so balance
// reads can skip PostgreSQL. Entries expire after the configured TTL and
// the wallets table stays authoritative.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewBalanceCache(logger *slog.Logger, client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshots are keyed by account id; gateway-facing reads address wallets
// by the messenger account, not the wallet uuid.
func balanceKey(accountID int64) string {
	return fmt.Sprintf("%s%d", balanceKeyPrefix, accountID)
}

// SetBalance stores the wallet snapshot under its account's key
func (c *BalanceCache) SetBalance(ctx context.Context, w *wallet.Wallet) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet %s: %w", w.ID, err)
	}

	if err := c.client.Set(ctx, balanceKey(w.AccountID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance for account %d: %w", w.AccountID, err)
	}
	return nil
}

// GetBalance returns the cached wallet snapshot for an account, or nil
// when no entry exists. Callers fall back to PostgreSQL on a miss or an
// error.
func (c *BalanceCache) GetBalance(ctx context.Context, accountID int64) (*wallet.Wallet, error) {
	raw, err := c.client.Get(ctx, balanceKey(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached balance for account %d: %w", accountID, err)
	}

	var w wallet.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to decode cached balance for account %d: %w", accountID, err)
	}
	return &w, nil
}
