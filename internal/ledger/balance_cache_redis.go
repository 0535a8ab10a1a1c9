package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const balanceCacheTTL = 5 * time.Minute

// BalanceReadCache fronts the hot GetBalance read path with redis. It is a
// pure accelerator: every miss falls through to the ledger, and the
// processor invalidates on commit. cycleYear 0 keys the "current cycle"
// variant of the lookup.
type BalanceReadCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewBalanceReadCache(rdb *redis.Client, logger ...*zap.Logger) *BalanceReadCache {
	l := zap.L().Named("ledger.read_cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.read_cache")
	}
	return &BalanceReadCache{rdb: rdb, logger: l}
}

func balanceKey(tenantID, employeeID string, cycleYear int) string {
	return fmt.Sprintf("leaveledger:balance:%s:%s:%d", tenantID, employeeID, cycleYear)
}

func (c *BalanceReadCache) Get(ctx context.Context, tenantID, employeeID string, cycleYear int) ([]BalanceItem, bool) {
	raw, err := c.rdb.Get(ctx, balanceKey(tenantID, employeeID, cycleYear)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("balance cache get failed", zap.Error(err))
		}
		return nil, false
	}

	var items []BalanceItem
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("balance cache decode failed", zap.Error(err))
		return nil, false
	}
	return items, true
}

func (c *BalanceReadCache) Set(ctx context.Context, tenantID, employeeID string, cycleYear int, items []BalanceItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, balanceKey(tenantID, employeeID, cycleYear), raw, balanceCacheTTL).Err(); err != nil {
		c.logger.Warn("balance cache set failed", zap.Error(err))
	}
}

// Invalidate drops both the written cycle's key and the current-cycle key;
// a write to any scope of the employee can change either view.
func (c *BalanceReadCache) Invalidate(ctx context.Context, tenantID, employeeID string, cycleYear int) {
	keys := []string{
		balanceKey(tenantID, employeeID, cycleYear),
		balanceKey(tenantID, employeeID, 0),
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("balance cache invalidate failed", zap.Error(err))
	}
}
