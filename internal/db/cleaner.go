package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartBalancePruner periodically removes balance rows that have netted out
// to zero. A missing row reads as a zero balance, so pruning never changes
// an observable balance.
func StartBalancePruner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `DELETE FROM balances WHERE lamports = 0`)
				if err != nil {
					log.Error("failed to prune zero balances", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("pruned zero balances", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
