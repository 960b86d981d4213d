package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Dosada05/swiss-tournament/repositories"
)

// TxRunner runs fn inside one database transaction. A nil error from fn commits it,
// anything else rolls it back.
type TxRunner func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error

func NewSQLTxRunner(db *sql.DB, logger *slog.Logger) TxRunner {
	return func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (txErr error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
					txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
				}
			} else if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}()

		txErr = fn(tx)
		return txErr
	}
}
