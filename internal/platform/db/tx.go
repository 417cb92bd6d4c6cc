package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions; *pgxpool.Pool implements it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// maxTxAttempts bounds reruns after serialization failures and deadlocks.
const maxTxAttempts = 3

// WithTx runs fn in a REPEATABLE READ transaction. fn is rerun when postgres
// aborts the transaction with a serialization failure or deadlock, so it must
// not have side effects outside tx.
func WithTx(ctx context.Context, pool TxBeginner, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

// WithTxOptions is WithTx with caller supplied options.
func WithTxOptions(ctx context.Context, pool TxBeginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, pool, opts, fn)
		if err == nil || !Retryable(err) || attempt == maxTxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func runTx(ctx context.Context, pool TxBeginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}
