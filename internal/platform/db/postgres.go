package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ApplicationName tags connections in pg_stat_activity unless the DSN sets one.
const ApplicationName = "kirana"

// New opens a pool for dsn and pings it. Pool sizing comes from the DSN
// (pool_max_conns and friends); idle connections are recycled after five
// minutes when the DSN leaves that unset.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	return pool, nil
}

// ParseConfig parses dsn and applies the kirana connection defaults.
func ParseConfig(dsn string) (*pgxpool.Config, error) {
	if dsn == "" {
		return nil, errors.New("platform/db: empty dsn")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	if config.MaxConnIdleTime == 30*time.Minute {
		config.MaxConnIdleTime = 5 * time.Minute
	}
	return config, nil
}

// IsUniqueViolation reports whether err is a unique constraint failure (23505).
func IsUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

// Retryable reports whether err is a serialization failure (40001) or a
// deadlock (40P01).
func Retryable(err error) bool {
	return hasCode(err, "40001") || hasCode(err, "40P01")
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
