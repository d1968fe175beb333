package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/migrations"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// Connect opens a pool and waits, with exponential backoff, until the
// database answers a ping or timeout elapses.
func Connect(ctx context.Context, databaseURL string, timeout time.Duration, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = timeout
	err = backoff.RetryNotify(
		func() error { return pool.Ping(ctx) },
		backoff.WithContext(eb, ctx),
		func(err error, next time.Duration) {
			logger.Warn("postgres not ready, retrying", zap.Error(err), zap.Duration("next", next))
		},
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func RunMigrations(databaseURL string) error {
	return migrations.Up(migrations.DialectPostgres, databaseURL)
}

// mapErr converts driver errors into the repository sentinels.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, port.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, port.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
