package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/migrations"
	"go.uber.org/zap"
)

const duplicateEntry = 1062

// Connect opens a sqlx handle for dsn and retries the first ping with
// exponential backoff until timeout elapses.
func Connect(ctx context.Context, dsn string, timeout time.Duration, logger *zap.Logger) (*sqlx.DB, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = timeout
	err = backoff.RetryNotify(
		func() error { return db.PingContext(ctx) },
		backoff.WithContext(eb, ctx),
		func(err error, next time.Duration) {
			logger.Warn("mysql not ready, retrying", zap.Error(err), zap.Duration("next", next))
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// NormalizeDSN forces parseTime and UTC so DATETIME columns scan into
// time.Time, and reports matched rather than changed rows on UPDATE.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func RunMigrations(dsn string) error {
	return migrations.Up(migrations.DialectMySQL, dsn)
}

func mapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, port.ErrNotFound)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == duplicateEntry {
		return fmt.Errorf("%s: %w", op, port.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireAffected turns a zero-row UPDATE into ErrNotFound.
func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return mapErr(op, sql.ErrNoRows)
	}
	return nil
}
