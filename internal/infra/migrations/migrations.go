// Package migrations embeds the schema for both supported SQL dialects and
// applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Up applies every pending migration of dialect. databaseURL is the URL or
// DSN the application itself connects with.
func Up(dialect, databaseURL string) error {
	target, err := MigrateURL(dialect, databaseURL)
	if err != nil {
		return err
	}

	src, err := iofs.New(files, dialect)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateURL rewrites an application connection string into the form the
// golang-migrate drivers register: pgx5:// for Postgres and mysql://<dsn>
// with multi statements enabled for MySQL.
func MigrateURL(dialect, databaseURL string) (string, error) {
	switch dialect {
	case DialectPostgres:
		for _, prefix := range []string{"postgresql://", "postgres://"} {
			if strings.HasPrefix(databaseURL, prefix) {
				return "pgx5://" + strings.TrimPrefix(databaseURL, prefix), nil
			}
		}
		return "", fmt.Errorf("unsupported postgres url %q", databaseURL)
	case DialectMySQL:
		dsn := strings.TrimPrefix(databaseURL, "mysql://")
		if !strings.Contains(dsn, "multiStatements=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "multiStatements=true"
		}
		return "mysql://" + dsn, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", dialect)
	}
}
