// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/usergate/internal/config"
)

const (
	pgUniqueViolation = "23505"
	pingTimeout       = 5 * time.Second
)

// Database owns the users pool. The service talks to it only through DBTX.
type Database struct {
	DB *sqlx.DB
}

// NewDatabase keeps dialing until the server answers or cfg.ConnectTimeout
// elapses, so the service can start alongside its database container.
func NewDatabase(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (*Database, error) {
	var db *sqlx.DB

	err := dialWithRetry(ctx, "postgres", cfg.ConnectTimeout, logger, func(ctx context.Context) error {
		conn, err := sqlx.Open("pgx", cfg.URL)
		if err != nil {
			return permanent(fmt.Errorf("open database: %w", err))
		}

		if err := pingWithin(ctx, conn.PingContext); err != nil {
			_ = conn.Close() //nolint:errcheck
			return err
		}

		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(jitteredDuration(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	if err := pingWithin(ctx, d.DB.PingContext); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

func (d *Database) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := d.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(
		ctx context.Context,
		dest any,
		query string,
		args ...any,
	) error
}

// IsDuplicateKeyError reports a unique violation, which for users means the
// email is taken.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func jitteredDuration(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	//nolint:gosec // G404: pool jitter
	jitter := time.Duration(rand.Int64N(int64(base/7) + 1))
	return base + jitter
}
