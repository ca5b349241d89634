// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Recorder persists finished match results. It is optional: Connect returns
// nil when no database is configured and every method is nil-safe, so the
// engine runs identically without Postgres.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// Connect builds a Recorder from PG_* environment variables. A missing
// PG_HOST disables result recording; a configured but unreachable database is
// a startup error.
func Connect(ctx context.Context, logger *logrus.Logger) *Recorder {
	host := os.Getenv("PG_HOST")
	if host == "" {
		return nil
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		logger.Fatalf("unable to parse pgx config: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Fatalf("unable to create pgx pool: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	logger.Infof("Match result recording enabled (%s)", host)
	return &Recorder{pool: pool, logger: logger}
}
