package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/academic-insights/pkg/config"
)

// Schema holds the tables owned by the gateway: per-user session settings and the
// suggestion feedback ledger. Grades and notifications stay with the upstream API.
const Schema = `
CREATE TABLE IF NOT EXISTS session_settings (
    user_id              TEXT PRIMARY KEY,
    risk_threshold       DOUBLE PRECISION NOT NULL,
    suggestion_count     INTEGER NOT NULL,
    theme                TEXT NOT NULL,
    language             TEXT NOT NULL,
    suggestion_alerts    BOOLEAN NOT NULL,
    validation_alerts    BOOLEAN NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS suggestion_feedback (
    id             TEXT PRIMARY KEY,
    suggestion_id  TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    useful         BOOLEAN NOT NULL,
    delivered      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL,
    delivered_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS suggestion_feedback_suggestion_idx ON suggestion_feedback (suggestion_id);
`

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies Schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
