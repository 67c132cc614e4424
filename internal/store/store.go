package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool
func (s *Store) conn(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// InTx runs fn inside one transaction. Store calls made with the ctx handed to fn join it;
// fn returning an error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checkout_attempts (
		booking_reference VARCHAR(64) PRIMARY KEY,
		checkout_kind VARCHAR(16) NOT NULL,
		payment_type VARCHAR(16) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		base_amount BIGINT NOT NULL,
		discount_amount BIGINT NOT NULL DEFAULT 0,
		surcharge_amount BIGINT NOT NULL DEFAULT 0,
		final_amount BIGINT NOT NULL,
		emi_tenure INT NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_verifications (
		id BIGSERIAL PRIMARY KEY,
		booking_reference VARCHAR(64) NOT NULL,
		outcome VARCHAR(16) NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		confirmed_by_redirect BOOLEAN NOT NULL DEFAULT FALSE,
		message TEXT NOT NULL DEFAULT '',
		verified_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_verifications_reference ON payment_verifications(booking_reference)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// InitSchema creates the journal tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
