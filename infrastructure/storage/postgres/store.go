// Package postgres implements ports.Store on PostgreSQL with sqlx and the
// lib/pq driver.
//
// Writes that must be atomic run inside Store.WithinTx. LockSession takes a
// row lock with SELECT ... FOR UPDATE; lock waits are bounded by the
// configured lock timeout and surface as *domain.ConcurrencyError, as do
// serialization failures and deadlocks.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

//go:embed schema.sql
var schema string

var _ ports.Store = (*Store)(nil)

var errNoRowReturned = errors.New("statement returned no row")

// Postgres error codes that indicate contention rather than a bad request.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// Store is a ports.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
	// q is the database handle or the open transaction.
	q           sqlx.ExtContext
	tx          *sqlx.Tx
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a transaction waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// New wraps an open database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, q: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return New(db, opts...), nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// WithinTx implements ports.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("transaction", "begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.lockTimeout > 0 {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return mapError("transaction", "set lock_timeout", err)
		}
	}

	if err = fn(&Store{db: s.db, q: tx, tx: tx, lockTimeout: s.lockTimeout}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError("transaction", "commit", err)
	}
	return nil
}

// mapError translates driver errors into domain and port errors.
func mapError(table, op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return domain.NewConcurrencyError(table, err)
		case codeUniqueViolation:
			return domain.Invalid(table, "duplicate key: "+pqErr.Detail)
		case codeForeignKeyViolation:
			return domain.Invalid(table, "references a missing row: "+pqErr.Detail)
		}
	}
	return ports.NewStoreError(table, op, err)
}

// getOne runs a single-row query and converts sql.ErrNoRows to a
// NotFoundError for entity/id.
func (s *Store) getOne(ctx context.Context, dest any, entity, id, table, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return mapError(table, "get", err)
}

// selectAll runs a multi-row query into dest.
func (s *Store) selectAll(ctx context.Context, dest any, table, query string, args ...any) error {
	return mapError(table, "select", sqlx.SelectContext(ctx, s.q, dest, query, args...))
}

// execOne runs a statement that must affect exactly one row.
func (s *Store) execOne(ctx context.Context, entity, id, table, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(table, "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(table, "update", err)
	}
	if n == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}
