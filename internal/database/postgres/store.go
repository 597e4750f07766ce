package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/lib/pq"
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// Store implements database.Store on top of a Pool.
type Store struct {
	pool *Pool
}

// NewStore creates a Store using the given pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn in a read-committed transaction and commits if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	return s.run(ctx, &sql.TxOptions{}, fn)
}

// WithReadTx runs fn in a read-only repeatable-read transaction so that
// aggregate reads see a single snapshot.
func (s *Store) WithReadTx(ctx context.Context, fn func(tx database.Tx) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(tx database.Tx) error) (err error) {
	sqlTx, err := s.pool.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			sqlTx.Rollback()
		}
	}()

	if err = fn(&txRepo{tx: sqlTx}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// txRepo implements every repository against one *sql.Tx.
type txRepo struct {
	tx *sql.Tx
}

var _ database.Tx = (*txRepo)(nil)

// mapError translates driver errors into the database sentinel errors.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, database.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w", what, database.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// rowsAffected returns the affected row count, or an error from the driver.
func rowsAffected(res sql.Result, what string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", what, err)
	}
	return n, nil
}
