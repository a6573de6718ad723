package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ForeignKeyViolation is the SQLSTATE Postgres reports for a dangling reference.
const ForeignKeyViolation = "23503"

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store runs groups of statements inside a single transaction.
type Store struct {
	conn TxBeginner
}

// NewStore wraps conn.
func NewStore(conn TxBeginner) *Store {
	return &Store{conn: conn}
}

// InTx runs fn in a REPEATABLE READ transaction, committing when fn returns nil.
// Pricing reads the cart and the rule set through InTx so both come from the
// same snapshot.
func (s *Store) InTx(ctx context.Context, fn func(Querier) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()
	if err = fn(New(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsForeignKeyViolation reports whether err is a Postgres FK violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ForeignKeyViolation
}
