package database

import (
	"context"
	"errors"
	"fmt"
)

// Transactor runs work inside a transaction carried by the context, so
// repositories using ExecutorFromContext join it transparently.
type Transactor struct {
	conn Connection
}

// NewTransactor creates a transactor over conn.
func NewTransactor(conn Connection) *Transactor {
	return &Transactor{conn: conn}
}

// WithinTx runs fn in a transaction. An enclosing transaction in ctx is
// reused and left for its owner to finish.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.conn.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := WithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
