package database

import "context"

type txKey struct{}

// WithTx returns a context carrying tx. Repositories reached through that
// context write inside tx.
func WithTx(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx.
func TxFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(Transaction)
	return tx, ok && tx != nil
}

// ExecutorFromContext returns the transaction in ctx, or conn outside one.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return conn
}
