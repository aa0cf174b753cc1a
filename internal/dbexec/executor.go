// Package dbexec provides database query execution abstractions shared by
// the SQL loaders.
package dbexec

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows so loaders can be tested without a driver.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor runs SQL for loaders. *StandardExecutor and *TxExecutor
// implement it.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// BeginReadOnly starts a read-only transaction. Loaders that run through it
// see one snapshot for the whole eager load.
func (e *StandardExecutor) BeginReadOnly(ctx context.Context) (*TxExecutor, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &TxExecutor{tx: tx}, nil
}

// TxExecutor executes queries inside a transaction.
type TxExecutor struct {
	tx *sql.Tx
}

func (e *TxExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return e.tx.QueryContext(ctx, query, args...)
}

func (e *TxExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return e.tx.ExecContext(ctx, query, args...)
}

// Commit commits the transaction.
func (e *TxExecutor) Commit() error { return e.tx.Commit() }

// Rollback aborts the transaction.
func (e *TxExecutor) Rollback() error { return e.tx.Rollback() }

type executorKey struct{}

// WithExecutor scopes an executor to ctx; loaders prefer it over their own.
func WithExecutor(ctx context.Context, exec QueryExecutor) context.Context {
	return context.WithValue(ctx, executorKey{}, exec)
}

// ExecutorFromContext returns the executor scoped to ctx, or fallback.
func ExecutorFromContext(ctx context.Context, fallback QueryExecutor) QueryExecutor {
	if ctx != nil {
		if exec, ok := ctx.Value(executorKey{}).(QueryExecutor); ok && exec != nil {
			return exec
		}
	}
	return fallback
}
