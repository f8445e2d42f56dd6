package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager carries the active transaction in the context so that repositories called
// inside WithinTx share it without taking a *sql.Tx parameter.
type TxManager struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{
		db:        db,
		isolation: sql.LevelRepeatableRead,
	}
}

// WithinTx runs fn in a transaction and commits when fn returns nil. When ctx already
// carries a transaction, fn joins it and the outer caller decides the outcome.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTx(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.isolation})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Conn returns the transaction carried by ctx, or the pool.
func (m *TxManager) Conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

func (m *TxManager) InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

func (m *TxManager) PingContext(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
