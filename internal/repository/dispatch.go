package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/ports/dispatchtx"
)

// DispatchRepo runs dispatch transactions against Postgres.
type DispatchRepo struct {
	db   *pgxpool.Pool
	opts pgx.TxOptions
}

// NewDispatchRepo creates a new DispatchRepo using the given isolation level.
func NewDispatchRepo(db *pgxpool.Pool, iso pgx.TxIsoLevel) *DispatchRepo {
	return &DispatchRepo{db: db, opts: pgx.TxOptions{IsoLevel: iso}}
}

// WithTx opens a transaction and executes fn within it.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return mapError("begin tx", err)
	}

	// отменяем в случае паники
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&TxRepo{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError("commit tx", err)
	}
	return nil
}

// TxRepo implements dispatchtx.Repository over a single transaction.
type TxRepo struct {
	q querier
}

var (
	_ dispatchtx.Runner     = (*DispatchRepo)(nil)
	_ dispatchtx.Repository = (*TxRepo)(nil)
)
