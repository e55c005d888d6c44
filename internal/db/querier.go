package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnavailable is returned by services that run without a database.
var ErrUnavailable = errors.New("storage unavailable")

// Querier represents the minimal database operations used by services.
// Both *pgxpool.Pool and pgxmock pools satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FromPool returns pool as a Querier, or nil when pool is nil so callers can
// test for a missing database with a plain nil check.
func FromPool(pool *pgxpool.Pool) Querier {
	if pool == nil {
		return nil
	}
	return pool
}
