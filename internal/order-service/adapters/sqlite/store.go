// Package sqlite implements the order service ports on SQLite.
//
// All repository access happens inside Store.InTx, which begins IMMEDIATE and
// so holds the database write lock for the whole transaction. SQLite has no
// row locks; ProductRepository.FindByIDForUpdate still issues a no-op UPDATE
// of the target row so the lock is taken even on a deferred connection.
// Concurrent writers, in this process or another one sharing the file, queue
// on busy_timeout until the holder commits or rolls back.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var _ ports.Store = (*Store)(nil)

// Store is the SQLite implementation of ports.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
//
//	store, err := sqlite.Open(ctx, "./data/orders.db")
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(DriverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn in a transaction. The transaction commits only if fn returns
// nil; any error or panic rolls back every write fn made.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	products   *productRepository
	orders     *orderRepository
	orderItems *orderItemRepository
}

func newRepositories(q querier) *repositories {
	items := &orderItemRepository{q: q}
	return &repositories{
		products:   &productRepository{q: q},
		orders:     &orderRepository{q: q, items: items},
		orderItems: items,
	}
}

func (r *repositories) Products() ports.ProductRepository     { return r.products }
func (r *repositories) Orders() ports.OrderRepository         { return r.orders }
func (r *repositories) OrderItems() ports.OrderItemRepository { return r.orderItems }

func count(ctx context.Context, q querier, what, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", what, err)
	}
	return n, nil
}

// expectOneRow turns a zero-row versioned write into ErrVersionConflict.
func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s rows affected: %w", op, err)
	}
	if n == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

// isUniqueViolation matches the constraint message both drivers surface.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
