package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var _ ports.OrderRepository = (*orderRepository)(nil)

type orderRepository struct {
	q     querier
	items *orderItemRepository
}

const orderColumns = `id, code, customer_name, customer_email, status, total_amount, order_date, version, created_at, updated_at`

func (r *orderRepository) FindByCode(ctx context.Context, code uuid.UUID) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE code = ?`, code)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order %s: %w", code, err)
	}
	return o, nil
}

func (r *orderRepository) FindByCodeWithItems(ctx context.Context, code uuid.UUID) (*domain.Order, error) {
	o, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return o, r.loadItems(ctx, o)
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order %d: %w", id, err)
	}
	return o, r.loadItems(ctx, o)
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO orders
			(code, customer_name, customer_email, status, total_amount, order_date, version, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		o.Code, o.CustomerName, o.CustomerEmail, string(o.Status), o.TotalAmount,
		formatTime(o.OrderDate), formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order %s: %w", o.Code, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create order %s: %w", o.Code, err)
	}
	o.ID = id
	o.Version = 0
	o.CreatedAt = now
	o.UpdatedAt = now

	for _, item := range o.Items {
		item.OrderID = id
		if err := r.items.Create(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET    customer_name = ?, customer_email = ?, status = ?, total_amount = ?,
		       version = version + 1, updated_at = ?
		WHERE  id = ? AND version = ?`,
		o.CustomerName, o.CustomerEmail, string(o.Status), o.TotalAmount, formatTime(now), o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update order %s: %w", o.Code, err)
	}
	if err := expectOneRow(res, "update order"); err != nil {
		return fmt.Errorf("sqlite: update order %s: %w", o.Code, err)
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: delete order %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "orders", `SELECT COUNT(*) FROM orders`)
}

// List returns orders newest first, each with its items.
func (r *orderRepository) List(ctx context.Context, page ports.Page) ([]*domain.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC, id DESC LIMIT ? OFFSET ?`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("sqlite: list orders: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	// Close before loading items: the pool has a single connection.
	_ = rows.Close()

	for _, o := range out {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *orderRepository) loadItems(ctx context.Context, o *domain.Order) error {
	items, err := r.items.allByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                               domain.Order
		status                          string
		orderDate, createdAt, updatedAt string
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.CustomerName, &o.CustomerEmail, &status, &o.TotalAmount,
		&orderDate, &o.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	if o.OrderDate, err = parseTime(orderDate); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
