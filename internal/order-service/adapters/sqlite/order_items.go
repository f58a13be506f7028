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

var _ ports.OrderItemRepository = (*orderItemRepository)(nil)

type orderItemRepository struct {
	q querier
}

// itemSelect joins products only to expose the referenced product's code;
// i.product_id is NULL once the product is deleted.
const itemSelect = `
	SELECT i.id, i.code, i.order_id, i.product_id, p.code, i.product_name,
	       i.unit_price, i.quantity, i.version, i.created_at, i.updated_at
	FROM   order_items i
	LEFT   JOIN products p ON p.id = i.product_id`

func (r *orderItemRepository) FindByCode(ctx context.Context, code uuid.UUID) (*domain.OrderItem, error) {
	row := r.q.QueryRowContext(ctx, itemSelect+` WHERE i.code = ?`, code)
	item, err := scanOrderItem(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order item %s: %w", code, err)
	}
	return item, nil
}

func (r *orderItemRepository) Create(ctx context.Context, item *domain.OrderItem) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO order_items
			(code, order_id, product_id, product_name, unit_price, quantity, version, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		item.Code, item.OrderID, nullableProductID(item), item.ProductName, item.UnitPrice,
		item.Quantity, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order item for order %d: %w", item.OrderID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create order item for order %d: %w", item.OrderID, err)
	}
	item.ID = id
	item.Version = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// Update writes the quantity only; the snapshot columns are immutable.
func (r *orderItemRepository) Update(ctx context.Context, item *domain.OrderItem) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE order_items
		SET    quantity = ?, version = version + 1, updated_at = ?
		WHERE  id = ? AND version = ?`,
		item.Quantity, formatTime(now), item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update order item %s: %w", item.Code, err)
	}
	if err := expectOneRow(res, "update order item"); err != nil {
		return fmt.Errorf("sqlite: update order item %s: %w", item.Code, err)
	}
	item.Version++
	item.UpdatedAt = now
	return nil
}

func (r *orderItemRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order item %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: delete order item %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *orderItemRepository) ListByOrder(ctx context.Context, orderID int64, page ports.Page) ([]*domain.OrderItem, error) {
	return r.query(ctx, itemSelect+` WHERE i.order_id = ? ORDER BY i.id LIMIT ? OFFSET ?`,
		orderID, page.Size, page.Offset())
}

func (r *orderItemRepository) List(ctx context.Context, page ports.Page) ([]*domain.OrderItem, error) {
	return r.query(ctx, itemSelect+` ORDER BY i.id LIMIT ? OFFSET ?`, page.Size, page.Offset())
}

func (r *orderItemRepository) CountByOrder(ctx context.Context, orderID int64) (int, error) {
	return count(ctx, r.q, "order items", `SELECT COUNT(*) FROM order_items WHERE order_id = ?`, orderID)
}

func (r *orderItemRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "order items", `SELECT COUNT(*) FROM order_items`)
}

// allByOrder loads every item of an order in insertion order.
func (r *orderItemRepository) allByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	return r.query(ctx, itemSelect+` WHERE i.order_id = ? ORDER BY i.id`, orderID)
}

func (r *orderItemRepository) query(ctx context.Context, q string, args ...any) ([]*domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list order items: %w", err)
	}
	defer rows.Close()

	var out []*domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list order items: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanOrderItem(row rowScanner) (*domain.OrderItem, error) {
	var (
		item                 domain.OrderItem
		productID            sql.NullInt64
		productCode          uuid.NullUUID
		createdAt, updatedAt string
	)
	err := row.Scan(
		&item.ID, &item.Code, &item.OrderID, &productID, &productCode, &item.ProductName,
		&item.UnitPrice, &item.Quantity, &item.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		item.Product = &domain.ProductRef{ID: productID.Int64, Code: productCode.UUID}
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func nullableProductID(item *domain.OrderItem) any {
	if item.Product == nil {
		return nil
	}
	return item.Product.ID
}
