package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var _ ports.ProductRepository = (*productRepository)(nil)

type productRepository struct {
	q querier
}

const productColumns = `id, code, name, description, price, stock_quantity, version, created_at, updated_at`

// nameKey is the Unicode case-folded form that product names are unique on.
func nameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func (r *productRepository) FindByCode(ctx context.Context, code uuid.UUID) (*domain.Product, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = ?`, code)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find product %s: %w", code, err)
	}
	return p, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	// The no-op write upgrades the transaction to hold the write lock, so the
	// read below cannot race another adjustment of the same product.
	res, err := r.q.ExecContext(ctx, `UPDATE products SET stock_quantity = stock_quantity WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: lock product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("sqlite: lock product %d: %w", id, err)
	} else if n == 0 {
		return nil, fmt.Errorf("sqlite: lock product %d: %w", id, ports.ErrNotFound)
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find product %d: %w", id, err)
	}
	return p, nil
}

func (r *productRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE name_key = ? AND id <> ?)`,
		nameKey(name), excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: product name exists %q: %w", name, err)
	}
	return exists, nil
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO products (code, name, name_key, description, price, stock_quantity, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.Code, p.Name, nameKey(p.Name), p.Description, p.Price, p.StockQuantity, formatTime(now), formatTime(now),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, ports.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	p.ID = id
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET    name = ?, name_key = ?, description = ?, price = ?, stock_quantity = ?,
		       version = version + 1, updated_at = ?
		WHERE  id = ? AND version = ?`,
		p.Name, nameKey(p.Name), p.Description, p.Price, p.StockQuantity, formatTime(now), p.ID, p.Version,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sqlite: update product %s: %w", p.Code, ports.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("sqlite: update product %s: %w", p.Code, err)
	}
	if err := expectOneRow(res, "update product"); err != nil {
		return fmt.Errorf("sqlite: update product %s: %w", p.Code, err)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sqlite: delete product %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.q, "products", `SELECT COUNT(*) FROM products`)
}

func (r *productRepository) List(ctx context.Context, page ports.Page) ([]*domain.Product, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id LIMIT ? OFFSET ?`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list products: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p                    domain.Product
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Price,
		&p.StockQuantity, &p.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
