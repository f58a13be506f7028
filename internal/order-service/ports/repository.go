// Package ports declares the persistence abstractions the order service core
// depends on. Adapters (SQLite today) implement them; the app layer never
// touches a driver directly.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a versioned update matches no row
	// because the stored version moved on.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a window of a listing. Number is zero based.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps p to a non-negative number and a size in
// [1, MaxPageSize], defaulting a zero size to DefaultPageSize.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return p.Number * p.Size
}

// Listing is one page of a listing plus the number of rows across all pages.
type Listing[T any] struct {
	Items []T
	Total int
}

// TotalPages is the number of pages of the given size that hold Total rows.
func (l Listing[T]) TotalPages(size int) int {
	if size <= 0 {
		return 0
	}
	return (l.Total + size - 1) / size
}

type ProductRepository interface {
	FindByCode(ctx context.Context, code uuid.UUID) (*domain.Product, error)
	// FindByIDForUpdate reads the product while holding an exclusive lock on
	// it until the enclosing transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	// ExistsByName matches case-insensitively, ignoring the product excludeID
	// (0 to exclude nothing).
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, p *domain.Product) error
	// Update writes p if its stored version still equals p.Version and bumps
	// p.Version on success.
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page Page) ([]*domain.Product, error)
	Count(ctx context.Context) (int, error)
}

type OrderRepository interface {
	FindByCode(ctx context.Context, code uuid.UUID) (*domain.Order, error)
	FindByCodeWithItems(ctx context.Context, code uuid.UUID) (*domain.Order, error)
	FindByIDWithItems(ctx context.Context, id int64) (*domain.Order, error)
	// Create inserts the order and all of its items.
	Create(ctx context.Context, o *domain.Order) error
	// Update writes the order row only, guarded by o.Version, and bumps it.
	Update(ctx context.Context, o *domain.Order) error
	// Delete removes the order; its items cascade.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page Page) ([]*domain.Order, error)
	Count(ctx context.Context) (int, error)
}

type OrderItemRepository interface {
	FindByCode(ctx context.Context, code uuid.UUID) (*domain.OrderItem, error)
	Create(ctx context.Context, item *domain.OrderItem) error
	// Update writes the item guarded by item.Version and bumps it.
	Update(ctx context.Context, item *domain.OrderItem) error
	Delete(ctx context.Context, id int64) error
	ListByOrder(ctx context.Context, orderID int64, page Page) ([]*domain.OrderItem, error)
	List(ctx context.Context, page Page) ([]*domain.OrderItem, error)
	CountByOrder(ctx context.Context, orderID int64) (int, error)
	Count(ctx context.Context) (int, error)
}

// Repositories is the set of repositories bound to one transaction.
type Repositories interface {
	Products() ProductRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
}

// Store runs units of work. InTx commits when fn returns nil and rolls back
// everything fn did otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
