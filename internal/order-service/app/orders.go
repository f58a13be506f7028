package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

type LineItem struct {
	ProductCode uuid.UUID
	Quantity    int
}

type CreateOrderInput struct {
	CustomerName  string
	CustomerEmail string
	Items         []LineItem
}

type UpdateOrderInput struct {
	CustomerName  string
	CustomerEmail string
	Status        domain.Status
	Version       int64
}

// Orders orchestrates the order lifecycle: creation with stock reservation,
// guarded updates through the status machine, and deletion.
type Orders struct {
	store ports.Store
	stock StockAdjuster
	now   func() time.Time
}

func NewOrders(store ports.Store, stock StockAdjuster) *Orders {
	return &Orders{
		store: store,
		stock: stock,
		now:   time.Now,
	}
}

// Create reserves stock for every line and persists the order with its items.
// Any failure rolls back all reservations made so far.
func (s *Orders) Create(ctx context.Context, in CreateOrderInput) (_ *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "Orders.Create")
	defer func() { endSpan(span, err) }()

	if err := validateLines(in.Items); err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := domain.NewOrder(in.CustomerName, in.CustomerEmail, s.now().UTC())
		if err != nil {
			return err
		}

		items := make([]*domain.OrderItem, 0, len(in.Items))
		for _, line := range in.Items {
			product, err := requireByCode(ctx, repos.Products().FindByCode, domain.EntityProduct, line.ProductCode)
			if err != nil {
				return err
			}
			if err := s.stock.Adjust(ctx, repos.Products(), product.ID, line.Quantity); err != nil {
				return err
			}
			item, err := domain.NewOrderItem(product, line.Quantity)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		o.ReplaceItems(items)

		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order created",
		"order_code", order.Code,
		"items", len(order.Items),
		"total_amount", order.TotalAmount.StringFixed(2),
	)
	return order, nil
}

func (s *Orders) Get(ctx context.Context, code uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := requireByCode(ctx, repos.Orders().FindByCodeWithItems, domain.EntityOrder, code)
		order = o
		return err
	})
	return order, err
}

func (s *Orders) List(ctx context.Context, page ports.Page) (ports.Listing[*domain.Order], error) {
	var out ports.Listing[*domain.Order]
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if out.Items, err = repos.Orders().List(ctx, page.Normalize()); err != nil {
			return err
		}
		out.Total, err = repos.Orders().Count(ctx)
		return err
	})
	return out, err
}

// ListItems returns one page of the items of the order identified by code.
func (s *Orders) ListItems(ctx context.Context, code uuid.UUID, page ports.Page) (ports.Listing[*domain.OrderItem], error) {
	var out ports.Listing[*domain.OrderItem]
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := requireByCode(ctx, repos.Orders().FindByCode, domain.EntityOrder, code)
		if err != nil {
			return err
		}
		if out.Items, err = repos.OrderItems().ListByOrder(ctx, o.ID, page.Normalize()); err != nil {
			return err
		}
		out.Total, err = repos.OrderItems().CountByOrder(ctx, o.ID)
		return err
	})
	return out, err
}

// Update applies customer and status changes. Moving into CANCELLED releases
// the stock of every item and zeroes the total; the items themselves stay.
func (s *Orders) Update(ctx context.Context, code uuid.UUID, in UpdateOrderInput) (_ *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "Orders.Update")
	defer func() { endSpan(span, err) }()

	var order *domain.Order
	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := requireByCode(ctx, repos.Orders().FindByCodeWithItems, domain.EntityOrder, code)
		if err != nil {
			return err
		}
		if err := RequireVersionMatch(domain.EntityOrder, o.Code, o.Version, in.Version); err != nil {
			return err
		}

		cancelled, err := o.ApplyUpdate(in.CustomerName, in.CustomerEmail, in.Status)
		if err != nil {
			return err
		}
		if cancelled {
			if err := s.restoreStock(ctx, repos.Products(), o.Items); err != nil {
				return err
			}
		}

		if err := repos.Orders().Update(ctx, o); err != nil {
			return translate(err, domain.EntityOrder, o.Code.String())
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order updated",
		"order_code", order.Code,
		"status", order.Status,
		"version", order.Version,
	)
	return order, nil
}

// Delete removes the order and its items. Stock is released first unless the
// order is already CANCELLED, whose stock went back at cancellation.
func (s *Orders) Delete(ctx context.Context, code uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "Orders.Delete")
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := requireByCode(ctx, repos.Orders().FindByCodeWithItems, domain.EntityOrder, code)
		if err != nil {
			return err
		}
		if !o.IsCancelled() {
			if err := s.restoreStock(ctx, repos.Products(), o.Items); err != nil {
				return err
			}
		}
		if err := repos.Orders().Delete(ctx, o.ID); err != nil {
			return translate(err, domain.EntityOrder, o.Code.String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "order deleted", "order_code", code)
	return nil
}

func (s *Orders) restoreStock(ctx context.Context, products ports.ProductRepository, items []*domain.OrderItem) error {
	for _, item := range items {
		if !item.HasProduct() {
			continue
		}
		if err := s.stock.Adjust(ctx, products, item.ProductID(), -item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func validateLines(lines []LineItem) error {
	if len(lines) == 0 {
		return &domain.ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
		}
		if _, dup := seen[line.ProductCode]; dup {
			return domain.ErrDuplicateLineItem
		}
		seen[line.ProductCode] = struct{}{}
	}
	return nil
}
