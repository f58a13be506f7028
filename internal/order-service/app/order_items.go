package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

type CreateOrderItemInput struct {
	OrderCode   uuid.UUID
	ProductCode uuid.UUID
	Quantity    int
}

type UpdateOrderItemInput struct {
	Quantity int
	Version  int64
}

// OrderItems orchestrates item changes inside an existing order. Every change
// goes through the order aggregate so the order total is recomputed and saved
// in the same transaction.
type OrderItems struct {
	store ports.Store
	stock StockAdjuster
}

func NewOrderItems(store ports.Store, stock StockAdjuster) *OrderItems {
	return &OrderItems{store: store, stock: stock}
}

func (s *OrderItems) Create(ctx context.Context, in CreateOrderItemInput) (_ *domain.OrderItem, err error) {
	ctx, span := tracer.Start(ctx, "OrderItems.Create")
	defer func() { endSpan(span, err) }()

	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}

	var created *domain.OrderItem
	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		order, err := requireByCode(ctx, repos.Orders().FindByCodeWithItems, domain.EntityOrder, in.OrderCode)
		if err != nil {
			return err
		}
		product, err := requireByCode(ctx, repos.Products().FindByCode, domain.EntityProduct, in.ProductCode)
		if err != nil {
			return err
		}
		if err := order.AcceptsItemChanges(); err != nil {
			return err
		}

		item, err := domain.NewOrderItem(product, in.Quantity)
		if err != nil {
			return err
		}
		if err := s.stock.Adjust(ctx, repos.Products(), product.ID, in.Quantity); err != nil {
			return err
		}

		order.AddItem(item)
		if err := repos.OrderItems().Create(ctx, item); err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, order); err != nil {
			return translate(err, domain.EntityOrder, order.Code.String())
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order item created",
		"order_code", in.OrderCode,
		"item_code", created.Code,
		"quantity", created.Quantity,
	)
	return created, nil
}

func (s *OrderItems) Get(ctx context.Context, code uuid.UUID) (*domain.OrderItem, error) {
	var item *domain.OrderItem
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		i, err := requireByCode(ctx, repos.OrderItems().FindByCode, domain.EntityOrderItem, code)
		item = i
		return err
	})
	return item, err
}

func (s *OrderItems) List(ctx context.Context, page ports.Page) (ports.Listing[*domain.OrderItem], error) {
	var out ports.Listing[*domain.OrderItem]
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if out.Items, err = repos.OrderItems().List(ctx, page.Normalize()); err != nil {
			return err
		}
		out.Total, err = repos.OrderItems().Count(ctx)
		return err
	})
	return out, err
}

// Update changes the item quantity, reserving or releasing the difference.
// Items whose product was deleted keep their stock bookkeeping frozen.
func (s *OrderItems) Update(ctx context.Context, code uuid.UUID, in UpdateOrderItemInput) (_ *domain.OrderItem, err error) {
	ctx, span := tracer.Start(ctx, "OrderItems.Update")
	defer func() { endSpan(span, err) }()

	var updated *domain.OrderItem
	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		order, item, err := s.loadForChange(ctx, repos, code)
		if err != nil {
			return err
		}
		if err := RequireVersionMatch(domain.EntityOrderItem, item.Code, item.Version, in.Version); err != nil {
			return err
		}
		if in.Quantity <= 0 {
			return &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
		}

		if item.HasProduct() {
			if err := s.stock.Adjust(ctx, repos.Products(), item.ProductID(), item.QuantityDeltaTo(in.Quantity)); err != nil {
				return err
			}
		}

		if _, err := order.ChangeItemQuantity(item.Code, in.Quantity); err != nil {
			return err
		}
		if err := repos.OrderItems().Update(ctx, item); err != nil {
			return translate(err, domain.EntityOrderItem, item.Code.String())
		}
		if err := repos.Orders().Update(ctx, order); err != nil {
			return translate(err, domain.EntityOrder, order.Code.String())
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order item updated",
		"item_code", updated.Code,
		"quantity", updated.Quantity,
		"version", updated.Version,
	)
	return updated, nil
}

// Delete releases the item's stock, removes it from its order and saves the
// recomputed order total.
func (s *OrderItems) Delete(ctx context.Context, code uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "OrderItems.Delete")
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		order, item, err := s.loadForChange(ctx, repos, code)
		if err != nil {
			return err
		}

		if item.HasProduct() {
			if err := s.stock.Adjust(ctx, repos.Products(), item.ProductID(), -item.Quantity); err != nil {
				return err
			}
		}

		order.RemoveItem(item.Code)
		if err := repos.Orders().Update(ctx, order); err != nil {
			return translate(err, domain.EntityOrder, order.Code.String())
		}
		if err := repos.OrderItems().Delete(ctx, item.ID); err != nil {
			return translate(err, domain.EntityOrderItem, item.Code.String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "order item deleted", "item_code", code)
	return nil
}

// loadForChange loads the item's order aggregate and returns the aggregate's
// own copy of the item, so mutations flow through the order.
func (s *OrderItems) loadForChange(ctx context.Context, repos ports.Repositories, code uuid.UUID) (*domain.Order, *domain.OrderItem, error) {
	found, err := requireByCode(ctx, repos.OrderItems().FindByCode, domain.EntityOrderItem, code)
	if err != nil {
		return nil, nil, err
	}
	order, err := repos.Orders().FindByIDWithItems(ctx, found.OrderID)
	if err != nil {
		return nil, nil, translate(err, domain.EntityOrder, idKey(found.OrderID))
	}
	if err := order.AcceptsItemChanges(); err != nil {
		return nil, nil, err
	}
	item := order.Item(code)
	if item == nil {
		return nil, nil, &domain.NotFoundError{Entity: domain.EntityOrderItem, Key: code.String()}
	}
	return order, item, nil
}
