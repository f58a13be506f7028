package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

// StockAdjuster is the only writer of product stock.
type StockAdjuster interface {
	// Adjust reserves delta units of the product when delta is positive and
	// restores |delta| units when it is negative. A zero delta or a zero
	// productID is a no-op. It runs inside the caller's transaction.
	Adjust(ctx context.Context, products ports.ProductRepository, productID int64, delta int) error
}

var _ StockAdjuster = (*StockService)(nil)

type StockService struct{}

func NewStockService() *StockService {
	return &StockService{}
}

func (s *StockService) Adjust(ctx context.Context, products ports.ProductRepository, productID int64, delta int) error {
	if productID == 0 || delta == 0 {
		return nil
	}
	if delta > 0 {
		return s.reserve(ctx, products, productID, delta)
	}
	return s.restore(ctx, products, productID, -delta)
}

func (s *StockService) reserve(ctx context.Context, products ports.ProductRepository, productID int64, quantity int) error {
	product, err := products.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return translate(err, domain.EntityProduct, idKey(productID))
	}

	if err := product.DecreaseStock(quantity); err != nil {
		return err
	}
	if err := products.Update(ctx, product); err != nil {
		return translate(err, domain.EntityProduct, product.Code.String())
	}

	slog.DebugContext(ctx, "stock reserved",
		"product_code", product.Code,
		"quantity", quantity,
		"stock", product.StockQuantity,
	)
	return nil
}

// restore credits quantity units back. A product that no longer exists has
// nothing to credit; that case is logged and absorbed.
func (s *StockService) restore(ctx context.Context, products ports.ProductRepository, productID int64, quantity int) error {
	product, err := products.FindByIDForUpdate(ctx, productID)
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "product not found for stock restore",
			"product_id", productID,
			"quantity", quantity,
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err := product.IncreaseStock(quantity); err != nil {
		return err
	}
	if err := products.Update(ctx, product); err != nil {
		return translate(err, domain.EntityProduct, product.Code.String())
	}

	slog.DebugContext(ctx, "stock restored",
		"product_code", product.Code,
		"quantity", quantity,
		"stock", product.StockQuantity,
	)
	return nil
}
