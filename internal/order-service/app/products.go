package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

type UpdateProductInput struct {
	ProductInput
	Version int64
}

// Products is the catalog admin surface. Name uniqueness is checked here,
// before the storage constraint would reject the write.
type Products struct {
	store ports.Store
}

func NewProducts(store ports.Store) *Products {
	return &Products{store: store}
}

func (s *Products) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(in.Name, in.Description, in.Price, in.StockQuantity)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := requireUniqueName(ctx, repos.Products(), product.Name, 0); err != nil {
			return err
		}
		return translateProductWrite(repos.Products().Create(ctx, product), product)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "product created", "product_code", product.Code, "name", product.Name)
	return product, nil
}

func (s *Products) Get(ctx context.Context, code uuid.UUID) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := requireByCode(ctx, repos.Products().FindByCode, domain.EntityProduct, code)
		product = p
		return err
	})
	return product, err
}

func (s *Products) List(ctx context.Context, page ports.Page) (ports.Listing[*domain.Product], error) {
	var out ports.Listing[*domain.Product]
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if out.Items, err = repos.Products().List(ctx, page.Normalize()); err != nil {
			return err
		}
		out.Total, err = repos.Products().Count(ctx)
		return err
	})
	return out, err
}

// Update is the direct-edit path for catalog fields, stock included.
func (s *Products) Update(ctx context.Context, code uuid.UUID, in UpdateProductInput) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := requireByCode(ctx, repos.Products().FindByCode, domain.EntityProduct, code)
		if err != nil {
			return err
		}
		if err := RequireVersionMatch(domain.EntityProduct, p.Code, p.Version, in.Version); err != nil {
			return err
		}
		if err := p.Edit(in.Name, in.Description, in.Price, in.StockQuantity); err != nil {
			return err
		}
		if err := requireUniqueName(ctx, repos.Products(), p.Name, p.ID); err != nil {
			return err
		}
		if err := translateProductWrite(repos.Products().Update(ctx, p), p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "product updated", "product_code", product.Code, "version", product.Version)
	return product, nil
}

// Delete removes the product. Order items that reference it keep their
// snapshots and lose the reference.
func (s *Products) Delete(ctx context.Context, code uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := requireByCode(ctx, repos.Products().FindByCode, domain.EntityProduct, code)
		if err != nil {
			return err
		}
		return translate(repos.Products().Delete(ctx, p.ID), domain.EntityProduct, code.String())
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "product deleted", "product_code", code)
	return nil
}

func requireUniqueName(ctx context.Context, products ports.ProductRepository, name string, excludeID int64) error {
	exists, err := products.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return &domain.DuplicateResourceError{Entity: domain.EntityProduct, Field: "name", Value: name}
	}
	return nil
}

func translateProductWrite(err error, p *domain.Product) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ports.ErrDuplicate) {
		return &domain.DuplicateResourceError{Entity: domain.EntityProduct, Field: "name", Value: p.Name}
	}
	return translate(err, domain.EntityProduct, p.Code.String())
}
