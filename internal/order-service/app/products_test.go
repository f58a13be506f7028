package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)

	p, err := f.products.Create(context.Background(), app.ProductInput{
		Name:          "  Mechanical Keyboard ",
		Description:   "Brown switches",
		Price:         decimal.RequireFromString("89.90"),
		StockQuantity: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", p.Name)
	assert.NotEqual(t, uuid.Nil, p.Code)
	assert.Positive(t, p.ID)
	assert.Equal(t, int64(0), p.Version)

	got, err := f.products.Get(context.Background(), p.Code)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	requireDecimal(t, "89.90", got.Price)
}

func TestCreateProduct_DuplicateNameIgnoresCase(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Wireless Mouse", "10.00", 1)

	_, err := f.products.Create(context.Background(), app.ProductInput{
		Name:  "wireless MOUSE",
		Price: decimal.RequireFromString("12.00"),
	})

	var dup *domain.DuplicateResourceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Field)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    app.ProductInput
		field string
	}{
		{"blank name", app.ProductInput{Name: "   ", Price: decimal.NewFromInt(1)}, "name"},
		{"zero price", app.ProductInput{Name: "Cable", Price: decimal.Zero}, "price"},
		{"negative stock", app.ProductInput{Name: "Cable", Price: decimal.NewFromInt(1), StockQuantity: -1}, "stockQuantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.products.Create(context.Background(), tt.in)
			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Wireless Mouse", "10.00", 1)
	other := f.product(t, "Mouse Pad", "2.50", 1)

	updated, err := f.products.Update(context.Background(), p.Code, app.UpdateProductInput{
		ProductInput: app.ProductInput{
			Name:          "Wireless Mouse",
			Description:   "Now with a longer cable",
			Price:         decimal.RequireFromString("11.00"),
			StockQuantity: 40,
		},
		Version: p.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.StockQuantity)
	assert.Equal(t, int64(1), updated.Version)

	t.Run("stale version", func(t *testing.T) {
		_, err := f.products.Update(context.Background(), p.Code, app.UpdateProductInput{
			ProductInput: app.ProductInput{Name: "Wireless Mouse", Price: decimal.NewFromInt(1)},
			Version:      0,
		})
		var conflict *domain.OptimisticLockError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, domain.EntityProduct, conflict.Entity)
	})

	t.Run("name taken by another product", func(t *testing.T) {
		_, err := f.products.Update(context.Background(), p.Code, app.UpdateProductInput{
			ProductInput: app.ProductInput{Name: "MOUSE PAD", Price: decimal.NewFromInt(1)},
			Version:      updated.Version,
		})
		var dup *domain.DuplicateResourceError
		require.ErrorAs(t, err, &dup)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.products.Update(context.Background(), uuid.New(), app.UpdateProductInput{
			ProductInput: app.ProductInput{Name: "Ghost", Price: decimal.NewFromInt(1)},
		})
		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	assert.Equal(t, 1, f.stockOf(t, other))
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Wireless Mouse", "10.00", 1)

	require.NoError(t, f.products.Delete(context.Background(), p.Code))

	_, err := f.products.Get(context.Background(), p.Code)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	err = f.products.Delete(context.Background(), p.Code)
	require.ErrorAs(t, err, &notFound)
}

func TestListProducts_Paging(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"A", "B", "C"} {
		f.product(t, name, "1.00", 1)
	}

	first, err := f.products.List(context.Background(), ports.Page{Number: 0, Size: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.TotalPages(2))

	rest, err := f.products.List(context.Background(), ports.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
	assert.Equal(t, 3, rest.Total)
}
