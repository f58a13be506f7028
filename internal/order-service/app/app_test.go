package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlite"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

type fixture struct {
	store    *sqlite.Store
	stock    *recordingStock
	products *app.Products
	orders   *app.Orders
	items    *app.OrderItems
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stock := &recordingStock{next: app.NewStockService()}
	return &fixture{
		store:    store,
		stock:    stock,
		products: app.NewProducts(store),
		orders:   app.NewOrders(store, stock),
		items:    app.NewOrderItems(store, stock),
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), app.ProductInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stockOf(t *testing.T, p *domain.Product) int {
	t.Helper()
	got, err := f.products.Get(context.Background(), p.Code)
	require.NoError(t, err)
	return got.StockQuantity
}

func (f *fixture) order(t *testing.T, lines ...app.LineItem) *domain.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), app.CreateOrderInput{
		CustomerName:  "Charles Queiroz",
		CustomerEmail: "charles@example.com",
		Items:         lines,
	})
	require.NoError(t, err)
	return o
}

// requireTotalMatchesItems reloads the order and checks the stored total equals
// the sum of its stored line totals.
func requireTotalMatchesItems(t *testing.T, f *fixture, o *domain.Order) {
	t.Helper()
	got, err := f.orders.Get(context.Background(), o.Code)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range got.Items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	require.True(t, got.TotalAmount.Equal(sum), "total %s != sum of items %s", got.TotalAmount, sum)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

type stockCall struct {
	ProductID int64
	Delta     int
}

// recordingStock records every Adjust call before delegating.
type recordingStock struct {
	next  app.StockAdjuster
	mu    sync.Mutex
	calls []stockCall
}

func (r *recordingStock) Adjust(ctx context.Context, products ports.ProductRepository, productID int64, delta int) error {
	r.mu.Lock()
	r.calls = append(r.calls, stockCall{ProductID: productID, Delta: delta})
	r.mu.Unlock()
	return r.next.Adjust(ctx, products, productID, delta)
}

func (r *recordingStock) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recordingStock) recorded() []stockCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stockCall(nil), r.calls...)
}
