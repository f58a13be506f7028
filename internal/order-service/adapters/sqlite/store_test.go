package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s *Store, name string, stock int) *domain.Product {
	t.Helper()
	p, err := domain.NewProduct(name, "", decimal.RequireFromString("4.20"), stock)
	require.NoError(t, err)
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Products().Create(ctx, p)
	}))
	return p
}

func seedOrder(t *testing.T, s *Store, products ...*domain.Product) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder("Ana", "ana@example.com", time.Now().UTC())
	require.NoError(t, err)
	items := make([]*domain.OrderItem, 0, len(products))
	for _, p := range products {
		item, err := domain.NewOrderItem(p, 2)
		require.NoError(t, err)
		items = append(items, item)
	}
	o.ReplaceItems(items)
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Orders().Create(ctx, o)
	}))
	return o
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	p := seedProduct(t, s, "Cable", 3)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := CurrentSchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.String())

	var applied int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&applied))
	assert.Equal(t, len(AllMigrations), applied)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		got, err := repos.Products().FindByCode(ctx, p.Code)
		require.NoError(t, err)
		assert.Equal(t, "Cable", got.Name)
		return nil
	}))
}

func TestProducts_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	p := seedProduct(t, s, "Cable", 3)

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		got, err := repos.Products().FindByCode(ctx, p.Code)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.True(t, p.Price.Equal(got.Price))
		assert.Equal(t, 3, got.StockQuantity)
		assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Microsecond)
		return nil
	}))
}

func TestProducts_VersionedUpdate(t *testing.T) {
	s := openTestStore(t)
	p := seedProduct(t, s, "Cable", 3)

	err := s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		stale := *p
		require.NoError(t, repos.Products().Update(ctx, p))
		assert.Equal(t, int64(1), p.Version)

		return repos.Products().Update(ctx, &stale)
	})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	// The failed transaction rolled back the first update as well.
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		got, err := repos.Products().FindByCode(ctx, p.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Version)
		return nil
	}))
}

func TestProducts_UniqueNameIgnoresCase(t *testing.T) {
	s := openTestStore(t)
	first := seedProduct(t, s, "Cable", 3)

	dup, err := domain.NewProduct("CABLE", "", decimal.NewFromInt(1), 0)
	require.NoError(t, err)
	err = s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		exists, err := repos.Products().ExistsByName(ctx, "cAbLe", 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repos.Products().ExistsByName(ctx, "cable", first.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		return repos.Products().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestProducts_UniqueNameFoldsUnicode(t *testing.T) {
	s := openTestStore(t)
	seedProduct(t, s, "café crème", 3)

	tests := []struct {
		name   string
		exists bool
	}{
		{"CAFÉ CRÈME", true},
		{"Café Crème", true},
		{"cafe creme", false},
	}
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		for _, tt := range tests {
			exists, err := repos.Products().ExistsByName(ctx, tt.name, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.exists, exists, tt.name)
		}
		return nil
	}))

	dup, err := domain.NewProduct("CAFÉ CRÈME", "", decimal.NewFromInt(1), 0)
	require.NoError(t, err)
	err = s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Products().Create(ctx, dup)
	})
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestApplyMigrations_BackfillsNameKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")
	ctx := context.Background()

	db, err := sql.Open(DriverName, dsn(path))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, schemaVersionTable)
	require.NoError(t, err)
	require.NoError(t, applyMigration(ctx, db, AllMigrations[0]))
	now := formatTime(time.Now())
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (code, name, description, price, stock_quantity, version, created_at, updated_at)
		VALUES ('11111111-1111-1111-1111-111111111111', 'Ärger Kabel', '', '1.00', 1, 0, ?, ?)`, now, now)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		exists, err := repos.Products().ExistsByName(ctx, "ärger KABEL", 0)
		require.NoError(t, err)
		assert.True(t, exists)
		return nil
	}))
}

func TestProducts_FindByIDForUpdate(t *testing.T) {
	s := openTestStore(t)
	p := seedProduct(t, s, "Cable", 3)

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		got, err := repos.Products().FindByIDForUpdate(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Code, got.Code)
		assert.Equal(t, p.Version, got.Version, "locking does not bump the version")

		_, err = repos.Products().FindByIDForUpdate(ctx, p.ID+100)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	}))
}

func TestProducts_StockCheckConstraint(t *testing.T) {
	s := openTestStore(t)
	p := seedProduct(t, s, "Cable", 3)

	err := s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		p.StockQuantity = -1
		return repos.Products().Update(ctx, p)
	})
	require.Error(t, err)
}

func TestOrders_CreateLoadsItems(t *testing.T) {
	s := openTestStore(t)
	a := seedProduct(t, s, "Cable", 3)
	b := seedProduct(t, s, "Mouse", 3)
	o := seedOrder(t, s, a, b)

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		got, err := repos.Orders().FindByCodeWithItems(ctx, o.Code)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.True(t, decimal.RequireFromString("16.80").Equal(got.TotalAmount))
		require.Len(t, got.Items, 2)
		for _, item := range got.Items {
			assert.Equal(t, got.ID, item.OrderID)
			require.NotNil(t, item.Product)
		}
		assert.Equal(t, a.Code, got.Items[0].Product.Code)

		bare, err := repos.Orders().FindByCode(ctx, o.Code)
		require.NoError(t, err)
		assert.Empty(t, bare.Items)

		byID, err := repos.Orders().FindByIDWithItems(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, byID.Items, 2)
		return nil
	}))
}

func TestOrders_VersionedUpdate(t *testing.T) {
	s := openTestStore(t)
	o := seedOrder(t, s, seedProduct(t, s, "Cable", 3))

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		o.Status = domain.StatusProcessing
		return repos.Orders().Update(ctx, o)
	}))
	assert.Equal(t, int64(1), o.Version)

	o.Version = 0
	err := s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Orders().Update(ctx, o)
	})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
}

func TestOrderItems_ProductDeletionNullsReference(t *testing.T) {
	s := openTestStore(t)
	p := seedProduct(t, s, "Cable", 3)
	o := seedOrder(t, s, p)
	code := o.Items[0].Code

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Products().Delete(ctx, p.ID)
	}))

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		item, err := repos.OrderItems().FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Nil(t, item.Product)
		assert.Equal(t, "Cable", item.ProductName)
		assert.True(t, p.Price.Equal(item.UnitPrice))

		item.Quantity = 9
		require.NoError(t, repos.OrderItems().Update(ctx, item))
		assert.Equal(t, int64(1), item.Version)
		return nil
	}))
}

func TestOrders_DeleteCascadesItems(t *testing.T) {
	s := openTestStore(t)
	o := seedOrder(t, s, seedProduct(t, s, "Cable", 3))

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Orders().Delete(ctx, o.ID)
	}))

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		_, err := repos.OrderItems().FindByCode(ctx, o.Items[0].Code)
		assert.ErrorIs(t, err, ports.ErrNotFound)

		err = repos.Orders().Delete(ctx, o.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	}))
}

func TestInTx_RollsBackOnPanic(t *testing.T) {
	s := openTestStore(t)
	p, err := domain.NewProduct("Cable", "", decimal.NewFromInt(1), 1)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
			require.NoError(t, repos.Products().Create(ctx, p))
			panic("boom")
		})
	})

	err = s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		_, err := repos.Products().FindByCode(ctx, p.Code)
		return err
	})
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestPageQueries(t *testing.T) {
	s := openTestStore(t)
	a := seedProduct(t, s, "Cable", 9)
	b := seedProduct(t, s, "Mouse", 9)
	first := seedOrder(t, s, a)
	second := seedOrder(t, s, a, b)

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		orders, err := repos.Orders().List(ctx, ports.Page{Size: 10})
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, second.Code, orders[0].Code, "newest first")
		assert.Len(t, orders[0].Items, 2)
		assert.Equal(t, first.Code, orders[1].Code)

		items, err := repos.OrderItems().ListByOrder(ctx, second.ID, ports.Page{Number: 1, Size: 1})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Mouse", items[0].ProductName)

		all, err := repos.OrderItems().List(ctx, ports.Page{Size: 10})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		n, err := repos.OrderItems().CountByOrder(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = repos.OrderItems().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		n, err = repos.Orders().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = repos.Products().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return nil
	}))
}
