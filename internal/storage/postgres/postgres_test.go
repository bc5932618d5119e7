//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(context.Background()) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/storefront?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	// Migrations must be re-runnable on every start.
	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations (second run): %v\n", err)
		return 1
	}

	return m.Run()
}

func TestProductRepository_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	in := []product.Product{
		{
			ID: 20, Name: "Flip 6", Category: "Parlantes",
			ListPrice: product.Fixed(decimal.RequireFromString("150")),
			SalePrice: decimal.RequireFromString("120"), OnSale: true, FreeShipping: true,
		},
		{ID: 10, Name: "Studio", Category: "Parlantes", ListPrice: product.OnRequest()},
	}
	require.NoError(t, repo.Upsert(ctx, in))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(20), got[0].ID, "feed order is preserved")
	assert.True(t, got[0].ListPrice.Equal(product.Fixed(decimal.RequireFromString("150"))))
	assert.True(t, decimal.RequireFromString("120").Equal(got[0].SalePrice))
	assert.True(t, got[0].OnSale)
	assert.True(t, got[0].FreeShipping)

	assert.Equal(t, int64(10), got[1].ID)
	assert.True(t, got[1].ListPrice.IsOnRequest())
	assert.True(t, got[1].SalePrice.IsZero())
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	require.NoError(t, repo.Upsert(ctx, []coupon.Rule{{
		Code: "JBL20", Percent: decimal.NewFromInt(20), Description: "20% OFF",
	}}))

	rule, err := repo.FindByCode(ctx, "jbl20")
	require.NoError(t, err)
	assert.Equal(t, "JBL20", rule.Code)
	assert.True(t, decimal.NewFromInt(20).Equal(rule.Percent))

	_, err = repo.FindByCode(ctx, "NOPE")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	require.NoError(t, repo.Deactivate(ctx, "JBL20"))
	_, err = repo.FindByCode(ctx, "JBL20")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestSlotStorage(t *testing.T) {
	ctx := context.Background()
	s := NewSlotStorage(testPool)

	_, err := s.Load(ctx, "sess-a", cart.SlotItems)
	require.ErrorIs(t, err, cart.ErrSlotEmpty)

	require.NoError(t, s.Save(ctx, "sess-a", cart.SlotItems, []byte(`[]`)))
	require.NoError(t, s.Save(ctx, "sess-a", cart.SlotItems, []byte(`[{"id":1}]`)))
	require.NoError(t, s.Save(ctx, "sess-a", cart.SlotCoupon, []byte("JBL20")))

	v, err := s.Load(ctx, "sess-a", cart.SlotItems)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(v))

	require.NoError(t, s.Delete(ctx, "sess-a", cart.SlotItems, cart.SlotCoupon))
	_, err = s.Load(ctx, "sess-a", cart.SlotCoupon)
	require.ErrorIs(t, err, cart.ErrSlotEmpty)

	require.NoError(t, s.Save(ctx, "sess-b", cart.SlotCoupon, []byte("X")))
	n, err := s.DeleteExpired(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestSlotStorage_BacksCartStore(t *testing.T) {
	ctx := context.Background()
	store := cart.NewStore("sess-cart", NewSlotStorage(testPool), nil)
	p := product.Product{ID: 1, Name: "X", ListPrice: product.Fixed(decimal.NewFromInt(100))}

	_, err := store.Add(ctx, p)
	require.NoError(t, err)
	snap, err := store.Add(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Count)

	// A fresh store over the same table sees the persisted cart.
	reloaded := cart.NewStore("sess-cart", NewSlotStorage(testPool), nil)
	count, err := reloaded.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
