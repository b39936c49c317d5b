package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/customer"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

type store struct {
	db        *gorm.DB
	carts     *cart.Service
	orders    *order.Service
	customers *customer.Service
	cement    *product.Product
	gradeB    *product.ProductVariant
	bricks    *product.Product
	red       *product.ProductVariant
}

var address = &order.CheckoutRequest{Address: "14 MG Road", City: "Pune", State: "Maharashtra", PostalCode: "411001"}

func seedStore(t *testing.T) *store {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewDB(t,
		&product.Category{}, &product.Product{}, &product.ProductVariant{},
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
		&customer.Customer{},
	)
	cfg := testutil.Config()
	log := logger.Discard()
	catalog := product.NewService(db, log)

	s := &store{
		db:        db,
		carts:     cart.NewService(db, cfg, log),
		orders:    order.NewService(db, cfg, log),
		customers: customer.NewService(db, log),
	}

	category, err := catalog.CreateCategory(ctx, &product.CategoryRequest{Name: "Cement"})
	require.NoError(t, err)
	s.cement, err = catalog.CreateProduct(ctx, &product.CreateProductRequest{
		Name: "Portland Cement 50kg", CategoryID: category.ID, BasePrice: decimal.NewFromInt(350),
	})
	require.NoError(t, err)
	s.gradeB, err = catalog.CreateVariant(ctx, &product.CreateVariantRequest{
		ProductID: s.cement.ID, Name: "Grade B", Type: product.VariantTypeMaterial,
		AdditionalPrice: decimal.NewFromInt(25), StockQuantity: 100, SKU: "CEMENT-50-GB-001",
	})
	require.NoError(t, err)
	s.bricks, err = catalog.CreateProduct(ctx, &product.CreateProductRequest{
		Name: "Clay Bricks (Per 1000)", CategoryID: category.ID, BasePrice: decimal.NewFromInt(4500),
	})
	require.NoError(t, err)
	s.red, err = catalog.CreateVariant(ctx, &product.CreateVariantRequest{
		ProductID: s.bricks.ID, Name: "Standard Red", Type: product.VariantTypeColor, StockQuantity: 20, SKU: "BRICK-RED-001",
	})
	require.NoError(t, err)

	return s
}

func (s *store) buy(t *testing.T, userID uint, p *product.Product, v *product.ProductVariant, qty int) *order.Order {
	t.Helper()
	ctx := context.Background()
	_, err := s.carts.AddItem(ctx, userID, &cart.AddItemRequest{ProductID: p.ID, VariantID: &v.ID, Quantity: qty})
	require.NoError(t, err)
	placed, err := s.orders.Checkout(ctx, userID, address)
	require.NoError(t, err)
	return placed
}

func seedOrders(t *testing.T, s *store) {
	t.Helper()
	ctx := context.Background()

	s.buy(t, 1, s.cement, s.gradeB, 3)
	s.buy(t, 2, s.bricks, s.red, 1)
	cancelled := s.buy(t, 3, s.cement, s.gradeB, 2)
	_, err := s.orders.UpdateStatus(ctx, cancelled.ID, &order.UpdateStatusRequest{Status: order.OrderStatusCancelled}, 99)
	require.NoError(t, err)

	_, err = s.customers.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	_, err = s.customers.GetOrCreate(ctx, 2)
	require.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	s := seedStore(t)
	seedOrders(t, s)
	svc := analytics.NewService(s.db, testutil.Config(), logger.Discard(), nil)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), dashboard.TotalOrders)
	assert.True(t, dashboard.TotalRevenue.Equal(decimal.NewFromInt(5625)), dashboard.TotalRevenue.String())
	assert.Equal(t, int64(2), dashboard.PendingOrders)
	assert.Equal(t, int64(2), dashboard.TotalCustomers)
	assert.Equal(t, int64(2), dashboard.NewCustomersLast30)
	assert.Equal(t, int64(2), dashboard.TotalProducts)
	assert.Equal(t, int64(2), dashboard.OrdersLast30)
	assert.True(t, dashboard.RevenueLast30.Equal(decimal.NewFromInt(5625)))

	require.Len(t, dashboard.DailySales, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), dashboard.DailySales[0].Date)
	assert.Equal(t, int64(2), dashboard.DailySales[0].Orders)

	require.Len(t, dashboard.TopProducts, 2)
	assert.Equal(t, s.cement.ID, dashboard.TopProducts[0].ProductID)
	assert.Equal(t, int64(3), dashboard.TopProducts[0].UnitsSold)
	assert.True(t, dashboard.TopProducts[0].Revenue.Equal(decimal.NewFromInt(1125)))

	statuses := map[order.OrderStatus]int64{}
	for _, sc := range dashboard.OrdersByStatus {
		statuses[sc.Status] = sc.Count
	}
	assert.Equal(t, map[order.OrderStatus]int64{order.OrderStatusPending: 2, order.OrderStatusCancelled: 1}, statuses)

	require.Len(t, dashboard.LowStock, 1)
	assert.Equal(t, "BRICK-RED-001", dashboard.LowStock[0].SKU)
	assert.Equal(t, "Clay Bricks (Per 1000)", dashboard.LowStock[0].ProductName)
	assert.Equal(t, 19, dashboard.LowStock[0].StockQuantity)
}

func TestDashboard_EmptyStore(t *testing.T) {
	s := seedStore(t)
	svc := analytics.NewService(s.db, testutil.Config(), logger.Discard(), nil)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalOrders)
	assert.True(t, dashboard.TotalRevenue.IsZero())
	assert.Empty(t, dashboard.DailySales)
	assert.Empty(t, dashboard.TopProducts)
}

func TestDashboard_ServedFromCache(t *testing.T) {
	s := seedStore(t)
	seedOrders(t, s)
	cache := newMemoryCache()
	svc := analytics.NewService(s.db, testutil.Config(), logger.Discard(), cache)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	s.buy(t, 4, s.cement, s.gradeB, 1)

	cached, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalOrders, cached.TotalOrders)
	assert.True(t, first.TotalRevenue.Equal(cached.TotalRevenue))

	fresh, err := analytics.NewService(s.db, testutil.Config(), logger.Discard(), nil).Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalOrders+1, fresh.TotalOrders)
}

func TestRefresh_DropsCachedReports(t *testing.T) {
	s := seedStore(t)
	seedOrders(t, s)
	svc := analytics.NewService(s.db, testutil.Config(), logger.Discard(), newMemoryCache())
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	before, err := svc.Inventory(ctx)
	require.NoError(t, err)

	s.buy(t, 4, s.cement, s.gradeB, 1)
	require.NoError(t, svc.Refresh(ctx))

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalOrders+1, dashboard.TotalOrders)

	inventory, err := svc.Inventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalStock-1, inventory.TotalStock)

	assert.NoError(t, analytics.NewService(s.db, testutil.Config(), logger.Discard(), nil).Refresh(ctx))
}

func TestInventory(t *testing.T) {
	s := seedStore(t)
	seedOrders(t, s)
	svc := analytics.NewService(s.db, testutil.Config(), logger.Discard(), newMemoryCache())

	inventory, err := svc.Inventory(context.Background())
	require.NoError(t, err)

	// cement 100 - 3 - 2 (cancelling does not restock), bricks 20 - 1
	assert.Equal(t, int64(114), inventory.TotalStock)
	assert.Equal(t, int64(2), inventory.TotalVariants)
	assert.Equal(t, int64(1), inventory.LowStockCount)
	assert.Zero(t, inventory.OutOfStockCount)
	assert.Equal(t, 50, inventory.LowStockThreshold)
}
