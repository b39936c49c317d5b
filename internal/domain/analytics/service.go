// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/customer"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "analytics:dashboard"
	inventoryCacheKey = "analytics:inventory"

	recentWindowDays = 30
	topProductsLimit = 5
	lowStockLimit    = 10
)

// Cache stores computed reports as JSON. Any GetJSON error counts as a miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service handles analytics business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
	cache  Cache
}

// NewService creates a new analytics service. cache may be nil.
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, cache Cache) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		cache:  cache,
	}
}

// Dashboard represents the admin dashboard metrics
type Dashboard struct {
	// Totals
	TotalOrders     int64           `json:"total_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PendingOrders   int64           `json:"pending_orders"`
	DeliveredOrders int64           `json:"delivered_orders"`
	TotalCustomers  int64           `json:"total_customers"`
	TotalProducts   int64           `json:"total_products"`

	// Last 30 days
	OrdersLast30       int64           `json:"orders_last_30"`
	RevenueLast30      decimal.Decimal `json:"revenue_last_30"`
	NewCustomersLast30 int64           `json:"new_customers_last_30"`

	TopProducts    []TopProduct   `json:"top_products"`
	OrdersByStatus []StatusCount  `json:"orders_by_status"`
	DailySales     []DailySales   `json:"daily_sales"`
	LowStock       []LowStockItem `json:"low_stock_items"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// TopProduct is a best seller by units sold
type TopProduct struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// StatusCount is the number of orders in one status
type StatusCount struct {
	Status order.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

// DailySales aggregates the orders placed on one day (UTC)
type DailySales struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// LowStockItem is a variant below the low-stock threshold
type LowStockItem struct {
	VariantID     uint   `json:"variant_id"`
	ProductID     uint   `json:"product_id"`
	ProductName   string `json:"product_name"`
	VariantName   string `json:"variant_name"`
	SKU           string `json:"sku"`
	StockQuantity int    `json:"stock_quantity"`
}

// Inventory summarises variant stock
type Inventory struct {
	TotalStock        int64     `json:"total_stock"`
	TotalVariants     int64     `json:"total_variants"`
	LowStockCount     int64     `json:"low_stock_count"`
	OutOfStockCount   int64     `json:"out_of_stock_count"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Dashboard returns the admin dashboard, from cache when fresh.
// Revenue figures leave out cancelled orders.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var cached Dashboard
	if s.fromCache(ctx, dashboardCacheKey, &cached) {
		return &cached, nil
	}

	dashboard, err := s.computeDashboard(ctx)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, dashboardCacheKey, dashboard)
	return dashboard, nil
}

// Inventory returns stock totals, from cache when fresh
func (s *Service) Inventory(ctx context.Context) (*Inventory, error) {
	var cached Inventory
	if s.fromCache(ctx, inventoryCacheKey, &cached) {
		return &cached, nil
	}

	db := s.db.WithContext(ctx)
	threshold := s.config.Store.LowStockThreshold
	inventory := &Inventory{
		LowStockThreshold: threshold,
		GeneratedAt:       time.Now().UTC(),
	}

	if err := db.Model(&product.ProductVariant{}).
		Select("COALESCE(SUM(stock_quantity), 0)").
		Scan(&inventory.TotalStock).Error; err != nil {
		return nil, fmt.Errorf("failed to sum stock: %w", err)
	}
	if err := db.Model(&product.ProductVariant{}).Count(&inventory.TotalVariants).Error; err != nil {
		return nil, fmt.Errorf("failed to count variants: %w", err)
	}
	if err := db.Model(&product.ProductVariant{}).
		Where("stock_quantity < ?", threshold).
		Count(&inventory.LowStockCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count low stock variants: %w", err)
	}
	if err := db.Model(&product.ProductVariant{}).
		Where("stock_quantity = 0").
		Count(&inventory.OutOfStockCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count out of stock variants: %w", err)
	}

	s.toCache(ctx, inventoryCacheKey, inventory)
	return inventory, nil
}

func (s *Service) computeDashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()
	since := now.Truncate(24*time.Hour).AddDate(0, 0, -recentWindowDays)

	dashboard := &Dashboard{GeneratedAt: now}

	if err := db.Model(&order.Order{}).Count(&dashboard.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	revenue, err := s.sumRevenue(db, time.Time{})
	if err != nil {
		return nil, err
	}
	dashboard.TotalRevenue = revenue

	statusCounts, err := s.ordersByStatus(db)
	if err != nil {
		return nil, err
	}
	dashboard.OrdersByStatus = statusCounts
	for _, sc := range statusCounts {
		switch sc.Status {
		case order.OrderStatusPending:
			dashboard.PendingOrders = sc.Count
		case order.OrderStatusDelivered:
			dashboard.DeliveredOrders = sc.Count
		}
	}

	if err := db.Model(&customer.Customer{}).Count(&dashboard.TotalCustomers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if err := db.Model(&customer.Customer{}).
		Where("created_at >= ?", since).
		Count(&dashboard.NewCustomersLast30).Error; err != nil {
		return nil, fmt.Errorf("failed to count new customers: %w", err)
	}
	if err := db.Model(&product.Product{}).Count(&dashboard.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	daily, err := s.dailySales(db, since)
	if err != nil {
		return nil, err
	}
	dashboard.DailySales = daily
	dashboard.RevenueLast30 = decimal.Zero
	for _, day := range daily {
		dashboard.OrdersLast30 += day.Orders
		dashboard.RevenueLast30 = dashboard.RevenueLast30.Add(day.Revenue)
	}

	if dashboard.TopProducts, err = s.topProducts(db); err != nil {
		return nil, err
	}
	if dashboard.LowStock, err = s.lowStock(db); err != nil {
		return nil, err
	}

	return dashboard, nil
}

func (s *Service) sumRevenue(db *gorm.DB, since time.Time) (decimal.Decimal, error) {
	query := db.Model(&order.Order{}).Where("status <> ?", order.OrderStatusCancelled)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var total decimal.Decimal
	if err := query.Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

func (s *Service) ordersByStatus(db *gorm.DB) ([]StatusCount, error) {
	var counts []StatusCount
	err := db.Model(&order.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return counts, nil
}

// dailySales buckets in Go so the same code serves every SQL dialect
func (s *Service) dailySales(db *gorm.DB, since time.Time) ([]DailySales, error) {
	var orders []order.Order
	err := db.Select("id", "total_amount", "created_at").
		Where("created_at >= ? AND status <> ?", since, order.OrderStatusCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}

	buckets := make(map[string]*DailySales)
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailySales{Date: day, Revenue: decimal.Zero}
			buckets[day] = bucket
		}
		bucket.Orders++
		bucket.Revenue = bucket.Revenue.Add(o.TotalAmount)
	}

	daily := make([]DailySales, 0, len(buckets))
	for _, bucket := range buckets {
		daily = append(daily, *bucket)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return daily, nil
}

func (s *Service) topProducts(db *gorm.DB) ([]TopProduct, error) {
	var top []TopProduct
	err := db.Model(&order.OrderItem{}).
		Select("order_items.product_id, order_items.product_name, " +
			"SUM(order_items.quantity) AS units_sold, " +
			"SUM(order_items.quantity * (order_items.price_at_purchase + COALESCE(order_items.variant_price_at_purchase, 0))) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", order.OrderStatusCancelled).
		Group("order_items.product_id, order_items.product_name").
		Order("units_sold DESC, order_items.product_id ASC").
		Limit(topProductsLimit).
		Scan(&top).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	return top, nil
}

func (s *Service) lowStock(db *gorm.DB) ([]LowStockItem, error) {
	var items []LowStockItem
	err := db.Model(&product.ProductVariant{}).
		Select("product_variants.id AS variant_id, product_variants.product_id, products.name AS product_name, " +
			"product_variants.name AS variant_name, product_variants.sku, product_variants.stock_quantity").
		Joins("JOIN products ON products.id = product_variants.product_id AND products.deleted_at IS NULL").
		Where("product_variants.stock_quantity < ?", s.config.Store.LowStockThreshold).
		Order("product_variants.stock_quantity ASC, product_variants.id ASC").
		Limit(lowStockLimit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock variants: %w", err)
	}
	return items, nil
}

// Refresh drops the cached reports so the next read recomputes them
func (s *Service) Refresh(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, dashboardCacheKey, inventoryCacheKey); err != nil {
		return fmt.Errorf("failed to drop cached analytics: %w", err)
	}
	return nil
}

func (s *Service) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.GetJSON(ctx, key, dest); err != nil {
		s.logger.WithField("key", key).WithError(err).Debug("Analytics cache miss")
		return false
	}
	return true
}

func (s *Service) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, s.config.Store.AnalyticsCacheTTL); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Failed to cache analytics")
	}
}
