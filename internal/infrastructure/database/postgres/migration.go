// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/customer"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},
		&customer.Customer{},

		// Catalog
		&product.Category{},
		&product.Product{},
		&product.ProductVariant{},

		// Cart
		&cart.Cart{},
		&cart.CartItem{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the indexes struct tags cannot express
func (m *Migration) CreateIndexes() error {
	m.logger.Info("Creating additional database indexes")

	indexes := []string{
		// One variantless line per product per cart; idx_cart_line covers the rest
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_line_no_variant ON cart_items(cart_id, product_id) WHERE variant_id IS NULL",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_base_price ON products(base_price)",

		// Variant indexes
		"CREATE INDEX IF NOT EXISTS idx_product_variants_stock ON product_variants(stock_quantity)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("Database indexes ready")
	return nil
}

type sampleVariant struct {
	name  string
	kind  product.VariantType
	extra string
	stock int
	sku   string
}

type sampleProduct struct {
	category    string
	name        string
	description string
	price       string
	imageURL    string
	variants    []sampleVariant
}

var sampleCategories = []product.Category{
	{Name: "Cement", Description: "Quality cement for construction"},
	{Name: "Bricks", Description: "High quality bricks for building"},
	{Name: "TMT Iron Rods", Description: "Titanium treated TMT iron rods for reinforcement"},
}

var sampleProducts = []sampleProduct{
	{
		category:    "Cement",
		name:        "Portland Cement 50kg",
		description: "High quality Portland cement suitable for all construction work",
		price:       "350.00",
		imageURL:    "https://via.placeholder.com/300?text=Portland+Cement",
		variants: []sampleVariant{
			{"Grade A", product.VariantTypeMaterial, "0.00", 500, "CEMENT-50-GA-001"},
			{"Grade B", product.VariantTypeMaterial, "25.00", 300, "CEMENT-50-GB-001"},
		},
	},
	{
		category:    "Bricks",
		name:        "Clay Bricks (Per 1000)",
		description: "Standard clay bricks for walls and partitions",
		price:       "4500.00",
		imageURL:    "https://via.placeholder.com/300?text=Clay+Bricks",
		variants: []sampleVariant{
			{"Standard Red", product.VariantTypeColor, "0.00", 150, "BRICK-RED-001"},
			{"Hollow", product.VariantTypeMaterial, "500.00", 100, "BRICK-HOLLOW-001"},
		},
	},
	{
		category:    "Bricks",
		name:        "Fire Bricks",
		description: "Heat resistant fire bricks for furnaces",
		price:       "6000.00",
		imageURL:    "https://via.placeholder.com/300?text=Fire+Bricks",
		variants: []sampleVariant{
			{"Grade A", product.VariantTypeMaterial, "0.00", 80, "FIRE-BRICK-GA-001"},
		},
	},
	{
		category:    "TMT Iron Rods",
		name:        "TMT Iron Rod 8mm",
		description: "High strength TMT iron rods for structural reinforcement",
		price:       "45.00",
		imageURL:    "https://via.placeholder.com/300?text=TMT+8mm",
		variants: []sampleVariant{
			{"8mm Dia", product.VariantTypeSize, "0.00", 1000, "TMT-8MM-001"},
		},
	},
	{
		category:    "TMT Iron Rods",
		name:        "TMT Iron Rod 10mm",
		description: "High strength TMT iron rods for structural reinforcement",
		price:       "55.00",
		imageURL:    "https://via.placeholder.com/300?text=TMT+10mm",
		variants: []sampleVariant{
			{"10mm Dia", product.VariantTypeSize, "0.00", 800, "TMT-10MM-001"},
			{"12mm Dia", product.VariantTypeSize, "8.00", 600, "TMT-12MM-001"},
		},
	},
}

// SeedSampleCatalog inserts the sample categories, products and variants.
// It does nothing when any category already exists.
func (m *Migration) SeedSampleCatalog(ctx context.Context) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&product.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		m.logger.Info("Catalog already seeded, skipping")
		return nil
	}

	m.logger.Info("Seeding sample catalog")

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categoryIDs := make(map[string]uint, len(sampleCategories))
		for _, c := range sampleCategories {
			category := c
			if err := tx.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", category.Name, err)
			}
			categoryIDs[category.Name] = category.ID
		}

		for _, sp := range sampleProducts {
			p := product.Product{
				Name:        sp.name,
				Description: sp.description,
				CategoryID:  categoryIDs[sp.category],
				BasePrice:   decimal.RequireFromString(sp.price),
				ImageURL:    sp.imageURL,
				IsActive:    true,
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to create product %s: %w", sp.name, err)
			}

			for _, sv := range sp.variants {
				variant := product.ProductVariant{
					ProductID:       p.ID,
					Name:            sv.name,
					Type:            sv.kind,
					AdditionalPrice: decimal.RequireFromString(sv.extra),
					StockQuantity:   sv.stock,
					SKU:             sv.sku,
				}
				if err := tx.Create(&variant).Error; err != nil {
					return fmt.Errorf("failed to create variant %s: %w", sv.sku, err)
				}
			}

			m.logger.WithField("product", p.Name).Debug("Created sample product")
		}

		return nil
	})
}

// AdminCreator creates the first administrator account
type AdminCreator interface {
	CreateAdmin(ctx context.Context, email, password string) (bool, error)
}

// SeedAdminUser makes sure an administrator with the given email exists
func (m *Migration) SeedAdminUser(ctx context.Context, admins AdminCreator, email, password string) error {
	created, err := admins.CreateAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if created {
		m.logger.WithField("email", email).Info("Created admin user")
	} else {
		m.logger.WithField("email", email).Info("Admin user already exists")
	}
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	m.logger.Warn("Dropping all database tables")

	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
	}

	m.logger.Info("All tables dropped")
	return nil
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() error {
	tables, err := m.db.Migrator().GetTables()
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", table).Warn("Failed to count records")
			continue
		}
		totalRecords += count
		m.logger.WithFields(logrus.Fields{"table": table, "records": count}).Info("Table info")
	}

	m.logger.WithFields(logrus.Fields{
		"tables":  len(tables),
		"records": totalRecords,
	}).Info("Database summary")
	return nil
}
