// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VariantType is the dimension a variant differs in
type VariantType string

const (
	VariantTypeSize     VariantType = "size"
	VariantTypeColor    VariantType = "color"
	VariantTypeMaterial VariantType = "material"
	VariantTypeFinish   VariantType = "finish"
)

// IsValid reports whether t is one of the known variant types
func (t VariantType) IsValid() bool {
	switch t {
	case VariantTypeSize, VariantTypeColor, VariantTypeMaterial, VariantTypeFinish:
		return true
	}
	return false
}

// Category represents product categories
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Products []Product `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"products,omitempty"`
}

// Product represents the product entity
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:200" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;check:base_price >= 0" json:"base_price"`
	ImageURL    string          `gorm:"size:500" json:"image_url"`
	IsActive    bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant is a purchasable configuration of a product with its own
// price delta and stock count. Stock never goes below zero.
type ProductVariant struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProductID       uint            `gorm:"not null;uniqueIndex:idx_variant_identity" json:"product_id"`
	Name            string          `gorm:"not null;size:100;uniqueIndex:idx_variant_identity" json:"variant_name"`
	Type            VariantType     `gorm:"not null;size:20;uniqueIndex:idx_variant_identity" json:"variant_type"`
	AdditionalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;check:additional_price >= 0" json:"additional_price"`
	StockQuantity   int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	SKU             string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"-"`
}

// TableName overrides
func (Category) TableName() string       { return "categories" }
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// TotalStock sums stock over the loaded variants
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.StockQuantity
	}
	return total
}

// IsInStock reports whether any variant has stock
func (p *Product) IsInStock() bool {
	return p.TotalStock() > 0
}

// UnitPrice is the price of one unit of the variant
func (v *ProductVariant) UnitPrice(base decimal.Decimal) decimal.Decimal {
	return base.Add(v.AdditionalPrice)
}

// DisplayName combines product and variant names for messages
func (v *ProductVariant) DisplayName(productName string) string {
	return productName + " (" + v.Name + ")"
}
