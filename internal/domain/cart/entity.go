// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Cart is the single shopping cart of an account
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem is one (product, optional variant, quantity) line of a cart
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_line;index" json:"product_id"`
	VariantID *uint     `gorm:"uniqueIndex:idx_cart_line;index" json:"variant_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *product.Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *product.ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// LineUnitPrice is the product base price plus the variant's additional price, if any
func LineUnitPrice(p *product.Product, v *product.ProductVariant) decimal.Decimal {
	if v == nil {
		return p.BasePrice
	}
	return v.UnitPrice(p.BasePrice)
}

// UnitPrice requires Product (and Variant, when set) to be loaded
func (i *CartItem) UnitPrice() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return LineUnitPrice(i.Product, i.Variant)
}

// LineTotal is the unit price times the quantity
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DisplayName names the line in messages, e.g. "Portland Cement 50kg (Grade A)"
func (i *CartItem) DisplayName() string {
	name := ""
	if i.Product != nil {
		name = i.Product.Name
	}
	if i.Variant != nil {
		return i.Variant.DisplayName(name)
	}
	return name
}

// Totals returns the cart total and the item count (sum of quantities)
func Totals(items []CartItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for i := range items {
		total = total.Add(items[i].LineTotal())
		count += items[i].Quantity
	}
	return total, count
}

// LineView is a cart line as shown to the shopper
type LineView struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   *uint           `json:"variant_id,omitempty"`
	VariantName string          `json:"variant_name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView is the cart with per-line and overall totals
type CartView struct {
	ID        uint            `json:"id"`
	Items     []LineView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCartView builds the shopper view from a cart and its loaded lines
func NewCartView(c *Cart, items []CartItem) *CartView {
	view := &CartView{
		ID:        c.ID,
		Items:     make([]LineView, 0, len(items)),
		UpdatedAt: c.UpdatedAt,
	}

	for i := range items {
		item := &items[i]
		line := LineView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			UnitPrice: item.UnitPrice(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		if item.Variant != nil {
			line.VariantName = item.Variant.Name
		}
		view.Items = append(view.Items, line)
	}

	view.Total, view.ItemCount = Totals(items)
	return view
}
