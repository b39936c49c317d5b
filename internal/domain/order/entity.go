// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	for _, status := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// Order is the immutable snapshot of a checked-out cart. Only its status
// and tracking fields change after creation.
type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderNumber    string          `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	Status         OrderStatus     `gorm:"not null;size:20;index" json:"status"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;check:total_amount >= 0" json:"total_amount"`
	Shipping       ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	TrackingNumber string          `gorm:"size:100" json:"tracking_number"`

	// Timestamps
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// ShippingAddress is the delivery address captured at checkout (embedded in Order)
type ShippingAddress struct {
	Address    string `gorm:"type:text;not null" json:"address"`
	City       string `gorm:"size:100;not null" json:"city"`
	State      string `gorm:"size:100;not null" json:"state"`
	PostalCode string `gorm:"size:10;not null" json:"postal_code"`
}

// OrderItem freezes what was bought and at which prices. VariantID is
// cleared, not cascaded, when the variant is deleted.
type OrderItem struct {
	ID                     uint                `gorm:"primaryKey" json:"id"`
	OrderID                uint                `gorm:"not null;index" json:"order_id"`
	ProductID              uint                `gorm:"not null;index" json:"product_id"`
	VariantID              *uint               `gorm:"index" json:"variant_id"`
	ProductName            string              `gorm:"not null;size:200" json:"product_name"`
	VariantName            string              `gorm:"size:100" json:"variant_name,omitempty"`
	Quantity               int                 `gorm:"not null;check:quantity >= 1" json:"quantity"`
	PriceAtPurchase        decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price_at_purchase"`
	VariantPriceAtPurchase decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"variant_price_at_purchase"`
	CreatedAt              time.Time           `json:"created_at"`

	Product *product.Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Variant *product.ProductVariant `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"` // User ID who made the change
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// UnitPrice is the frozen product price plus the frozen variant price, if any
func (i *OrderItem) UnitPrice() decimal.Decimal {
	if i.VariantPriceAtPurchase.Valid {
		return i.PriceAtPurchase.Add(i.VariantPriceAtPurchase.Decimal)
	}
	return i.PriceAtPurchase
}

// LineTotal is the frozen unit price times the quantity
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DisplayName combines the frozen product and variant names
func (i *OrderItem) DisplayName() string {
	if i.VariantName == "" {
		return i.ProductName
	}
	return i.ProductName + " (" + i.VariantName + ")"
}

// ItemCount is the number of units in the order
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return CanTransition(o.Status, OrderStatusCancelled)
}

// GenerateOrderNumber returns "<prefix>-" followed by eight upper-case hex
// characters of a random UUID, e.g. ORD-3F9A1C2B
func GenerateOrderNumber(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + strings.ToUpper(hex[:8])
}
