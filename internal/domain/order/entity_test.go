package order

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatus("lost").IsValid())

	assert.True(t, (&Order{Status: OrderStatusShipped}).CanBeCancelled())
	assert.False(t, (&Order{Status: OrderStatusDelivered}).CanBeCancelled())
}

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber("ORD")
		assert.Regexp(t, pattern, number)
		seen[number] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestOrderItem_UnitPrice(t *testing.T) {
	withVariant := OrderItem{
		ProductName:            "Portland Cement 50kg",
		VariantName:            "Grade B",
		Quantity:               4,
		PriceAtPurchase:        decimal.RequireFromString("350.00"),
		VariantPriceAtPurchase: decimal.NewNullDecimal(decimal.RequireFromString("25.00")),
	}
	assert.True(t, withVariant.UnitPrice().Equal(decimal.NewFromInt(375)))
	assert.True(t, withVariant.LineTotal().Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "Portland Cement 50kg (Grade B)", withVariant.DisplayName())

	plain := OrderItem{ProductName: "Clay Bricks (Per 1000)", Quantity: 1, PriceAtPurchase: decimal.NewFromInt(4500)}
	assert.True(t, plain.UnitPrice().Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, "Clay Bricks (Per 1000)", plain.DisplayName())
}

func TestDecrementOrder_SortsByVariant(t *testing.T) {
	v := func(id uint) *uint { return &id }
	items := []cart.CartItem{
		{ID: 1, VariantID: v(9)},
		{ID: 2, VariantID: nil},
		{ID: 3, VariantID: v(2)},
		{ID: 4, VariantID: v(5)},
	}

	lines := decrementOrder(items)

	var got []uint
	for _, line := range lines {
		got = append(got, *line.VariantID)
	}
	assert.Equal(t, []uint{2, 5, 9}, got)
	assert.Same(t, &items[2], lines[0])
}
