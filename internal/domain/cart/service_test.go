package cart_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	carts    *cart.Service
	catalog  *product.Service
	cement   *product.Product
	gradeA   *product.ProductVariant
	gradeB   *product.ProductVariant
	bricks   *product.Product
	redBrick *product.ProductVariant
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewDB(t,
		&product.Category{}, &product.Product{}, &product.ProductVariant{},
		&cart.Cart{}, &cart.CartItem{},
	)
	log := logger.Discard()
	f := &fixture{
		db:      db,
		carts:   cart.NewService(db, testutil.Config(), log),
		catalog: product.NewService(db, log),
	}

	category, err := f.catalog.CreateCategory(ctx, &product.CategoryRequest{Name: "Cement"})
	require.NoError(t, err)

	f.cement, err = f.catalog.CreateProduct(ctx, &product.CreateProductRequest{
		Name: "Portland Cement 50kg", CategoryID: category.ID, BasePrice: decimal.RequireFromString("350.00"),
	})
	require.NoError(t, err)
	f.gradeA, err = f.catalog.CreateVariant(ctx, &product.CreateVariantRequest{
		ProductID: f.cement.ID, Name: "Grade A", Type: product.VariantTypeMaterial, StockQuantity: 500, SKU: "CEMENT-50-GA-001",
	})
	require.NoError(t, err)
	f.gradeB, err = f.catalog.CreateVariant(ctx, &product.CreateVariantRequest{
		ProductID: f.cement.ID, Name: "Grade B", Type: product.VariantTypeMaterial,
		AdditionalPrice: decimal.RequireFromString("25.00"), StockQuantity: 300, SKU: "CEMENT-50-GB-001",
	})
	require.NoError(t, err)

	f.bricks, err = f.catalog.CreateProduct(ctx, &product.CreateProductRequest{
		Name: "Clay Bricks (Per 1000)", CategoryID: category.ID, BasePrice: decimal.RequireFromString("4500.00"),
	})
	require.NoError(t, err)
	f.redBrick, err = f.catalog.CreateVariant(ctx, &product.CreateVariantRequest{
		ProductID: f.bricks.ID, Name: "Standard Red", Type: product.VariantTypeColor, StockQuantity: 150, SKU: "BRICK-RED-001",
	})
	require.NoError(t, err)

	return f
}

func TestGetOrCreate_OneCartPerAccount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.carts.GetOrCreate(ctx, 7)
	require.NoError(t, err)
	second, err := f.carts.GetOrCreate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.GetOrCreate(ctx, 8)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, f.db.Model(&cart.Cart{}).Where("user_id = ?", 8).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.carts.GetOrCreate(ctx, 0)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAddItem_IncrementsSameLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID, Quantity: 2})
	require.NoError(t, err)
	view, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "Grade A", view.Items[0].VariantName)

	view, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeB.ID})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 1, view.Items[1].Quantity, "zero quantity defaults to one")

	_, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.bricks.ID})
	require.NoError(t, err)
	view, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.bricks.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 3)
	assert.Equal(t, 3, view.Items[2].Quantity)
	assert.Nil(t, view.Items[2].VariantID)
}

func TestAddItem_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inactive := false
	_, err := f.catalog.UpdateProduct(ctx, f.bricks.ID, &product.UpdateProductRequest{IsActive: &inactive})
	require.NoError(t, err)

	unknownVariant := uint(9999)
	tests := []struct {
		name string
		req  cart.AddItemRequest
		want error
	}{
		{"missing product id", cart.AddItemRequest{}, apperror.ErrInvalidInput},
		{"unknown product", cart.AddItemRequest{ProductID: 9999}, apperror.ErrNotFound},
		{"inactive product", cart.AddItemRequest{ProductID: f.bricks.ID}, apperror.ErrNotFound},
		{"unknown variant", cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &unknownVariant}, apperror.ErrNotFound},
		{"variant of another product", cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.redBrick.ID}, apperror.ErrInvalidInput},
		{"negative quantity", cart.AddItemRequest{ProductID: f.cement.ID, Quantity: -1}, apperror.ErrInvalidInput},
		{"over line cap", cart.AddItemRequest{ProductID: f.cement.ID, Quantity: 10001}, apperror.ErrInvalidInput},
		{"max int quantity", cart.AddItemRequest{ProductID: f.cement.ID, Quantity: math.MaxInt}, apperror.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.carts.AddItem(ctx, 1, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	view, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAddItem_IncrementCannotPassCap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeB.ID, Quantity: 5})
	require.NoError(t, err)

	for _, qty := range []int{9996, math.MaxInt} {
		_, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeB.ID, Quantity: qty})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput, "quantity %d", qty)
	}

	view, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeB.ID, Quantity: 9995})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 10000, view.Items[0].Quantity)
}

func TestGetCart_TotalsMatchLinePrices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeB.ID, Quantity: 4})
	require.NoError(t, err)
	view, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.bricks.ID, Quantity: 1})
	require.NoError(t, err)

	// 2*350 + 4*375 + 1*4500
	assert.True(t, view.Total.Equal(decimal.NewFromInt(6700)), view.Total.String())
	assert.Equal(t, 7, view.ItemCount)

	sum := decimal.Zero
	for _, line := range view.Items {
		assert.True(t, line.LineTotal.Equal(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))))
		sum = sum.Add(line.LineTotal)
	}
	assert.True(t, sum.Equal(view.Total))
	assert.True(t, view.Items[1].UnitPrice.Equal(decimal.NewFromInt(375)))
}

func TestRemoveItem_ScopedToOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID})
	require.NoError(t, err)
	itemID := view.Items[0].ID

	_, err = f.carts.RemoveItem(ctx, 2, itemID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.carts.RemoveItem(ctx, 1, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	view, err = f.carts.RemoveItem(ctx, 1, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.carts.RemoveItem(ctx, 1, itemID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateQuantity_ClampsToOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID, Quantity: 4})
	require.NoError(t, err)
	itemID := view.Items[0].ID

	for _, requested := range []int{0, -3} {
		view, err = f.carts.UpdateQuantity(ctx, 1, itemID, requested)
		require.NoError(t, err)
		assert.Equal(t, 1, view.Items[0].Quantity)
	}

	view, err = f.carts.UpdateQuantity(ctx, 1, itemID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, view.Items[0].Quantity)

	_, err = f.carts.UpdateQuantity(ctx, 99, itemID, 3)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestClear_KeepsCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	before, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID, VariantID: &f.gradeA.ID})
	require.NoError(t, err)

	after, err := f.carts.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Empty(t, after.Items)
	assert.True(t, after.Total.IsZero())
	assert.Zero(t, after.ItemCount)
}

func TestDeleteProduct_DropsCartLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.bricks.ID, VariantID: &f.redBrick.ID})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, 1, &cart.AddItemRequest{ProductID: f.cement.ID})
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteProduct(ctx, f.bricks.ID))

	view, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, f.cement.ID, view.Items[0].ProductID)

	_, err = f.catalog.GetProduct(ctx, f.bricks.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = f.catalog.DeleteProduct(ctx, f.bricks.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
