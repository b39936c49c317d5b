// internal/domain/product/stock.go
package product

import (
	"fmt"

	"gorm.io/gorm"
)

// AvailableStock returns the stock a cart line may draw on inside tx: the
// variant's own stock, or the sum over all variants for a variantless line.
func AvailableStock(tx *gorm.DB, productID uint, variantID *uint) (int, error) {
	if variantID != nil {
		var variant ProductVariant
		if err := tx.Select("id", "stock_quantity").First(&variant, *variantID).Error; err != nil {
			return 0, notFoundOr(err, "product variant")
		}
		return variant.StockQuantity, nil
	}

	var total int64
	err := tx.Model(&ProductVariant{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(stock_quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum product stock: %w", err)
	}
	return int(total), nil
}

// DecrementVariantStock removes qty units from a variant only if that many
// are on hand. It reports false, without error, when the guard rejects it.
func DecrementVariantStock(tx *gorm.DB, variantID uint, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	result := tx.Model(&ProductVariant{}).
		Where("id = ? AND stock_quantity >= ?", variantID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if result.Error != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}
