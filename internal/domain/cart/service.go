// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// RemoveItemRequest represents remove from cart request
type RemoveItemRequest struct {
	ItemID uint `json:"item_id" binding:"required"`
}

// UpdateQuantityRequest represents set quantity request
type UpdateQuantityRequest struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity"`
}

// GetOrCreate returns the account's cart, creating it on first use
func (s *Service) GetOrCreate(ctx context.Context, userID uint) (*Cart, error) {
	return GetOrCreate(s.db.WithContext(ctx), userID)
}

// GetCart returns the account's cart with lines and totals
func (s *Service) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	db := s.db.WithContext(ctx)

	c, err := GetOrCreate(db, userID)
	if err != nil {
		return nil, err
	}

	items, err := LoadItems(db, c.ID)
	if err != nil {
		return nil, err
	}

	return NewCartView(c, items), nil
}

// AddItem adds quantity of a product (and optional variant) to the cart.
// The same product/variant pair increments its existing line.
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddItemRequest) (*CartView, error) {
	if req.ProductID == 0 {
		return nil, apperror.InvalidInput("product_id required")
	}

	quantity := req.Quantity
	if quantity < 0 {
		return nil, apperror.InvalidInput("quantity must be positive")
	}
	if quantity == 0 {
		quantity = 1
	}
	maxQuantity := s.config.Store.MaxLineQuantity
	if quantity > maxQuantity {
		return nil, apperror.InvalidInput("quantity cannot exceed %d", maxQuantity)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := Lock(tx, userID)
		if err != nil {
			return err
		}

		var p product.Product
		if err := tx.First(&p, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return fmt.Errorf("failed to retrieve product: %w", err)
		}
		if !p.IsActive {
			return apperror.NotFound("product")
		}

		if req.VariantID != nil {
			var v product.ProductVariant
			if err := tx.First(&v, *req.VariantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("product variant")
				}
				return fmt.Errorf("failed to retrieve variant: %w", err)
			}
			if v.ProductID != p.ID {
				return apperror.InvalidInput("variant %d does not belong to product %d", v.ID, p.ID)
			}
		}

		var line CartItem
		err = lineQuery(tx, c.ID, req.ProductID, req.VariantID).First(&line).Error
		switch {
		case err == nil:
			// Compared as a difference so a huge request cannot wrap around
			if quantity > maxQuantity-line.Quantity {
				return apperror.InvalidInput("quantity cannot exceed %d", maxQuantity)
			}
			if err := tx.Model(&line).Update("quantity", line.Quantity+quantity).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = CartItem{
				CartID:    c.ID,
				ProductID: req.ProductID,
				VariantID: req.VariantID,
				Quantity:  quantity,
			}
			if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up cart item: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a line from the caller's cart
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) (*CartView, error) {
	if itemID == 0 {
		return nil, apperror.InvalidInput("item_id required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := Lock(tx, userID)
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND cart_id = ?", itemID, c.ID).Delete(&CartItem{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateQuantity sets a line's quantity, clamped to at least 1
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*CartView, error) {
	if itemID == 0 {
		return nil, apperror.InvalidInput("item_id required")
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > s.config.Store.MaxLineQuantity {
		return nil, apperror.InvalidInput("quantity cannot exceed %d", s.config.Store.MaxLineQuantity)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := Lock(tx, userID)
		if err != nil {
			return err
		}

		result := tx.Model(&CartItem{}).
			Where("id = ? AND cart_id = ?", itemID, c.ID).
			Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
		if result.Error != nil {
			return fmt.Errorf("failed to update cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// Clear empties the cart and keeps the cart itself
func (s *Service) Clear(ctx context.Context, userID uint) (*CartView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := Lock(tx, userID)
		if err != nil {
			return err
		}
		return ClearItems(tx, c.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// GetOrCreate returns the cart of userID using tx, inserting it if missing.
// The insert is an upsert on the unique user_id so concurrent first calls
// still end up with one cart.
func GetOrCreate(tx *gorm.DB, userID uint) (*Cart, error) {
	if userID == 0 {
		return nil, apperror.ErrUnauthorized
	}

	c := Cart{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&c).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	var existing Cart
	if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return &existing, nil
}

// Lock gets or creates the cart and writes to its row, so the row stays
// locked until tx ends and cart mutations of one account run one at a time.
func Lock(tx *gorm.DB, userID uint) (*Cart, error) {
	c, err := GetOrCreate(tx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&Cart{}).Where("id = ?", c.ID).Update("updated_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	c.UpdatedAt = now
	return c, nil
}

// LoadItems loads the lines of a cart with their product and variant
func LoadItems(tx *gorm.DB, cartID uint) ([]CartItem, error) {
	var items []CartItem
	err := tx.Where("cart_id = ?", cartID).
		Preload("Product").
		Preload("Variant").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return items, nil
}

// ClearItems deletes every line of a cart
func ClearItems(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func lineQuery(tx *gorm.DB, cartID, productID uint, variantID *uint) *gorm.DB {
	query := tx.Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID == nil {
		return query.Where("variant_id IS NULL")
	}
	return query.Where("variant_id = ?", *variantID)
}
