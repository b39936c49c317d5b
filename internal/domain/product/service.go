// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// CategoryRequest represents category create/update data
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ProductFilter represents product list query parameters
type ProductFilter struct {
	CategoryID      uint   `form:"category"`
	Search          string `form:"search"`
	SortBy          string `form:"sort"`
	IncludeInactive bool   `form:"-"`
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	CategoryID  uint            `json:"category_id" binding:"required"`
	BasePrice   decimal.Decimal `json:"base_price"`
	ImageURL    string          `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
}

// UpdateProductRequest carries only the fields to change
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CategoryID  *uint            `json:"category_id"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	ImageURL    *string          `json:"image_url"`
	IsActive    *bool            `json:"is_active"`
}

// VariantFilter represents variant list query parameters
type VariantFilter struct {
	ProductID uint        `form:"product"`
	Type      VariantType `form:"type"`
	Search    string      `form:"search"`
}

// CreateVariantRequest represents variant creation data
type CreateVariantRequest struct {
	ProductID       uint            `json:"product_id" binding:"required"`
	Name            string          `json:"variant_name" binding:"required"`
	Type            VariantType     `json:"variant_type" binding:"required"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
	StockQuantity   int             `json:"stock_quantity"`
	SKU             string          `json:"sku" binding:"required"`
}

// UpdateVariantRequest carries only the fields to change
type UpdateVariantRequest struct {
	Name            *string          `json:"variant_name"`
	Type            *VariantType     `json:"variant_type"`
	AdditionalPrice *decimal.Decimal `json:"additional_price"`
	SKU             *string          `json:"sku"`
}

// Categories

// ListCategories returns all categories ordered by name
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by ID
func (s *Service) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFoundOr(err, "category")
	}
	return &category, nil
}

// CreateCategory creates a category with a unique name
func (s *Service) CreateCategory(ctx context.Context, req *CategoryRequest) (*Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.InvalidInput("category name is required")
	}

	if err := s.ensureCategoryNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	category := Category{Name: name, Description: req.Description}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, conflictOr(err, "category %q already exists", name)
	}

	return &category, nil
}

// UpdateCategory renames or re-describes a category
func (s *Service) UpdateCategory(ctx context.Context, id uint, req *CategoryRequest) (*Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.InvalidInput("category name is required")
	}
	if err := s.ensureCategoryNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	category.Name = name
	category.Description = req.Description
	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, conflictOr(err, "category %q already exists", name)
	}

	return category, nil
}

// DeleteCategory removes a category that no longer owns products
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("category still has %d products", count)
	}

	result := s.db.WithContext(ctx).Delete(&Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("category")
	}
	return nil
}

// Products

// ListProducts retrieves products with filtering and sorting
func (s *Service) ListProducts(ctx context.Context, filter *ProductFilter) ([]Product, error) {
	query := s.db.WithContext(ctx).Model(&Product{}).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("type ASC, name ASC")
		})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var products []Product
	if err := query.Order(buildProductOrderClause(filter.SortBy)).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, nil
}

// ProductsByCategory returns the active products of one category
func (s *Service) ProductsByCategory(ctx context.Context, categoryID uint) ([]Product, error) {
	if categoryID == 0 {
		return nil, apperror.InvalidInput("category_id required")
	}
	return s.ListProducts(ctx, &ProductFilter{CategoryID: categoryID})
}

// GetProduct retrieves a single product with its variants
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("type ASC, name ASC")
		}).
		First(&product, id).Error
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return &product, nil
}

// CreateProduct creates a product in an existing category
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.InvalidInput("product name is required")
	}
	if req.BasePrice.IsNegative() {
		return nil, apperror.InvalidInput("base price cannot be negative")
	}
	if _, err := s.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	product := Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CategoryID:  req.CategoryID,
		BasePrice:   req.BasePrice,
		ImageURL:    req.ImageURL,
		IsActive:    isActive,
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created")

	return &product, nil
}

// UpdateProduct applies a partial update to a product
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *UpdateProductRequest) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperror.InvalidInput("product name cannot be blank")
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		if _, err := s.GetCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *req.CategoryID
		product.Category = nil
	}
	if req.BasePrice != nil {
		if req.BasePrice.IsNegative() {
			return nil, apperror.InvalidInput("base price cannot be negative")
		}
		product.BasePrice = *req.BasePrice
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	err = s.db.WithContext(ctx).Model(&Product{ID: product.ID}).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"category_id": product.CategoryID,
			"base_price":  product.BasePrice,
			"image_url":   product.ImageURL,
			"is_active":   product.IsActive,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes a product and drops it from every cart.
// Order history keeps its snapshot of the product.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&Product{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("product")
		}
		if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to remove product from carts: %w", err)
		}
		return nil
	})
}

// Variants

// ListVariants retrieves variants with filtering
func (s *Service) ListVariants(ctx context.Context, filter *VariantFilter) ([]ProductVariant, error) {
	query := s.db.WithContext(ctx).Model(&ProductVariant{})

	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}

	var variants []ProductVariant
	if err := query.Order("type ASC, name ASC").Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve variants: %w", err)
	}
	return variants, nil
}

// GetVariant retrieves a variant by ID
func (s *Service) GetVariant(ctx context.Context, id uint) (*ProductVariant, error) {
	var variant ProductVariant
	if err := s.db.WithContext(ctx).First(&variant, id).Error; err != nil {
		return nil, notFoundOr(err, "product variant")
	}
	return &variant, nil
}

// CreateVariant adds a variant to a product
func (s *Service) CreateVariant(ctx context.Context, req *CreateVariantRequest) (*ProductVariant, error) {
	if err := validateVariantFields(req.Name, req.Type, req.AdditionalPrice, req.SKU); err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 {
		return nil, apperror.InvalidInput("stock quantity cannot be negative")
	}
	if _, err := s.GetProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	variant := ProductVariant{
		ProductID:       req.ProductID,
		Name:            strings.TrimSpace(req.Name),
		Type:            req.Type,
		AdditionalPrice: req.AdditionalPrice,
		StockQuantity:   req.StockQuantity,
		SKU:             strings.TrimSpace(req.SKU),
	}
	if err := s.ensureVariantUnique(ctx, &variant); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&variant).Error; err != nil {
		return nil, conflictOr(err, "variant %q already exists", variant.SKU)
	}

	return &variant, nil
}

// UpdateVariant applies a partial update to a variant. Stock changes go through Restock.
func (s *Service) UpdateVariant(ctx context.Context, id uint, req *UpdateVariantRequest) (*ProductVariant, error) {
	variant, err := s.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		variant.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		variant.Type = *req.Type
	}
	if req.AdditionalPrice != nil {
		variant.AdditionalPrice = *req.AdditionalPrice
	}
	if req.SKU != nil {
		variant.SKU = strings.TrimSpace(*req.SKU)
	}

	if err := validateVariantFields(variant.Name, variant.Type, variant.AdditionalPrice, variant.SKU); err != nil {
		return nil, err
	}
	if err := s.ensureVariantUnique(ctx, variant); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&ProductVariant{ID: variant.ID}).Updates(map[string]interface{}{
		"name":             variant.Name,
		"type":             variant.Type,
		"additional_price": variant.AdditionalPrice,
		"sku":              variant.SKU,
	}).Error
	if err != nil {
		return nil, conflictOr(err, "variant %q already exists", variant.SKU)
	}

	return s.GetVariant(ctx, id)
}

// DeleteVariant removes a variant. Order lines that referenced it keep their
// frozen prices and lose only the reference; cart lines for it are dropped.
func (s *Service) DeleteVariant(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE order_items SET variant_id = NULL WHERE variant_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach order items: %w", err)
		}
		if err := tx.Exec("DELETE FROM cart_items WHERE variant_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to remove variant from carts: %w", err)
		}

		result := tx.Delete(&ProductVariant{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete variant: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("product variant")
		}
		return nil
	})
}

// Restock adjusts variant stock by delta; the result must stay non-negative
func (s *Service) Restock(ctx context.Context, id uint, delta int) (*ProductVariant, error) {
	if delta == 0 {
		return nil, apperror.InvalidInput("restock quantity must not be zero")
	}

	result := s.db.WithContext(ctx).Model(&ProductVariant{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to restock variant: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		variant, err := s.GetVariant(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperror.InvalidInput("cannot remove %d units, only %d in stock", -delta, variant.StockQuantity)
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": id,
		"delta":      delta,
	}).Info("Variant restocked")

	return s.GetVariant(ctx, id)
}

// Private helper methods

func (s *Service) ensureCategoryNameFree(ctx context.Context, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&Category{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("category %q already exists", name)
	}
	return nil
}

func (s *Service) ensureVariantUnique(ctx context.Context, v *ProductVariant) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&ProductVariant{}).
		Where("sku = ? AND id <> ?", v.SKU, v.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check variant sku: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("variant sku %q already exists", v.SKU)
	}

	err = s.db.WithContext(ctx).Model(&ProductVariant{}).
		Where("product_id = ? AND name = ? AND type = ? AND id <> ?", v.ProductID, v.Name, v.Type, v.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check variant identity: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("product already has %s variant %q", v.Type, v.Name)
	}
	return nil
}

func validateVariantFields(name string, variantType VariantType, additional decimal.Decimal, sku string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.InvalidInput("variant name is required")
	}
	if !variantType.IsValid() {
		return apperror.InvalidInput("unknown variant type %q", variantType)
	}
	if additional.IsNegative() {
		return apperror.InvalidInput("additional price cannot be negative")
	}
	if strings.TrimSpace(sku) == "" {
		return apperror.InvalidInput("sku is required")
	}
	return nil
}

func buildProductOrderClause(sortBy string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"base_price": true,
		"created_at": true,
	}

	direction := "ASC"
	field := sortBy
	if strings.HasPrefix(sortBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(sortBy, "-")
	}

	if !validSortFields[field] {
		return "created_at DESC, id DESC"
	}

	return fmt.Sprintf("%s %s, id %s", field, direction, direction)
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource)
	}
	return fmt.Errorf("failed to retrieve %s: %w", resource, err)
}

func conflictOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(format, args...)
	}
	return fmt.Errorf("failed to save: %w", err)
}
