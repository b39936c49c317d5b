// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// RestockRequest adjusts a variant's stock by Quantity, which may be negative
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	h.listProducts(c, false)
}

// AdminListProducts handles GET /admin/products, inactive products included
func (h *CatalogHandler) AdminListProducts(c *gin.Context) {
	h.listProducts(c, true)
}

func (h *CatalogHandler) listProducts(c *gin.Context, includeInactive bool) {
	var filter product.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	filter.IncludeInactive = includeInactive

	products, err := h.productService.ListProducts(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Products retrieved successfully", products)
}

// ProductsByCategory handles GET /products/by-category?category_id=
func (h *CatalogHandler) ProductsByCategory(c *gin.Context) {
	var categoryID uint64
	if raw := c.Query("category_id"); raw != "" {
		var err error
		categoryID, err = strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, apperror.InvalidInput("invalid category_id"))
			return
		}
	}

	products, err := h.productService.ProductsByCategory(c.Request.Context(), uint(categoryID))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Products retrieved successfully", products)
}

// GetProduct handles GET /products/:id. Inactive products are hidden.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !p.IsActive {
		respondError(c, apperror.NotFound("product"))
		return
	}

	respondOK(c, http.StatusOK, "Product retrieved successfully", p)
}

// CreateProduct handles POST /admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Product created successfully", p)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Product deleted successfully", nil)
}

// Variants

// ListVariants handles GET /variants
func (h *CatalogHandler) ListVariants(c *gin.Context) {
	var filter product.VariantFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	variants, err := h.productService.ListVariants(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Variants retrieved successfully", variants)
}

// GetVariant handles GET /variants/:id
func (h *CatalogHandler) GetVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	variant, err := h.productService.GetVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Variant retrieved successfully", variant)
}

// CreateVariant handles POST /admin/variants
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	var req product.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := h.productService.CreateVariant(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Variant created successfully", variant)
}

// UpdateVariant handles PUT /admin/variants/:id
func (h *CatalogHandler) UpdateVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.UpdateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := h.productService.UpdateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Variant updated successfully", variant)
}

// DeleteVariant handles DELETE /admin/variants/:id
func (h *CatalogHandler) DeleteVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteVariant(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Variant deleted successfully", nil)
}

// Restock handles POST /admin/variants/:id/restock
func (h *CatalogHandler) Restock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := h.productService.Restock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Stock updated successfully", variant)
}
