// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
)

// AnalyticsHandler handles the admin dashboard endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetDashboard handles GET /admin/dashboard. ?refresh=true skips the cache.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := h.analyticsService.Refresh(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}

	dashboard, err := h.analyticsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}

// GetInventory handles GET /admin/inventory
func (h *AnalyticsHandler) GetInventory(c *gin.Context) {
	inventory, err := h.analyticsService.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Inventory retrieved successfully", inventory)
}
