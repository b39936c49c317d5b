// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/customer"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Dependencies are the shared resources the handlers are built from.
// Redis may be nil, which disables dashboard caching.
type Dependencies struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
	Logger *logrus.Logger
}

// Handlers holds every HTTP handler of the API
type Handlers struct {
	Auth      *handlers.AuthHandler
	Catalog   *handlers.CatalogHandler
	Cart      *handlers.CartHandler
	Order     *handlers.OrderHandler
	Customer  *handlers.CustomerHandler
	Analytics *handlers.AnalyticsHandler
}

// NewHandlers wires services and handlers from deps
func NewHandlers(deps *Dependencies) *Handlers {
	var cache analytics.Cache
	if deps.Redis != nil {
		cache = deps.Redis
	}

	return &Handlers{
		Auth:      handlers.NewAuthHandler(user.NewService(deps.DB, deps.Config, deps.Logger)),
		Catalog:   handlers.NewCatalogHandler(product.NewService(deps.DB, deps.Logger)),
		Cart:      handlers.NewCartHandler(cart.NewService(deps.DB, deps.Config, deps.Logger)),
		Order:     handlers.NewOrderHandler(order.NewService(deps.DB, deps.Config, deps.Logger), pdf.NewService(deps.Config)),
		Customer:  handlers.NewCustomerHandler(customer.NewService(deps.DB, deps.Logger)),
		Analytics: handlers.NewAnalyticsHandler(analytics.NewService(deps.DB, deps.Config, deps.Logger, cache)),
	}
}

// SetupRoutes registers every /api/v1 route on rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	requireAuth := middleware.AuthMiddleware(jwtManager)

	SetupAuthRoutes(rg, h, requireAuth)
	SetupCatalogRoutes(rg, h)
	SetupCartRoutes(rg, h, requireAuth)
	SetupOrderRoutes(rg, h, requireAuth)
	SetupCustomerRoutes(rg, h, requireAuth)
	SetupAdminRoutes(rg, h, requireAuth)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)

		protected := authGroup.Group("")
		protected.Use(requireAuth)
		{
			protected.GET("/me", h.Auth.Me)
			protected.PUT("/password", h.Auth.ChangePassword)
		}
	}
}

// SetupCatalogRoutes sets up the public catalog routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers) {
	categories := rg.Group("/categories")
	{
		categories.GET("", h.Catalog.ListCategories)
		categories.GET("/:id", h.Catalog.GetCategory)
	}

	products := rg.Group("/products")
	{
		products.GET("", h.Catalog.ListProducts)
		products.GET("/by-category", h.Catalog.ProductsByCategory)
		products.GET("/:id", h.Catalog.GetProduct)
	}

	variants := rg.Group("/variants")
	{
		variants.GET("", h.Catalog.ListVariants)
		variants.GET("/:id", h.Catalog.GetVariant)
	}
}

// SetupCartRoutes sets up cart routes
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	cartGroup := rg.Group("/cart")
	cartGroup.Use(requireAuth)
	{
		cartGroup.GET("", h.Cart.GetCart)
		cartGroup.DELETE("", h.Cart.Clear)
		cartGroup.POST("/add", h.Cart.AddItem)
		cartGroup.POST("/remove", h.Cart.RemoveItem)
		cartGroup.POST("/update-quantity", h.Cart.UpdateQuantity)
	}
}

// SetupOrderRoutes sets up the shopper's order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	orders := rg.Group("/orders")
	orders.Use(requireAuth)
	{
		orders.GET("", h.Order.ListOrders)
		orders.POST("", h.Order.Checkout)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/:id/track", h.Order.TrackOrder)
		orders.GET("/:id/invoice", h.Order.Invoice)
	}
}

// SetupCustomerRoutes sets up the profile routes
func SetupCustomerRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	customerGroup := rg.Group("/customer")
	customerGroup.Use(requireAuth)
	{
		customerGroup.GET("", h.Customer.GetProfile)
		customerGroup.PUT("", h.Customer.UpdateProfile)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	admin := rg.Group("/admin")
	admin.Use(requireAuth, middleware.AdminMiddleware())
	{
		admin.POST("/categories", h.Catalog.CreateCategory)
		admin.PUT("/categories/:id", h.Catalog.UpdateCategory)
		admin.DELETE("/categories/:id", h.Catalog.DeleteCategory)

		admin.GET("/products", h.Catalog.AdminListProducts)
		admin.POST("/products", h.Catalog.CreateProduct)
		admin.PUT("/products/:id", h.Catalog.UpdateProduct)
		admin.DELETE("/products/:id", h.Catalog.DeleteProduct)

		admin.POST("/variants", h.Catalog.CreateVariant)
		admin.PUT("/variants/:id", h.Catalog.UpdateVariant)
		admin.DELETE("/variants/:id", h.Catalog.DeleteVariant)
		admin.POST("/variants/:id/restock", h.Catalog.Restock)

		admin.GET("/orders", h.Order.AdminListOrders)
		admin.GET("/orders/:id", h.Order.AdminGetOrder)
		admin.PUT("/orders/:id/status", h.Order.AdminUpdateOrderStatus)

		admin.GET("/dashboard", h.Analytics.GetDashboard)
		admin.GET("/inventory", h.Analytics.GetInventory)
	}
}
