package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
)

const strongPassword = "Cement#Grade9"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type api struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) (*api, *user.Service) {
	t.Helper()

	cfg := testutil.Config()
	db := testutil.NewDB(t, postgres.Models()...)
	log := logger.Discard()

	server := NewServer(cfg, db, nil, log)
	return &api{t: t, handler: server.Handler()}, user.NewService(db, cfg, log)
}

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "application/pdf" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *api) decode(env envelope, dest interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(env.Data, dest), string(env.Data))
}

func (a *api) register(email string) string {
	a.t.Helper()

	code, env := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":            email,
		"password":         strongPassword,
		"confirm_password": strongPassword,
		"first_name":       "Asha",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	a.decode(env, &resp)
	require.NotEmpty(a.t, resp.AccessToken)
	return resp.AccessToken
}

func (a *api) login(email string) string {
	a.t.Helper()

	code, env := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": strongPassword,
	})
	require.Equal(a.t, http.StatusOK, code, env.Error)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	a.decode(env, &resp)
	return resp.AccessToken
}

func (a *api) adminToken(users *user.Service) string {
	a.t.Helper()

	_, err := users.CreateAdmin(context.Background(), "admin@buildmart.example", strongPassword)
	require.NoError(a.t, err)
	return a.login("admin@buildmart.example")
}

type idOnly struct {
	ID uint `json:"id"`
}

// seedCatalog creates Portland Cement 50kg (350) with variant Grade B (+25)
// holding stock units, and returns the product and variant ids.
func (a *api) seedCatalog(admin string, stock int) (uint, uint) {
	a.t.Helper()

	code, env := a.do(http.MethodPost, "/api/v1/admin/categories", admin, gin.H{"name": "Cement"})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	var category idOnly
	a.decode(env, &category)

	code, env = a.do(http.MethodPost, "/api/v1/admin/products", admin, gin.H{
		"name":        "Portland Cement 50kg",
		"category_id": category.ID,
		"base_price":  "350.00",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	var p idOnly
	a.decode(env, &p)

	code, env = a.do(http.MethodPost, "/api/v1/admin/variants", admin, gin.H{
		"product_id":       p.ID,
		"variant_name":     "Grade B",
		"variant_type":     "material",
		"additional_price": "25.00",
		"stock_quantity":   stock,
		"sku":              "CEMENT-50-GB-001",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	var v idOnly
	a.decode(env, &v)

	return p.ID, v.ID
}

var shipping = gin.H{
	"address":     "14 MG Road",
	"city":        "Pune",
	"state":       "MH",
	"postal_code": "411001",
}

func TestHealth(t *testing.T) {
	a, _ := newAPI(t)

	code, _ := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestShopperJourney(t *testing.T) {
	a, users := newAPI(t)
	admin := a.adminToken(users)
	shopper := a.register("buyer@example.com")
	productID, variantID := a.seedCatalog(admin, 10)

	code, env := a.do(http.MethodGet, "/api/v1/products?search=portland", "", nil)
	require.Equal(t, http.StatusOK, code)
	var products []idOnly
	a.decode(env, &products)
	require.Len(t, products, 1)
	assert.Equal(t, productID, products[0].ID)

	code, env = a.do(http.MethodPost, "/api/v1/cart/add", shopper, gin.H{
		"product_id": productID,
		"variant_id": variantID,
		"quantity":   3,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var cartView struct {
		Total     decimal.Decimal `json:"total"`
		ItemCount int             `json:"item_count"`
	}
	a.decode(env, &cartView)
	assert.True(t, cartView.Total.Equal(decimal.NewFromInt(1125)), cartView.Total.String())
	assert.Equal(t, 3, cartView.ItemCount)

	code, env = a.do(http.MethodPost, "/api/v1/orders", shopper, shipping)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var placed struct {
		ID          uint            `json:"id"`
		OrderNumber string          `json:"order_number"`
		Status      string          `json:"status"`
		TotalAmount decimal.Decimal `json:"total_amount"`
		Items       []struct {
			ProductName string `json:"product_name"`
			VariantName string `json:"variant_name"`
			Quantity    int    `json:"quantity"`
		} `json:"items"`
	}
	a.decode(env, &placed)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, placed.OrderNumber)
	assert.Equal(t, "pending", placed.Status)
	assert.True(t, placed.TotalAmount.Equal(decimal.NewFromInt(1125)))
	require.Len(t, placed.Items, 1)
	assert.Equal(t, "Grade B", placed.Items[0].VariantName)

	code, env = a.do(http.MethodGet, "/api/v1/cart", shopper, nil)
	require.Equal(t, http.StatusOK, code)
	a.decode(env, &cartView)
	assert.Equal(t, 0, cartView.ItemCount)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/variants/%d", variantID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var variant struct {
		StockQuantity int `json:"stock_quantity"`
	}
	a.decode(env, &variant)
	assert.Equal(t, 7, variant.StockQuantity)

	orderPath := fmt.Sprintf("/api/v1/orders/%d", placed.ID)

	code, env = a.do(http.MethodGet, orderPath+"/track", shopper, nil)
	require.Equal(t, http.StatusOK, code)
	var tracking struct {
		Status  string `json:"status"`
		History []struct {
			Comment string `json:"comment"`
		} `json:"history"`
	}
	a.decode(env, &tracking)
	assert.Equal(t, "pending", tracking.Status)
	require.Len(t, tracking.History, 1)
	assert.Equal(t, "Order placed", tracking.History[0].Comment)

	statusPath := fmt.Sprintf("/api/v1/admin/orders/%d/status", placed.ID)

	code, env = a.do(http.MethodPut, statusPath, admin, gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	code, env = a.do(http.MethodPut, statusPath, admin, gin.H{"status": "confirmed", "comment": "Payment received"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(http.MethodGet, "/api/v1/orders", shopper, nil)
	require.Equal(t, http.StatusOK, code)
	var orders []struct {
		Status string `json:"status"`
	}
	a.decode(env, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "confirmed", orders[0].Status)

	code, env = a.do(http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var dashboard struct {
		TotalOrders  int64           `json:"total_orders"`
		TotalRevenue decimal.Decimal `json:"total_revenue"`
	}
	a.decode(env, &dashboard)
	assert.EqualValues(t, 1, dashboard.TotalOrders)
	assert.True(t, dashboard.TotalRevenue.Equal(decimal.NewFromInt(1125)))

	code, env = a.do(http.MethodPut, "/api/v1/customer", shopper, gin.H{"city": "Pune", "phone": "+91 98765 43210"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var profile struct {
		City  string `json:"city"`
		Phone string `json:"phone"`
	}
	a.decode(env, &profile)
	assert.Equal(t, "Pune", profile.City)
	assert.Equal(t, "+91 98765 43210", profile.Phone)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	a, users := newAPI(t)
	admin := a.adminToken(users)
	shopper := a.register("buyer@example.com")
	productID, variantID := a.seedCatalog(admin, 10)

	code, env := a.do(http.MethodPost, "/api/v1/orders", shopper, shipping)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EMPTY_CART", env.Code)

	code, _ = a.do(http.MethodPost, "/api/v1/cart/add", shopper, gin.H{
		"product_id": productID,
		"variant_id": variantID,
		"quantity":   20,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodPost, "/api/v1/orders", shopper, shipping)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)
	assert.Equal(t, "not enough stock for Portland Cement 50kg (Grade B), available: 10", env.Error)

	code, env = a.do(http.MethodGet, "/api/v1/cart", shopper, nil)
	require.Equal(t, http.StatusOK, code)
	var cartView struct {
		ItemCount int `json:"item_count"`
	}
	a.decode(env, &cartView)
	assert.Equal(t, 20, cartView.ItemCount)
}

func TestAccessControl(t *testing.T) {
	a, users := newAPI(t)
	admin := a.adminToken(users)
	shopper := a.register("buyer@example.com")
	other := a.register("neighbour@example.com")
	productID, variantID := a.seedCatalog(admin, 10)

	code, env := a.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	code, env = a.do(http.MethodGet, "/api/v1/admin/dashboard", shopper, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	code, _ = a.do(http.MethodPost, "/api/v1/cart/add", shopper, gin.H{"product_id": productID, "variant_id": variantID})
	require.Equal(t, http.StatusOK, code)
	code, env = a.do(http.MethodPost, "/api/v1/orders", shopper, shipping)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var placed idOnly
	a.decode(env, &placed)

	for _, suffix := range []string{"", "/track", "/invoice"} {
		code, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d%s", placed.ID, suffix), other, nil)
		assert.Equal(t, http.StatusNotFound, code, suffix)
		assert.Equal(t, "NOT_FOUND", env.Code, suffix)
	}

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", placed.ID), admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequestValidation(t *testing.T) {
	a, users := newAPI(t)
	admin := a.adminToken(users)
	shopper := a.register("buyer@example.com")
	a.seedCatalog(admin, 10)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
		code   string
	}{
		{"by-category needs an id", http.MethodGet, "/api/v1/products/by-category", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"non-numeric id", http.MethodGet, "/api/v1/products/abc", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing product", http.MethodGet, "/api/v1/products/999", "", nil, http.StatusNotFound, "NOT_FOUND"},
		{"missing shipping field", http.MethodPost, "/api/v1/orders", shopper, gin.H{"address": "14 MG Road"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative quantity", http.MethodPost, "/api/v1/cart/add", shopper, gin.H{"product_id": 1, "quantity": -1}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown cart line", http.MethodPost, "/api/v1/cart/remove", shopper, gin.H{"item_id": 42}, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate category", http.MethodPost, "/api/v1/admin/categories", admin, gin.H{"name": "Cement"}, http.StatusConflict, "ALREADY_EXISTS"},
		{"duplicate email", http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email": "buyer@example.com", "password": strongPassword, "confirm_password": strongPassword, "first_name": "Asha",
		}, http.StatusConflict, "ALREADY_EXISTS"},
		{"bad credentials", http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "buyer@example.com", "password": "Wrong#Pass9"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown route", http.MethodGet, "/api/v1/nowhere", "", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := a.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, code, env.Error)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}
