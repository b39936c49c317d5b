// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOrderNumberAttempts = 5

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// CheckoutRequest carries the shipping address for a new order
type CheckoutRequest struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

// ListFilter represents admin order list parameters
type ListFilter struct {
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	Page      int         `form:"page"`
	Limit     int         `form:"limit"`
	SortBy    string      `form:"sort_by"`
	SortOrder string      `form:"sort_order"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status         OrderStatus `json:"status" binding:"required"`
	TrackingNumber string      `json:"tracking_number"`
	Comment        string      `json:"comment"`
}

// OrderListResponse represents a page of orders
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// TrackingInfo is the shopper's view of where an order is
type TrackingInfo struct {
	OrderNumber    string               `json:"order_number"`
	Status         OrderStatus          `json:"status"`
	TrackingNumber string               `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time           `json:"delivered_at,omitempty"`
	History        []OrderStatusHistory `json:"history"`
}

// Checkout turns the account's cart into an order. Stock is checked for
// every line, the order and its items are written with the current prices,
// variant stock is decremented and the cart is emptied, all in one
// transaction: either everything happens or nothing does.
func (s *Service) Checkout(ctx context.Context, userID uint, req *CheckoutRequest) (*Order, error) {
	shipping, err := normalizeShipping(req)
	if err != nil {
		return nil, err
	}

	var order Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := cart.Lock(tx, userID)
		if err != nil {
			return err
		}

		items, err := cart.LoadItems(tx, c.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperror.ErrEmptyCart
		}

		// Validate the whole batch before writing anything
		for i := range items {
			item := &items[i]
			if item.Product == nil {
				return apperror.NotFound("product")
			}
			if !item.Product.IsActive {
				return apperror.NotFound("product " + item.Product.Name)
			}
			available, err := product.AvailableStock(tx, item.ProductID, item.VariantID)
			if err != nil {
				return err
			}
			if item.Quantity > available {
				return apperror.InsufficientStock(item.DisplayName(), available)
			}
		}

		total, _ := cart.Totals(items)

		orderNumber, err := s.generateUniqueOrderNumber(tx)
		if err != nil {
			return err
		}

		order = Order{
			OrderNumber: orderNumber,
			UserID:      userID,
			Status:      OrderStatusPending,
			TotalAmount: total,
			Shipping:    shipping,
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			orderItem := snapshotItem(order.ID, &items[i])
			if err := tx.Omit(clause.Associations).Create(&orderItem).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		for _, item := range decrementOrder(items) {
			ok, err := product.DecrementVariantStock(tx, *item.VariantID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// Another checkout took the stock after validation
				available, err := product.AvailableStock(tx, item.ProductID, item.VariantID)
				if err != nil {
					return err
				}
				return apperror.InsufficientStock(item.DisplayName(), available)
			}
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusPending,
			Comment:   "Order placed",
			CreatedBy: userID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		return cart.ClearItems(tx, c.ID)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrInsufficientStock) {
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"reason":  err.Error(),
			}).Warn("Checkout rejected")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.TotalAmount.StringFixed(2),
	}).Info("Order placed")

	return s.GetOrder(ctx, userID, order.ID)
}

// ListOrders returns the account's orders, newest first
func (s *Service) ListOrders(ctx context.Context, userID uint) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// GetOrder retrieves one of the account's orders
func (s *Service) GetOrder(ctx context.Context, userID, id uint) (*Order, error) {
	return s.findOrder(s.db.WithContext(ctx).Where("user_id = ?", userID), id)
}

// AdminGetOrder retrieves any order
func (s *Service) AdminGetOrder(ctx context.Context, id uint) (*Order, error) {
	return s.findOrder(s.db.WithContext(ctx), id)
}

// Track returns status, tracking number and history of one of the account's orders
func (s *Service) Track(ctx context.Context, userID, id uint) (*TrackingInfo, error) {
	order, err := s.GetOrder(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return &TrackingInfo{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
		History:        order.StatusHistory,
	}, nil
}

// AdminListOrders retrieves orders with filtering and pagination
func (s *Service) AdminListOrders(ctx context.Context, filter *ListFilter) (*OrderListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.InvalidInput("unknown order status %q", filter.Status)
	}

	query := s.db.WithContext(ctx).Model(&Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (filter.Page - 1) * filter.Limit
	err := query.Preload("Items").
		Order(buildOrderClause(filter.SortBy, filter.SortOrder)).
		Offset(offset).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    filter.Page < totalPages,
			HasPrev:    filter.Page > 1,
		},
	}, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling does not
// return stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, req *UpdateStatusRequest, updatedBy uint) (*Order, error) {
	if !req.Status.IsValid() {
		return nil, apperror.InvalidInput("unknown order status %q", req.Status)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("order")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		if !CanTransition(order.Status, req.Status) {
			return apperror.InvalidTransition(string(order.Status), string(req.Status))
		}

		updates := map[string]interface{}{
			"status":     req.Status,
			"updated_at": time.Now(),
		}

		now := time.Now().UTC()
		switch req.Status {
		case OrderStatusShipped:
			updates["shipped_at"] = now
		case OrderStatusDelivered:
			updates["delivered_at"] = now
		case OrderStatusCancelled:
			updates["cancelled_at"] = now
		}
		if tracking := strings.TrimSpace(req.TrackingNumber); tracking != "" {
			updates["tracking_number"] = tracking
		}

		// The status guard rejects a change made concurrently by someone else
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperror.InvalidTransition(string(order.Status), string(req.Status))
		}

		comment := req.Comment
		if comment == "" {
			comment = fmt.Sprintf("Status changed from %s to %s", order.Status, req.Status)
		}
		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    req.Status,
			Comment:   comment,
			CreatedBy: updatedBy,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"status":     req.Status,
		"updated_by": updatedBy,
	}).Info("Order status updated")

	return s.AdminGetOrder(ctx, orderID)
}

// Private helper methods

func (s *Service) findOrder(query *gorm.DB, id uint) (*Order, error) {
	var order Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// generateUniqueOrderNumber probes for collisions inside tx; the unique
// index on order_number still guards the insert.
func (s *Service) generateUniqueOrderNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		candidate := GenerateOrderNumber(s.config.Store.OrderNumberPrefix)

		var count int64
		if err := tx.Model(&Order{}).Where("order_number = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique order number after %d attempts", maxOrderNumberAttempts)
}

// decrementOrder returns the lines that hold a variant, sorted by variant id.
// Every checkout takes the variant row locks in the same order, so two
// checkouts over the same variants cannot deadlock.
func decrementOrder(items []cart.CartItem) []*cart.CartItem {
	lines := make([]*cart.CartItem, 0, len(items))
	for i := range items {
		if items[i].VariantID != nil {
			lines = append(lines, &items[i])
		}
	}
	sort.Slice(lines, func(a, b int) bool {
		return *lines[a].VariantID < *lines[b].VariantID
	})
	return lines
}

func snapshotItem(orderID uint, item *cart.CartItem) OrderItem {
	orderItem := OrderItem{
		OrderID:         orderID,
		ProductID:       item.ProductID,
		VariantID:       item.VariantID,
		ProductName:     item.Product.Name,
		Quantity:        item.Quantity,
		PriceAtPurchase: item.Product.BasePrice,
	}
	if item.Variant != nil {
		orderItem.VariantName = item.Variant.Name
		orderItem.VariantPriceAtPurchase = decimal.NewNullDecimal(item.Variant.AdditionalPrice)
	}
	return orderItem
}

func normalizeShipping(req *CheckoutRequest) (ShippingAddress, error) {
	shipping := ShippingAddress{
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
	}

	var missing []string
	if shipping.Address == "" {
		missing = append(missing, "address")
	}
	if shipping.City == "" {
		missing = append(missing, "city")
	}
	if shipping.State == "" {
		missing = append(missing, "state")
	}
	if shipping.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if len(missing) > 0 {
		return shipping, apperror.InvalidInput("missing shipping fields: %s", strings.Join(missing, ", "))
	}
	if len(shipping.PostalCode) > 10 {
		return shipping, apperror.InvalidInput("postal_code is too long")
	}

	return shipping, nil
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
