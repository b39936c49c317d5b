// internal/domain/customer/service.go
package customer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Up to 15 characters including the leading +, matching the phone column.
var phoneRegex = regexp.MustCompile(`^(\+[0-9 \-]{6,14}|[0-9 \-]{6,15})$`)

// Service handles customer profile business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new customer service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// UpdateRequest carries the profile fields to change; nil fields are left as they are
type UpdateRequest struct {
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
}

// GetOrCreate returns the account's profile, creating an empty one on first use
func (s *Service) GetOrCreate(ctx context.Context, userID uint) (*Customer, error) {
	return getOrCreate(s.db.WithContext(ctx), userID)
}

// Update applies a partial update to the account's profile
func (s *Service) Update(ctx context.Context, userID uint, req *UpdateRequest) (*Customer, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	var profile *Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, err = getOrCreate(tx, userID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Phone != nil {
			updates["phone"] = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			updates["address"] = strings.TrimSpace(*req.Address)
		}
		if req.City != nil {
			updates["city"] = strings.TrimSpace(*req.City)
		}
		if req.State != nil {
			updates["state"] = strings.TrimSpace(*req.State)
		}
		if req.PostalCode != nil {
			updates["postal_code"] = strings.TrimSpace(*req.PostalCode)
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&Customer{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return tx.First(profile, profile.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", userID).Debug("Customer profile updated")
	return profile, nil
}

func getOrCreate(tx *gorm.DB, userID uint) (*Customer, error) {
	if userID == 0 {
		return nil, apperror.ErrUnauthorized
	}

	profile := Customer{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	var existing Customer
	if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve customer: %w", err)
	}
	return &existing, nil
}

func validateUpdate(req *UpdateRequest) error {
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && !phoneRegex.MatchString(phone) {
			return apperror.InvalidInput("invalid phone number")
		}
	}
	if req.PostalCode != nil && len(strings.TrimSpace(*req.PostalCode)) > 10 {
		return apperror.InvalidInput("postal_code is too long")
	}
	return nil
}
