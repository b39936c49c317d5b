// internal/domain/customer/entity.go
package customer

import "time"

// Customer is the shopper profile of an account, one per account
type Customer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Phone      string    `gorm:"size:15" json:"phone"`
	Address    string    `gorm:"type:text" json:"address"`
	City       string    `gorm:"size:100" json:"city"`
	State      string    `gorm:"size:100" json:"state"`
	PostalCode string    `gorm:"size:10" json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Customer) TableName() string {
	return "customers"
}

// IsComplete reports whether the profile holds a full shipping address
func (c *Customer) IsComplete() bool {
	return c.Address != "" && c.City != "" && c.State != "" && c.PostalCode != ""
}
