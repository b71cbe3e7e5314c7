package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MerchantStatusActive   = "active"
	MerchantStatusDisabled = "disabled"
)

// Merchant is the pre-authenticated identity the payment core trusts. The
// session/auth layer upstream resolves requests to a merchant ID; nothing in
// this repository authenticates merchants itself.
type Merchant struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Email       string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Status      string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status" validate:"oneof=active disabled"`
	CountryCode string         `gorm:"type:varchar(2);default:''" json:"country_code" validate:"omitempty,len=2"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsActive reports whether the merchant may create charges.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
