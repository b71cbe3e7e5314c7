package models

import "time"

// Card brands detected from BIN prefixes.
const (
	CardBrandVisa       = "visa"
	CardBrandMastercard = "mastercard"
	CardBrandAmex       = "amex"
	CardBrandDiscover   = "discover"
	CardBrandUnknown    = "unknown"
)

// PaymentMethod stores the tokenized form of a card. Raw card numbers are
// never persisted; the token is the only handle and the fingerprint is a
// one-way digest used for fraud history lookups.
type PaymentMethod struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MerchantID  uint      `gorm:"not null;index" json:"merchant_id"`
	Token       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`
	Brand       string    `gorm:"type:varchar(20);not null;default:'unknown'" json:"brand"`
	Last4       string    `gorm:"type:varchar(4);not null" json:"last4"`
	ExpMonth    int       `gorm:"not null" json:"exp_month"`
	ExpYear     int       `gorm:"not null" json:"exp_year"`
	Fingerprint string    `gorm:"type:varchar(64);not null;index" json:"fingerprint"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
