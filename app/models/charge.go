package models

import "time"

const (
	ChargeStatusSucceeded = "succeeded"
	ChargeStatusFailed    = "failed"
	ChargeStatusRefunded  = "refunded"
)

// Failure codes carried by failed charges for user messaging.
const (
	FailureCodeFraudBlocked      = "fraud_blocked"
	FailureCodeCardDeclined      = "card_declined"
	FailureCodeInsufficientFunds = "insufficient_funds"
	FailureCodeExpiredCard       = "expired_card"
	FailureCodeProcessingError   = "processing_error"
	FailureCodeStepUpFailed      = "step_up_failed"
)

// Charge records one authorization attempt outcome. Amount is immutable once
// written; only the refund fields change afterwards and AmountRefunded never
// exceeds Amount.
type Charge struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	MerchantID      uint       `gorm:"not null;index" json:"merchant_id"`
	SubscriptionID  *uint      `gorm:"index;default:null" json:"subscription_id,omitempty"`
	Token           string     `gorm:"type:varchar(64);not null" json:"token"`
	Fingerprint     string     `gorm:"type:varchar(64);not null;index:idx_charges_fp_created,priority:1" json:"fingerprint"`
	Amount          int64      `gorm:"not null" json:"amount" validate:"required,gt=0"`
	AmountRefunded  int64      `gorm:"not null;default:0" json:"amount_refunded"`
	Currency        string     `gorm:"type:varchar(3);not null;default:'eur'" json:"currency" validate:"required,len=3"`
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`
	FailureCode     string     `gorm:"type:varchar(40);default:''" json:"failure_code,omitempty"`
	AuthCode        string     `gorm:"type:varchar(12);default:''" json:"auth_code,omitempty"`
	FraudScore      int        `gorm:"not null;default:0" json:"fraud_score"`
	FraudFlags      string     `gorm:"type:varchar(255);default:''" json:"fraud_flags,omitempty"`
	RequiredStepUp  bool       `gorm:"default:false" json:"required_step_up"`
	CustomerEmail   string     `gorm:"type:varchar(200);default:''" json:"customer_email,omitempty" validate:"omitempty,email"`
	Description     string     `gorm:"type:varchar(255);default:''" json:"description,omitempty"`
	LastRefundedAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_refunded_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index:idx_charges_fp_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Refundable returns how much of the charge can still be refunded.
func (c *Charge) Refundable() int64 {
	if c.Status != ChargeStatusSucceeded && c.Status != ChargeStatusRefunded {
		return 0
	}
	return c.Amount - c.AmountRefunded
}
