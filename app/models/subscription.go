package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusCancelled = "cancelled"
)

// Billing intervals supported by the scheduler.
const (
	IntervalDay   = "day"
	IntervalWeek  = "week"
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Subscription drives recurring charges through the billing scheduler. The
// scheduler advances the period bounds each cycle; cancelled is terminal and
// FailureCount resets to zero on any successful cycle.
type Subscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	MerchantID         uint       `gorm:"not null;index" json:"merchant_id"`
	PaymentMethodID    uint       `gorm:"not null;index" json:"payment_method_id"`
	PlanName           string     `gorm:"type:varchar(100);not null" json:"plan_name" validate:"required,max=100"`
	Amount             int64      `gorm:"not null" json:"amount" validate:"required,gt=0"`
	Currency           string     `gorm:"type:varchar(3);not null;default:'eur'" json:"currency" validate:"required,len=3"`
	Interval           string     `gorm:"type:varchar(10);not null;default:'month'" json:"interval" validate:"oneof=day week month year"`
	IntervalCount      int        `gorm:"not null;default:1" json:"interval_count" validate:"gte=1"`
	Status             string     `gorm:"type:varchar(20);not null;default:'active';index:idx_subscriptions_status_next,priority:1" json:"status"`
	CurrentPeriodStart time.Time  `gorm:"type:timestamp;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"type:timestamp;not null" json:"current_period_end"`
	NextBillingDate    time.Time  `gorm:"type:timestamp;not null;index:idx_subscriptions_status_next,priority:2" json:"next_billing_date"`
	TrialStart         *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd           *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	FailureCount       int        `gorm:"not null;default:0" json:"failure_count"`
	LastFailureAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_failure_at,omitempty"`
	CancelledAt        *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Billable reports whether the scheduler should charge this subscription now.
func (s *Subscription) Billable(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.NextBillingDate.After(now)
}
