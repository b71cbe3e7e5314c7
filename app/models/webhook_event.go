package models

import "time"

const (
	WebhookEventStatusPending  = "pending"
	WebhookEventStatusRetrying = "retrying"
	WebhookEventStatusSent     = "sent"
	WebhookEventStatusFailed   = "failed"
)

// Domain event types emitted by the payment pipeline.
const (
	EventChargeSucceeded     = "charge.succeeded"
	EventChargeFailed        = "charge.failed"
	EventChargeRefunded      = "charge.refunded"
	EventSubscriptionRenewed = "subscription.renewed"
	EventSubscriptionPastDue = "subscription.past_due"
)

// WebhookEvent is one queued domain occurrence awaiting delivery to every
// subscribed endpoint. AttemptCount strictly increases; once Status reaches
// sent or failed it never changes again.
type WebhookEvent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PublicID     string     `gorm:"type:varchar(40);not null;uniqueIndex" json:"public_id"`
	MerchantID   uint       `gorm:"not null;index" json:"merchant_id"`
	EventType    string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON  string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_webhook_events_status_retry,priority:1" json:"status"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	NextRetryAt  *time.Time `gorm:"type:timestamp;default:null;index:idx_webhook_events_status_retry,priority:2" json:"next_retry_at,omitempty"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Terminal reports whether the event's delivery state can still change.
func (e *WebhookEvent) Terminal() bool {
	return e.Status == WebhookEventStatusSent || e.Status == WebhookEventStatusFailed
}
