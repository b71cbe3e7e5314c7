package models

import "time"

// WebhookDelivery is the append-only audit trail: one row per attempt to
// deliver one event to one endpoint, regardless of outcome. Fire-and-forget
// notifications record deliveries with a zero WebhookEventID.
type WebhookDelivery struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	WebhookEventID uint      `gorm:"index" json:"webhook_event_id"`
	EndpointID     uint      `gorm:"not null;index" json:"endpoint_id"`
	Attempt        int       `gorm:"not null;default:1" json:"attempt"`
	ResponseStatus int       `gorm:"not null;default:0" json:"response_status"`
	DurationMS     int64     `gorm:"not null;default:0" json:"duration_ms"`
	Success        bool      `gorm:"not null;default:false" json:"success"`
	ErrorText      string    `gorm:"type:text" json:"error_text,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
