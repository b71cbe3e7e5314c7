package models

import (
	"strings"
	"time"
)

// EndpointDisableThreshold is the consecutive-failure count at which an
// endpoint is automatically deactivated. Re-enabling is a manual action.
const EndpointDisableThreshold = 5

// WebhookEndpoint is a registered HTTP target for a merchant's events.
type WebhookEndpoint struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	MerchantID    uint       `gorm:"not null;index:idx_webhook_endpoints_merchant_active,priority:1" json:"merchant_id"`
	URL           string     `gorm:"type:varchar(500);not null" json:"url" validate:"required,url,max=500"`
	Secret        string     `gorm:"type:varchar(100);not null" json:"-"`
	EventTypes    string     `gorm:"type:varchar(500);not null;default:''" json:"event_types"`
	IsActive      bool       `gorm:"not null;default:true;index:idx_webhook_endpoints_merchant_active,priority:2" json:"is_active"`
	FailureCount  int        `gorm:"not null;default:0" json:"failure_count"`
	LastFailureAt *time.Time `gorm:"type:timestamp;default:null" json:"last_failure_at,omitempty"`
	TotalSent     int64      `gorm:"not null;default:0" json:"total_sent"`
	TotalFailed   int64      `gorm:"not null;default:0" json:"total_failed"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscribesTo reports whether the endpoint wants the given event type. An
// empty EventTypes list means "all events".
func (e *WebhookEndpoint) SubscribesTo(eventType string) bool {
	if strings.TrimSpace(e.EventTypes) == "" {
		return true
	}
	for _, t := range strings.Split(e.EventTypes, ",") {
		if strings.TrimSpace(t) == eventType {
			return true
		}
	}
	return false
}
