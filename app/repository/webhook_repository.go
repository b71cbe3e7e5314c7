package repository

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEndpointRepository implements the WebhookEndpointRepository interface
type webhookEndpointRepository struct {
	db *gorm.DB
}

// NewWebhookEndpointRepository creates a new webhook endpoint repository instance
func NewWebhookEndpointRepository(db *gorm.DB) WebhookEndpointRepository {
	return &webhookEndpointRepository{db: db}
}

func (r *webhookEndpointRepository) Create(endpoint *models.WebhookEndpoint) error {
	return r.db.Create(endpoint).Error
}

func (r *webhookEndpointRepository) GetByID(id uint) (*models.WebhookEndpoint, error) {
	var endpoint models.WebhookEndpoint
	err := r.db.First(&endpoint, id).Error
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *webhookEndpointRepository) Update(endpoint *models.WebhookEndpoint) error {
	return r.db.Save(endpoint).Error
}

func (r *webhookEndpointRepository) ListActiveByMerchant(merchantID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("merchant_id = ? AND is_active = ?", merchantID, true).Find(&endpoints).Error
	return endpoints, err
}

// RecordFailure increments the consecutive-failure counter and flips
// is_active once the threshold is reached. Runs in a transaction so two
// concurrent deliveries cannot lose an increment.
func (r *webhookEndpointRepository) RecordFailure(id uint, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var endpoint models.WebhookEndpoint
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&endpoint, id).Error; err != nil {
			return err
		}
		endpoint.FailureCount++
		endpoint.LastFailureAt = &at
		if endpoint.FailureCount >= models.EndpointDisableThreshold {
			endpoint.IsActive = false
		}
		return tx.Save(&endpoint).Error
	})
}

// RecordSuccess resets the consecutive-failure counter after a delivered attempt.
func (r *webhookEndpointRepository) RecordSuccess(id uint) error {
	return r.db.Model(&models.WebhookEndpoint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"failure_count": 0}).Error
}

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

func (r *webhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) GetByPublicID(publicID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("public_id = ?", publicID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) Update(event *models.WebhookEvent) error {
	return r.db.Save(event).Error
}

func (r *webhookEventRepository) ListDueRetries(now time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.WebhookEventStatusRetrying, now).
		Limit(limit).
		Find(&events).Error
	return events, err
}

// webhookDeliveryRepository implements the WebhookDeliveryRepository interface
type webhookDeliveryRepository struct {
	db *gorm.DB
}

// NewWebhookDeliveryRepository creates a new webhook delivery repository instance
func NewWebhookDeliveryRepository(db *gorm.DB) WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

func (r *webhookDeliveryRepository) Create(delivery *models.WebhookDelivery) error {
	return r.db.Create(delivery).Error
}

func (r *webhookDeliveryRepository) ListByEvent(eventID uint) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	err := r.db.Where("webhook_event_id = ?", eventID).Order("created_at ASC").Find(&deliveries).Error
	return deliveries, err
}
