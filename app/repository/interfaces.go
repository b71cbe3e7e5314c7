package repository

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// MerchantRepository defines the interface for merchant-related database operations
type MerchantRepository interface {
	Create(merchant *models.Merchant) error
	GetByID(id uint) (*models.Merchant, error)
	GetByEmail(email string) (*models.Merchant, error)
	Update(merchant *models.Merchant) error
	List(offset, limit int) ([]models.Merchant, error)
	Count() (int64, error)
}

// PaymentMethodRepository defines the interface for payment-method database operations
type PaymentMethodRepository interface {
	Create(pm *models.PaymentMethod) error
	GetByID(id uint) (*models.PaymentMethod, error)
	GetByToken(token string) (*models.PaymentMethod, error)
	Delete(id uint) error
}

// ChargeRepository defines the interface for charge persistence and the
// time-windowed history queries the fraud engine runs. History goes through
// the store so every instance shares the same view.
type ChargeRepository interface {
	Create(charge *models.Charge) error
	GetByID(id uint) (*models.Charge, error)
	Update(charge *models.Charge) error
	ListByMerchant(merchantID uint, offset, limit int) ([]models.Charge, error)

	CountByFingerprintSince(fingerprint string, since time.Time) (int64, error)
	CountSmallByFingerprintSince(fingerprint string, maxAmount int64, since time.Time) (int64, error)
	CountFailedByFingerprintSince(fingerprint string, since time.Time) (int64, error)
	CountSucceededByFingerprint(fingerprint string) (int64, error)
}

// SubscriptionRepository defines the interface for subscription database operations
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	Update(sub *models.Subscription) error
	ListDue(now time.Time) ([]models.Subscription, error)
	ListByMerchant(merchantID uint) ([]models.Subscription, error)
}

// WebhookEndpointRepository defines the interface for endpoint database operations
type WebhookEndpointRepository interface {
	Create(endpoint *models.WebhookEndpoint) error
	GetByID(id uint) (*models.WebhookEndpoint, error)
	Update(endpoint *models.WebhookEndpoint) error
	ListActiveByMerchant(merchantID uint) ([]models.WebhookEndpoint, error)
	// RecordFailure increments the consecutive-failure counter and disables
	// the endpoint once it reaches models.EndpointDisableThreshold.
	RecordFailure(id uint, at time.Time) error
	// RecordSuccess resets the consecutive-failure counter.
	RecordSuccess(id uint) error
}

// WebhookEventRepository defines the interface for queued-event database operations
type WebhookEventRepository interface {
	Create(event *models.WebhookEvent) error
	GetByID(id uint) (*models.WebhookEvent, error)
	GetByPublicID(publicID string) (*models.WebhookEvent, error)
	Update(event *models.WebhookEvent) error
	// ListDueRetries returns events in retrying state whose next_retry_at has
	// passed. Order among due events is unspecified.
	ListDueRetries(now time.Time, limit int) ([]models.WebhookEvent, error)
}

// WebhookDeliveryRepository defines the interface for the append-only delivery audit trail
type WebhookDeliveryRepository interface {
	Create(delivery *models.WebhookDelivery) error
	ListByEvent(eventID uint) ([]models.WebhookDelivery, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Merchant        MerchantRepository
	PaymentMethod   PaymentMethodRepository
	Charge          ChargeRepository
	Subscription    SubscriptionRepository
	WebhookEndpoint WebhookEndpointRepository
	WebhookEvent    WebhookEventRepository
	WebhookDelivery WebhookDeliveryRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Merchant:        NewMerchantRepository(db),
		PaymentMethod:   NewPaymentMethodRepository(db),
		Charge:          NewChargeRepository(db),
		Subscription:    NewSubscriptionRepository(db),
		WebhookEndpoint: NewWebhookEndpointRepository(db),
		WebhookEvent:    NewWebhookEventRepository(db),
		WebhookDelivery: NewWebhookDeliveryRepository(db),
	}
}
