package repository

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// ListDue returns active subscriptions whose next billing date has passed.
func (r *subscriptionRepository) ListDue(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND next_billing_date <= ?", models.SubscriptionStatusActive, now).
		Order("next_billing_date ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) ListByMerchant(merchantID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("merchant_id = ?", merchantID).Find(&subs).Error
	return subs, err
}
