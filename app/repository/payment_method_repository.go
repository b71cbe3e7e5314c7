package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// paymentMethodRepository implements the PaymentMethodRepository interface
type paymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository creates a new payment method repository instance
func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

func (r *paymentMethodRepository) Create(pm *models.PaymentMethod) error {
	return r.db.Create(pm).Error
}

func (r *paymentMethodRepository) GetByID(id uint) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := r.db.First(&pm, id).Error
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *paymentMethodRepository) GetByToken(token string) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := r.db.Where("token = ?", token).First(&pm).Error
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *paymentMethodRepository) Delete(id uint) error {
	return r.db.Delete(&models.PaymentMethod{}, id).Error
}
