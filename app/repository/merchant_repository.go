package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// merchantRepository implements the MerchantRepository interface
type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new merchant repository instance
func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Create(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

func (r *merchantRepository) GetByID(id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.First(&merchant, id).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) GetByEmail(email string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.Where("email = ?", email).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) Update(merchant *models.Merchant) error {
	return r.db.Save(merchant).Error
}

func (r *merchantRepository) List(offset, limit int) ([]models.Merchant, error) {
	var merchants []models.Merchant
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&merchants).Error
	return merchants, err
}

func (r *merchantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Merchant{}).Count(&count).Error
	return count, err
}
