package repository

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// chargeRepository implements the ChargeRepository interface
type chargeRepository struct {
	db *gorm.DB
}

// NewChargeRepository creates a new charge repository instance
func NewChargeRepository(db *gorm.DB) ChargeRepository {
	return &chargeRepository{db: db}
}

func (r *chargeRepository) Create(charge *models.Charge) error {
	return r.db.Create(charge).Error
}

func (r *chargeRepository) GetByID(id uint) (*models.Charge, error) {
	var charge models.Charge
	err := r.db.First(&charge, id).Error
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *chargeRepository) Update(charge *models.Charge) error {
	return r.db.Save(charge).Error
}

func (r *chargeRepository) ListByMerchant(merchantID uint, offset, limit int) ([]models.Charge, error) {
	var charges []models.Charge
	err := r.db.Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&charges).Error
	return charges, err
}

// CountByFingerprintSince counts all charge attempts on a fingerprint within
// the trailing window (velocity rule).
func (r *chargeRepository) CountByFingerprintSince(fingerprint string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Charge{}).
		Where("fingerprint = ? AND created_at >= ?", fingerprint, since).
		Count(&count).Error
	return count, err
}

// CountSmallByFingerprintSince counts low-value attempts on a fingerprint
// within the trailing window (card-testing rule).
func (r *chargeRepository) CountSmallByFingerprintSince(fingerprint string, maxAmount int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Charge{}).
		Where("fingerprint = ? AND amount < ? AND created_at >= ?", fingerprint, maxAmount, since).
		Count(&count).Error
	return count, err
}

// CountFailedByFingerprintSince counts failed attempts on a fingerprint
// within the trailing window (repeated-failure rule).
func (r *chargeRepository) CountFailedByFingerprintSince(fingerprint string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Charge{}).
		Where("fingerprint = ? AND status = ? AND created_at >= ?", fingerprint, models.ChargeStatusFailed, since).
		Count(&count).Error
	return count, err
}

// CountSucceededByFingerprint counts all successful charges ever seen for a
// fingerprint (new-card rule).
func (r *chargeRepository) CountSucceededByFingerprint(fingerprint string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Charge{}).
		Where("fingerprint = ? AND status IN ?", fingerprint, []string{models.ChargeStatusSucceeded, models.ChargeStatusRefunded}).
		Count(&count).Error
	return count, err
}
