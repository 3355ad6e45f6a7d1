package repositories

import (
	"context"

	"arvo/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new instance of VerificationRepository
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) GetByUserID(ctx context.Context, userID uint) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrVerificationRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// MarkKYCVerified is a single INSERT ... ON CONFLICT DO UPDATE, so racing
// webhook and poll writers cannot interleave partial writes. It only ever
// sets the flag to true, which keeps the record monotonic.
func (r *verificationRepository) MarkKYCVerified(ctx context.Context, userID uint) error {
	record := models.VerificationRecord{UserID: userID, KYCVerified: true}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"kyc_verified": true,
		}),
	}).Create(&record).Error
}

func (r *verificationRepository) MarkBankLinked(ctx context.Context, userID uint) error {
	record := models.VerificationRecord{UserID: userID, BankLinked: true}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bank_linked":    true,
			"bank_in_review": false,
		}),
	}).Create(&record).Error
}

// MarkBankInReview leaves an already-linked bank untouched; "in review"
// never demotes a linked account.
func (r *verificationRepository) MarkBankInReview(ctx context.Context, userID uint) error {
	record := models.VerificationRecord{UserID: userID, BankInReview: true}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bank_in_review": gorm.Expr("NOT verification_records.bank_linked"),
		}),
	}).Create(&record).Error
}
