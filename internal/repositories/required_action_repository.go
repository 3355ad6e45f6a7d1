package repositories

import (
	"context"
	"time"

	"arvo/internal/models"

	"gorm.io/gorm"
)

// RequiredActionRepository tracks outstanding onboarding steps per user.
type RequiredActionRepository interface {
	ListPending(ctx context.Context, userID uint) ([]*models.RequiredAction, error)
	Ensure(ctx context.Context, userID uint, action string) error
	Resolve(ctx context.Context, userID uint, action string) error
}

type requiredActionRepository struct {
	db *gorm.DB
}

// NewRequiredActionRepository creates a new instance of RequiredActionRepository
func NewRequiredActionRepository(db *gorm.DB) RequiredActionRepository {
	return &requiredActionRepository{db: db}
}

func (r *requiredActionRepository) ListPending(ctx context.Context, userID uint) ([]*models.RequiredAction, error) {
	var actions []*models.RequiredAction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Order("created_at asc").Find(&actions).Error
	return actions, err
}

// Ensure creates the pending action unless one (pending or completed)
// already exists, so repeated onboarding attempts don't duplicate rows.
func (r *requiredActionRepository) Ensure(ctx context.Context, userID uint, action string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RequiredAction{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.RequiredAction{
		UserID: userID,
		Action: action,
	}).Error
}

func (r *requiredActionRepository) Resolve(ctx context.Context, userID uint, action string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.RequiredAction{}).
		Where("user_id = ? AND action = ? AND completed = ?", userID, action, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": &now,
		}).Error
}
