package repositories

import (
	"context"

	"arvo/internal/models"

	"gorm.io/gorm"
)

// WebhookEventRepository persists raw inbound provider events for audit
// and replay. The webhook handler stores the event before processing so a
// failed reconciliation never loses the payload.
type WebhookEventRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
	MarkProcessed(ctx context.Context, id uint) error
	ListUnprocessed(ctx context.Context, limit int) ([]*models.WebhookEvent, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new instance of WebhookEventRepository
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Create(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", id).Update("processed", true).Error
}

func (r *webhookEventRepository) ListUnprocessed(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	var events []*models.WebhookEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).
		Order("created_at asc").Limit(limit).Find(&events).Error
	return events, err
}
