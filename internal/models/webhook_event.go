package models

import "gorm.io/gorm"

// WebhookEvent is a raw inbound provider event, persisted before async
// processing so failed reconciliations can be replayed and diagnosed.
type WebhookEvent struct {
	gorm.Model
	Provider    string `gorm:"index;not null"`
	EventType   string
	ApplicantID string `gorm:"index"`
	Payload     JSON   `gorm:"type:jsonb"`
	Processed   bool   `gorm:"default:false"`
}
