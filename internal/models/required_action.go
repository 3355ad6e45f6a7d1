package models

import (
	"time"

	"gorm.io/gorm"
)

// Required action types
const (
	ActionCompleteKYC = "complete_kyc"
	ActionLinkBank    = "link_bank"
)

// RequiredAction is an onboarding step the user still has to finish.
// The verification services resolve these when an outcome completes.
type RequiredAction struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Action      string `gorm:"not null"`
	Completed   bool   `gorm:"default:false"`
	CompletedAt *time.Time
}
