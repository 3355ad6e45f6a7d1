package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationRecord is the per-user verification outcome row. It is the
// multi-writer resource shared by the poll and webhook paths; all writes go
// through an atomic upsert and the boolean flags only ever move to true
// (verification, once granted, is never revoked by a later observation).
type VerificationRecord struct {
	gorm.Model
	UserID       uint `gorm:"uniqueIndex;not null"`
	KYCVerified  bool `gorm:"default:false"`
	BankLinked   bool `gorm:"default:false"`
	BankInReview bool `gorm:"default:false"`
}

// VerificationSession is the in-flight session state persisted in the
// session store so verification can resume across app reloads. At most one
// exists per user and flow.
type VerificationSession struct {
	ExternalUserID string    `json:"external_user_id"`
	ApplicantID    string    `json:"applicant_id,omitempty"`
	AccessToken    string    `json:"access_token,omitempty"`
	HostedURL      string    `json:"hosted_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
