package repositories

import (
	"context"
	"errors"

	"arvo/internal/models"
)

var ErrVerificationRecordNotFound = errors.New("verification record not found")

// VerificationRepository defines database operations on per-user
// verification records. The poll and webhook paths both write through it,
// so every write must be a single atomic upsert.
type VerificationRepository interface {
	// GetByUserID retrieves the verification record for a user
	GetByUserID(ctx context.Context, userID uint) (*models.VerificationRecord, error)

	// MarkKYCVerified upserts the record setting kyc_verified = true.
	// The flag is monotonic: once true it stays true.
	MarkKYCVerified(ctx context.Context, userID uint) error

	// MarkBankLinked upserts the record setting bank_linked = true and
	// clearing bank_in_review.
	MarkBankLinked(ctx context.Context, userID uint) error

	// MarkBankInReview upserts the record setting bank_in_review = true
	// unless the bank is already linked.
	MarkBankInReview(ctx context.Context, userID uint) error
}
