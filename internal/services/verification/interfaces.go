package verification

import (
	"context"
	"encoding/json"

	"arvo/internal/models"
	"arvo/internal/providers/sumsub"
)

// KYCProvider is the slice of the Sumsub client the service depends on.
// Defined here so tests can substitute a fake without network access.
type KYCProvider interface {
	Configured() bool
	DefaultLevel() string
	CreateApplicant(ctx context.Context, externalUserID, levelName string) (*sumsub.Applicant, error)
	CreateAccessToken(ctx context.Context, externalUserID, levelName string) (*sumsub.AccessToken, error)
	GetApplicantStatus(ctx context.Context, applicantID string) (json.RawMessage, error)
}

// Service orchestrates the identity-verification flow: session creation,
// caller-driven status polling and webhook reconciliation.
type Service interface {
	// StartSession resolves the external user id, registers the applicant
	// with the provider, obtains a fresh access token and persists the
	// session so it survives app reloads.
	StartSession(ctx context.Context, userID uint, candidateExternalID, levelName string) (*models.VerificationSession, error)

	// RefreshAccessToken re-issues the short-lived token for the persisted
	// session. Each call supersedes the previous token.
	RefreshAccessToken(ctx context.Context, userID uint) (string, error)

	// CheckStatus polls the provider, normalizes the payload and applies
	// the outcome to the user's verification record.
	CheckStatus(ctx context.Context, userID uint, applicantID string) (Outcome, error)

	// ProcessWebhook reconciles an inbound provider event. It never
	// returns an error to the webhook acknowledgment path; failures are
	// logged and the stored event stays unprocessed for replay.
	ProcessWebhook(ctx context.Context, payload []byte)

	// ReplayUnprocessed re-applies stored webhook events that never
	// completed processing, up to limit events per sweep.
	ReplayUnprocessed(ctx context.Context, limit int)

	// Record returns the user's current verification record.
	Record(ctx context.Context, userID uint) (*models.VerificationRecord, error)

	// Session returns the persisted in-flight session, if any.
	Session(ctx context.Context, userID uint) (*models.VerificationSession, error)
}
