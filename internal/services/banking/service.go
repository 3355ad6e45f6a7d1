// Package banking implements the bank-account verification flow against
// TruID. It mirrors the KYC session manager but hands out a hosted URL
// instead of an SDK token, and writes the bank_linked / bank_in_review
// flags on the verification record.
package banking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	domainerrors "arvo/internal/errors"
	"arvo/internal/models"
	"arvo/internal/providers/truid"
	"arvo/internal/repositories"
	"arvo/internal/services/verification"
)

const sessionKeyPrefix = "banking:session:"

// Statuses that mean the user has handed over documents and the provider
// is still reviewing them. They set bank_in_review so the UI can advance
// optimistically without claiming the bank is linked.
var inReviewStatuses = map[string]bool{
	"SUBMITTED":          true,
	"IN_REVIEW":          true,
	"PROCESSING":         true,
	"DOCUMENTS_RECEIVED": true,
}

// BankProvider is the slice of the TruID client the service depends on.
type BankProvider interface {
	Configured() bool
	CreateCollection(ctx context.Context, externalUserID string) (*truid.Collection, error)
	GetCollectionStatus(ctx context.Context, collectionID string) (json.RawMessage, error)
}

// Service orchestrates bank-account linking.
type Service interface {
	StartLink(ctx context.Context, userID uint) (*models.VerificationSession, error)
	CheckStatus(ctx context.Context, userID uint, collectionID string) (verification.Outcome, error)
	ProcessWebhook(ctx context.Context, payload []byte)
	ReplayUnprocessed(ctx context.Context, limit int)
	Session(ctx context.Context, userID uint) (*models.VerificationSession, error)
}

// bankEvent is the envelope TruID posts to the webhook endpoint.
type bankEvent struct {
	Type           string `json:"type"`
	CollectionID   string `json:"collectionId"`
	ExternalUserID string `json:"externalUserId"`
}

type service struct {
	provider BankProvider
	sessions repositories.SessionStore
	records  repositories.VerificationRepository
	actions  repositories.RequiredActionRepository
	webhooks repositories.WebhookEventRepository
}

// NewService creates a new banking verification service.
func NewService(
	provider BankProvider,
	sessions repositories.SessionStore,
	records repositories.VerificationRepository,
	actions repositories.RequiredActionRepository,
	webhooks repositories.WebhookEventRepository,
) Service {
	if provider == nil {
		panic("provider is required")
	}
	if sessions == nil {
		panic("session store is required")
	}
	if records == nil {
		panic("verification repository is required")
	}
	return &service{
		provider: provider,
		sessions: sessions,
		records:  records,
		actions:  actions,
		webhooks: webhooks,
	}
}

func sessionKey(userID uint) string {
	return sessionKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (s *service) StartLink(ctx context.Context, userID uint) (*models.VerificationSession, error) {
	if userID == 0 {
		return nil, domainerrors.ErrMissingUserID
	}
	externalID := verification.ExternalIDForUser(userID)

	col, err := s.provider.CreateCollection(ctx, externalID)
	if err != nil {
		return nil, err
	}

	session := &models.VerificationSession{
		ExternalUserID: externalID,
		ApplicantID:    col.ID,
		HostedURL:      col.HostedURL,
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, sessionKey(userID), string(data)); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) CheckStatus(ctx context.Context, userID uint, collectionID string) (verification.Outcome, error) {
	// The outcome lands on the caller's record, so the polled collection
	// must be the one the caller's session opened.
	session, err := s.Session(ctx, userID)
	if err != nil {
		return verification.Outcome{}, err
	}
	if session.ApplicantID == "" || session.ApplicantID != collectionID {
		return verification.Outcome{}, domainerrors.ErrApplicantMismatch
	}

	payload, err := s.provider.GetCollectionStatus(ctx, collectionID)
	if err != nil {
		return verification.Outcome{}, err
	}

	outcome := verification.Normalize(payload, verification.SourcePoll)
	if err := s.apply(ctx, userID, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ProcessWebhook runs after the 2xx acknowledgment; failures are logged,
// never surfaced to the provider.
func (s *service) ProcessWebhook(ctx context.Context, payload []byte) {
	var event bankEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("banking webhook: undecodable payload: %v", err)
		return
	}

	var stored *models.WebhookEvent
	if s.webhooks != nil {
		var raw models.JSON
		if err := json.Unmarshal(payload, &raw); err != nil {
			raw = models.JSON{"raw": string(payload)}
		}
		stored = &models.WebhookEvent{
			Provider:    "truid",
			EventType:   event.Type,
			ApplicantID: event.CollectionID,
			Payload:     raw,
		}
		if err := s.webhooks.Create(ctx, stored); err != nil {
			log.Printf("banking webhook: failed to store event: %v", err)
		}
	}

	if !s.processEvent(ctx, event, payload) {
		return
	}

	if stored != nil && stored.ID != 0 {
		if err := s.webhooks.MarkProcessed(ctx, stored.ID); err != nil {
			log.Printf("banking webhook: failed to mark event processed: %v", err)
		}
	}
}

// processEvent reconciles one decoded event and reports whether it was
// applied to a user record.
func (s *service) processEvent(ctx context.Context, event bankEvent, payload []byte) bool {
	userID, ok := userIDFromExternal(event.ExternalUserID)
	if !ok {
		log.Printf("banking webhook: no user for external id %q", event.ExternalUserID)
		return false
	}

	outcome := verification.Normalize(payload, verification.SourceWebhook)
	if err := s.apply(ctx, userID, outcome); err != nil {
		log.Printf("banking webhook: apply failed for user %d: %v", userID, err)
		return false
	}
	return true
}

// ReplayUnprocessed mirrors the KYC replay sweep for stored TruID events.
func (s *service) ReplayUnprocessed(ctx context.Context, limit int) {
	if s.webhooks == nil {
		return
	}

	events, err := s.webhooks.ListUnprocessed(ctx, limit)
	if err != nil {
		log.Printf("banking replay: failed to list events: %v", err)
		return
	}

	for _, stored := range events {
		if stored.Provider != "truid" {
			continue
		}
		payload, err := json.Marshal(map[string]interface{}(stored.Payload))
		if err != nil {
			continue
		}
		var event bankEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if s.processEvent(ctx, event, payload) {
			if err := s.webhooks.MarkProcessed(ctx, stored.ID); err != nil {
				log.Printf("banking replay: failed to mark event %d processed: %v", stored.ID, err)
			}
		}
	}
}

func (s *service) Session(ctx context.Context, userID uint) (*models.VerificationSession, error) {
	raw, err := s.sessions.Get(ctx, sessionKey(userID))
	if err != nil {
		if err == repositories.ErrSessionStoreMiss {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, err
	}
	var session models.VerificationSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &session, nil
}

// apply is monotonic the same way the KYC path is: completed links the
// bank, in-review statuses flag the record for review without ever
// demoting a linked account, and everything else is a no-op.
func (s *service) apply(ctx context.Context, userID uint, outcome verification.Outcome) error {
	switch {
	case outcome.State == verification.StateCompleted:
		if err := s.records.MarkBankLinked(ctx, userID); err != nil {
			return err
		}
		if s.actions != nil {
			if err := s.actions.Resolve(ctx, userID, models.ActionLinkBank); err != nil {
				log.Printf("failed to resolve required action: %v", err)
			}
		}
		if err := s.sessions.Remove(ctx, sessionKey(userID)); err != nil {
			log.Printf("failed to clear banking session: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.InvalidateVerificationRecord(ctx, userID); err != nil {
				log.Printf("failed to invalidate verification record cache: %v", err)
			}
		}
		return nil

	case inReviewStatuses[strings.ToUpper(outcome.RawStatus)]:
		if err := s.records.MarkBankInReview(ctx, userID); err != nil {
			return err
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.InvalidateVerificationRecord(ctx, userID); err != nil {
				log.Printf("failed to invalidate verification record cache: %v", err)
			}
		}
		return nil

	default:
		return nil
	}
}

func userIDFromExternal(externalID string) (uint, bool) {
	if !strings.HasPrefix(externalID, "user-") {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(externalID, "user-"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
