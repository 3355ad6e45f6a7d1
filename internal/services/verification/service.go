// Package verification implements the identity-verification orchestration
// core: it opens KYC sessions with the provider, tracks them across
// reloads, and reconciles asynchronous status updates from polling and
// webhooks into the per-user verification record.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	domainerrors "arvo/internal/errors"
	"arvo/internal/models"
	"arvo/internal/providers"
	"arvo/internal/providers/sumsub"
	"arvo/internal/repositories"

	"github.com/google/uuid"
)

// sessionKeyPrefix is the fixed key namespace for persisted sessions; one
// in-flight session exists per user.
const sessionKeyPrefix = "verification:session:"

// externalIDPrefix namespaces ids synthesized for users who start
// verification before registering.
const externalIDPrefix = "arvo-"

// userExternalIDPrefix is how authenticated users are encoded into the
// provider-facing external id, and how webhooks are mapped back.
const userExternalIDPrefix = "user-"

type service struct {
	provider KYCProvider
	sessions repositories.SessionStore
	records  repositories.VerificationRepository
	actions  repositories.RequiredActionRepository
	webhooks repositories.WebhookEventRepository
	events   *Events
}

// NewService creates a new verification service.
func NewService(
	provider KYCProvider,
	sessions repositories.SessionStore,
	records repositories.VerificationRepository,
	actions repositories.RequiredActionRepository,
	webhooks repositories.WebhookEventRepository,
	events *Events,
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
	if events == nil {
		events = NewEvents()
	}
	return &service{
		provider: provider,
		sessions: sessions,
		records:  records,
		actions:  actions,
		webhooks: webhooks,
		events:   events,
	}
}

// ExternalIDForUser returns the provider-facing external id for an
// authenticated user.
func ExternalIDForUser(userID uint) string {
	return userExternalIDPrefix + strconv.FormatUint(uint64(userID), 10)
}

func sessionKey(userID uint) string {
	return sessionKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (s *service) StartSession(ctx context.Context, userID uint, candidateExternalID, levelName string) (*models.VerificationSession, error) {
	if userID == 0 {
		return nil, domainerrors.ErrMissingUserID
	}
	if levelName == "" {
		levelName = s.provider.DefaultLevel()
	}

	// Resolve the external user id: a previously persisted session wins,
	// then the caller-provided id, then a fresh namespaced random id.
	session, _ := s.Session(ctx, userID)
	externalID := candidateExternalID
	if session != nil && session.ExternalUserID != "" {
		externalID = session.ExternalUserID
	}
	if externalID == "" {
		externalID = externalIDPrefix + uuid.NewString()
	}

	// Applicant creation is idempotent from our side: the client swallows
	// the provider's "already exists" rejection, which is expected on
	// retried onboarding attempts. All other errors propagate.
	applicant, err := s.provider.CreateApplicant(ctx, externalID, levelName)
	if err != nil {
		return nil, err
	}

	token, err := s.provider.CreateAccessToken(ctx, externalID, levelName)
	if err != nil {
		return nil, err
	}

	newSession := &models.VerificationSession{
		ExternalUserID: externalID,
		AccessToken:    token.Token,
		CreatedAt:      time.Now().UTC(),
	}
	if applicant != nil {
		newSession.ApplicantID = applicant.ID
	} else if session != nil {
		// Applicant already existed; keep the id we saw before.
		newSession.ApplicantID = session.ApplicantID
	}

	if err := s.persistSession(ctx, userID, newSession); err != nil {
		return nil, err
	}
	return newSession, nil
}

func (s *service) RefreshAccessToken(ctx context.Context, userID uint) (string, error) {
	session, err := s.Session(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := s.provider.CreateAccessToken(ctx, session.ExternalUserID, s.provider.DefaultLevel())
	if err != nil {
		return "", err
	}

	session.AccessToken = token.Token
	if err := s.persistSession(ctx, userID, session); err != nil {
		return "", err
	}
	return token.Token, nil
}

func (s *service) CheckStatus(ctx context.Context, userID uint, applicantID string) (Outcome, error) {
	// The applicant id comes from the caller; the outcome is applied to the
	// caller's own record, so the id must belong to the caller's session.
	session, err := s.Session(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}
	if session.ApplicantID == "" || session.ApplicantID != applicantID {
		return Outcome{}, domainerrors.ErrApplicantMismatch
	}

	payload, err := s.provider.GetApplicantStatus(ctx, applicantID)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Normalize(payload, SourcePoll)
	if err := s.apply(ctx, userID, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ProcessWebhook stores the raw event for audit, normalizes it and applies
// the outcome. It is called after the webhook has already been
// acknowledged, so every failure is logged rather than returned: a retry
// storm from the provider is worse than a locally logged gap.
func (s *service) ProcessWebhook(ctx context.Context, payload []byte) {
	var event sumsub.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("verification webhook: undecodable payload: %v", err)
		return
	}

	var raw models.JSON
	if err := json.Unmarshal(payload, &raw); err != nil {
		raw = models.JSON{"raw": string(payload)}
	}
	stored := &models.WebhookEvent{
		Provider:    "sumsub",
		EventType:   event.Type,
		ApplicantID: event.ApplicantID,
		Payload:     raw,
	}
	if s.webhooks != nil {
		if err := s.webhooks.Create(ctx, stored); err != nil {
			log.Printf("verification webhook: failed to store event: %v", err)
		}
	}

	if !s.processEvent(ctx, event, payload) {
		return
	}

	if s.webhooks != nil && stored.ID != 0 {
		if err := s.webhooks.MarkProcessed(ctx, stored.ID); err != nil {
			log.Printf("verification webhook: failed to mark event processed: %v", err)
		}
	}
}

// processEvent reconciles one decoded event and reports whether it was
// fully applied to a user record. Events that cannot apply yet (anonymous
// external ids have no user row) stay unprocessed for replay.
func (s *service) processEvent(ctx context.Context, event sumsub.WebhookEvent, payload []byte) bool {
	outcome := normalizeWebhook(event, payload)

	userID, ok := resolveUserID(event.ExternalUserID)
	if !ok {
		log.Printf("verification webhook: no user for external id %q", event.ExternalUserID)
		return false
	}

	if err := s.apply(ctx, userID, outcome); err != nil {
		log.Printf("verification webhook: apply failed for user %d: %v", userID, err)
		return false
	}
	return true
}

// ReplayUnprocessed re-runs reconciliation for stored events that never
// applied, picking up webhooks that arrived before their user registered
// or that failed transiently.
func (s *service) ReplayUnprocessed(ctx context.Context, limit int) {
	if s.webhooks == nil {
		return
	}

	events, err := s.webhooks.ListUnprocessed(ctx, limit)
	if err != nil {
		log.Printf("verification replay: failed to list events: %v", err)
		return
	}

	for _, stored := range events {
		if stored.Provider != "sumsub" {
			continue
		}
		payload, err := json.Marshal(map[string]interface{}(stored.Payload))
		if err != nil {
			continue
		}
		var event sumsub.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if s.processEvent(ctx, event, payload) {
			if err := s.webhooks.MarkProcessed(ctx, stored.ID); err != nil {
				log.Printf("verification replay: failed to mark event %d processed: %v", stored.ID, err)
			}
		}
	}
}

func (s *service) Record(ctx context.Context, userID uint) (*models.VerificationRecord, error) {
	if repositories.CacheService != nil {
		if record, err := repositories.CacheService.GetVerificationRecord(ctx, userID); err == nil {
			return record, nil
		}
	}

	record, err := s.records.GetByUserID(ctx, userID)
	if err != nil {
		if err == repositories.ErrVerificationRecordNotFound {
			return nil, domainerrors.ErrRecordNotFound
		}
		return nil, err
	}

	if repositories.CacheService != nil {
		if err := repositories.CacheService.CacheVerificationRecord(ctx, record); err != nil {
			log.Printf("failed to cache verification record: %v", err)
		}
	}
	return record, nil
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

// apply writes a normalized outcome to the verification record exactly
// once. Only completed mutates the record; pending and failed never touch
// an existing row, so a late pending observation cannot regress a granted
// verification.
func (s *service) apply(ctx context.Context, userID uint, outcome Outcome) error {
	if outcome.State != StateCompleted {
		return nil
	}

	if err := s.records.MarkKYCVerified(ctx, userID); err != nil {
		return err
	}
	if repositories.CacheService != nil {
		if err := repositories.CacheService.InvalidateVerificationRecord(ctx, userID); err != nil {
			log.Printf("failed to invalidate verification record cache: %v", err)
		}
	}
	if s.actions != nil {
		if err := s.actions.Resolve(ctx, userID, models.ActionCompleteKYC); err != nil {
			log.Printf("failed to resolve required action: %v", err)
		}
	}
	// Verification completed; the in-flight session is done.
	if err := s.sessions.Remove(ctx, sessionKey(userID)); err != nil {
		log.Printf("failed to clear verification session: %v", err)
	}

	s.events.publish(CompletionEvent{UserID: userID, Source: outcome.Source})
	return nil
}

func (s *service) persistSession(ctx context.Context, userID uint, session *models.VerificationSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.sessions.Set(ctx, sessionKey(userID), string(data))
}

// normalizeWebhook prefers the provider's canonical approval signal: an
// applicantReviewed event with a GREEN review answer is completed no
// matter what the generic status fields say.
func normalizeWebhook(event sumsub.WebhookEvent, payload []byte) Outcome {
	if event.Type == "applicantReviewed" && event.ReviewResult != nil &&
		event.ReviewResult.ReviewAnswer == "GREEN" {
		return Outcome{
			State:     StateCompleted,
			RawStatus: "GREEN",
			Source:    SourceWebhook,
		}
	}
	return Normalize(payload, SourceWebhook)
}

// resolveUserID maps a provider external id back to an application user.
func resolveUserID(externalID string) (uint, bool) {
	if !strings.HasPrefix(externalID, userExternalIDPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(externalID, userExternalIDPrefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// IsNotConfigured reports whether err is the missing-credentials error, so
// handlers can distinguish config failures from provider failures.
func IsNotConfigured(err error) bool {
	return err == providers.ErrNotConfigured
}
