package verification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	domainerrors "arvo/internal/errors"
	"arvo/internal/models"
	"arvo/internal/providers/sumsub"
	"arvo/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	level string

	applicant      *sumsub.Applicant
	applicantErr   error
	applicantCalls []string
	tokenValue     string
	tokenErr       error
	tokenCalls     []string
	statusPayload  string
	statusErr      error
	statusCalls    []string
}

func (f *fakeProvider) Configured() bool { return true }
func (f *fakeProvider) DefaultLevel() string {
	if f.level == "" {
		return "basic-kyc-level"
	}
	return f.level
}

func (f *fakeProvider) CreateApplicant(ctx context.Context, externalUserID, levelName string) (*sumsub.Applicant, error) {
	f.applicantCalls = append(f.applicantCalls, externalUserID+"|"+levelName)
	return f.applicant, f.applicantErr
}

func (f *fakeProvider) CreateAccessToken(ctx context.Context, externalUserID, levelName string) (*sumsub.AccessToken, error) {
	f.tokenCalls = append(f.tokenCalls, externalUserID+"|"+levelName)
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &sumsub.AccessToken{Token: f.tokenValue, UserID: externalUserID}, nil
}

func (f *fakeProvider) GetApplicantStatus(ctx context.Context, applicantID string) (json.RawMessage, error) {
	f.statusCalls = append(f.statusCalls, applicantID)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return json.RawMessage(f.statusPayload), nil
}

type fakeRecords struct {
	records map[uint]*models.VerificationRecord
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[uint]*models.VerificationRecord)}
}

func (f *fakeRecords) get(userID uint) *models.VerificationRecord {
	rec, ok := f.records[userID]
	if !ok {
		rec = &models.VerificationRecord{UserID: userID}
		f.records[userID] = rec
	}
	return rec
}

func (f *fakeRecords) GetByUserID(ctx context.Context, userID uint) (*models.VerificationRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return nil, repositories.ErrVerificationRecordNotFound
	}
	return rec, nil
}

func (f *fakeRecords) MarkKYCVerified(ctx context.Context, userID uint) error {
	f.get(userID).KYCVerified = true
	return nil
}

func (f *fakeRecords) MarkBankLinked(ctx context.Context, userID uint) error {
	rec := f.get(userID)
	rec.BankLinked = true
	rec.BankInReview = false
	return nil
}

func (f *fakeRecords) MarkBankInReview(ctx context.Context, userID uint) error {
	rec := f.get(userID)
	if !rec.BankLinked {
		rec.BankInReview = true
	}
	return nil
}

type fakeActions struct {
	resolved []string
}

func (f *fakeActions) ListPending(ctx context.Context, userID uint) ([]*models.RequiredAction, error) {
	return nil, nil
}
func (f *fakeActions) Ensure(ctx context.Context, userID uint, action string) error { return nil }
func (f *fakeActions) Resolve(ctx context.Context, userID uint, action string) error {
	f.resolved = append(f.resolved, action)
	return nil
}

type fakeWebhooks struct {
	created   []*models.WebhookEvent
	processed []uint
	nextID    uint
}

func (f *fakeWebhooks) Create(ctx context.Context, event *models.WebhookEvent) error {
	f.nextID++
	event.ID = f.nextID
	f.created = append(f.created, event)
	return nil
}

func (f *fakeWebhooks) MarkProcessed(ctx context.Context, id uint) error {
	f.processed = append(f.processed, id)
	for _, ev := range f.created {
		if ev.ID == id {
			ev.Processed = true
		}
	}
	return nil
}

func (f *fakeWebhooks) ListUnprocessed(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	var out []*models.WebhookEvent
	for _, ev := range f.created {
		if !ev.Processed {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fixture struct {
	provider *fakeProvider
	sessions repositories.SessionStore
	records  *fakeRecords
	actions  *fakeActions
	webhooks *fakeWebhooks
	svc      Service
	events   *Events
}

func newFixture(provider *fakeProvider) *fixture {
	f := &fixture{
		provider: provider,
		sessions: repositories.NewMemorySessionStore(),
		records:  newFakeRecords(),
		actions:  &fakeActions{},
		webhooks: &fakeWebhooks{},
		events:   NewEvents(),
	}
	f.svc = NewService(provider, f.sessions, f.records, f.actions, f.webhooks, f.events)
	return f
}

func TestExternalIDForUser(t *testing.T) {
	assert.Equal(t, "user-42", ExternalIDForUser(42))

	id, ok := resolveUserID("user-42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "arvo-abc", "user-", "user-notanumber", "42"} {
		_, ok := resolveUserID(bad)
		assert.False(t, ok, bad)
	}
}

func TestStartSession(t *testing.T) {
	t.Run("authenticated user with candidate id", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:  &sumsub.Applicant{ID: "app-1", ExternalUserID: "user-42"},
			tokenValue: "abc",
		})

		session, err := f.svc.StartSession(context.Background(), 42, "user-42", "basic-kyc-level")
		require.NoError(t, err)
		assert.Equal(t, "user-42", session.ExternalUserID)
		assert.Equal(t, "app-1", session.ApplicantID)
		assert.Equal(t, "abc", session.AccessToken)
		assert.Equal(t, []string{"user-42|basic-kyc-level"}, f.provider.applicantCalls)

		// The session survives a reload through the store.
		got, err := f.svc.Session(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, session.ExternalUserID, got.ExternalUserID)
		assert.Equal(t, session.ApplicantID, got.ApplicantID)
	})

	t.Run("anonymous start synthesizes a namespaced id", func(t *testing.T) {
		f := newFixture(&fakeProvider{tokenValue: "tok"})

		session, err := f.svc.StartSession(context.Background(), 7, "", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(session.ExternalUserID, "arvo-"))
		assert.Greater(t, len(session.ExternalUserID), len("arvo-"))
	})

	t.Run("persisted session id wins over candidate", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:  &sumsub.Applicant{ID: "app-1"},
			tokenValue: "first",
		})

		_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
		require.NoError(t, err)

		// Second start with a different candidate and an applicant that
		// already exists upstream (nil applicant from the client).
		f.provider.applicant = nil
		f.provider.tokenValue = "second"

		session, err := f.svc.StartSession(context.Background(), 42, "some-other-id", "")
		require.NoError(t, err)
		assert.Equal(t, "user-42", session.ExternalUserID)
		assert.Equal(t, "app-1", session.ApplicantID, "applicant id carried over from the prior session")
		assert.Equal(t, "second", session.AccessToken)
	})

	t.Run("zero user id is rejected", func(t *testing.T) {
		f := newFixture(&fakeProvider{tokenValue: "tok"})

		_, err := f.svc.StartSession(context.Background(), 0, "", "")
		assert.ErrorIs(t, err, domainerrors.ErrMissingUserID)
		assert.Empty(t, f.provider.applicantCalls)
	})

	t.Run("empty level falls back to provider default", func(t *testing.T) {
		f := newFixture(&fakeProvider{level: "custom-level", tokenValue: "tok"})

		_, err := f.svc.StartSession(context.Background(), 1, "user-1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"user-1|custom-level"}, f.provider.applicantCalls)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	f := newFixture(&fakeProvider{tokenValue: "first"})

	_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
	require.NoError(t, err)

	f.provider.tokenValue = "second"
	token, err := f.svc.RefreshAccessToken(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	// The persisted session carries the superseding token.
	session, err := f.svc.Session(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "second", session.AccessToken)
}

func TestRefreshAccessTokenWithoutSession(t *testing.T) {
	f := newFixture(&fakeProvider{tokenValue: "tok"})

	_, err := f.svc.RefreshAccessToken(context.Background(), 99)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
	assert.Empty(t, f.provider.tokenCalls)
}

func TestCheckStatus(t *testing.T) {
	t.Run("completed marks the record and clears the session", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:     &sumsub.Applicant{ID: "app-1"},
			tokenValue:    "tok",
			statusPayload: `{"status":{"code":"COMPLETED"}}`,
		})
		events := f.events.Subscribe()

		_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
		require.NoError(t, err)

		outcome, err := f.svc.CheckStatus(context.Background(), 42, "app-1")
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, outcome.State)
		assert.Equal(t, "COMPLETED", outcome.RawStatus)

		record, err := f.svc.Record(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, record.KYCVerified)
		assert.Equal(t, []string{models.ActionCompleteKYC}, f.actions.resolved)

		_, err = f.svc.Session(context.Background(), 42)
		assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

		ev := <-events
		assert.Equal(t, uint(42), ev.UserID)
		assert.Equal(t, SourcePoll, ev.Source)
	})

	t.Run("pending leaves the record untouched", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:     &sumsub.Applicant{ID: "app-1"},
			tokenValue:    "tok",
			statusPayload: `{"status":{"code":"SUBMITTED"}}`,
		})

		_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
		require.NoError(t, err)

		outcome, err := f.svc.CheckStatus(context.Background(), 42, "app-1")
		require.NoError(t, err)
		assert.Equal(t, StatePending, outcome.State)

		_, err = f.svc.Record(context.Background(), 42)
		assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
	})

	t.Run("late rejection never clears an earlier verification", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:     &sumsub.Applicant{ID: "app-1"},
			tokenValue:    "tok",
			statusPayload: `{"status":{"code":"COMPLETED"}}`,
		})

		_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
		require.NoError(t, err)

		_, err = f.svc.CheckStatus(context.Background(), 42, "app-1")
		require.NoError(t, err)

		// A stale rejection arrives over the webhook channel afterwards.
		f.svc.ProcessWebhook(context.Background(), []byte(`{
			"type": "applicantStatusChanged",
			"applicantId": "app-1",
			"externalUserId": "user-42",
			"status": {"code": "REJECTED"}
		}`))

		record, err := f.svc.Record(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, record.KYCVerified)
	})

	t.Run("polling without a session is rejected", func(t *testing.T) {
		f := newFixture(&fakeProvider{statusPayload: `{"status":{"code":"COMPLETED"}}`})

		_, err := f.svc.CheckStatus(context.Background(), 99, "app-1")
		assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
		assert.Empty(t, f.provider.statusCalls)
	})

	t.Run("polling another user's applicant grants nothing", func(t *testing.T) {
		f := newFixture(&fakeProvider{
			applicant:     &sumsub.Applicant{ID: "app-1"},
			tokenValue:    "tok",
			statusPayload: `{"status":{"code":"COMPLETED"}}`,
		})

		// User 42 owns applicant app-1; user 99 opens a session of their own.
		_, err := f.svc.StartSession(context.Background(), 42, "user-42", "")
		require.NoError(t, err)
		f.provider.applicant = &sumsub.Applicant{ID: "app-2"}
		_, err = f.svc.StartSession(context.Background(), 99, "user-99", "")
		require.NoError(t, err)

		_, err = f.svc.CheckStatus(context.Background(), 99, "app-1")
		assert.ErrorIs(t, err, domainerrors.ErrApplicantMismatch)
		assert.Empty(t, f.provider.statusCalls)

		_, err = f.svc.Record(context.Background(), 99)
		assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
	})
}

func TestProcessWebhook(t *testing.T) {
	t.Run("green review completes regardless of status fields", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		payload := []byte(`{
			"type": "applicantReviewed",
			"applicantId": "app-1",
			"externalUserId": "user-42",
			"reviewStatus": "pending",
			"reviewResult": {"reviewAnswer": "GREEN"}
		}`)
		f.svc.ProcessWebhook(context.Background(), payload)

		record, err := f.svc.Record(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, record.KYCVerified)

		require.Len(t, f.webhooks.created, 1)
		assert.Equal(t, "sumsub", f.webhooks.created[0].Provider)
		assert.Equal(t, "applicantReviewed", f.webhooks.created[0].EventType)
		assert.Equal(t, []uint{f.webhooks.created[0].ID}, f.webhooks.processed)
	})

	t.Run("red review does not verify", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		f.svc.ProcessWebhook(context.Background(), []byte(`{
			"type": "applicantReviewed",
			"externalUserId": "user-42",
			"reviewResult": {"reviewAnswer": "RED", "rejectLabels": ["FORGERY"]}
		}`))

		_, err := f.svc.Record(context.Background(), 42)
		assert.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
	})

	t.Run("anonymous external id stays stored and unprocessed", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		f.svc.ProcessWebhook(context.Background(), []byte(`{
			"type": "applicantReviewed",
			"externalUserId": "arvo-0b9e1f",
			"reviewResult": {"reviewAnswer": "GREEN"}
		}`))

		require.Len(t, f.webhooks.created, 1)
		assert.Empty(t, f.webhooks.processed)
		assert.Empty(t, f.records.records)
	})

	t.Run("undecodable payload is dropped", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		f.svc.ProcessWebhook(context.Background(), []byte(`not json`))

		assert.Empty(t, f.webhooks.created)
		assert.Empty(t, f.records.records)
	})
}

func TestReplayUnprocessed(t *testing.T) {
	t.Run("event stored before registration applies on replay", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		// The webhook arrived while the external id had no user yet, so the
		// event was stored but never applied.
		require.NoError(t, f.webhooks.Create(context.Background(), &models.WebhookEvent{
			Provider:    "sumsub",
			EventType:   "applicantReviewed",
			ApplicantID: "app-1",
			Payload: models.JSON{
				"type":           "applicantReviewed",
				"applicantId":    "app-1",
				"externalUserId": "user-42",
				"reviewResult":   map[string]interface{}{"reviewAnswer": "GREEN"},
			},
		}))

		f.svc.ReplayUnprocessed(context.Background(), 10)

		record, err := f.svc.Record(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, record.KYCVerified)
		assert.Equal(t, []uint{1}, f.webhooks.processed)
	})

	t.Run("anonymous events stay unprocessed across sweeps", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		f.svc.ProcessWebhook(context.Background(), []byte(`{
			"type": "applicantReviewed",
			"externalUserId": "arvo-0b9e1f",
			"reviewResult": {"reviewAnswer": "GREEN"}
		}`))
		f.svc.ReplayUnprocessed(context.Background(), 10)

		assert.Empty(t, f.webhooks.processed)
		remaining, err := f.webhooks.ListUnprocessed(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("other providers' events are left alone", func(t *testing.T) {
		f := newFixture(&fakeProvider{})

		require.NoError(t, f.webhooks.Create(context.Background(), &models.WebhookEvent{
			Provider: "truid",
			Payload:  models.JSON{"externalUserId": "user-42", "state": "COMPLETED"},
		}))

		f.svc.ReplayUnprocessed(context.Background(), 10)
		assert.Empty(t, f.webhooks.processed)
	})
}

func TestNewServicePanicsOnNilDeps(t *testing.T) {
	sessions := repositories.NewMemorySessionStore()
	records := newFakeRecords()

	assert.Panics(t, func() { NewService(nil, sessions, records, nil, nil, nil) })
	assert.Panics(t, func() { NewService(&fakeProvider{}, nil, records, nil, nil, nil) })
	assert.Panics(t, func() { NewService(&fakeProvider{}, sessions, nil, nil, nil, nil) })
	assert.NotPanics(t, func() { NewService(&fakeProvider{}, sessions, records, nil, nil, nil) })
}
