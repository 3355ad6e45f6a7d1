package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainerrors "arvo/internal/errors"
	"arvo/internal/models"
	"arvo/internal/providers"
	"arvo/internal/services/verification"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerificationService struct {
	session    *models.VerificationSession
	sessionErr error
	token      string
	tokenErr   error
	outcome    verification.Outcome
	outcomeErr error
	record     *models.VerificationRecord
	recordErr  error

	webhookPayloads chan []byte
}

func (f *fakeVerificationService) StartSession(ctx context.Context, userID uint, candidateExternalID, levelName string) (*models.VerificationSession, error) {
	return f.session, f.sessionErr
}

func (f *fakeVerificationService) RefreshAccessToken(ctx context.Context, userID uint) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeVerificationService) CheckStatus(ctx context.Context, userID uint, applicantID string) (verification.Outcome, error) {
	return f.outcome, f.outcomeErr
}

func (f *fakeVerificationService) ProcessWebhook(ctx context.Context, payload []byte) {
	if f.webhookPayloads != nil {
		f.webhookPayloads <- payload
	}
}

func (f *fakeVerificationService) ReplayUnprocessed(ctx context.Context, limit int) {}

func (f *fakeVerificationService) Record(ctx context.Context, userID uint) (*models.VerificationRecord, error) {
	return f.record, f.recordErr
}

func (f *fakeVerificationService) Session(ctx context.Context, userID uint) (*models.VerificationSession, error) {
	return f.session, f.sessionErr
}

// withClaims stands in for the auth middleware.
func withClaims(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("claims", &models.UserClaims{UserID: userID, Role: "user"})
		return c.Next()
	}
}

func TestStartSessionHandler(t *testing.T) {
	t.Run("returns token and external id", func(t *testing.T) {
		svc := &fakeVerificationService{
			session: &models.VerificationSession{
				ExternalUserID: "user-42",
				AccessToken:    "abc",
			},
		}
		app := fiber.New()
		app.Post("/verification/start", withClaims(42), NewVerificationHandler(svc).StartSession)

		req := httptest.NewRequest("POST", "/verification/start", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "abc", body["token"])
		assert.Equal(t, "user-42", body["user_id"])
	})

	t.Run("provider failure yields the uniform 500 envelope", func(t *testing.T) {
		svc := &fakeVerificationService{
			sessionErr: &providers.Error{Provider: "sumsub", StatusCode: 502, Body: "upstream down"},
		}
		app := fiber.New()
		app.Post("/verification/start", withClaims(42), NewVerificationHandler(svc).StartSession)

		resp, err := app.Test(httptest.NewRequest("POST", "/verification/start", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		var body struct {
			Success bool `json:"success"`
			Error   struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.False(t, body.Success)
		assert.NotEmpty(t, body.Error.Message)
		// The raw provider response never reaches the client.
		assert.NotContains(t, string(raw), "upstream down")
	})

	t.Run("domain errors come back as 400 with their code", func(t *testing.T) {
		svc := &fakeVerificationService{tokenErr: domainerrors.ErrSessionNotFound}
		app := fiber.New()
		app.Post("/verification/refresh-token", withClaims(42), NewVerificationHandler(svc).RefreshToken)

		resp, err := app.Test(httptest.NewRequest("POST", "/verification/refresh-token", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(raw), "SESSION_NOT_FOUND")
	})
}

func TestWebhookHandler(t *testing.T) {
	svc := &fakeVerificationService{webhookPayloads: make(chan []byte, 1)}
	app := fiber.New()
	app.Post("/verification/webhook", NewVerificationHandler(svc).Webhook)

	payload := `{"type":"applicantReviewed","externalUserId":"user-42"}`
	req := httptest.NewRequest("POST", "/verification/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["received"])

	// Processing happens after the acknowledgment, with the payload intact.
	select {
	case got := <-svc.webhookPayloads:
		assert.JSONEq(t, payload, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("webhook payload was never processed")
	}
}

func TestGetRecordHandler(t *testing.T) {
	t.Run("no record yet reads as all-false", func(t *testing.T) {
		svc := &fakeVerificationService{recordErr: domainerrors.ErrRecordNotFound}
		app := fiber.New()
		app.Get("/verification/me", withClaims(42), NewVerificationHandler(svc).GetRecord)

		resp, err := app.Test(httptest.NewRequest("GET", "/verification/me", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, false, body["kyc_verified"])
		assert.Equal(t, false, body["bank_linked"])
	})

	t.Run("verified record", func(t *testing.T) {
		svc := &fakeVerificationService{
			record: &models.VerificationRecord{UserID: 42, KYCVerified: true, BankLinked: true},
		}
		app := fiber.New()
		app.Get("/verification/me", withClaims(42), NewVerificationHandler(svc).GetRecord)

		resp, err := app.Test(httptest.NewRequest("GET", "/verification/me", nil))
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["kyc_verified"])
		assert.Equal(t, true, body["bank_linked"])
	})
}
