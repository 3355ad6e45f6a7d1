package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arvo/internal/models"
	"arvo/internal/services/verification"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBankingService struct {
	session    *models.VerificationSession
	sessionErr error
	outcome    verification.Outcome
	outcomeErr error

	webhookPayloads chan []byte
}

func (f *fakeBankingService) StartLink(ctx context.Context, userID uint) (*models.VerificationSession, error) {
	return f.session, f.sessionErr
}

func (f *fakeBankingService) CheckStatus(ctx context.Context, userID uint, collectionID string) (verification.Outcome, error) {
	return f.outcome, f.outcomeErr
}

func (f *fakeBankingService) ProcessWebhook(ctx context.Context, payload []byte) {
	if f.webhookPayloads != nil {
		f.webhookPayloads <- payload
	}
}

func (f *fakeBankingService) ReplayUnprocessed(ctx context.Context, limit int) {}

func (f *fakeBankingService) Session(ctx context.Context, userID uint) (*models.VerificationSession, error) {
	return f.session, f.sessionErr
}

func TestStartLinkHandler(t *testing.T) {
	svc := &fakeBankingService{
		session: &models.VerificationSession{
			ExternalUserID: "user-42",
			ApplicantID:    "col-1",
			HostedURL:      "https://truid.test/flow/col-1",
		},
	}
	app := fiber.New()
	app.Post("/banking/start", withClaims(42), NewBankingHandler(svc).StartLink)

	resp, err := app.Test(httptest.NewRequest("POST", "/banking/start", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://truid.test/flow/col-1", body["websdk_url"])
	assert.Equal(t, "col-1", body["collection_id"])
}

func TestBankingWebhookHandler(t *testing.T) {
	svc := &fakeBankingService{webhookPayloads: make(chan []byte, 1)}
	app := fiber.New()
	app.Post("/banking/webhook", NewBankingHandler(svc).Webhook)

	payload := `{"type":"collection.updated","collectionId":"col-1","state":"COMPLETED"}`
	req := httptest.NewRequest("POST", "/banking/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["received"])

	select {
	case got := <-svc.webhookPayloads:
		assert.JSONEq(t, payload, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("webhook payload was never processed")
	}
}
