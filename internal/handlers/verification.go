package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	domainerrors "arvo/internal/errors"
	"arvo/internal/models"
	"arvo/internal/services/verification"
	"arvo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// webhookProcessTimeout bounds the async reconciliation that runs after
// the webhook has been acknowledged.
const webhookProcessTimeout = 30 * time.Second

type VerificationHandler struct {
	service verification.Service
}

func NewVerificationHandler(s verification.Service) *VerificationHandler {
	return &VerificationHandler{service: s}
}

// StartSession opens (or resumes) a KYC verification session and returns
// the short-lived WebSDK token the client completes the flow with.
func (h *VerificationHandler) StartSession(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		LevelName string `json:"level_name"`
	}
	// Body is optional; an empty level falls back to the configured default.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.BadRequest(c, "invalid request body")
		}
	}

	if claims.UserID == 0 {
		return utils.BadRequest(c, "user id is required")
	}

	session, err := h.service.StartSession(
		c.Context(),
		claims.UserID,
		verification.ExternalIDForUser(claims.UserID),
		input.LevelName,
	)
	if err != nil {
		return providerFailure(c, "failed to start verification", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   session.AccessToken,
		"user_id": session.ExternalUserID,
	})
}

// RefreshToken re-issues the session's short-lived token after expiry.
func (h *VerificationHandler) RefreshToken(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	token, err := h.service.RefreshAccessToken(c.Context(), claims.UserID)
	if err != nil {
		return providerFailure(c, "failed to refresh verification token", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// GetStatus polls the provider for the applicant's status, applies the
// normalized outcome and returns it.
func (h *VerificationHandler) GetStatus(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	applicantID := c.Params("applicantId")
	if applicantID == "" {
		return utils.BadRequest(c, "applicant id is required")
	}

	outcome, err := h.service.CheckStatus(c.Context(), claims.UserID, applicantID)
	if err != nil {
		return providerFailure(c, "failed to fetch verification status", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"status":  outcome,
	})
}

// GetRecord returns the caller's verification record.
func (h *VerificationHandler) GetRecord(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	record, err := h.service.Record(c.Context(), claims.UserID)
	if err != nil {
		// No row yet simply means nothing has been verified.
		record = &models.VerificationRecord{UserID: claims.UserID}
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"kyc_verified":   record.KYCVerified,
		"bank_linked":    record.BankLinked,
		"bank_in_review": record.BankInReview,
	})
}

// Webhook acknowledges the provider immediately and reconciles the event
// asynchronously. The provider retries on anything but a prompt 2xx, and a
// retry storm is worse than a locally logged processing failure.
func (h *VerificationHandler) Webhook(c *fiber.Ctx) error {
	payload := make([]byte, len(c.Body()))
	copy(payload, c.Body())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
		defer cancel()
		h.service.ProcessWebhook(ctx, payload)
	}()

	return c.JSON(fiber.Map{"received": true})
}

// providerFailure maps the verification error taxonomy onto the uniform
// error envelope. Domain errors are client mistakes and come back as 400s
// with their stable code; provider and configuration failures are 500s and
// the raw provider response goes to the logs, never to the client.
func providerFailure(c *fiber.Ctx, message string, err error) error {
	var de *domainerrors.DomainError
	if errors.As(err, &de) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"code": de.Code, "message": de.Message},
		})
	}

	log.Printf("%s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"message": message},
	})
}
