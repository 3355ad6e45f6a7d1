package handlers

import (
	"context"

	"arvo/internal/services/banking"
	"arvo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type BankingHandler struct {
	service banking.Service
}

func NewBankingHandler(s banking.Service) *BankingHandler {
	return &BankingHandler{service: s}
}

// StartLink opens a bank-verification collection and returns the hosted
// URL the client redirects (or iframes) the user to.
func (h *BankingHandler) StartLink(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	session, err := h.service.StartLink(c.Context(), claims.UserID)
	if err != nil {
		return providerFailure(c, "failed to start bank verification", err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"websdk_url":    session.HostedURL,
		"collection_id": session.ApplicantID,
	})
}

// GetStatus polls the provider for the collection's status and applies
// the normalized outcome.
func (h *BankingHandler) GetStatus(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	collectionID := c.Params("collectionId")
	if collectionID == "" {
		return utils.BadRequest(c, "collection id is required")
	}

	outcome, err := h.service.CheckStatus(c.Context(), claims.UserID, collectionID)
	if err != nil {
		return providerFailure(c, "failed to fetch bank verification status", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"status":  outcome,
	})
}

// Webhook mirrors the KYC webhook contract: acknowledge first, process
// after.
func (h *BankingHandler) Webhook(c *fiber.Ctx) error {
	payload := make([]byte, len(c.Body()))
	copy(payload, c.Body())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookProcessTimeout)
		defer cancel()
		h.service.ProcessWebhook(ctx, payload)
	}()

	return c.JSON(fiber.Map{"received": true})
}
