package utils

import "github.com/gofiber/fiber/v2"

// Response helpers for the account and onboarding endpoints. Errors use
// the flat {"error": message} envelope; the verification handlers wrap
// provider failures in their own {success, error{...}} envelope.

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends data with a 200.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return Respond(c, status, fiber.Map{"error": message})
}

// BadRequest sends a 400 error envelope.
func BadRequest(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 error envelope.
func Unauthorized(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 error envelope.
func Forbidden(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 error envelope.
func NotFound(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusNotFound, message)
}

// InternalError sends a 500 error envelope.
func InternalError(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusInternalServerError, message)
}
