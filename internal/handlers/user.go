package handlers

import (
	"arvo/internal/models"
	"arvo/internal/services/user"
	"arvo/internal/utils"
	"arvo/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterUser(c *fiber.Ctx) error {
	var input models.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	v := validation.New()
	v.UserRegistration(&input)
	if !v.Valid() {
		// Get first error from the map
		for _, msg := range v.Errors {
			return utils.BadRequest(c, msg)
		}
	}

	createdUser, err := h.userService.Create(&input)
	if err != nil {
		return utils.InternalError(c, err.Error())
	}

	createdUser.Password = ""

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    createdUser,
	})
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	u, err := h.userService.GetByID(claims.UserID)
	if err != nil {
		return utils.NotFound(c, "user not found")
	}

	u.Password = ""
	return utils.Success(c, fiber.Map{"user": u})
}
