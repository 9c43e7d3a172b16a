package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notjira/internal/api/dto"
	"github.com/spec-kit/notjira/internal/identity"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

// AuthHandler manages registration and session endpoints.
type AuthHandler struct {
	identity *identity.Service
}

// NewAuthHandler constructs handler.
func NewAuthHandler(identityService *identity.Service) *AuthHandler {
	return &AuthHandler{identity: identityService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, err := h.identity.Register(c.UserContext(), req.Name, req.Email, req.Password, req.PhotoURL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		User: identityResponse(id),
	}})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, token, err := h.identity.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token: token,
		User:  identityResponse(id),
	}})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, ok := identity.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	h.identity.SignOut(c.UserContext(), user.UID)
	return c.JSON(fiber.Map{"data": fiber.Map{"signed_out": true}})
}

func identityResponse(id *identity.Identity) dto.IdentityResponse {
	return dto.IdentityResponse{
		UID:          id.UID,
		Name:         id.DisplayName,
		Email:        id.Email,
		PhotoURL:     id.PhotoURL,
		CreatedAt:    id.CreatedAt,
		LastSignInAt: id.LastSignInAt,
	}
}
