package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notjira/internal/api/dto"
	"github.com/spec-kit/notjira/internal/board"
	"github.com/spec-kit/notjira/internal/domain"
	"github.com/spec-kit/notjira/internal/identity"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

// ProfileHandler manages profile and stats endpoints.
type ProfileHandler struct {
	manager *board.Manager
}

// NewProfileHandler constructs handler.
func NewProfileHandler(manager *board.Manager) *ProfileHandler {
	return &ProfileHandler{manager: manager}
}

// ViewUser GET /users/:uid. The optional name and photo_url query parameters
// carry the lightweight reference from a ticket's creator snapshot and serve
// as fallback when no profile record exists.
func (h *ProfileHandler) ViewUser(c *fiber.Ctx) error {
	ref := domain.UserRef{
		UID:      c.Params("uid"),
		Name:     c.Query("name"),
		PhotoURL: c.Query("photo_url"),
	}
	if ref.UID == "" {
		return apperrors.NewValidationError("uid required", nil)
	}

	var view board.ProfileView
	for v := range h.manager.ViewUser(c.UserContext(), ref) {
		view = v
	}
	if view.State != board.ProfileLoaded {
		return apperrors.NewInternalError(nil)
	}
	return c.JSON(fiber.Map{"data": profileResponse(ref.UID, view.Profile)})
}

// Update PUT /profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	user, ok := identity.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile := domain.Profile{
		Name:     req.Name,
		Bio:      req.Bio,
		Company:  req.Company,
		PhotoURL: req.PhotoURL,
	}
	if err := h.manager.UpdateProfile(c.UserContext(), user.UID, profile); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(user.UID, profile)})
}

// Stats GET /profile/stats.
func (h *ProfileHandler) Stats(c *fiber.Ctx) error {
	user, ok := identity.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	stats, err := h.manager.StatsFor(c.UserContext(), user.UID)
	if err != nil {
		return err
	}
	counts := make(map[string]int64, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Counts: counts,
		Total:  stats.Total(),
	}})
}

func profileResponse(uid string, profile domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		UID:      uid,
		Name:     profile.Name,
		Bio:      profile.Bio,
		Company:  profile.Company,
		PhotoURL: profile.PhotoURL,
	}
}
