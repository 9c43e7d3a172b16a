package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notjira/internal/domain"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

const userContextKey = "board_user"

// RequireUser verifies the bearer token and stashes the caller's identity
// reference in the request context.
func RequireUser(verifier Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apperrors.NewUnauthorized("bearer token required")
		}
		id, err := verifier.Verify(token)
		if err != nil {
			return err
		}
		c.Locals(userContextKey, id.Ref())
		return c.Next()
	}
}

// UserFromContext returns the authenticated caller's reference.
func UserFromContext(c *fiber.Ctx) (domain.UserRef, bool) {
	ref, ok := c.Locals(userContextKey).(domain.UserRef)
	return ref, ok
}
