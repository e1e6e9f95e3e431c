package middleware

import (
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// AdminOnly requires an authenticated admin. It must run after an identity middleware.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := IdentityFrom(c)
		if !id.IsAuthenticated() {
			return deny(c, "missing_credential", msgMissingCredential)
		}
		if !id.IsAdmin() {
			return deny(c, "not_admin", "Admin role required")
		}
		return c.Next()
	}
}

func deny(c *fiber.Ctx, reason, msg string) error {
	observability.AccessDenied.WithLabelValues(reason).Inc()
	return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(msg))
}
