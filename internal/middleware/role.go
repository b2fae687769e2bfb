package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
)

// RequireRoles rejects callers whose role is not in allowed. Must run after
// AttachJWTLocals.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := authz.FromContext(c)
		if !caller.IsAuthenticated() {
			return apperr.Unauthenticated()
		}
		if !lo.Contains(allowed, caller.Role) {
			return apperr.WrongRole("Your account type cannot do this")
		}
		return c.Next()
	}
}
