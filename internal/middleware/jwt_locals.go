package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

// AttachJWTLocals copies verified claims into the locals authz reads.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(localClaims).(*utils.Claims)
		if !ok || claims == nil {
			return apperr.Unauthenticated()
		}
		if !setIdentity(c, claims) {
			return apperr.Unauthenticated()
		}
		return c.Next()
	}
}

// OptionalJWT resolves the caller when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenStr := tokenFrom(c); tokenStr != "" {
			if claims, err := utils.ParseJWT(secret, tokenStr, utils.PurposeSession); err == nil {
				c.Locals(localClaims, claims)
				setIdentity(c, claims)
			}
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, claims *utils.Claims) bool {
	uid := strings.TrimSpace(claims.UserID)
	if _, err := uuid.Parse(uid); err != nil {
		return false
	}
	c.Locals(authz.LocalUserID, uid)
	c.Locals(authz.LocalRole, strings.ToLower(strings.TrimSpace(claims.Role)))
	return true
}
