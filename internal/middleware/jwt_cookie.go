package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

// CookieName holds the session token set at login.
const CookieName = "tf_token"

const localClaims = "user"

// tokenFrom reads the session cookie, falling back to a bearer header for
// non-browser clients.
func tokenFrom(c *fiber.Ctx) string {
	if tok := c.Cookies(CookieName); tok != "" {
		return tok
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return apperr.Unauthenticated()
		}

		claims, err := utils.ParseJWT(secret, tokenStr, utils.PurposeSession)
		if err != nil {
			return apperr.Unauthenticated()
		}

		c.Locals(localClaims, claims)
		return c.Next()
	}
}
