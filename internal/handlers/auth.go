package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/users"
)

type AuthHandler struct {
	Users        *users.UserService
	Expires      int
	CookieSecure bool
}

func NewAuthHandler(svc *users.UserService, expiresMin int, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Users: svc, Expires: expiresMin, CookieSecure: cookieSecure}
}

func userView(u *models.User) fiber.Map {
	return fiber.Map{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"is_verified": u.IsVerified,
	}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.CookieSecure,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req users.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	u, err := h.Users.Register(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}

	token, err := h.Users.IssueToken(u)
	if err != nil {
		return fail(c, err)
	}
	h.setSession(c, token)

	return ok(c, fiber.StatusCreated, "Registration successful, check your email to verify your account", fiber.Map{
		"user": userView(u),
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	u, err := h.Users.Login(c.UserContext(), req.Email, strings.TrimSpace(req.Password))
	if err != nil {
		return fail(c, err)
	}

	token, err := h.Users.IssueToken(u)
	if err != nil {
		return fail(c, err)
	}
	h.setSession(c, token)

	return ok(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user": userView(u),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.CookieSecure,
		SameSite: "Lax",
	})
	return ok(c, fiber.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.Users.GetMe(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{
		"user":              userView(u),
		"freelance_profile": u.FreelanceProfile,
		"company_profile":   u.CompanyProfile,
	})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	u, err := h.Users.VerifyEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Email verified", fiber.Map{"user": userView(u)})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	if err := h.Users.ResendVerification(c.UserContext(), authz.FromContext(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Verification email sent", nil)
}
