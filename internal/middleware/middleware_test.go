package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/utils"
)

const secret = "test-secret"

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ae *apperr.Error
			if errors.As(err, &ae) {
				return c.Status(ae.Status()).SendString(ae.Reason)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
}

func whoami(c *fiber.Ctx) error {
	caller := authz.FromContext(c)
	if !caller.IsAuthenticated() {
		return c.SendString("anonymous")
	}
	return c.SendString(caller.UserID.String() + "/" + string(caller.Role))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func withCookie(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	return req
}

func sessionToken(t *testing.T, id uuid.UUID, role models.Role) string {
	t.Helper()
	tok, err := utils.SignJWT(secret, id.String(), string(role), 60)
	require.NoError(t, err)
	return tok
}

func TestJWTChain(t *testing.T) {
	app := newApp()
	app.Get("/me", middleware.JWTFromCookie(secret), middleware.AttachJWTLocals(), whoami)
	id := uuid.New()
	tok := sessionToken(t, id, models.RoleCompany)

	status, text := do(t, app, withCookie("/me", tok))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, id.String()+"/company", text)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	status, text = do(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, id.String()+"/company", text)

	status, text = do(t, app, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperr.ReasonUnauthenticated, text)

	status, _ = do(t, app, withCookie("/me", "garbage"))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// verification tokens are not sessions
	verify, err := utils.SignVerifyToken(secret, id.String(), time.Hour)
	require.NoError(t, err)
	status, _ = do(t, app, withCookie("/me", verify))
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOptionalJWT(t *testing.T) {
	app := newApp()
	app.Get("/soft", middleware.OptionalJWT(secret), whoami)
	id := uuid.New()

	_, text := do(t, app, httptest.NewRequest(http.MethodGet, "/soft", nil))
	assert.Equal(t, "anonymous", text)

	_, text = do(t, app, withCookie("/soft", "garbage"))
	assert.Equal(t, "anonymous", text)

	_, text = do(t, app, withCookie("/soft", sessionToken(t, id, models.RoleFreelance)))
	assert.Equal(t, id.String()+"/freelance", text)
}

func TestRequireRoles(t *testing.T) {
	app := newApp()
	app.Get("/company-only",
		middleware.JWTFromCookie(secret),
		middleware.AttachJWTLocals(),
		middleware.RequireRoles(models.RoleCompany),
		whoami,
	)

	status, _ := do(t, app, withCookie("/company-only", sessionToken(t, uuid.New(), models.RoleCompany)))
	assert.Equal(t, fiber.StatusOK, status)

	status, text := do(t, app, withCookie("/company-only", sessionToken(t, uuid.New(), models.RoleFreelance)))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperr.ReasonWrongRole, text)
}

func TestRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 2)
	app := newApp()
	app.Get("/login", rl.Handler(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, fiber.StatusOK, status)
	}
	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	assert.Zero(t, rl.Cleanup(time.Hour), "recent clients are kept")
}

func TestMetricsAndAccessLogPassThrough(t *testing.T) {
	app := newApp()
	app.Use(middleware.AccessLog(), middleware.Metrics())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/gone", func(c *fiber.Ctx) error { return apperr.NotFound("gone") })

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}
