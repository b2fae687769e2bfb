package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/users"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

type GoogleOAuthHandler struct {
	Users           *users.UserService
	Auth            *AuthHandler
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// FetchUser exchanges the code for the Google account. Replaced in tests.
	FetchUser func(ctx context.Context, code string) (*GoogleUser, error)
}

func NewGoogleOAuthHandler(svc *users.UserService, auth *AuthHandler, clientID, secret, redirect, frontend string) *GoogleOAuthHandler {
	h := &GoogleOAuthHandler{
		Users:           svc,
		Auth:            auth,
		GoogleClientID:  clientID,
		GoogleSecret:    secret,
		GoogleRedirect:  redirect,
		FrontendBaseURL: strings.TrimRight(frontend, "/"),
	}
	h.FetchUser = h.exchange
	return h
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Auth.CookieSecure,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

// GoogleStart redirects to Google. ?role= is only used when the account
// does not exist yet.
func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	st := randomState(32)
	h.tempCookie(c, "oauth_state", st, 10*60)
	h.tempCookie(c, "oauth_next", c.Query("next", "/"), 10*60)
	h.tempCookie(c, "oauth_role", strings.ToLower(c.Query("role")), 10*60)

	return c.Redirect(h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) exchange(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := h.oauthCfg().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	resp, err := h.oauthCfg().Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var gu GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &gu, nil
}

func (h *GoogleOAuthHandler) loginError(c *fiber.Ctx, msg string) error {
	return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape(msg), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing code/state")
	}
	if st := c.Cookies("oauth_state"); st == "" || st != state {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid state")
	}
	next := c.Cookies("oauth_next")
	role := models.Role(c.Cookies("oauth_role"))

	gu, err := h.FetchUser(c.UserContext(), code)
	if err != nil {
		logutils.Log.WithError(err).Warn("google login failed")
		return c.Status(fiber.StatusBadRequest).SendString("Google login failed")
	}
	if !gu.VerifiedEmail {
		return h.loginError(c, "Google email is not verified")
	}

	u, _, err := h.Users.FindOrCreateOAuthUser(c.UserContext(), gu.Email, gu.Name, role)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindValidation:
			return c.Redirect(h.FrontendBaseURL+"/auth/choose-role", http.StatusTemporaryRedirect)
		case apperr.KindUnauthenticated:
			return h.loginError(c, "Account is disabled")
		}
		return fail(c, err)
	}

	token, err := h.Users.IssueToken(u)
	if err != nil {
		return fail(c, err)
	}
	h.Auth.setSession(c, token)

	h.tempCookie(c, "oauth_state", "", -1)
	h.tempCookie(c, "oauth_next", "", -1)
	h.tempCookie(c, "oauth_role", "", -1)

	// only same-site paths; "//host" would leave the frontend
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
