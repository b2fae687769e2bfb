package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/realtime"
)

type Handlers struct {
	Auth          *AuthHandler
	Google        *GoogleOAuthHandler
	Profiles      *ProfileHandler
	Projects      *ProjectHandler
	Favorites     *FavoriteHandler
	Notifications *NotificationHandler
	Chat          *ChatHandler
	Hub           *realtime.Hub
}

// Register mounts every route. Public routes go first: the protected group
// installs its JWT middleware on the whole /api prefix.
func Register(app *fiber.App, h Handlers, jwtSecret string, authLimiter *middleware.RateLimiter) {
	app.Get("/metrics", metrics.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return ok(c, fiber.StatusOK, "OK", nil)
	})

	api := app.Group("/api")

	// public
	auth := api.Group("/auth", authLimiter.Handler())
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/verify", h.Auth.VerifyEmail)
	if h.Google != nil {
		auth.Get("/google/start", h.Google.GoogleStart)
		auth.Get("/google/callback", h.Google.GoogleCallback)
	}

	api.Get("/freelancers", h.Profiles.SearchFreelancers)
	api.Get("/freelancers/:id", h.Profiles.GetFreelance)
	api.Get("/freelancers/:id/reviews", h.Profiles.FreelanceReviews)
	api.Get("/companies/:id", h.Profiles.GetCompany)
	api.Get("/projects", h.Projects.List)
	api.Get("/projects/:id", h.Projects.Get)
	api.Get("/favorites/:freelanceId/check", middleware.OptionalJWT(jwtSecret), h.Favorites.Check)
	api.Post("/favorites/:freelanceId/toggle", middleware.OptionalJWT(jwtSecret), h.Favorites.Toggle)

	app.Get("/ws", middleware.OptionalJWT(jwtSecret), WSUpgrade(), WSHandler(h.Hub))

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTFromCookie(jwtSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", h.Auth.Me)
	protected.Post("/auth/verify/resend", h.Auth.ResendVerification)

	protected.Post("/profile/freelance", h.Profiles.CreateFreelance)
	protected.Put("/profile/freelance", h.Profiles.UpdateFreelance)
	protected.Post("/profile/company", h.Profiles.CreateCompany)
	protected.Put("/profile/company", h.Profiles.UpdateCompany)

	protected.Post("/projects", h.Projects.Create)
	protected.Put("/projects/:id", h.Projects.Update)
	protected.Patch("/projects/:id/status", h.Projects.ChangeStatus)
	protected.Get("/company/projects", middleware.RequireRoles(models.RoleCompany), h.Projects.ListMine)

	protected.Post("/projects/:id/applications", h.Projects.Apply)
	protected.Get("/projects/:id/applications", h.Projects.ListApplications)
	protected.Post("/projects/:id/applications/:appId/accept", h.Projects.Accept)
	protected.Post("/projects/:id/applications/:appId/reject", h.Projects.Reject)
	protected.Get("/freelance/applications", middleware.RequireRoles(models.RoleFreelance), h.Projects.MyApplications)

	protected.Get("/projects/:id/can-review", h.Projects.CanReview)
	protected.Post("/projects/:id/review", h.Projects.CreateReview)

	protected.Get("/favorites", middleware.RequireRoles(models.RoleCompany), h.Favorites.List)
	protected.Put("/favorites/:freelanceId", h.Favorites.Add)
	protected.Delete("/favorites/:freelanceId", h.Favorites.Remove)

	protected.Get("/notifications", h.Notifications.List)
	protected.Get("/notifications/unread-count", h.Notifications.UnreadCount)
	protected.Get("/notifications/preferences", h.Notifications.GetPreferences)
	protected.Put("/notifications/preferences", h.Notifications.UpdatePreferences)
	protected.Patch("/notifications/read-all", h.Notifications.MarkAllRead)
	protected.Patch("/notifications/:id/read", h.Notifications.MarkRead)

	chat := protected.Group("/chat")
	chat.Post("/conversations", h.Chat.StartConversation)
	chat.Get("/conversations", h.Chat.ListConversations)
	chat.Get("/conversations/:id/messages", h.Chat.ListMessages)
	chat.Post("/conversations/:id/messages", h.Chat.SendMessage)
	chat.Patch("/conversations/:id/read", h.Chat.MarkAsRead)
	chat.Get("/unread", h.Chat.UnreadTotal)
}
