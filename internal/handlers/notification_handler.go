package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
)

type NotificationHandler struct {
	Notifications *notifications.NotificationService
}

func NewNotificationHandler(svc *notifications.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: svc}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	q := notifications.ListQuery{
		UnreadOnly: c.QueryBool("unread", false),
		Params:     pagination.FromQuery(c),
	}
	res, err := h.Notifications.List(c.UserContext(), authz.FromContext(c), q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Notifications.UnreadCount(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	n, err := h.Notifications.MarkRead(c.UserContext(), authz.FromContext(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", n)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.Notifications.MarkAllRead(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{"updated": n})
}

func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	p, err := h.Notifications.GetPreferences(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", p)
}

func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req notifications.PreferencesInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Notifications.UpdatePreferences(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Preferences saved", p)
}
