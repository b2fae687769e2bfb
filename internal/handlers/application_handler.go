package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/projects"
)

func (h *ProjectHandler) Apply(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req projects.ApplicationInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	app, err := h.Projects.Apply(c.UserContext(), authz.FromContext(c), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Application sent", app)
}

func (h *ProjectHandler) ListApplications(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	apps, err := h.Projects.ListApplications(c.UserContext(), authz.FromContext(c), id, models.ApplicationStatus(c.Query("status")))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", apps)
}

func (h *ProjectHandler) MyApplications(c *fiber.Ctx) error {
	res, err := h.Projects.ListMyApplications(c.UserContext(), authz.FromContext(c), pagination.FromQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *ProjectHandler) applicationIDs(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	pid, err := paramUUID(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	aid, err := paramUUID(c, "appId")
	return pid, aid, err
}

func (h *ProjectHandler) Accept(c *fiber.Ctx) error {
	pid, aid, err := h.applicationIDs(c)
	if err != nil {
		return fail(c, err)
	}
	app, err := h.Projects.Accept(c.UserContext(), authz.FromContext(c), pid, aid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Application accepted", app)
}

func (h *ProjectHandler) Reject(c *fiber.Ctx) error {
	pid, aid, err := h.applicationIDs(c)
	if err != nil {
		return fail(c, err)
	}
	app, err := h.Projects.Reject(c.UserContext(), authz.FromContext(c), pid, aid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Application rejected", app)
}
