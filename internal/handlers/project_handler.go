package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/projects"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/reviews"
)

type ProjectHandler struct {
	Projects *projects.ProjectService
	Reviews  *reviews.ReviewService
}

func NewProjectHandler(p *projects.ProjectService, r *reviews.ReviewService) *ProjectHandler {
	return &ProjectHandler{Projects: p, Reviews: r}
}

func projectQuery(c *fiber.Ctx) projects.ProjectQuery {
	return projects.ProjectQuery{
		Status:   models.ProjectStatus(c.Query("status")),
		Skill:    c.Query("skill"),
		Location: c.Query("location"),
		Search:   c.Query("q"),
		Params:   pagination.FromQuery(c),
	}
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	res, err := h.Projects.ListPublic(c.UserContext(), projectQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Projects.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", p)
}

func (h *ProjectHandler) ListMine(c *fiber.Ctx) error {
	res, err := h.Projects.ListMine(c.UserContext(), authz.FromContext(c), projectQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req projects.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Projects.Create(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Project created", p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req projects.ProjectInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Projects.Update(c.UserContext(), authz.FromContext(c), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Project updated", p)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *ProjectHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Projects.ChangeStatus(c.UserContext(), authz.FromContext(c), id, models.ProjectStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Project status updated", p)
}

func (h *ProjectHandler) CanReview(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	el, err := h.Reviews.CanReview(c.UserContext(), authz.FromContext(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", el)
}

func (h *ProjectHandler) CreateReview(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req reviews.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	r, err := h.Reviews.Create(c.UserContext(), authz.FromContext(c), id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Review submitted", r)
}
