package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/profiles"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/reviews"
)

type ProfileHandler struct {
	Profiles *profiles.ProfileService
	Reviews  *reviews.ReviewService
}

func NewProfileHandler(p *profiles.ProfileService, r *reviews.ReviewService) *ProfileHandler {
	return &ProfileHandler{Profiles: p, Reviews: r}
}

func (h *ProfileHandler) CreateFreelance(c *fiber.Ctx) error {
	var req profiles.FreelanceProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Profiles.CreateFreelanceProfile(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Profile created", p)
}

func (h *ProfileHandler) UpdateFreelance(c *fiber.Ctx) error {
	var req profiles.FreelanceProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Profiles.UpdateFreelanceProfile(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Profile updated", p)
}

func (h *ProfileHandler) CreateCompany(c *fiber.Ctx) error {
	var req profiles.CompanyProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Profiles.CreateCompanyProfile(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Profile created", p)
}

func (h *ProfileHandler) UpdateCompany(c *fiber.Ctx) error {
	var req profiles.CompanyProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.Profiles.UpdateCompanyProfile(c.UserContext(), authz.FromContext(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Profile updated", p)
}

// SearchFreelancers: GET /api/freelancers?skills=go,react&location=&min_rating=&availability=&q=
func (h *ProfileHandler) SearchFreelancers(c *fiber.Ctx) error {
	skills := lo.Filter(strings.Split(c.Query("skills"), ","), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	q := profiles.FreelanceQuery{
		Skills:       skills,
		Location:     c.Query("location"),
		MinRating:    c.QueryFloat("min_rating", 0),
		Availability: models.Availability(c.Query("availability")),
		Search:       c.Query("q"),
		Params:       pagination.FromQuery(c),
	}
	res, err := h.Profiles.SearchFreelancers(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *ProfileHandler) GetFreelance(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Profiles.GetPublicFreelance(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", p)
}

func (h *ProfileHandler) FreelanceReviews(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	res, err := h.Reviews.ListForFreelance(c.UserContext(), id, pagination.FromQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

func (h *ProfileHandler) GetCompany(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Profiles.GetPublicCompany(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", p)
}
