package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/favorites"
)

type FavoriteHandler struct {
	Favorites *favorites.FavoriteService
}

func NewFavoriteHandler(svc *favorites.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{Favorites: svc}
}

func (h *FavoriteHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramUUID(c, "freelanceId")
	if err != nil {
		return fail(c, err)
	}
	fav, on, err := h.Favorites.Toggle(c.UserContext(), authz.FromContext(c), id)
	if err != nil {
		return fail(c, err)
	}
	data := fiber.Map{"is_favorite": on}
	if fav != nil {
		data["favorite_id"] = fav.ID
	}
	return ok(c, fiber.StatusOK, "OK", data)
}

type favoriteReq struct {
	PoolName string `json:"pool_name"`
}

// Add is idempotent: a second call returns the record from the first.
func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	id, err := paramUUID(c, "freelanceId")
	if err != nil {
		return fail(c, err)
	}
	var req favoriteReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	fav, err := h.Favorites.Add(c.UserContext(), authz.FromContext(c), id, req.PoolName)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "Added to favorites", fav)
}

func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	id, err := paramUUID(c, "freelanceId")
	if err != nil {
		return fail(c, err)
	}
	removed, err := h.Favorites.Remove(c.UserContext(), authz.FromContext(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{"removed": removed})
}

func (h *FavoriteHandler) Check(c *fiber.Ctx) error {
	id, err := paramUUID(c, "freelanceId")
	if err != nil {
		return fail(c, err)
	}
	on, err := h.Favorites.Check(c.UserContext(), authz.FromContext(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{"is_favorite": on})
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	favs, err := h.Favorites.List(c.UserContext(), authz.FromContext(c), c.Query("pool"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", favs)
}
