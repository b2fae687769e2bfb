package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/chat"
)

type ChatHandler struct {
	Chat *chat.ChatService
}

func NewChatHandler(svc *chat.ChatService) *ChatHandler {
	return &ChatHandler{Chat: svc}
}

type startConversationReq struct {
	UserID string `json:"user_id"`
}

func (h *ChatHandler) StartConversation(c *fiber.Ctx) error {
	var req startConversationReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add("user_id", "Invalid user id")
		return validationFail(c, fe)
	}

	conv, created, err := h.Chat.StartConversation(c.UserContext(), authz.FromContext(c), otherID)
	if err != nil {
		return fail(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return ok(c, status, "OK", conv)
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	convs, err := h.Chat.ListConversations(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", convs)
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	res, err := h.Chat.ListMessages(c.UserContext(), authz.FromContext(c), id, pagination.FromQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", res)
}

type sendMessageReq struct {
	Text string `json:"text"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	msg, err := h.Chat.SendMessage(c.UserContext(), authz.FromContext(c), id, req.Text)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "Message sent", msg)
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Chat.MarkConversationRead(c.UserContext(), authz.FromContext(c), id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", nil)
}

func (h *ChatHandler) UnreadTotal(c *fiber.Ctx) error {
	n, err := h.Chat.UnreadTotal(c.UserContext(), authz.FromContext(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{"unread": n})
}
