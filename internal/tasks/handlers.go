package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/mailer"
)

type Handler struct {
	mailer mailer.Mailer
}

func NewHandler(m mailer.Mailer) *Handler {
	return &Handler{mailer: m}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailSend, h.HandleEmailSend)
}

func (h *Handler) HandleEmailSend(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email without recipient: %w", asynq.SkipRetry)
	}

	if err := h.mailer.Send(ctx, mailer.Message{
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
	}); err != nil {
		logutils.Log.WithFields(logutils.Fields{"to": payload.To, "error": err}).Warn("email delivery failed")
		return err
	}
	return nil
}
