package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/metrics"
)

func ok(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func validationFail(c *fiber.Ctx, errs apperr.FieldErrors) error {
	return fail(c, apperr.Validation(errs))
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Invalid body",
		"code":    "invalid_body",
	})
}

// fail writes err in the response envelope. Anything outside the apperr
// taxonomy is logged and hidden behind a generic 500.
func fail(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}
		ae = apperr.Internal(err)
	}

	fields := logutils.Fields{"path": c.Path(), "method": c.Method(), "reason": ae.Reason}
	if caller := authz.FromContext(c); caller.IsAuthenticated() {
		fields["user_id"] = caller.UserID
	}
	switch ae.Kind {
	case apperr.KindInternal:
		fields["error"] = ae.Err
		logutils.Log.WithFields(fields).Error("request failed")
	case apperr.KindUnauthenticated, apperr.KindWrongRole, apperr.KindNotOwner:
		metrics.GuardDenials.WithLabelValues(ae.Reason).Inc()
		logutils.Log.WithFields(fields).Debug("guard denied")
	default:
		logutils.Log.WithFields(fields).Debug("request rejected")
	}

	body := fiber.Map{
		"success": false,
		"message": ae.Message,
		"code":    ae.Reason,
	}
	if len(ae.Fields) > 0 {
		body["errors"] = ae.Fields
	}
	return c.Status(ae.Status()).JSON(body)
}

// ErrorHandler is the app-wide fiber error handler so middleware failures
// share the envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return fail(c, err)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		// malformed ids cannot match a row
		return uuid.Nil, apperr.NotFound("Resource not found")
	}
	return id, nil
}
