package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := statusOf(c, err)

		fields := logutils.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			fields["request_id"] = rid
		}
		if caller := authz.FromContext(c); caller.IsAuthenticated() {
			fields["user_id"] = caller.UserID
		}

		level := logrus.InfoLevel
		if status >= fiber.StatusInternalServerError {
			level = logrus.ErrorLevel
		}
		logutils.Log.WithFields(fields).Log(level, "request")
		return err
	}
}
