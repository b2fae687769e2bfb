package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/realtime"
)

const localWSCaller = "ws_caller"

// WSUpgrade authenticates the handshake; the socket only ever serves the
// session's own user.
func WSUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		caller := authz.FromContext(c)
		if !caller.IsAuthenticated() {
			return apperr.Unauthenticated()
		}
		c.Locals(localWSCaller, caller)
		return c.Next()
	}
}

func WSHandler(hub *realtime.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		caller, _ := conn.Locals(localWSCaller).(authz.Caller)
		if !caller.IsAuthenticated() {
			_ = conn.Close()
			return
		}
		realtime.Serve(hub, conn, caller.UserID)
	})
}
