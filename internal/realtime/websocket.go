package realtime

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

// Serve pumps hub events to conn until the client disconnects. The caller
// has already authenticated userID.
func Serve(hub *Hub, conn *websocket.Conn, userID uuid.UUID) {
	client := NewClient(userID)
	log := logutils.Log.WithFields(logutils.Fields{"user_id": userID, "client_id": client.ID})

	hub.RegisterClient(client)
	log.Info("ws connected")
	defer func() {
		hub.UnregisterClient(client)
		log.Info("ws disconnected")
	}()

	go func() {
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	// inbound frames are keepalives only; reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
