package stream

import (
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localStreamUser = "stream_user"

// RegisterRoutes mounts /ws. Clients authenticate with ?token= and receive
// a "connected" frame carrying the connection id to send back as
// X-Connection-ID on requests whose events they should not receive.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler) {
	r.Get("/ws", authMiddleware, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(localStreamUser, user.CurrentID(c))
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(localStreamUser).(string)
		client := hub.Register(userID)
		defer hub.Unregister(client)

		if err := c.WriteJSON(Event{Name: "connected", Data: fiber.Map{"connection_id": client.ConnID}}); err != nil {
			return
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
