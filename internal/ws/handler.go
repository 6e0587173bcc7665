package ws

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler upgrades the connection and registers it with the hub. The
// optional "events" query parameter narrows the subscription to a
// comma-separated list of event types.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := &Client{
			hub:    hub,
			conn:   c,
			events: parseEvents(c.Query("events")),
			send:   make(chan []byte, 256),
		}

		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func parseEvents(raw string) map[EventType]bool {
	if raw == "" {
		return nil
	}

	events := make(map[EventType]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			events[EventType(part)] = true
		}
	}
	return events
}
