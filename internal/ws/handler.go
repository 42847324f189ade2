package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Handler streams the events of the class named by the ":class" route
// parameter. UpgradeMiddleware must run first.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		class, ok := c.Locals("class").(string)
		if !ok || class == "" {
			_ = c.Close()
			return
		}

		client := &Client{
			hub:   hub,
			conn:  c,
			class: class,
			send:  make(chan []byte, 256),
		}

		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects plain HTTP requests and validates the class
// before the connection is upgraded.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// The class keys the hub's client map long after this request.
		class := utils.CopyString(c.Params("class"))
		if err := domain.ValidateClass(class); err != nil {
			return err
		}
		c.Locals("class", class)
		return c.Next()
	}
}
