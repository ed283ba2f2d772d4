package middleware

import (
	"Aegis/Whatsapp"

	"github.com/gofiber/fiber/v2"
)

// RequireWhatsappSession gates customer-messaging routes on the gateway
// having a linked device, so senders fail fast with a clear error
// instead of queueing into a dead session.
func RequireWhatsappSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		loggedIn, err := Whatsapp.CheckWPLogin()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check WhatsApp login status",
			})
		}
		if !loggedIn {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Not logged in to WhatsApp",
			})
		}
		return c.Next()
	}
}
