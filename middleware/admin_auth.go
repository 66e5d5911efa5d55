// middleware/admin_auth.go
package middleware

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware guards operator endpoints (badge art upload) with
// the X-Admin-Token header.
func AdminAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := os.Getenv("ADMIN_TOKEN")
		if expected == "" {
			log.Printf("🚫 [ADMIN_AUTH] ADMIN_TOKEN not configured, rejecting %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin endpoints are disabled",
			})
		}

		if c.Get("X-Admin-Token") != expected {
			log.Printf("❌ [ADMIN_AUTH] Invalid admin token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}

		c.Locals("is_admin", true)
		return c.Next()
	}
}
