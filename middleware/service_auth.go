// middleware/service_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceAuthMiddleware validates the shared Bearer token on endpoints
// only the bot process is allowed to call (telegram link completion).
func ServiceAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("BOT_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ BOT_SERVICE_TOKEN is not set — bot endpoints cannot be authenticated")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [SERVICE_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("❌ [SERVICE_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service authentication token",
			})
		}

		return c.Next()
	}
}
