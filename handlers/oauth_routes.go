// handlers/oauth_routes.go
package handlers

import (
	"log"
	"os"

	"early-badge-system/services"

	"github.com/gofiber/fiber/v2"
)

func frontendURL() string {
	u := os.Getenv("FRONTEND_URL")
	if u == "" {
		u = "http://localhost:3000"
	}
	return u
}

func SetupOAuthRoutes(app *fiber.App, twitter *services.TwitterService, discord *services.DiscordService) {
	app.Get("/auth/twitter/login", func(c *fiber.Ctx) error {
		email := c.Query("email")
		ref := c.Query("ref")
		if email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email query parameter required"})
		}

		authURL, err := twitter.LoginURL(email, ref)
		if err != nil {
			log.Printf("❌ Twitter login URL failed for %s: %v", email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start twitter login"})
		}
		return c.JSON(fiber.Map{"auth_url": authURL})
	})

	app.Get("/auth/twitter/callback", func(c *fiber.Ctx) error {
		result := twitter.HandleCallback(c.UserContext(), c.Query("code"), c.Query("state"))
		return c.Redirect(result.RedirectURL(frontendURL()), fiber.StatusFound)
	})

	app.Get("/auth/discord/login", func(c *fiber.Ctx) error {
		email := c.Query("email")
		ref := c.Query("ref")
		if email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email query parameter required"})
		}

		authURL, err := discord.LoginURL(email, ref)
		if err != nil {
			log.Printf("❌ Discord login URL failed for %s: %v", email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start discord login"})
		}
		return c.JSON(fiber.Map{"auth_url": authURL})
	})

	app.Get("/auth/discord/callback", func(c *fiber.Ctx) error {
		result := discord.HandleCallback(c.UserContext(), c.Query("code"), c.Query("state"))
		return c.Redirect(result.RedirectURL(frontendURL()), fiber.StatusFound)
	})
}
