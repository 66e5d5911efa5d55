// handlers/telegram_routes.go
package handlers

import (
	"errors"

	"early-badge-system/middleware"
	"early-badge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTelegramRoutes(app *fiber.App, telegramService *services.TelegramService) {
	// Public: hand the client the bot deep link. Completion is
	// out-of-band; the client polls /api/status/:email afterwards.
	app.Get("/auth/telegram/link", func(c *fiber.Ctx) error {
		email := c.Query("email")
		ref := c.Query("ref")
		if email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email query parameter required"})
		}
		return c.JSON(fiber.Map{"deep_link": telegramService.DeepLink(email, ref)})
	})

	// Bot-only: the worker reports a confirmed link.
	botGroup := app.Group("/auth/telegram", middleware.ServiceAuthMiddleware())

	botGroup.Post("/link-with-channel-check", func(c *fiber.Ctx) error {
		var req struct {
			Email            string `json:"email" validate:"required,email"`
			TelegramID       string `json:"telegram_id" validate:"required"`
			TelegramUsername string `json:"telegram_username"`
			IsChannelMember  bool   `json:"is_channel_member"`
			ReferralCode     string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and telegram_id required"})
		}

		err := telegramService.LinkWithChannelCheck(req.Email, req.TelegramID, req.TelegramUsername, req.IsChannelMember, req.ReferralCode)
		switch {
		case errors.Is(err, services.ErrDuplicateIdentity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "This Telegram account is already linked to another email",
			})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found. Please register with email first.",
			})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to link telegram",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "message": "Telegram linked successfully"})
	})
}
