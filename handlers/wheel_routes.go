// handlers/wheel_routes.go
package handlers

import (
	"errors"

	"early-badge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWheelRoutes(app *fiber.App, wheelService *services.WheelService) {
	app.Get("/api/wheel/status/:email", func(c *fiber.Ctx) error {
		status, err := wheelService.Status(c.Params("email"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get wheel status",
				"cause": err.Error(),
			})
		}
		return c.JSON(status)
	})

	app.Post("/api/wheel/spin", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "valid email required"})
		}

		result, err := wheelService.Spin(req.Email)
		if errors.Is(err, services.ErrAlreadySpun) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already spun the wheel"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "spin failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"rep_earned": result.RepEarned,
			"spun_at":    result.SpunAt,
			"segment":    wheelService.SegmentIndex(result.RepEarned),
		})
	})
}
