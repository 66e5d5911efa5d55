// handlers/dashboard_routes.go
package handlers

import (
	"errors"

	"early-badge-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDashboardRoutes(app *fiber.App, dashboardService *services.DashboardService) {
	app.Get("/api/dashboard/:email", func(c *fiber.Ctx) error {
		resp, err := dashboardService.Get(c.UserContext(), c.Params("email"))
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build dashboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(resp)
	})
}
