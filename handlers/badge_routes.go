// handlers/badge_routes.go
package handlers

import (
	"errors"
	"path/filepath"

	"early-badge-system/middleware"
	"early-badge-system/models"
	"early-badge-system/services"
	"early-badge-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func SetupBadgeRoutes(app *fiber.App, userService *services.UserService, claimService *services.ClaimService) {
	app.Get("/api/status/:email", func(c *fiber.Ctx) error {
		email := c.Params("email")
		status, err := userService.Status(email)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check status",
				"cause": err.Error(),
			})
		}

		resp := fiber.Map{
			"exists":       status.Exists,
			"email":        status.Email,
			"tasks":        status.Tasks,
			"can_claim":    status.CanClaim,
			"badge_issued": status.BadgeIssued,
			"next_step":    status.NextStep,
		}
		if status.UserData != nil {
			resp["user_data"] = status.UserData
		}
		if art := loadBadgeArtURL(userService); art != "" {
			resp["badge_art_url"] = art
		}
		return c.JSON(resp)
	})

	app.Post("/api/badge/claim", func(c *fiber.Ctx) error {
		var req struct {
			Email        string `json:"email" validate:"required,email"`
			ReferralCode string `json:"referral_code" validate:"omitempty,alphanum,max=16"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "valid email required"})
		}

		outcome, err := claimService.Claim(req.Email, req.ReferralCode)
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		case errors.Is(err, services.ErrNotEligible):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not all tasks completed"})
		case errors.Is(err, services.ErrAlreadyClaimed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Badge already claimed"})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "claim failed",
				"cause": err.Error(),
			})
		}

		resp := fiber.Map{
			"success":         true,
			"message":         "Badge claimed successfully!",
			"badge_issued_at": outcome.User.BadgeIssuedAt,
		}
		if outcome.ReferralReward != nil {
			resp["referral_reward"] = outcome.ReferralReward
		}
		if art := loadBadgeArtURL(userService); art != "" {
			resp["badge_art_url"] = art
		}
		return c.JSON(resp)
	})

	// Operator endpoint: upload the badge artwork served in status and
	// claim payloads.
	adminGroup := app.Group("/admin", middleware.AdminAuthMiddleware())

	adminGroup.Post("/badge-art", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file field required"})
		}

		key := "badge-art/" + uuid.NewString() + filepath.Ext(fileHeader.Filename)
		url, err := utils.UploadBadgeArt(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "upload failed",
				"cause": err.Error(),
			})
		}

		setting := models.Setting{Key: models.SettingBadgeArtURL, Value: url}
		if err := userService.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&setting).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to store badge art url",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"success": true, "badge_art_url": url})
	})
}

func loadBadgeArtURL(userService *services.UserService) string {
	var setting models.Setting
	if err := userService.DB.Where("key = ?", models.SettingBadgeArtURL).First(&setting).Error; err != nil {
		return ""
	}
	return setting.Value
}
