// handlers/email_routes.go
package handlers

import (
	"errors"

	"early-badge-system/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func SetupEmailRoutes(app *fiber.App, userService *services.UserService, emailService *services.EmailService) {
	group := app.Group("/auth/email")

	// Instant registration: new signups get the email flag immediately.
	group.Post("/register-instant", func(c *fiber.Ctx) error {
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

		user, err := userService.RegisterInstant(req.Email, req.ReferralCode)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "registration failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"email":         user.Email,
			"referral_code": user.ReferralCode,
			"email_added":   user.EmailAdded,
		})
	})

	sendHandler := func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "valid email required"})
		}

		if err := emailService.SendCode(req.Email); err != nil {
			if errors.Is(err, services.ErrResendCooldown) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Please wait before requesting another code",
				})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to send verification code",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Verification code sent to your email",
		})
	}
	group.Post("/send-verification", sendHandler)
	group.Post("/resend-code", sendHandler)

	group.Post("/verify-code", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
			Code  string `json:"code" validate:"required,len=6,numeric"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and 6-digit code required"})
		}

		user, err := emailService.VerifyCode(req.Email, req.Code)
		switch {
		case errors.Is(err, services.ErrCodeNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No verification code found. Please request a new one."})
		case errors.Is(err, services.ErrCodeExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Code expired. Please request a new one."})
		case errors.Is(err, services.ErrInvalidCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid code. Please try again."})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "verification failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"email":         user.Email,
			"referral_code": user.ReferralCode,
			"message":       "Email verified successfully",
		})
	})
}
