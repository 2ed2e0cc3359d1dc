package middleware

import (
	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/database"
	"tradeacademy_backend/pkg/policy"
	"tradeacademy_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireActiveSubscription gates video routes behind an active subscription.
// The status is recomputed from the end date; a stored status that drifted is
// not trusted. The loaded subscription is stored in locals for the handler.
func RequireActiveSubscription(clock policy.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var sub model.UserSubscription
		if err := database.DB.Where("user_id = ? AND status <> ?", claims.UserID, model.StatusCancelled).
			Order("created_at DESC").
			First(&sub).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "You need an active subscription to access lessons",
			})
		}

		derived := policy.DeriveStatus(&sub, clock.Now())
		if derived.Status != model.StatusActive {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "You need an active subscription to access lessons",
			})
		}

		c.Locals("subscription", &sub)
		return c.Next()
	}
}
