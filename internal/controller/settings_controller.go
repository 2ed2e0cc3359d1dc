package controller

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/database"
)

type ProfileUpdateInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func UpdateProfile(c *fiber.Ctx) error {
	claims := currentClaims(c)
	input := new(ProfileUpdateInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	updates := map[string]interface{}{
		"first_name":   input.FirstName,
		"last_name":    input.LastName,
		"phone_number": input.PhoneNumber,
	}

	if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update profile",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user.GetPublicProfile(),
	})
}

// GetSettings returns the public platform settings block the dashboard shows.
func GetSettings(c *fiber.Ctx) error {
	var setting model.PlatformSetting
	if err := database.GetDB().Where("key = ?", model.SettingTelegram).First(&setting).Error; err != nil {
		return c.JSON(fiber.Map{})
	}

	var telegram model.TelegramSettings
	if err := json.Unmarshal(setting.Value, &telegram); err != nil {
		return c.JSON(fiber.Map{})
	}

	return c.JSON(fiber.Map{
		"telegram": telegram,
	})
}

// UpdateSettings replaces the Telegram settings block. Admin only.
func UpdateSettings(c *fiber.Ctx) error {
	input := new(model.TelegramSettings)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not encode settings",
		})
	}

	setting := model.PlatformSetting{Key: model.SettingTelegram}
	if err := database.GetDB().
		Where(model.PlatformSetting{Key: model.SettingTelegram}).
		Assign(map[string]interface{}{"value": datatypes.JSON(payload)}).
		FirstOrCreate(&setting).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save settings",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Settings updated successfully",
		"telegram": input,
	})
}
