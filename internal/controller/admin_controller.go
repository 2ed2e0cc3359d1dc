package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/database"
	"tradeacademy_backend/pkg/utils/storage"
)

// CreateStrategy adds a catalog entry. Multipart form so the cover image can
// be uploaded in the same request.
func CreateStrategy(c *fiber.Ctx) error {
	strategy := model.Strategy{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}
	if strategy.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Strategy name is required",
		})
	}

	price, err := strconv.ParseInt(c.FormValue("price"), 10, 64)
	if err != nil || price <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A positive price is required",
		})
	}
	strategy.Price = price

	number, err := strconv.Atoi(c.FormValue("number"))
	if err != nil || number <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A positive strategy number is required",
		})
	}
	strategy.Number = number

	if weeks, err := strconv.Atoi(c.FormValue("expected_weeks")); err == nil {
		strategy.ExpectedWeeks = weeks
	}

	if cover, err := c.FormFile("cover"); err == nil {
		url, err := storage.UploadCoverImage(cover, strategy.Name)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		strategy.CoverPhotoURL = url
	}

	if err := database.DB.Create(&strategy).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create strategy",
		})
	}

	invalidateCatalogCache()
	log.Printf("Created strategy %d: %s", strategy.ID, strategy.Name)

	return c.Status(fiber.StatusCreated).JSON(strategy)
}

// CreateVideo adds a lesson to a strategy. The media itself lives on the
// streaming host; only its URL and the cover image pass through here.
func CreateVideo(c *fiber.Ctx) error {
	strategyID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid strategy ID",
		})
	}

	var strategy model.Strategy
	if err := database.DB.First(&strategy, strategyID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Strategy not found",
		})
	}

	video := model.Video{
		StrategyID:  strategy.ID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		VideoURL:    c.FormValue("video_url"),
	}
	if video.Title == "" || video.VideoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title and video URL are required",
		})
	}

	number, err := strconv.Atoi(c.FormValue("video_number"))
	if err != nil || number <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A positive video number is required",
		})
	}
	video.VideoNumber = number

	if cover, err := c.FormFile("cover"); err == nil {
		url, err := storage.UploadCoverImage(cover, strategy.Name)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		video.CoverPhotoURL = url
	}

	if err := database.DB.Create(&video).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create video",
		})
	}

	invalidateCatalogCache()

	return c.Status(fiber.StatusCreated).JSON(video)
}
