package controller

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/access"
	"tradeacademy_backend/pkg/cache"
	"tradeacademy_backend/pkg/database"
)

const (
	catalogCacheKey = "strategies:catalog"
	catalogCacheTTL = 5 * time.Minute
)

var catalogCache *cache.Redis

func InitStrategyController(redis *cache.Redis) {
	catalogCache = redis
}

// StrategyView is the catalog entry returned to clients, with the derived
// video count folded in.
type StrategyView struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	Price         int64  `json:"price"`
	Number        int    `json:"number"`
	ExpectedWeeks int    `json:"expected_weeks"`
	VideoCount    int64  `json:"video_count"`
	CoverPhotoURL string `json:"cover_photo_url"`
}

// ListStrategies returns the catalog ordered by rank, served from Redis when
// warm.
func ListStrategies(c *fiber.Ctx) error {
	if catalogCache != nil {
		if cached, err := catalogCache.Get(catalogCacheKey); err == nil {
			c.Set("Content-Type", "application/json")
			return c.SendString(cached)
		} else if !cache.IsMiss(err) {
			log.Printf("Catalog cache read failed: %v", err)
		}
	}

	var strategies []model.Strategy
	if err := database.DB.Order("number ASC").Find(&strategies).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch strategies",
		})
	}

	views := make([]StrategyView, 0, len(strategies))
	for _, s := range strategies {
		var videoCount int64
		database.DB.Model(&model.Video{}).Where("strategy_id = ?", s.ID).Count(&videoCount)

		views = append(views, StrategyView{
			ID:            s.ID,
			Name:          s.Name,
			Slug:          s.Slug,
			Description:   s.Description,
			Price:         s.Price,
			Number:        s.Number,
			ExpectedWeeks: s.ExpectedWeeks,
			VideoCount:    videoCount,
			CoverPhotoURL: s.CoverPhotoURL,
		})
	}

	if catalogCache != nil {
		if payload, err := json.Marshal(views); err == nil {
			if err := catalogCache.Set(catalogCacheKey, string(payload), catalogCacheTTL); err != nil {
				log.Printf("Catalog cache write failed: %v", err)
			}
		}
	}

	return c.JSON(views)
}

// GetStrategyVideo returns the playable video details. Runs behind the
// active-subscription middleware and re-validates sequential access, so a
// locked video can not be fetched by direct navigation.
func GetStrategyVideo(c *fiber.Ctx) error {
	sub := c.Locals("subscription").(*model.UserSubscription)

	strategyID, err := c.ParamsInt("strategy_id")
	if err != nil || uint(strategyID) != sub.StrategyID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not subscribed to this strategy",
		})
	}

	videoID, err := c.ParamsInt("video_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid video ID",
		})
	}

	var video model.Video
	if err := database.DB.Where("strategy_id = ?", sub.StrategyID).
		First(&video, videoID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}

	claims := currentClaims(c)
	videos, completed, err := loadCurriculum(claims.UserID, sub.StrategyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch videos",
		})
	}

	canAccess, reason := access.CanAccess(videos, completed, video.ID)
	if !canAccess {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": reason,
		})
	}

	return c.JSON(video)
}

func invalidateCatalogCache() {
	if catalogCache == nil {
		return
	}
	if err := catalogCache.Delete(catalogCacheKey); err != nil {
		log.Printf("Catalog cache invalidation failed: %v", err)
	}
}
