package seed

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"tradeacademy_backend/internal/model"
)

func SeedStrategies(db *gorm.DB) {
	strategies := []model.Strategy{
		{
			Name:          "Foundations",
			Description:   "Market structure, risk management and the core trading workflow",
			Price:         100,
			Number:        1,
			ExpectedWeeks: 4,
		},
		{
			Name:          "Swing Trading",
			Description:   "Multi-day setups, position sizing and trade journaling",
			Price:         250,
			Number:        2,
			ExpectedWeeks: 6,
		},
		{
			Name:          "Advanced Execution",
			Description:   "Order flow, scaling in and out, and live market execution",
			Price:         500,
			Number:        3,
			ExpectedWeeks: 8,
		},
	}

	for _, strategy := range strategies {
		result := db.FirstOrCreate(&strategy, model.Strategy{Number: strategy.Number})
		if result.Error != nil {
			log.Printf("Error creating strategy %s: %v", strategy.Name, result.Error)
			continue
		}

		for n := 1; n <= 5; n++ {
			video := model.Video{
				StrategyID:  strategy.ID,
				VideoNumber: n,
				Title:       fmt.Sprintf("%s - Lesson %d", strategy.Name, n),
				Description: fmt.Sprintf("Lesson %d of the %s curriculum", n, strategy.Name),
				VideoURL:    fmt.Sprintf("https://stream.tradeacademy.io/%s/lesson-%d/playlist.m3u8", strategy.Slug, n),
			}
			if err := db.FirstOrCreate(&video, model.Video{StrategyID: strategy.ID, VideoNumber: n}).Error; err != nil {
				log.Printf("Error creating video %d for %s: %v", n, strategy.Name, err)
			}
		}
	}

	log.Println("Strategy catalog seeded successfully!")
}
