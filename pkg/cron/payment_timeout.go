package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/database"
)

// Sessions older than this are beyond any polling window and will never
// confirm on their own; a manual re-check can still recover them.
const stalePaymentAge = time.Hour

func InitPaymentTimeoutCron() {
	c := cron.New()

	_, err := c.AddFunc("@hourly", func() {
		expireStalePayments()
	})

	if err != nil {
		log.Printf("Could not initialize payment timeout cron: %v", err)
		return
	}

	c.Start()
}

func expireStalePayments() {
	cutoff := time.Now().Add(-stalePaymentAge)

	result := database.DB.Model(&model.PaymentSession{}).
		Where("status = ? AND created_at < ?", model.PaymentAwaiting, cutoff).
		Update("status", model.PaymentTimedOut)

	if result.Error != nil {
		log.Printf("Error expiring stale payment sessions: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Expired %d stale payment sessions", result.RowsAffected)
	}
}
