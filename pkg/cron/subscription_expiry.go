package cron

import (
	"log"

	"github.com/robfig/cron/v3"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/database"
	"tradeacademy_backend/pkg/email"
	"tradeacademy_backend/pkg/policy"
)

func InitSubscriptionExpiryCron(clock policy.Clock) {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		sweepSubscriptions(clock)
	})

	if err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
		return
	}

	c.Start()
}

// sweepSubscriptions lapses subscriptions whose end date passed and sends
// expiry warnings. Dates are parsed in Go because the stored encodings vary.
func sweepSubscriptions(clock policy.Clock) {
	log.Println("Sweeping subscriptions...")

	var subs []model.UserSubscription
	err := database.DB.Where("status IN ?", []model.SubscriptionStatus{model.StatusActive, model.StatusPending}).
		Preload("User").
		Find(&subs).Error
	if err != nil {
		log.Printf("Error fetching subscriptions: %v", err)
		return
	}

	now := clock.Now()
	lapsed := 0

	for i := range subs {
		sub := &subs[i]
		derived := policy.DeriveStatus(sub, now)

		if derived.Status != sub.Status {
			if err := database.DB.Model(sub).Update("status", derived.Status).Error; err != nil {
				log.Printf("Error updating subscription %d status: %v", sub.ID, err)
				continue
			}
			if derived.Status == model.StatusPending {
				lapsed++
			}
			continue
		}

		if derived.Status == model.StatusActive && (derived.DaysRemaining == 7 || derived.DaysRemaining == 3) {
			if email.GlobalEmailService == nil {
				continue
			}
			end, err := policy.ParseDate(sub.EndDate)
			if err != nil {
				continue
			}
			err = email.GlobalEmailService.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.GetFullName(),
				sub.StrategyName,
				end,
				derived.DaysRemaining,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
			} else {
				log.Printf("Sent expiry warning to %s (%d days left)", sub.User.Email, derived.DaysRemaining)
			}
		}
	}

	log.Printf("Subscription sweep done, %d lapsed to pending", lapsed)
}
