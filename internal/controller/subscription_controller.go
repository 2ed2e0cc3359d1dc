package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/access"
	"tradeacademy_backend/pkg/config"
	"tradeacademy_backend/pkg/database"
	"tradeacademy_backend/pkg/email"
	"tradeacademy_backend/pkg/payment"
	"tradeacademy_backend/pkg/policy"
	"tradeacademy_backend/pkg/utils/jwt"
)

type InitiateInput struct {
	StrategyID    uint   `json:"strategy_id" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required"`
	Currency      string `json:"currency" validate:"required"`
}

type RenewInput struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Currency      string `json:"currency" validate:"required"`
}

type UpgradeInput struct {
	NewStrategyID uint   `json:"new_strategy_id"`
	WalletAddress string `json:"wallet_address" validate:"required"`
	Currency      string `json:"currency" validate:"required"`
}

type ConfirmPaymentInput struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

type VideoActionInput struct {
	VideoID uint `json:"video_id" validate:"required"`
}

var (
	subClock     policy.Clock
	paymentCfg   config.PaymentConfig
	orchestrator *payment.Orchestrator
	gateway      *payment.Gateway
)

func InitSubscriptionController(cfg *config.Config, clock policy.Clock) {
	subClock = clock
	paymentCfg = cfg.Payment
	gateway = payment.NewGateway(cfg.Payment.GatewayURL, cfg.Payment.GatewayAPIKey)
	orchestrator = payment.NewOrchestrator(gateway, sessionSink{}, cfg.Payment.PollInterval, cfg.Payment.PollAttempts)
}

func ShutdownSubscriptionController() {
	if orchestrator != nil {
		orchestrator.Close()
	}
}

// GetMySubscription returns the user's latest non-cancelled subscription with
// its status recomputed from the end date. The derived status wins over a
// stale stored one and the drift is written back.
func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.UserSubscription
	if err := database.DB.Where("user_id = ? AND status <> ?", claims.UserID, model.StatusCancelled).
		Order("created_at DESC").First(&sub).Error; err != nil {
		return c.JSON(nil)
	}

	derived := policy.DeriveStatus(&sub, subClock.Now())
	if derived.Status != sub.Status {
		if err := database.DB.Model(&sub).Update("status", derived.Status).Error; err != nil {
			log.Printf("Could not persist derived status for subscription %d: %v", sub.ID, err)
		}
		sub.Status = derived.Status
	}

	return c.JSON(fiber.Map{
		"id":             sub.ID,
		"strategy_id":    sub.StrategyID,
		"strategy_name":  sub.StrategyName,
		"strategy_price": sub.StrategyPrice,
		"status":         sub.Status,
		"start_date":     sub.StartDate,
		"end_date":       sub.EndDate,
		"price":          sub.Price,
		"days_remaining": derived.DaysRemaining,
		"renewal_fee":    paymentCfg.RenewalFee,
	})
}

// InitiateSubscription starts the payment flow for a new subscription.
func InitiateSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(InitiateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Wallet address is required",
		})
	}

	var strategy model.Strategy
	if err := database.DB.First(&strategy, input.StrategyID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Strategy not found",
		})
	}

	current := loadCurrentSubscription(claims.UserID)
	if err := policy.CanSubscribe(current, strategy.ID, subClock.Now()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return createPaymentSession(c, claims.UserID, model.ActionSubscribe, &strategy.ID,
		strategy.Price, input.Currency, input.WalletAddress,
		fmt.Sprintf("Subscribe to %s", strategy.Name))
}

// RenewSubscription starts the flat-fee renewal payment for a lapsed
// subscription.
func RenewSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(RenewInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Wallet address is required",
		})
	}

	sub := loadCurrentSubscription(claims.UserID)
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No subscription to renew",
		})
	}

	derived := policy.DeriveStatus(sub, subClock.Now())
	if derived.Status == model.StatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Subscription is still active",
		})
	}

	strategyID := sub.StrategyID
	return createPaymentSession(c, claims.UserID, model.ActionRenew, &strategyID,
		paymentCfg.RenewalFee, input.Currency, input.WalletAddress,
		fmt.Sprintf("Renew %s", sub.StrategyName))
}

// UpgradeSubscription switches the subscription to another strategy.
// Upgrades charge the price difference, downgrades the full new-plan price,
// and an equal-priced switch completes immediately with no payment step.
func UpgradeSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(UpgradeInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Wallet address is required",
		})
	}
	if input.NewStrategyID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please select a strategy to switch to",
		})
	}

	sub := loadCurrentSubscription(claims.UserID)
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No subscription to upgrade",
		})
	}
	if sub.StrategyID == input.NewStrategyID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": policy.ErrSameStrategy.Error(),
		})
	}

	var target model.Strategy
	if err := database.DB.First(&target, input.NewStrategyID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Strategy not found",
		})
	}

	session, description, paymentRequired := planStrategyChange(claims.UserID, sub, &target,
		input.Currency, input.WalletAddress)

	if !paymentRequired {
		// Lateral move, no payment step at all
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			return applySessionAction(tx, &session)
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not switch strategy",
			})
		}
		return c.JSON(fiber.Map{
			"no_payment_required": true,
			"message":             "Strategy switched, no payment required",
		})
	}

	return createPaymentSession(c, claims.UserID, model.ActionUpgrade, &target.ID,
		session.AmountDue, input.Currency, input.WalletAddress, description)
}

// planStrategyChange prices a switch and pre-builds its session. An
// equal-priced switch comes back already confirmed with nothing due, so the
// caller never registers it with the payment gateway.
func planStrategyChange(userID uint, sub *model.UserSubscription, target *model.Strategy,
	currency, walletAddress string) (model.PaymentSession, string, bool) {

	amount, kind := policy.PriceForChange(sub.StrategyPrice, target)
	session := model.PaymentSession{
		PaymentID:     uuid.NewString(),
		UserID:        userID,
		Action:        model.ActionUpgrade,
		StrategyID:    &target.ID,
		AmountDue:     amount,
		Currency:      currency,
		WalletAddress: walletAddress,
		Status:        model.PaymentAwaiting,
	}
	if amount == 0 {
		session.Status = model.PaymentConfirmed
		return session, "", false
	}
	return session, fmt.Sprintf("%s to %s", kind, target.Name), true
}

// ConfirmPayment is the manual "check now" path. It shares the idempotent
// confirmation call with the scheduled poll, so racing the two is safe.
func ConfirmPayment(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ConfirmPaymentInput)
	if err := c.BodyParser(input); err != nil || input.PaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payment ID is required",
		})
	}

	var session model.PaymentSession
	if err := database.DB.Where("payment_id = ? AND user_id = ?", input.PaymentID, claims.UserID).
		First(&session).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Payment session not found",
		})
	}

	if session.Status == model.PaymentConfirmed {
		return c.JSON(fiber.Map{
			"status":  model.PaymentConfirmed,
			"message": "Payment already confirmed",
		})
	}

	confirmed, err := orchestrator.CheckNow(session.PaymentID)
	if err != nil {
		log.Printf("Manual confirmation check for %s failed: %v", session.PaymentID, err)
	}
	if !confirmed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Payment not yet confirmed",
			"status": session.Status,
		})
	}

	return c.JSON(fiber.Map{
		"status":  model.PaymentConfirmed,
		"message": "Payment confirmed",
	})
}

// CancelSubscription is terminal: access ends immediately. Watch history is
// kept but stays gated behind a future subscription.
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.UserSubscription
	if err := database.DB.Where("user_id = ? AND status <> ?", claims.UserID, model.StatusCancelled).
		Preload("User").
		Order("created_at DESC").First(&sub).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	if err := database.DB.Model(&sub).Update("status", model.StatusCancelled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	orchestrator.StopWatch(claims.UserID)

	if email.GlobalEmailService != nil {
		if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(
			sub.User.Email, sub.User.GetFullName(), sub.StrategyName); err != nil {
			log.Printf("Could not send subscription cancellation email: %v", err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled successfully",
	})
}

// GetVideoProgress returns the subscription, aggregate progress and the
// per-video access flags for the user's current strategy.
func GetVideoProgress(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	sub := c.Locals("subscription").(*model.UserSubscription)

	var strategy model.Strategy
	if err := database.DB.First(&strategy, sub.StrategyID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch strategy",
		})
	}

	videos, completed, err := loadCurriculum(claims.UserID, sub.StrategyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch videos",
		})
	}

	videoAccess, progress := access.Compute(videos, completed)
	derived := policy.DeriveStatus(sub, subClock.Now())

	return c.JSON(fiber.Map{
		"subscription": fiber.Map{
			"id":              sub.ID,
			"strategy_id":     sub.StrategyID,
			"strategy_name":   sub.StrategyName,
			"strategy_number": strategy.Number,
			"status":          derived.Status,
			"end_date":        sub.EndDate,
			"days_remaining":  derived.DaysRemaining,
		},
		"progress": progress,
		"videos":   videoAccess,
	})
}

// CompleteVideo appends a completion record. Only the current video (or an
// already completed one, which is a no-op) may be completed.
func CompleteVideo(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	sub := c.Locals("subscription").(*model.UserSubscription)

	input := new(VideoActionInput)
	if err := c.BodyParser(input); err != nil || input.VideoID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Video ID is required",
		})
	}

	var video model.Video
	if err := database.DB.First(&video, input.VideoID).Error; err != nil || video.StrategyID != sub.StrategyID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found in your strategy",
		})
	}

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

	completion := model.VideoCompletion{UserID: claims.UserID, VideoID: video.ID}
	if err := database.DB.
		Where(model.VideoCompletion{UserID: claims.UserID, VideoID: video.ID}).
		FirstOrCreate(&completion).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record completion",
		})
	}

	completed[video.ID] = true
	_, progress := access.Compute(videos, completed)

	return c.JSON(fiber.Map{
		"message":  "Video marked as completed",
		"progress": progress,
	})
}

// ValidateVideoAccess is the authoritative server-side access check the
// player calls before loading a video.
func ValidateVideoAccess(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	sub := c.Locals("subscription").(*model.UserSubscription)

	input := new(VideoActionInput)
	if err := c.BodyParser(input); err != nil || input.VideoID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Video ID is required",
		})
	}

	videos, completed, err := loadCurriculum(claims.UserID, sub.StrategyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch videos",
		})
	}

	canAccess, reason := access.CanAccess(videos, completed, input.VideoID)
	if !canAccess {
		return c.JSON(fiber.Map{
			"can_access": false,
			"reason":     reason,
		})
	}

	return c.JSON(fiber.Map{
		"can_access": true,
	})
}

// createPaymentSession registers the payment with the gateway, persists the
// session and starts the confirmation polling loop.
func createPaymentSession(c *fiber.Ctx, userID uint, action model.PaymentAction,
	strategyID *uint, amount int64, currency, walletAddress, description string) error {

	paymentID := uuid.NewString()

	created, err := gateway.CreatePayment(payment.CreatePaymentRequest{
		PaymentID:     paymentID,
		Amount:        amount,
		PriceCurrency: "usd",
		PayCurrency:   currency,
		Description:   description,
	})
	if err != nil {
		log.Printf("Gateway payment creation failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not create payment",
		})
	}

	session := model.PaymentSession{
		PaymentID:     paymentID,
		UserID:        userID,
		Action:        action,
		StrategyID:    strategyID,
		AmountDue:     amount,
		Currency:      currency,
		WalletAddress: walletAddress,
		PayAddress:    created.PayAddress,
		Status:        model.PaymentAwaiting,
	}
	if err := database.DB.Create(&session).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save payment session",
		})
	}

	orchestrator.Watch(userID, paymentID)

	return c.JSON(fiber.Map{
		"payment_id":  paymentID,
		"action":      action,
		"amount_due":  amount,
		"currency":    currency,
		"pay_address": created.PayAddress,
		"status":      model.PaymentAwaiting,
	})
}

func loadCurrentSubscription(userID uint) *model.UserSubscription {
	var sub model.UserSubscription
	if err := database.DB.Where("user_id = ? AND status <> ?", userID, model.StatusCancelled).
		Order("created_at DESC").First(&sub).Error; err != nil {
		return nil
	}
	return &sub
}

func loadCurriculum(userID, strategyID uint) ([]model.Video, map[uint]bool, error) {
	var videos []model.Video
	if err := database.DB.Where("strategy_id = ?", strategyID).
		Order("video_number ASC").Find(&videos).Error; err != nil {
		return nil, nil, err
	}

	var completions []model.VideoCompletion
	if err := database.DB.Where("user_id = ?", userID).Find(&completions).Error; err != nil {
		return nil, nil, err
	}

	completed := make(map[uint]bool, len(completions))
	for _, comp := range completions {
		completed[comp.VideoID] = true
	}
	return videos, completed, nil
}

// sessionSink applies terminal payment transitions to the database.
type sessionSink struct{}

func (sessionSink) PaymentConfirmed(paymentID string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var session model.PaymentSession
		if err := tx.Where("payment_id = ?", paymentID).First(&session).Error; err != nil {
			return err
		}
		if session.Status == model.PaymentConfirmed {
			return nil
		}
		if err := tx.Model(&session).Update("status", model.PaymentConfirmed).Error; err != nil {
			return err
		}
		return applySessionAction(tx, &session)
	})
}

func (sessionSink) PaymentTimedOut(paymentID string) error {
	return database.DB.Model(&model.PaymentSession{}).
		Where("payment_id = ? AND status = ?", paymentID, model.PaymentAwaiting).
		Update("status", model.PaymentTimedOut).Error
}

// applySessionAction turns a confirmed payment into the subscription change
// it was created for.
func applySessionAction(tx *gorm.DB, session *model.PaymentSession) error {
	now := subClock.Now()

	var user model.User
	if err := tx.First(&user, session.UserID).Error; err != nil {
		return err
	}

	switch session.Action {
	case model.ActionSubscribe:
		var strategy model.Strategy
		if err := tx.First(&strategy, *session.StrategyID).Error; err != nil {
			return err
		}
		sub := model.UserSubscription{
			UserID:        session.UserID,
			StrategyID:    strategy.ID,
			StrategyName:  strategy.Name,
			StrategyPrice: strategy.Price,
			Status:        model.StatusActive,
			StartDate:     now.Format(time.RFC3339),
			EndDate:       policy.CycleEnd(now).Format(time.RFC3339),
			Price:         session.AmountDue,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		sendSubscriptionEmail(&user, strategy.Name, session.AmountDue, policy.CycleEnd(now), false)
		return nil

	case model.ActionRenew:
		var sub model.UserSubscription
		if err := tx.Where("user_id = ? AND status <> ?", session.UserID, model.StatusCancelled).
			Order("created_at DESC").First(&sub).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"status":     model.StatusActive,
			"start_date": now.Format(time.RFC3339),
			"end_date":   policy.CycleEnd(now).Format(time.RFC3339),
			"price":      session.AmountDue,
		}
		if err := tx.Model(&sub).Updates(updates).Error; err != nil {
			return err
		}
		sendSubscriptionEmail(&user, sub.StrategyName, session.AmountDue, policy.CycleEnd(now), true)
		return nil

	case model.ActionUpgrade:
		var sub model.UserSubscription
		if err := tx.Where("user_id = ? AND status <> ?", session.UserID, model.StatusCancelled).
			Order("created_at DESC").First(&sub).Error; err != nil {
			return err
		}
		var strategy model.Strategy
		if err := tx.First(&strategy, *session.StrategyID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"strategy_id":    strategy.ID,
			"strategy_name":  strategy.Name,
			"strategy_price": strategy.Price,
			"status":         model.StatusActive,
			"price":          session.AmountDue,
		}
		// A switch on a lapsed subscription is a combined renew+switch and
		// starts a fresh cycle. An in-cycle change keeps the end date.
		cycleEnd := policy.CycleEnd(now)
		derived := policy.DeriveStatus(&sub, now)
		if derived.Status != model.StatusActive {
			updates["start_date"] = now.Format(time.RFC3339)
			updates["end_date"] = cycleEnd.Format(time.RFC3339)
		} else if end, err := policy.ParseDate(sub.EndDate); err == nil {
			cycleEnd = end
		}
		if err := tx.Model(&sub).Updates(updates).Error; err != nil {
			return err
		}
		sendSubscriptionEmail(&user, strategy.Name, session.AmountDue, cycleEnd, false)
		return nil

	default:
		return fmt.Errorf("unknown payment action: %s", session.Action)
	}
}

func sendSubscriptionEmail(user *model.User, strategyName string, price int64, endDate time.Time, isRenewal bool) {
	if email.GlobalEmailService == nil {
		return
	}
	if err := email.GlobalEmailService.SendSubscriptionStartedEmail(
		user.Email, user.GetFullName(), strategyName, price, endDate, isRenewal); err != nil {
		log.Printf("Could not send subscription email: %v", err)
	}
}
