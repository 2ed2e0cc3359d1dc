package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradeacademy_backend/internal/model"
)

func TestPlanStrategyChangeEqualPriceSkipsPayment(t *testing.T) {
	sub := &model.UserSubscription{StrategyID: 1, StrategyPrice: 100}
	target := &model.Strategy{Model: gorm.Model{ID: 2}, Name: "Swing Trading", Price: 100}

	session, _, paymentRequired := planStrategyChange(7, sub, target, "btc", "wallet-addr")

	assert.False(t, paymentRequired, "an equal-priced switch never reaches the gateway")
	assert.Equal(t, model.PaymentConfirmed, session.Status)
	assert.Equal(t, int64(0), session.AmountDue)
	assert.Equal(t, model.ActionUpgrade, session.Action)
	require.NotNil(t, session.StrategyID)
	assert.Equal(t, uint(2), *session.StrategyID)
	assert.NotEmpty(t, session.PaymentID)
}

func TestPlanStrategyChangePricedSwitch(t *testing.T) {
	sub := &model.UserSubscription{StrategyID: 1, StrategyPrice: 100}
	target := &model.Strategy{Model: gorm.Model{ID: 2}, Name: "Advanced Execution", Price: 300}

	session, description, paymentRequired := planStrategyChange(7, sub, target, "btc", "wallet-addr")

	assert.True(t, paymentRequired)
	assert.Equal(t, model.PaymentAwaiting, session.Status)
	assert.Equal(t, int64(200), session.AmountDue, "upgrades charge the difference")
	assert.Contains(t, description, "upgrade")

	// Downgrades charge the full new-plan price and still need a payment step
	downgrade := &model.Strategy{Model: gorm.Model{ID: 3}, Name: "Foundations", Price: 50}
	session, description, paymentRequired = planStrategyChange(7, sub, downgrade, "btc", "wallet-addr")

	assert.True(t, paymentRequired)
	assert.Equal(t, int64(50), session.AmountDue)
	assert.Contains(t, description, "downgrade")
}
