package model

import "gorm.io/gorm"

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPending   SubscriptionStatus = "pending"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// UserSubscription is a user's enrollment in one strategy for a billing cycle.
// Strategy name and price are denormalized at creation time so history stays
// intact when the catalog changes. Dates are stored as strings because the
// backend has emitted several encodings over time; pkg/policy parses them
// defensively.
type UserSubscription struct {
	gorm.Model
	UserID        uint               `json:"user_id"`
	StrategyID    uint               `json:"strategy_id"`
	StrategyName  string             `json:"strategy_name"`
	StrategyPrice int64              `json:"strategy_price"`
	Status        SubscriptionStatus `json:"status" gorm:"default:'active'"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	Price         int64              `json:"price"`

	// Relations
	User     User     `json:"-" gorm:"foreignKey:UserID"`
	Strategy Strategy `json:"-" gorm:"foreignKey:StrategyID"`
}
