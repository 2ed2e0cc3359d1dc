package model

import "gorm.io/gorm"

type PaymentAction string

const (
	ActionSubscribe PaymentAction = "subscribe"
	ActionRenew     PaymentAction = "renew"
	ActionUpgrade   PaymentAction = "upgrade"
)

type PaymentStatus string

const (
	PaymentAwaiting  PaymentStatus = "awaiting_payment"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentTimedOut  PaymentStatus = "timed_out"
)

// PaymentSession tracks a single pending crypto payment tied to a
// subscription action. Short-lived: it is superseded by the subscription
// update once the gateway confirms the transfer.
type PaymentSession struct {
	gorm.Model
	PaymentID     string        `json:"payment_id" gorm:"uniqueIndex;not null"`
	UserID        uint          `json:"user_id" gorm:"index;not null"`
	Action        PaymentAction `json:"action" gorm:"not null"`
	StrategyID    *uint         `json:"strategy_id"`
	AmountDue     int64         `json:"amount_due"`
	Currency      string        `json:"currency"`
	WalletAddress string        `json:"wallet_address"`
	PayAddress    string        `json:"pay_address"`
	Status        PaymentStatus `json:"status" gorm:"default:'awaiting_payment'"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
