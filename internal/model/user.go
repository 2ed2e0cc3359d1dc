package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null" json:"-"`

	// Optional profile fields, editable from settings
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Avatar      string `json:"avatar"`

	// System fields
	IsVerified bool `json:"is_verified" gorm:"default:false"`
	IsAdmin    bool `json:"is_admin" gorm:"default:false"`

	// Relations
	Subscriptions []UserSubscription `json:"-"`
	Completions   []VideoCompletion  `json:"-"`
}

func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"email":        u.Email,
		"full_name":    u.GetFullName(),
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"phone_number": u.PhoneNumber,
		"avatar":       u.Avatar,
		"is_verified":  u.IsVerified,
		"is_admin":     u.IsAdmin,
	}
}
