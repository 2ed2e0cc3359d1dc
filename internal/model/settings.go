package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const SettingTelegram = "telegram"

// PlatformSetting is a keyed JSON blob for dashboard-facing configuration
// such as the Telegram community block.
type PlatformSetting struct {
	gorm.Model
	Key   string         `json:"key" gorm:"uniqueIndex;not null"`
	Value datatypes.JSON `json:"value"`
}

// TelegramSettings is the shape stored under the "telegram" key.
type TelegramSettings struct {
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"` // personal | group | channel
	Link    string `json:"link"`
	Label   string `json:"label"`
}
