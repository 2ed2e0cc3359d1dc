package model

import "gorm.io/gorm"

// Video is one lesson inside a strategy. VideoNumber is unique within the
// strategy and defines the watch order. VideoURL is either an HLS playlist
// or a plain MP4; the client decides how to play it.
type Video struct {
	gorm.Model
	StrategyID    uint   `json:"strategy_id" gorm:"uniqueIndex:idx_strategy_video_number;not null"`
	VideoNumber   int    `json:"video_number" gorm:"uniqueIndex:idx_strategy_video_number;not null"`
	Title         string `json:"title" gorm:"not null"`
	Description   string `json:"description"`
	VideoURL      string `json:"video_url"`
	CoverPhotoURL string `json:"cover_photo_url"`

	// Relations
	Strategy Strategy `json:"-" gorm:"foreignKey:StrategyID"`
}

// VideoCompletion marks a video as watched to the end. Append-only: rows are
// never deleted, a completion survives subscription lapse and renewal.
type VideoCompletion struct {
	gorm.Model
	UserID  uint `json:"user_id" gorm:"uniqueIndex:idx_user_video;not null"`
	VideoID uint `json:"video_id" gorm:"uniqueIndex:idx_user_video;not null"`

	// Relations
	User  User  `json:"-" gorm:"foreignKey:UserID"`
	Video Video `json:"-" gorm:"foreignKey:VideoID"`
}
