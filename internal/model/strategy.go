package model

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Strategy is a purchasable course track with an ordered video curriculum.
// Price is an integer in the platform currency's minor-unit-agnostic amount.
// Number is the catalog rank and defines the upgrade/downgrade direction.
type Strategy struct {
	gorm.Model
	Name          string `json:"name" gorm:"not null"`
	Slug          string `json:"slug" gorm:"uniqueIndex;not null"`
	Description   string `json:"description"`
	Price         int64  `json:"price" gorm:"not null"`
	Number        int    `json:"number" gorm:"uniqueIndex;not null"`
	ExpectedWeeks int    `json:"expected_weeks"`
	CoverPhotoURL string `json:"cover_photo_url"`

	// Relations
	Videos []Video `json:"-"`
}

// BeforeCreate fills the URL slug from the strategy name.
func (s *Strategy) BeforeCreate(tx *gorm.DB) error {
	if s.Slug == "" {
		base := slug.Make(s.Name)

		var count int64
		tx.Model(&Strategy{}).Where("slug = ?", base).Count(&count)
		// CreatedAt is not populated yet inside this hook
		s.Slug = uniqueSlug(base, count > 0, time.Now())
	}
	return nil
}

// uniqueSlug appends a date suffix when the base slug is already taken.
func uniqueSlug(base string, taken bool, now time.Time) string {
	if !taken {
		return base
	}
	return base + "-" + now.Format("20060102")
}
