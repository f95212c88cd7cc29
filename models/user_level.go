package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserLevel tracks gamified progression for each user (one row per user).
// CurrentXP is within-level progress; TotalXP is the lifetime sum and only
// ever grows.
type UserLevel struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	CurrentLevel int   `gorm:"default:1" json:"current_level"`
	CurrentXP    int64 `gorm:"default:0" json:"current_xp"`
	TotalXP      int64 `gorm:"default:0" json:"total_xp"`

	// New accounts start with two freezes (matches the seed data).
	StreakFreezeAvailable int        `gorm:"default:2" json:"streak_freeze_available"`
	LastStreakFreezeUsed  *time.Time `json:"last_streak_freeze_used,omitempty"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (l *UserLevel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
