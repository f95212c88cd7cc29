package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account record. Streak state lives directly on the user row
// because it is read on every dashboard hit and written at most once per day.
type User struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	AvatarURL    *string `json:"avatar_url,omitempty"`

	CurrentStreak            int        `gorm:"default:0" json:"current_streak"`
	LongestStreak            int        `gorm:"default:0" json:"longest_streak"`
	LastStudyDate            *time.Time `json:"last_study_date,omitempty"`
	HasUsedStreakFreezeToday bool       `gorm:"default:false" json:"has_used_streak_freeze_today"`

	Timestamps
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
