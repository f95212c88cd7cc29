package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxDailyMinutes caps the total logged time for one calendar day.
const MaxDailyMinutes = 1440

// StudyLog is a single study session entry.
type StudyLog struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string    `gorm:"index;not null" json:"user_id"`
	Topic           string    `gorm:"index;not null" json:"topic"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	StudyDate       time.Time `gorm:"index;not null" json:"study_date"`
	Notes           *string   `gorm:"type:text" json:"notes,omitempty"`

	// Derived for API responses, always one decimal place.
	DurationHours float64 `gorm:"-" json:"duration_hours"`

	Timestamps
}

func (l *StudyLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l *StudyLog) AfterFind(tx *gorm.DB) error {
	l.DurationHours = math.Round(float64(l.DurationMinutes)/60*10) / 10
	return nil
}

// DailyActivity is a per-user per-day rollup of study_logs, kept current by
// the study log service on every write and reconciled by the rollup worker.
// The heatmap reads this table instead of scanning a year of raw logs.
type DailyActivity struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"uniqueIndex:idx_daily_activity_user_date;not null" json:"user_id"`
	ActivityDate time.Time `gorm:"uniqueIndex:idx_daily_activity_user_date;not null" json:"activity_date"`
	TotalMinutes int       `gorm:"default:0" json:"total_minutes"`
	Sessions     int       `gorm:"default:0" json:"sessions"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (a *DailyActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
