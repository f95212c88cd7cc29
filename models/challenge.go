package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChallengeType is the period a challenge instance lives for
type ChallengeType string

const (
	ChallengeDaily  ChallengeType = "daily"
	ChallengeWeekly ChallengeType = "weekly"
)

// ChallengeMetric is the counter a challenge tracks
type ChallengeMetric string

const (
	MetricStudyMinutes  ChallengeMetric = "study_minutes"  // additive: minutes studied
	MetricSessionsCount ChallengeMetric = "sessions_count" // additive: distinct study days (+1 on first session of a day)
	MetricTopicsCount   ChallengeMetric = "topics_count"   // absolute: distinct topics today
)

// Challenge: static catalog (seeded at startup)
type Challenge struct {
	ID               string          `gorm:"primaryKey;type:uuid" json:"id"`
	Code             string          `gorm:"uniqueIndex;not null" json:"code"`
	Name             string          `gorm:"not null" json:"name"`
	Description      string          `json:"description"`
	Icon             string          `gorm:"size:10" json:"icon"`
	Type             ChallengeType   `gorm:"not null" json:"type"`
	RequirementType  ChallengeMetric `gorm:"not null" json:"requirement_type"`
	RequirementValue int             `gorm:"not null" json:"requirement_value"`
	XPReward         int64           `gorm:"default:0" json:"xp_reward"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// UserChallenge is one user's instance of a challenge for one period.
// Daily rows set ChallengeDate; weekly rows set WeekNumber+Year (ISO week).
// The partial unique indexes give first-access-wins creation: the loser of a
// concurrent create hits a duplicate key and re-reads.
type UserChallenge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"not null;uniqueIndex:idx_user_challenge_day;uniqueIndex:idx_user_challenge_week" json:"user_id"`
	ChallengeID string `gorm:"not null;uniqueIndex:idx_user_challenge_day;uniqueIndex:idx_user_challenge_week" json:"challenge_id"`

	CurrentProgress int        `gorm:"default:0" json:"current_progress"`
	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	ChallengeDate *time.Time `gorm:"uniqueIndex:idx_user_challenge_day" json:"challenge_date,omitempty"`
	WeekNumber    *int       `gorm:"uniqueIndex:idx_user_challenge_week" json:"week_number,omitempty"`
	Year          *int       `gorm:"uniqueIndex:idx_user_challenge_week" json:"year,omitempty"`

	Challenge Challenge `gorm:"foreignKey:ChallengeID" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (uc *UserChallenge) BeforeCreate(tx *gorm.DB) error {
	if uc.ID == "" {
		uc.ID = uuid.NewString()
	}
	return nil
}

// DefaultChallenges is the seed catalog.
var DefaultChallenges = []Challenge{
	// Daily
	{Name: "Daily Focus", Description: "Study for 30 minutes today", Icon: "📖", Type: ChallengeDaily, RequirementType: MetricStudyMinutes, RequirementValue: 30, XPReward: 25},
	{Name: "Power Hour", Description: "Study for 60 minutes today", Icon: "💪", Type: ChallengeDaily, RequirementType: MetricStudyMinutes, RequirementValue: 60, XPReward: 50},
	{Name: "Topic Explorer", Description: "Study 2 different topics today", Icon: "🔍", Type: ChallengeDaily, RequirementType: MetricTopicsCount, RequirementValue: 2, XPReward: 30},

	// Weekly
	{Name: "Weekly Warrior", Description: "Study for 5 hours this week", Icon: "⚔️", Type: ChallengeWeekly, RequirementType: MetricStudyMinutes, RequirementValue: 300, XPReward: 150},
	{Name: "Consistent Week", Description: "Study at least 5 days this week", Icon: "📅", Type: ChallengeWeekly, RequirementType: MetricSessionsCount, RequirementValue: 5, XPReward: 100},
}
