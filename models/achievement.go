package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AchievementCategory groups achievements for display
type AchievementCategory string

const (
	CategoryMilestone AchievementCategory = "milestone"
	CategoryStreak    AchievementCategory = "streak"
	CategorySpecial   AchievementCategory = "special"
)

// RequirementType selects which aggregate an achievement is checked against
type RequirementType string

const (
	RequirementTotalHours    RequirementType = "total_hours"    // sum(duration)/60 >= value
	RequirementStreakDays    RequirementType = "streak_days"    // longest_streak >= value
	RequirementTopicHours    RequirementType = "topic_hours"    // per-topic hours >= value
	RequirementSessionsCount RequirementType = "sessions_count" // count(sessions) >= value
	RequirementEarlyBird     RequirementType = "early_bird"     // sessions logged before 06:00
	RequirementNightOwl      RequirementType = "night_owl"      // sessions logged after 22:00
)

// Achievement: static catalog (seeded at startup, admin-managed)
type Achievement struct {
	ID               string              `gorm:"primaryKey;type:uuid" json:"id"`
	Code             string              `gorm:"uniqueIndex;not null" json:"code"` // e.g. "first-step"
	Name             string              `gorm:"not null" json:"name"`
	Description      string              `json:"description"`
	Icon             string              `gorm:"size:10" json:"icon"`
	Category         AchievementCategory `gorm:"not null" json:"category"`
	RequirementType  RequirementType     `gorm:"not null" json:"requirement_type"`
	RequirementValue int                 `gorm:"not null" json:"requirement_value"`
	RequirementTopic *string             `json:"requirement_topic,omitempty"`
	XPReward         int64               `gorm:"default:0" json:"xp_reward"`
	IsActive         bool                `gorm:"default:true" json:"is_active"`
	SortOrder        int                 `gorm:"default:0" json:"sort_order"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// UserAchievement: unlocked instance. The unique index makes unlocking
// exactly-once under concurrent evaluation; a duplicate-key insert means
// another request got there first.
type UserAchievement struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string     `gorm:"uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementID string     `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt    time.Time  `gorm:"not null" json:"unlocked_at"`
	IsClaimed     bool       `gorm:"default:false" json:"is_claimed"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`

	Achievement Achievement `gorm:"foreignKey:AchievementID" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	return nil
}

// DefaultAchievements is the seed catalog (codes are derived from names at
// seed time).
var DefaultAchievements = []Achievement{
	// Milestones
	{Name: "First Step", Description: "Complete your first study session", Icon: "🎯", Category: CategoryMilestone, RequirementType: RequirementSessionsCount, RequirementValue: 1, XPReward: 50, SortOrder: 1},
	{Name: "Getting Started", Description: "Complete 10 study sessions", Icon: "📚", Category: CategoryMilestone, RequirementType: RequirementSessionsCount, RequirementValue: 10, XPReward: 100, SortOrder: 2},
	{Name: "Dedicated Learner", Description: "Complete 50 study sessions", Icon: "🎓", Category: CategoryMilestone, RequirementType: RequirementSessionsCount, RequirementValue: 50, XPReward: 200, SortOrder: 3},
	{Name: "Study Master", Description: "Complete 100 study sessions", Icon: "🏆", Category: CategoryMilestone, RequirementType: RequirementSessionsCount, RequirementValue: 100, XPReward: 500, SortOrder: 4},
	{Name: "Hour Power", Description: "Study for 1 hour total", Icon: "⏰", Category: CategoryMilestone, RequirementType: RequirementTotalHours, RequirementValue: 1, XPReward: 50, SortOrder: 5},
	{Name: "Time Investor", Description: "Study for 10 hours total", Icon: "⏱️", Category: CategoryMilestone, RequirementType: RequirementTotalHours, RequirementValue: 10, XPReward: 150, SortOrder: 6},
	{Name: "Century Club", Description: "Study for 100 hours total", Icon: "💯", Category: CategoryMilestone, RequirementType: RequirementTotalHours, RequirementValue: 100, XPReward: 1000, SortOrder: 7},

	// Streaks
	{Name: "3-Day Streak", Description: "Study for 3 consecutive days", Icon: "🔥", Category: CategoryStreak, RequirementType: RequirementStreakDays, RequirementValue: 3, XPReward: 30, SortOrder: 10},
	{Name: "Consistent Learner", Description: "Maintain a 7-day streak", Icon: "🔥", Category: CategoryStreak, RequirementType: RequirementStreakDays, RequirementValue: 7, XPReward: 200, SortOrder: 11},
	{Name: "Streak Master", Description: "Maintain a 30-day streak", Icon: "🌟", Category: CategoryStreak, RequirementType: RequirementStreakDays, RequirementValue: 30, XPReward: 500, SortOrder: 12},
	{Name: "Unstoppable", Description: "Maintain a 100-day streak", Icon: "💫", Category: CategoryStreak, RequirementType: RequirementStreakDays, RequirementValue: 100, XPReward: 2000, SortOrder: 13},

	// Special
	{Name: "Early Bird", Description: "Log 5 study sessions before 6 AM", Icon: "🌅", Category: CategorySpecial, RequirementType: RequirementEarlyBird, RequirementValue: 5, XPReward: 100, SortOrder: 20},
	{Name: "Night Owl", Description: "Log 5 study sessions after 10 PM", Icon: "🦉", Category: CategorySpecial, RequirementType: RequirementNightOwl, RequirementValue: 5, XPReward: 100, SortOrder: 21},
}
