package services

import (
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

// Local-time boundaries for the time-of-day achievements.
const (
	earlyBirdBeforeHour = 6  // sessions logged before 06:00
	nightOwlAfterHour   = 22 // sessions logged at 22:00 or later
)

type AchievementService struct {
	DB          *gorm.DB
	Clock       Clock
	Progression *ProgressionService
}

func NewAchievementService(db *gorm.DB, progression *ProgressionService) *AchievementService {
	return &AchievementService{DB: db, Clock: SystemClock, Progression: progression}
}

// UnlockedAchievement is what a freshly unlocked achievement looks like in a
// session-log response. XP is NOT included — it is granted on claim.
type UnlockedAchievement struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	XPReward    int64  `json:"xp_reward"`
}

// CheckUserAchievements evaluates every active achievement the user hasn't
// unlocked yet and unlocks the ones whose criteria are now met. Idempotent:
// an unlocked achievement is never re-returned.
func (s *AchievementService) CheckUserAchievements(user *models.User) ([]UnlockedAchievement, error) {
	return s.checkUserAchievementsTx(s.DB, user)
}

func (s *AchievementService) checkUserAchievementsTx(tx *gorm.DB, user *models.User) ([]UnlockedAchievement, error) {
	var achievements []models.Achievement
	if err := tx.Where("is_active = ?", true).Order("category, sort_order").Find(&achievements).Error; err != nil {
		return nil, err
	}

	unlockedIDs := map[string]bool{}
	var existing []models.UserAchievement
	if err := tx.Where("user_id = ?", user.ID).Find(&existing).Error; err != nil {
		return nil, err
	}
	for _, ua := range existing {
		unlockedIDs[ua.AchievementID] = true
	}

	newOnes := []UnlockedAchievement{}
	for _, ach := range achievements {
		if unlockedIDs[ach.ID] {
			continue
		}
		met, err := s.meetsCriteria(tx, user, &ach)
		if err != nil {
			return nil, err
		}
		if !met {
			continue
		}

		ua := models.UserAchievement{
			UserID:        user.ID,
			AchievementID: ach.ID,
			UnlockedAt:    s.Clock.Now(),
		}
		if err := tx.Create(&ua).Error; err != nil {
			if isDuplicateKey(err) {
				// Lost a race with a concurrent evaluation: already unlocked.
				continue
			}
			return nil, err
		}

		log.Printf("🏅 achievement unlocked: user=%s %q", user.ID, ach.Name)
		newOnes = append(newOnes, UnlockedAchievement{
			ID:          ach.ID,
			Code:        ach.Code,
			Name:        ach.Name,
			Description: ach.Description,
			Icon:        ach.Icon,
			XPReward:    ach.XPReward,
		})
	}
	return newOnes, nil
}

func (s *AchievementService) meetsCriteria(tx *gorm.DB, user *models.User, ach *models.Achievement) (bool, error) {
	current, err := s.currentMetric(tx, user, ach)
	if err != nil {
		return false, err
	}
	return current >= float64(ach.RequirementValue), nil
}

// currentMetric computes the aggregate an achievement is measured against.
// The switch is exhaustive over models.RequirementType.
func (s *AchievementService) currentMetric(tx *gorm.DB, user *models.User, ach *models.Achievement) (float64, error) {
	switch ach.RequirementType {
	case models.RequirementTotalHours:
		minutes, err := s.sumMinutes(tx, user.ID, "")
		return float64(minutes) / 60, err

	case models.RequirementStreakDays:
		return float64(user.LongestStreak), nil

	case models.RequirementTopicHours:
		if ach.RequirementTopic == nil || *ach.RequirementTopic == "" {
			return 0, nil
		}
		minutes, err := s.sumMinutes(tx, user.ID, *ach.RequirementTopic)
		return float64(minutes) / 60, err

	case models.RequirementSessionsCount:
		var count int64
		err := tx.Model(&models.StudyLog{}).Where("user_id = ?", user.ID).Count(&count).Error
		return float64(count), err

	case models.RequirementEarlyBird:
		n, err := s.countSessionsByHour(tx, user.ID, func(h int) bool { return h < earlyBirdBeforeHour })
		return float64(n), err

	case models.RequirementNightOwl:
		n, err := s.countSessionsByHour(tx, user.ID, func(h int) bool { return h >= nightOwlAfterHour })
		return float64(n), err

	default:
		return 0, nil
	}
}

func (s *AchievementService) sumMinutes(tx *gorm.DB, userID, topic string) (int64, error) {
	var total int64
	q := tx.Model(&models.StudyLog{}).Where("user_id = ?", userID)
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	err := q.Select("COALESCE(SUM(duration_minutes), 0)").Scan(&total).Error
	return total, err
}

// countSessionsByHour counts sessions by the local hour of created_at.
// Hour extraction differs between Postgres and SQLite, so the bucketing is
// done in Go over the timestamps.
func (s *AchievementService) countSessionsByHour(tx *gorm.DB, userID string, match func(hour int) bool) (int, error) {
	var stamps []time.Time
	if err := tx.Model(&models.StudyLog{}).Where("user_id = ?", userID).
		Pluck("created_at", &stamps).Error; err != nil {
		return 0, err
	}
	n := 0
	for _, ts := range stamps {
		if match(ts.Local().Hour()) {
			n++
		}
	}
	return n, nil
}

// AchievementProgress is the progress toward one achievement.
type AchievementProgress struct {
	Current    float64 `json:"current"`
	Target     int     `json:"target"`
	Percentage int     `json:"percentage"`
}

// GetProgress reports progress with the same aggregate used for unlocking.
// A zero target counts as fully complete (guards division by zero).
func (s *AchievementService) GetProgress(user *models.User, ach *models.Achievement) (*AchievementProgress, error) {
	current, err := s.currentMetric(s.DB, user, ach)
	if err != nil {
		return nil, err
	}
	current = math.Round(current*10) / 10

	p := &AchievementProgress{Current: current, Target: ach.RequirementValue}
	if ach.RequirementValue <= 0 {
		p.Percentage = 100
		return p, nil
	}
	pct := int(math.Round(current / float64(ach.RequirementValue) * 100))
	if pct > 100 {
		pct = 100
	}
	p.Percentage = pct
	return p, nil
}

// ClaimResult is returned after a successful claim.
type ClaimResult struct {
	XPGained  int64         `json:"xp_gained"`
	UserLevel LevelSnapshot `json:"user_level"`
}

// Claim marks an unlocked achievement claimed and grants its XP. Claiming a
// missing or already-claimed achievement fails with ErrAchievementNotClaimable.
func (s *AchievementService) Claim(userID, achievementID string) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var ua models.UserAchievement
		err := tx.Where("user_id = ? AND achievement_id = ? AND is_claimed = ?", userID, achievementID, false).
			First(&ua).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAchievementNotClaimable
		}
		if err != nil {
			return err
		}

		var ach models.Achievement
		if err := tx.Where("id = ?", ua.AchievementID).First(&ach).Error; err != nil {
			return err
		}

		now := s.Clock.Now()
		ua.IsClaimed = true
		ua.ClaimedAt = &now
		if err := tx.Save(&ua).Error; err != nil {
			return err
		}

		snap, err := s.Progression.awardXPTx(tx, userID, ach.XPReward, "achievement_"+ach.Code)
		if err != nil {
			return err
		}
		result = &ClaimResult{XPGained: ach.XPReward, UserLevel: *snap}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isDuplicateKey matches unique-constraint violations across Postgres and
// SQLite without driver-specific error types.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
