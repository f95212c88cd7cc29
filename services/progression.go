package services

import (
	"fmt"
	"log"
	"math"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

// BaseXPPerLevel is the XP needed to go from level 1 to level 2; every
// further level costs 1.5× the previous one.
const BaseXPPerLevel = 100

// MaxSessionXP caps the XP granted for a single logged session.
const MaxSessionXP = 120

// XPForNextLevel returns the XP required to reach level+1 from level.
// The threshold is round-half-up of 100 * 1.5^(level-1); the rounding mode
// is a fixed contract, tests depend on it.
func XPForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Round(BaseXPPerLevel * math.Pow(1.5, float64(level-1))))
}

// ProgressPercentage is within-level progress, clamped to 100.
func ProgressPercentage(currentXP int64, level int) int {
	required := XPForNextLevel(level)
	if required <= 0 {
		return 100
	}
	pct := int(math.Round(float64(currentXP) / float64(required) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// levelTitles: highest threshold <= level wins.
var levelTitles = []struct {
	MinLevel int
	Name     string
}{
	{50, "Grandmaster"},
	{30, "Master"},
	{20, "Expert"},
	{10, "Scholar"},
	{5, "Student"},
	{1, "Beginner"},
}

func LevelName(level int) string {
	for _, t := range levelTitles {
		if level >= t.MinLevel {
			return t.Name
		}
	}
	return "Beginner"
}

// LevelSnapshot is the progression state returned to handlers after an award.
type LevelSnapshot struct {
	Level              int    `json:"level"`
	LevelName          string `json:"level_name"`
	CurrentXP          int64  `json:"xp"`
	TotalXP            int64  `json:"total_xp"`
	XPForNextLevel     int64  `json:"xp_for_next_level"`
	ProgressPercentage int    `json:"progress"`
}

func snapshotOf(lvl *models.UserLevel) LevelSnapshot {
	return LevelSnapshot{
		Level:              lvl.CurrentLevel,
		LevelName:          LevelName(lvl.CurrentLevel),
		CurrentXP:          lvl.CurrentXP,
		TotalXP:            lvl.TotalXP,
		XPForNextLevel:     XPForNextLevel(lvl.CurrentLevel),
		ProgressPercentage: ProgressPercentage(lvl.CurrentXP, lvl.CurrentLevel),
	}
}

type ProgressionService struct {
	DB    *gorm.DB
	Clock Clock
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db, Clock: SystemClock}
}

// EnsureUserLevel ensures a UserLevel row exists (idempotent).
func (s *ProgressionService) EnsureUserLevel(userID string) (*models.UserLevel, error) {
	return s.ensureUserLevelTx(s.DB, userID)
}

func (s *ProgressionService) ensureUserLevelTx(tx *gorm.DB, userID string) (*models.UserLevel, error) {
	var lvl models.UserLevel
	err := tx.Where("user_id = ?", userID).First(&lvl).Error
	if err == gorm.ErrRecordNotFound {
		lvl = models.UserLevel{
			UserID:                userID,
			CurrentLevel:          1,
			StreakFreezeAvailable: 2,
		}
		if err := tx.Create(&lvl).Error; err != nil {
			return nil, err
		}
		return &lvl, nil
	}
	if err != nil {
		return nil, err
	}
	return &lvl, nil
}

// AwardXP updates XP and level in its own transaction — returns the updated
// snapshot. Use awardXPTx from inside a larger unit of work.
func (s *ProgressionService) AwardXP(userID string, amount int64, reason string) (*LevelSnapshot, error) {
	var snap *LevelSnapshot
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		snap, err = s.awardXPTx(tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// awardXPTx applies an award inside an existing transaction. Negative
// amounts are clamped to zero — XP is never taken away.
func (s *ProgressionService) awardXPTx(tx *gorm.DB, userID string, amount int64, reason string) (*LevelSnapshot, error) {
	if amount < 0 {
		amount = 0
	}

	lvl, err := s.ensureUserLevelTx(tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load level for %s: %w", userID, err)
	}

	lvl.TotalXP += amount
	lvl.CurrentXP += amount

	// A single large award can cascade through several levels.
	leveledUp := false
	for lvl.CurrentXP >= XPForNextLevel(lvl.CurrentLevel) {
		lvl.CurrentXP -= XPForNextLevel(lvl.CurrentLevel)
		lvl.CurrentLevel++
		leveledUp = true
	}
	if leveledUp {
		now := s.Clock.Now()
		lvl.LastLevelUpAt = &now
	}

	if err := tx.Save(lvl).Error; err != nil {
		return nil, err
	}

	if amount > 0 {
		log.Printf("🎮 XP awarded: user=%s +%d → lvl=%d xp=%d/%d (reason: %s)",
			userID, amount, lvl.CurrentLevel, lvl.CurrentXP, XPForNextLevel(lvl.CurrentLevel), reason)
	}

	snap := snapshotOf(lvl)
	return &snap, nil
}

// Snapshot returns the current progression state without mutating it.
func (s *ProgressionService) Snapshot(userID string) (*LevelSnapshot, error) {
	lvl, err := s.EnsureUserLevel(userID)
	if err != nil {
		return nil, err
	}
	snap := snapshotOf(lvl)
	return &snap, nil
}
