package services

import (
	"log"
	"time"

	"study-tracking-system/models"

	"gorm.io/gorm"
)

// maxStreakWalk bounds the derived streak walk (and matches the longest
// achievement target).
const maxStreakWalk = 365

type StreakService struct {
	DB    *gorm.DB
	Clock Clock
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db, Clock: SystemClock}
}

// RecordStudyActivity updates the stored streak counters for a session logged
// on activityDate. The streak is keyed off "today": backfilled past-date
// sessions leave the counters untouched.
func (s *StreakService) RecordStudyActivity(tx *gorm.DB, user *models.User, activityDate time.Time) error {
	if !sameDay(activityDate, s.Clock.Now()) {
		return nil
	}
	return s.updateStreakTx(tx, user)
}

func (s *StreakService) updateStreakTx(tx *gorm.DB, user *models.User) error {
	today := dateOf(s.Clock.Now())
	yesterday := today.AddDate(0, 0, -1)

	switch {
	case user.LastStudyDate == nil:
		user.CurrentStreak = 1

	case sameDay(*user.LastStudyDate, today):
		// Already counted today.
		return nil

	case sameDay(*user.LastStudyDate, yesterday):
		user.CurrentStreak++

	default:
		// Gap of two or more days. A freeze preserves the streak value but
		// does not grow it — nothing was studied on the missed days.
		if s.consumeFreezeTx(tx, user, today) {
			log.Printf("🧊 streak freeze consumed: user=%s streak=%d preserved", user.ID, user.CurrentStreak)
		} else {
			user.CurrentStreak = 1
		}
	}

	user.LastStudyDate = &today
	if user.CurrentStreak > user.LongestStreak {
		user.LongestStreak = user.CurrentStreak
	}
	return tx.Save(user).Error
}

// consumeFreezeTx spends one streak freeze if the user has one and hasn't
// used one today. Reports whether the freeze was consumed.
func (s *StreakService) consumeFreezeTx(tx *gorm.DB, user *models.User, today time.Time) bool {
	if user.HasUsedStreakFreezeToday {
		return false
	}

	var lvl models.UserLevel
	if err := tx.Where("user_id = ?", user.ID).First(&lvl).Error; err != nil {
		return false
	}
	if lvl.StreakFreezeAvailable <= 0 {
		return false
	}
	if lvl.LastStreakFreezeUsed != nil && sameDay(*lvl.LastStreakFreezeUsed, today) {
		return false
	}

	lvl.StreakFreezeAvailable--
	lvl.LastStreakFreezeUsed = &today
	if err := tx.Save(&lvl).Error; err != nil {
		return false
	}
	user.HasUsedStreakFreezeToday = true
	return true
}

// UseStreakFreeze is the explicit user-facing operation. Unavailability is a
// boolean outcome, not an error.
func (s *StreakService) UseStreakFreeze(userID string) (bool, error) {
	used := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if s.consumeFreezeTx(tx, &user, dateOf(s.Clock.Now())) {
			used = true
			return tx.Save(&user).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return used, nil
}

// CurrentStreak recomputes the streak from the raw log, walking backward from
// today (or yesterday, if today has no session yet). Pure read; after any
// write it agrees with the stored counter.
func (s *StreakService) CurrentStreak(userID string) (int, error) {
	today := dateOf(s.Clock.Now())

	studiedToday, err := s.existsOnDate(userID, today)
	if err != nil {
		return 0, err
	}

	check := today
	if !studiedToday {
		check = today.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < maxStreakWalk {
		ok, err := s.existsOnDate(userID, check)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak, nil
}

func (s *StreakService) existsOnDate(userID string, day time.Time) (bool, error) {
	var count int64
	err := s.DB.Model(&models.StudyLog{}).
		Where("user_id = ? AND study_date = ?", userID, day).
		Count(&count).Error
	return count > 0, err
}

// ResetDailyFreezeFlags clears has_used_streak_freeze_today for everyone.
// Run by the maintenance scheduler just after midnight.
func (s *StreakService) ResetDailyFreezeFlags() error {
	return s.DB.Model(&models.User{}).
		Where("has_used_streak_freeze_today = ?", true).
		Update("has_used_streak_freeze_today", false).Error
}
